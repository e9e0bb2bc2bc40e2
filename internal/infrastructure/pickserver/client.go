// Package pickserver is the HTTP client for the remote pick server.
package pickserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/pkg/contracts/openapi"
	"github.com/wms-platform/pick-terminal/pkg/idempotency"
	"github.com/wms-platform/pick-terminal/pkg/logging"
	"github.com/wms-platform/pick-terminal/pkg/resilience"
	"github.com/wms-platform/pick-terminal/pkg/tracing"
)

const (
	tracerName = "github.com/wms-platform/pick-terminal/pickserver"

	// CodeContractViolation marks a response that does not match the contract
	CodeContractViolation = "CONTRACT_VIOLATION"
	// CodeInvalidResponse marks a response body that could not be decoded
	CodeInvalidResponse = "INVALID_RESPONSE"
)

// Operation names used for metrics, logs and spans
const (
	OpGetDocument      = "get_document"
	OpApplyPick        = "apply_pick"
	OpCompleteDocument = "complete_document"
	OpResolveBarcode   = "resolve_barcode"
	OpInventory        = "inventory_by_barcode"
)

// CallRecorder receives one observation per pick server call
type CallRecorder interface {
	RecordRemoteCall(operation, outcome string, duration time.Duration)
}

// Config holds pick server client settings
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	StrictContract bool
}

// DefaultConfig returns the client defaults
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL: baseURL,
		Timeout: 15 * time.Second,
	}
}

// Client talks to the pick server. Implements domain.PickServer.
// Every call is bounded by the configured timeout and runs through the
// circuit breaker. Calls are never retried here.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	validator  *openapi.Validator
	recorder   CallRecorder
	tracer     trace.Tracer
	logger     *logging.Logger
}

// NewClient creates a new pick server client. breaker and recorder may be nil.
func NewClient(config *Config, breaker *resilience.CircuitBreaker, recorder CallRecorder, logger *logging.Logger) (*Client, error) {
	if config == nil || config.BaseURL == "" {
		return nil, errors.New("pick server url is required")
	}
	if _, err := url.ParseRequestURI(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid pick server url %q: %w", config.BaseURL, err)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		breaker:    breaker,
		recorder:   recorder,
		tracer:     otel.Tracer(tracerName),
		logger:     logger.WithComponent("pick-server-client"),
	}

	if config.StrictContract {
		v, err := NewContractValidator(c.baseURL)
		if err != nil {
			return nil, err
		}
		c.validator = v
	}

	return c, nil
}

// GetDocument fetches a pick document
func (c *Client) GetDocument(ctx context.Context, documentID string) (*domain.PickDocument, error) {
	var wire pickDocumentWire
	path := "/pick-documents/" + url.PathEscape(documentID)
	if err := c.doRequest(ctx, OpGetDocument, http.MethodGet, path, nil, nil, &wire); err != nil {
		return nil, err
	}
	return wire.toDomain(), nil
}

// ApplyPick sends one ±1 mutation. The request id doubles as the
// Idempotency-Key header so the server can recognize a repeated attempt.
func (c *Client) ApplyPick(ctx context.Context, req domain.MutationRequest) (*domain.MutationResult, error) {
	if err := idempotency.ValidateKey(req.RequestID); err != nil {
		return nil, err
	}

	body := pickRequestWire{Delta: req.Delta, RequestID: req.RequestID}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pick request: %w", err)
	}

	headers := http.Header{}
	headers.Set(idempotency.HeaderIdempotencyKey, req.RequestID)
	headers.Set(idempotency.HeaderFingerprint, idempotency.ComputeFingerprint(encoded))

	var wire pickResponseWire
	path := "/pick-lines/" + url.PathEscape(req.LineID) + "/pick"
	if err := c.doRequest(ctx, OpApplyPick, http.MethodPost, path, body, headers, &wire,
		attribute.String("wms.pick.line_id", req.LineID),
		attribute.Int("wms.pick.delta", req.Delta),
		attribute.String("wms.pick.request_id", req.RequestID),
	); err != nil {
		return nil, err
	}
	return wire.toDomain(), nil
}

// CompleteDocument finalizes a pick document
func (c *Client) CompleteDocument(ctx context.Context, documentID string) (*domain.PickDocument, error) {
	var wire pickDocumentWire
	path := "/pick-documents/" + url.PathEscape(documentID) + "/complete"
	if err := c.doRequest(ctx, OpCompleteDocument, http.MethodPost, path, nil, nil, &wire); err != nil {
		return nil, err
	}
	return wire.toDomain(), nil
}

// ResolveBarcode asks what a barcode identifies
func (c *Client) ResolveBarcode(ctx context.Context, barcode string) (*domain.EntityRef, error) {
	var wire entityRefWire
	body := resolveRequestWire{Barcode: barcode}
	if err := c.doRequest(ctx, OpResolveBarcode, http.MethodPost, "/scanner/resolve", body, nil, &wire,
		tracing.ScanSpanAttributes(barcode)...,
	); err != nil {
		return nil, err
	}
	return wire.toDomain(), nil
}

// InventoryByBarcode fetches the inventory snapshot of a product
func (c *Client) InventoryByBarcode(ctx context.Context, barcode string) (*domain.ProductInventorySnapshot, error) {
	var wire inventoryWire
	path := "/inventory/by-barcode/" + url.PathEscape(barcode)
	if err := c.doRequest(ctx, OpInventory, http.MethodGet, path, nil, nil, &wire,
		tracing.ScanSpanAttributes(barcode)...,
	); err != nil {
		return nil, err
	}
	return wire.toDomain(), nil
}

// rawResponse is what crosses the circuit breaker for answered calls
type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// doRequest performs one bounded call and decodes the response into result
func (c *Client) doRequest(
	ctx context.Context,
	operation, method, path string,
	body interface{},
	headers http.Header,
	result interface{},
	attrs ...attribute.KeyValue,
) (err error) {
	target := c.baseURL + path
	start := time.Now()
	status := 0

	ctx, span := c.tracer.Start(ctx, "pickserver."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.HTTPClientSpanAttributes(method, target, 0)...),
		trace.WithAttributes(attrs...),
	)
	defer func() {
		if status > 0 {
			span.SetAttributes(tracing.HTTPClientSpanAttributes(method, target, status)...)
		}
		tracing.RecordResult(span, err)
		span.End()
		c.observe(ctx, operation, status, time.Since(start), err)
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(callCtx, method, target, body, headers)
	if err != nil {
		return err
	}

	if c.validator != nil {
		if verr := c.validator.ValidateRequest(callCtx, req); verr != nil {
			return fmt.Errorf("pick server request violates contract: %w", verr)
		}
	}

	raw, err := c.execute(callCtx, req)
	if err != nil {
		var httpErr *domain.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.StatusCode
		}
		return c.classify(ctx, callCtx, err)
	}
	status = raw.status

	if raw.status >= http.StatusBadRequest {
		return decodeHTTPError(raw)
	}

	if c.validator != nil {
		resp := &http.Response{
			StatusCode: raw.status,
			Header:     raw.header,
			Body:       io.NopCloser(bytes.NewReader(raw.body)),
		}
		if verr := c.validator.ValidateResponse(callCtx, req, resp); verr != nil {
			return &domain.HTTPError{
				StatusCode: http.StatusBadGateway,
				Code:       CodeContractViolation,
				Message:    verr.Error(),
			}
		}
	}

	if result != nil && len(raw.body) > 0 {
		if err := json.Unmarshal(raw.body, result); err != nil {
			return &domain.HTTPError{
				StatusCode: http.StatusBadGateway,
				Code:       CodeInvalidResponse,
				Message:    fmt.Sprintf("failed to decode %s response: %v", operation, err),
			}
		}
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body interface{}, headers http.Header) (*http.Request, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	tracing.InjectHTTPHeaders(ctx, req.Header)

	return req, nil
}

// execute sends req through the breaker. Server errors (5xx) count as breaker
// failures; client errors (4xx) come back as answered responses.
func (c *Client) execute(ctx context.Context, req *http.Request) (*rawResponse, error) {
	send := func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		raw := &rawResponse{status: resp.StatusCode, header: resp.Header, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, decodeHTTPError(raw)
		}
		return raw, nil
	}

	var (
		out interface{}
		err error
	)
	if c.breaker != nil {
		out, err = c.breaker.Execute(ctx, send)
	} else {
		out, err = send()
	}
	if err != nil {
		return nil, err
	}
	return out.(*rawResponse), nil
}

// classify maps transport failures onto domain error kinds
func (c *Client) classify(parent, callCtx context.Context, err error) error {
	var httpErr *domain.HTTPError
	var netErr net.Error

	switch {
	case errors.As(err, &httpErr):
		return err
	case errors.Is(err, resilience.ErrCircuitOpen):
		return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	case parent.Err() != nil && !errors.Is(parent.Err(), context.DeadlineExceeded):
		return fmt.Errorf("pick server call cancelled: %w", parent.Err())
	case errors.Is(callCtx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %w", domain.ErrTimeout, c.timeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
}

func (c *Client) observe(ctx context.Context, operation string, status int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	if c.recorder != nil {
		c.recorder.RecordRemoteCall(operation, outcome, duration)
	}
	c.logger.RemoteCall(ctx, operation, status, duration, err)
}

func decodeHTTPError(raw *rawResponse) *domain.HTTPError {
	httpErr := &domain.HTTPError{StatusCode: raw.status}

	var wire errorWire
	if err := json.Unmarshal(raw.body, &wire); err == nil && (wire.Code != "" || wire.Message != "") {
		httpErr.Code = wire.Code
		httpErr.Message = wire.Message
		return httpErr
	}

	httpErr.Message = strings.TrimSpace(string(raw.body))
	if httpErr.Message == "" {
		httpErr.Message = http.StatusText(raw.status)
	}
	return httpErr
}
