package openapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// Validator validates HTTP requests and responses against an OpenAPI document.
type Validator struct {
	doc      *openapi3.T
	router   routers.Router
	basePath string
}

// NewValidatorFromBytes creates a validator from document bytes. basePath is
// stripped from request paths before routing, so a client configured with
// a prefixed base URL still matches the document's paths.
func NewValidatorFromBytes(specBytes []byte, basePath string) (*Validator, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(specBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	return &Validator{
		doc:      doc,
		router:   router,
		basePath: strings.TrimRight(basePath, "/"),
	}, nil
}

// findRoute routes a copy of req with the base path removed
func (v *Validator) findRoute(req *http.Request) (*http.Request, *routers.Route, map[string]string, error) {
	routed := req
	if v.basePath != "" && strings.HasPrefix(req.URL.Path, v.basePath) {
		u := *req.URL
		u.Path = strings.TrimPrefix(u.Path, v.basePath)
		u.RawPath = ""
		routed = req.Clone(req.Context())
		routed.URL = &u
	}

	route, pathParams, err := v.router.FindRoute(routed)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to find route for %s %s: %w", req.Method, req.URL.Path, err)
	}
	return routed, route, pathParams, nil
}

// ValidateRequest validates an outgoing request. The body is restored afterwards.
func (v *Validator) ValidateRequest(ctx context.Context, req *http.Request) error {
	body, err := drain(&req.Body)
	if err != nil {
		return err
	}

	routed, route, pathParams, err := v.findRoute(req)
	if err != nil {
		return err
	}
	routed.Body = io.NopCloser(bytes.NewReader(body))

	input := &openapi3filter.RequestValidationInput{
		Request:    routed,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError: true,
		},
	}

	if err := openapi3filter.ValidateRequest(ctx, input); err != nil {
		return fmt.Errorf("request validation failed: %w", err)
	}
	return nil
}

// ValidateResponse validates a response against the operation that served req.
// The response body is restored so the caller can still decode it.
func (v *Validator) ValidateResponse(ctx context.Context, req *http.Request, resp *http.Response) error {
	routed, route, pathParams, err := v.findRoute(req)
	if err != nil {
		return err
	}

	body, err := drain(&resp.Body)
	if err != nil {
		return err
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    routed,
			PathParams: pathParams,
			Route:      route,
		},
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	}

	if err := openapi3filter.ValidateResponse(ctx, input); err != nil {
		return fmt.Errorf("response validation failed: %w", err)
	}
	return nil
}

// Document returns the parsed OpenAPI document.
func (v *Validator) Document() *openapi3.T {
	return v.doc
}

func drain(rc *io.ReadCloser) ([]byte, error) {
	if *rc == nil || *rc == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(*rc)
	_ = (*rc).Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	*rc = io.NopCloser(bytes.NewReader(data))
	return data, nil
}
