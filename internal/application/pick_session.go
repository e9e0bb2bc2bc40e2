package application

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/pkg/idempotency"
	"github.com/wms-platform/pick-terminal/pkg/logging"
	"github.com/wms-platform/pick-terminal/pkg/tracing"
)

var tracer = otel.Tracer("github.com/wms-platform/pick-terminal/application")

// PickSession owns the in-memory state of one loaded pick document and applies
// worker deltas to it optimistically.
//
// Mutations on the same line are queued: each line has a one-slot gate and a
// second call waits until the first has settled. Different lines proceed
// concurrently. Network calls are made without holding the session lock.
type PickSession struct {
	server  domain.PickServer
	newKey  idempotency.Generator
	logger  *logging.Logger
	metrics MetricsRecorder

	mu         sync.Mutex
	documentID string
	doc        *domain.PickDocument
	gates      map[string]chan struct{}
	inflight   map[string]*LineTransaction
	completing bool
	closed     bool
}

// NewPickSession starts a session on a copy of doc
func NewPickSession(doc *domain.PickDocument, server domain.PickServer, logger *logging.Logger, m MetricsRecorder) (*PickSession, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidDocument)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}

	gates := make(map[string]chan struct{}, len(doc.Lines))
	for _, line := range doc.Lines {
		gates[line.ID] = make(chan struct{}, 1)
	}

	return &PickSession{
		server:     server,
		newKey:     idempotency.NewKey,
		logger:     logger.WithComponent("pick-session").WithDocument(doc.ID),
		metrics:    metricsOrNoop(m),
		documentID: doc.ID,
		doc:        doc.Clone(),
		gates:      gates,
		inflight:   make(map[string]*LineTransaction),
	}, nil
}

// DocumentID returns the id of the document this session was opened for
func (s *PickSession) DocumentID() string {
	return s.documentID
}

// Document returns a copy of the current document state, or nil once closed
func (s *PickSession) Document() *domain.PickDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// InFlight returns the number of mutations awaiting a server answer
func (s *PickSession) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// PendingLines returns the ids of lines with a mutation awaiting the server
func (s *PickSession) PendingLines() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := make(map[string]bool, len(s.inflight))
	for id := range s.inflight {
		pending[id] = true
	}
	return pending
}

// Closed reports whether the session has ended
func (s *PickSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close ends the session and discards its line state. In-flight calls still
// settle but their results are dropped.
func (s *PickSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.doc = nil
}

func (s *PickSession) usableLocked() error {
	switch {
	case s.closed:
		return domain.ErrSessionClosed
	case s.completing:
		return domain.ErrCompletionInProgress
	}
	return nil
}

// ApplyDelta changes one line's picked quantity by exactly +1 or -1.
//
// Local guards run before anything is sent: an increment on a fully picked
// line fails with domain.ErrOverflow and a decrement at zero with
// domain.ErrBelowZero. Otherwise the line is updated at once, a request with
// a fresh idempotency key is sent, and the line is replaced by the server's
// version on success or restored on any failure. Failed calls are never
// retried; calling again starts a new attempt with a new key.
func (s *PickSession) ApplyDelta(ctx context.Context, lineID string, delta int) error {
	if err := domain.ValidateDelta(delta); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	gate, ok := s.gates[lineID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrLineNotFound, lineID)
	}

	select {
	case gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-gate }()

	tx, err := s.begin(lineID, delta)
	if err != nil {
		return err
	}

	req := domain.MutationRequest{
		RequestID: tx.Key,
		LineID:    lineID,
		Delta:     delta,
	}
	result, err := tracing.TracedOperation(ctx, tracer, "pick.apply_delta",
		func(ctx context.Context) (*domain.MutationResult, error) {
			return s.server.ApplyPick(ctx, req)
		},
		tracing.PickSpanAttributes(s.documentID, lineID, delta, tx.Key)...,
	)

	return s.settle(ctx, tx, result, err)
}

// begin runs the local guards and applies the optimistic change
func (s *PickSession) begin(lineID string, delta int) (*LineTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usableLocked(); err != nil {
		return nil, err
	}

	idx := s.doc.LineIndex(lineID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrLineNotFound, lineID)
	}
	if err := s.doc.Lines[idx].CheckDelta(delta); err != nil {
		s.metrics.RecordPickDelta(delta, deltaRejected)
		s.logger.Debug("Pick delta rejected locally", "lineId", lineID, "delta", delta, "reason", err.Error())
		return nil, err
	}

	tx, err := beginLineTransaction(s.doc, lineID, delta, s.newKey())
	if err != nil {
		return nil, err
	}
	tx.Apply()
	s.inflight[lineID] = tx
	return tx, nil
}

// settle commits or rolls back tx once the server has answered
func (s *PickSession) settle(ctx context.Context, tx *LineTransaction, result *domain.MutationResult, callErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, tx.LineID)
	log := s.logger.WithContext(ctx)

	if s.closed {
		if callErr != nil {
			return fmt.Errorf("apply pick on line %s: %w", tx.LineID, callErr)
		}
		return nil
	}

	if callErr == nil && result == nil {
		callErr = fmt.Errorf("%w: empty pick response", domain.ErrLineMismatch)
	}
	if callErr != nil {
		tx.Rollback()
		s.metrics.RecordPickDelta(tx.Delta, deltaRolledBack)
		log.WithError(callErr).Warn("Pick delta rolled back",
			"lineId", tx.LineID,
			"delta", tx.Delta,
			"requestId", tx.Key,
			"errorKind", string(domain.KindOf(callErr)),
		)
		return fmt.Errorf("apply pick on line %s: %w", tx.LineID, callErr)
	}

	if err := tx.Commit(result.Line); err != nil {
		s.metrics.RecordPickDelta(tx.Delta, deltaRolledBack)
		log.WithError(err).Error("Pick response did not match line", "lineId", tx.LineID, "requestId", tx.Key)
		return err
	}
	if result.DocumentStatus.IsValid() {
		s.doc.Status = result.DocumentStatus
	}

	s.metrics.RecordPickDelta(tx.Delta, deltaCommitted)
	committed := s.doc.Lines[tx.idx]
	log.Event(ctx, "pick.delta.committed", map[string]any{
		"documentId":  s.documentID,
		"lineId":      tx.LineID,
		"delta":       tx.Delta,
		"requestId":   tx.Key,
		"qtyPicked":   committed.QtyPicked,
		"qtyRequired": committed.QtyRequired,
	})
	return nil
}

// PickUnits applies |units| sequential deltas in the direction of units's sign.
// Each step is its own attempt with its own key. It stops at the first
// failure and reports how many steps were applied.
func (s *PickSession) PickUnits(ctx context.Context, lineID string, units int) (int, error) {
	if units == 0 {
		return 0, domain.ErrInvalidDelta
	}

	delta, n := 1, units
	if units < 0 {
		delta, n = -1, -units
	}

	for i := 0; i < n; i++ {
		if err := s.ApplyDelta(ctx, lineID, delta); err != nil {
			return i, err
		}
	}
	return n, nil
}

// beginCompletion freezes the session for a completion call
func (s *PickSession) beginCompletion() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usableLocked(); err != nil {
		return err
	}
	if len(s.inflight) > 0 {
		return domain.ErrMutationsPending
	}
	if !CanComplete(s.doc) {
		return domain.ErrCompletionNotAllowed
	}
	s.completing = true
	return nil
}

// finishCompletion ends the session on success and unfreezes it on failure
func (s *PickSession) finishCompletion(succeeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completing = false
	if succeeded {
		s.closed = true
		s.doc = nil
	}
}
