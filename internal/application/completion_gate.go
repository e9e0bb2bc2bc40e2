package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/pkg/logging"
)

// Completion results
const (
	completionSucceeded = "succeeded"
	completionRejected  = "rejected"
	completionFailed    = "failed"
)

// CanComplete reports whether every line of doc is fully picked.
// A document without lines cannot be completed.
func CanComplete(doc *domain.PickDocument) bool {
	if doc == nil {
		return false
	}
	return doc.FullyPicked()
}

// CompletionGate finishes documents on the pick server
type CompletionGate struct {
	server  domain.PickServer
	logger  *logging.Logger
	metrics MetricsRecorder
}

// NewCompletionGate creates a new CompletionGate
func NewCompletionGate(server domain.PickServer, logger *logging.Logger, m MetricsRecorder) *CompletionGate {
	if logger == nil {
		logger = logging.Nop()
	}
	return &CompletionGate{
		server:  server,
		logger:  logger.WithComponent("completion-gate"),
		metrics: metricsOrNoop(m),
	}
}

// Complete asks the server to finish the session's document.
//
// Nothing is sent unless every line is fully picked and no pick is awaiting
// the server. While the call is out the session refuses new deltas. On
// success the session is closed and the server's document is returned with
// DONE as the status when the server gives none. On failure the session is
// left exactly as it was.
func (g *CompletionGate) Complete(ctx context.Context, session *PickSession) (*domain.PickDocument, error) {
	documentID := session.DocumentID()
	log := g.logger.WithContext(ctx).WithDocument(documentID)

	if err := session.beginCompletion(); err != nil {
		g.metrics.RecordCompletion(completionRejected)
		log.Debug("Completion refused", "reason", err.Error())
		return nil, err
	}

	start := time.Now()
	doc, err := g.server.CompleteDocument(ctx, documentID)
	log.Performance(ctx, "complete_document", time.Since(start), err == nil, nil)
	if err != nil {
		session.finishCompletion(false)
		g.metrics.RecordCompletion(completionFailed)
		log.WithError(err).Warn("Document completion failed", "errorKind", string(domain.KindOf(err)))
		return nil, fmt.Errorf("complete document %s: %w", documentID, err)
	}
	session.finishCompletion(true)

	if doc == nil {
		doc = &domain.PickDocument{ID: documentID}
	}
	if !doc.Status.IsValid() {
		doc.Status = domain.DocumentStatusDone
	}

	g.metrics.RecordCompletion(completionSucceeded)
	log.Event(ctx, "pick.document.completed", map[string]any{
		"documentId": documentID,
		"status":     string(doc.Status),
	})
	return doc, nil
}
