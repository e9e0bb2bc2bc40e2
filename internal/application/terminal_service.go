package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/pkg/logging"
)

// Scan outcomes
const (
	scanProduct       = "product"
	scanLocation      = "location"
	scanUnknown       = "unknown"
	scanCachedProduct = "cached_product"
	scanUnresolved    = "unresolved"
	scanError         = "error"
)

// TerminalService handles the use cases of one picking terminal
type TerminalService struct {
	server   domain.PickServer
	resolver ScanResolver
	gate     *CompletionGate
	logger   *logging.Logger
	metrics  MetricsRecorder

	mu       sync.RWMutex
	sessions map[string]*PickSession
}

// NewTerminalService creates a new TerminalService
func NewTerminalService(
	server domain.PickServer,
	resolver ScanResolver,
	logger *logging.Logger,
	m MetricsRecorder,
) *TerminalService {
	if logger == nil {
		logger = logging.Nop()
	}
	m = metricsOrNoop(m)
	return &TerminalService{
		server:   server,
		resolver: resolver,
		gate:     NewCompletionGate(server, logger, m),
		logger:   logger,
		metrics:  m,
		sessions: make(map[string]*PickSession),
	}
}

// LoadDocument fetches a document and starts a session on it, replacing any
// session already open for the same document
func (s *TerminalService) LoadDocument(ctx context.Context, cmd LoadDocumentCommand) (*PickDocumentDTO, error) {
	doc, err := s.server.GetDocument(ctx, cmd.DocumentID)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to load pick document", "documentId", cmd.DocumentID)
		return nil, fmt.Errorf("failed to load pick document: %w", err)
	}
	if doc.ID != cmd.DocumentID {
		return nil, fmt.Errorf("%w: requested %s, got %s", domain.ErrInvalidDocument, cmd.DocumentID, doc.ID)
	}

	session, err := NewPickSession(doc, s.server, s.logger, s.metrics)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if previous, ok := s.sessions[doc.ID]; ok {
		previous.Close()
	}
	s.sessions[doc.ID] = session
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(active)

	s.logger.Event(ctx, "pick.document.loaded", map[string]any{
		"documentId": doc.ID,
		"status":     string(doc.Status),
		"lines":      len(doc.Lines),
	})

	return s.sessionDTO(session), nil
}

// GetSession returns the session for a loaded document
func (s *TerminalService) GetSession(documentID string) (*PickSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[documentID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, documentID)
	}
	return session, nil
}

// GetDocument returns the current state of a loaded document
func (s *TerminalService) GetDocument(ctx context.Context, query GetDocumentQuery) (*PickDocumentDTO, error) {
	session, err := s.GetSession(query.DocumentID)
	if err != nil {
		return nil, err
	}
	return s.sessionDTO(session), nil
}

// ApplyDelta changes one line by +1 or -1 and returns the resulting document
func (s *TerminalService) ApplyDelta(ctx context.Context, cmd ApplyDeltaCommand) (*PickDocumentDTO, error) {
	session, err := s.GetSession(cmd.DocumentID)
	if err != nil {
		return nil, err
	}

	if err := session.ApplyDelta(ctx, cmd.LineID, cmd.Delta); err != nil {
		return nil, err
	}
	return s.sessionDTO(session), nil
}

// PickUnits picks several units of one line, one confirmed unit at a time
func (s *TerminalService) PickUnits(ctx context.Context, cmd PickUnitsCommand) (*PickUnitsResultDTO, error) {
	session, err := s.GetSession(cmd.DocumentID)
	if err != nil {
		return nil, err
	}

	applied, err := session.PickUnits(ctx, cmd.LineID, cmd.Quantity)
	if err != nil && applied == 0 {
		return nil, err
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Multi-unit pick stopped early",
			"documentId", cmd.DocumentID,
			"lineId", cmd.LineID,
			"requested", cmd.Quantity,
			"applied", applied,
		)
	}

	s.logger.Event(ctx, "pick.units.applied", map[string]any{
		"documentId": cmd.DocumentID,
		"lineId":     cmd.LineID,
		"requested":  cmd.Quantity,
		"applied":    applied,
	})

	return &PickUnitsResultDTO{
		Requested: cmd.Quantity,
		Applied:   applied,
		Document:  s.sessionDTO(session),
	}, nil
}

// CompletionStatus reports whether the complete action may be offered
func (s *TerminalService) CompletionStatus(ctx context.Context, query CompletionStatusQuery) (*CompletionStatusDTO, error) {
	session, err := s.GetSession(query.DocumentID)
	if err != nil {
		return nil, err
	}

	doc := session.Document()
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionClosed, query.DocumentID)
	}
	progress := doc.Progress()
	inFlight := session.InFlight()

	return &CompletionStatusDTO{
		DocumentID:     query.DocumentID,
		CanComplete:    CanComplete(doc) && inFlight == 0,
		InFlight:       inFlight,
		LinesRemaining: progress.LinesTotal - progress.LinesDone,
	}, nil
}

// Complete finishes a fully picked document and ends its session
func (s *TerminalService) Complete(ctx context.Context, cmd CompleteDocumentCommand) (*CompletedDocumentDTO, error) {
	session, err := s.GetSession(cmd.DocumentID)
	if err != nil {
		return nil, err
	}

	doc, err := s.gate.Complete(ctx, session)
	if err != nil {
		return nil, err
	}

	s.drop(cmd.DocumentID, session)
	return ToCompletedDocumentDTO(doc), nil
}

// CloseSession abandons a loaded document without completing it
func (s *TerminalService) CloseSession(ctx context.Context, cmd CloseSessionCommand) error {
	session, err := s.GetSession(cmd.DocumentID)
	if err != nil {
		return err
	}

	session.Close()
	s.drop(cmd.DocumentID, session)

	s.logger.Event(ctx, "pick.session.closed", map[string]any{
		"documentId": cmd.DocumentID,
	})
	return nil
}

// Scan resolves a barcode. When a document is given the result lists the
// lines it matches by product barcode or location code.
func (s *TerminalService) Scan(ctx context.Context, cmd ScanCommand) (*ScanResultDTO, error) {
	var session *PickSession
	if cmd.DocumentID != "" {
		var err error
		if session, err = s.GetSession(cmd.DocumentID); err != nil {
			return nil, err
		}
	}

	result, err := s.resolver.Resolve(ctx, cmd.Barcode)
	if err != nil {
		s.recordScanFailure(ctx, cmd.Barcode, err)
		return nil, err
	}
	s.metrics.RecordScanResolution(scanOutcome(result))

	dto := ToScanResultDTO(result)
	if session != nil {
		dto.MatchingLines = matchingLines(session.Document(), result)
	}

	s.logger.Event(ctx, "scan.resolved", map[string]any{
		"barcode":    result.Barcode,
		"kind":       string(result.Kind),
		"stale":      result.Stale,
		"documentId": cmd.DocumentID,
		"matches":    len(dto.MatchingLines),
	})
	return dto, nil
}

// LookupProduct returns inventory detail for a product barcode
func (s *TerminalService) LookupProduct(ctx context.Context, query ProductByBarcodeQuery) (*ScanResultDTO, error) {
	result, err := s.resolver.LookupProductDetail(ctx, query.Barcode)
	if err != nil {
		s.recordScanFailure(ctx, query.Barcode, err)
		return nil, err
	}
	s.metrics.RecordScanResolution(scanOutcome(result))
	return ToScanResultDTO(result), nil
}

// ActiveSessions returns the number of open sessions
func (s *TerminalService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *TerminalService) drop(documentID string, session *PickSession) {
	s.mu.Lock()
	if s.sessions[documentID] == session {
		delete(s.sessions, documentID)
	}
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(active)
}

func (s *TerminalService) sessionDTO(session *PickSession) *PickDocumentDTO {
	return ToPickDocumentDTO(session.Document(), session.PendingLines())
}

func (s *TerminalService) recordScanFailure(ctx context.Context, barcode string, err error) {
	log := s.logger.WithContext(ctx).WithError(err)
	if errors.Is(err, domain.ErrUnresolvedScan) {
		s.metrics.RecordScanResolution(scanUnresolved)
		log.Warn("Barcode could not be resolved", "barcode", barcode)
		return
	}
	s.metrics.RecordScanResolution(scanError)
	log.Warn("Scan failed", "barcode", barcode, "errorKind", string(domain.KindOf(err)))
}

func scanOutcome(result *domain.ScanResult) string {
	switch {
	case result.Stale:
		return scanCachedProduct
	case result.Kind == domain.ScanKindProduct:
		return scanProduct
	case result.Kind == domain.ScanKindLocation:
		return scanLocation
	default:
		return scanUnknown
	}
}

func matchingLines(doc *domain.PickDocument, result *domain.ScanResult) []string {
	if doc == nil {
		return nil
	}

	var ids []string
	for _, line := range doc.Lines {
		switch result.Kind {
		case domain.ScanKindProduct:
			if line.Product.Barcode == result.Barcode ||
				(result.Product != nil && result.Product.Barcode != "" && line.Product.Barcode == result.Product.Barcode) {
				ids = append(ids, line.ID)
			}
		case domain.ScanKindLocation:
			if line.LocationCode == result.Barcode || line.LocationCode == result.Entity.EntityID {
				ids = append(ids, line.ID)
			}
		}
	}
	return ids
}
