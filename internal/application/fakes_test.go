package application

import (
	"context"
	"sync"
	"time"

	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/pkg/testutil"
)

func createTestDocument() *domain.PickDocument {
	return &domain.PickDocument{
		ID:        "DOC-001",
		Reference: "PK-2024-0001",
		Status:    domain.DocumentStatusInProgress,
		Lines: []domain.PickLine{
			{ID: "L1", Product: domain.Product{Name: "Widget", SKU: "SKU-001", Barcode: "4006381333931"}, LocationCode: "A-01-01", QtyRequired: 5, QtyPicked: 3},
			{ID: "L2", Product: domain.Product{Name: "Gadget", SKU: "SKU-002", Barcode: "5012345678900"}, LocationCode: "A-01-02", QtyRequired: 2, QtyPicked: 0},
		},
	}
}

func createTestSnapshot() *domain.ProductInventorySnapshot {
	return &domain.ProductInventorySnapshot{
		ProductID: "P-001",
		Name:      "Widget",
		Barcode:   "4006381333931",
		BestLocations: []domain.LocationStock{
			{Code: "A-01-01", AvailableQty: 12},
		},
		FEFOLots: []domain.Lot{
			{Batch: "B-7", Expiry: time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), AvailableQty: 12},
		},
		TotalAvailable: 12,
	}
}

// fakePickServer keeps its own copy of the document and applies picks to it
type fakePickServer struct {
	mu sync.Mutex

	doc         *domain.PickDocument
	applyErrs   map[string]error
	blocks      map[string]chan struct{}
	started     chan domain.MutationRequest
	keys        []string
	applyCalls  int
	wrongLineID string

	completeErr    error
	completeStatus domain.DocumentStatus
	completeCalls  int

	refs           map[string]*domain.EntityRef
	inventories    map[string]*domain.ProductInventorySnapshot
	resolveErr     error
	resolveCalls   int
	inventoryCalls int
}

func newFakePickServer(doc *domain.PickDocument) *fakePickServer {
	return &fakePickServer{
		doc:         doc.Clone(),
		applyErrs:   make(map[string]error),
		blocks:      make(map[string]chan struct{}),
		started:     make(chan domain.MutationRequest, 64),
		refs:        make(map[string]*domain.EntityRef),
		inventories: make(map[string]*domain.ProductInventorySnapshot),
	}
}

func (f *fakePickServer) failLine(lineID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyErrs[lineID] = err
}

func (f *fakePickServer) blockLine(lineID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.blocks[lineID] = ch
	return ch
}

func (f *fakePickServer) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func (f *fakePickServer) ApplyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyCalls
}

func (f *fakePickServer) CompleteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completeCalls
}

func (f *fakePickServer) GetDocument(ctx context.Context, documentID string) (*domain.PickDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil || f.doc.ID != documentID {
		return nil, &domain.HTTPError{StatusCode: 404, Code: "NOT_FOUND", Message: "pick document not found"}
	}
	return f.doc.Clone(), nil
}

func (f *fakePickServer) ApplyPick(ctx context.Context, req domain.MutationRequest) (*domain.MutationResult, error) {
	f.mu.Lock()
	f.applyCalls++
	f.keys = append(f.keys, req.RequestID)
	block := f.blocks[req.LineID]
	f.mu.Unlock()

	f.started <- req

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, domain.ErrTimeout
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.applyErrs[req.LineID]; err != nil {
		return nil, err
	}

	idx := f.doc.LineIndex(req.LineID)
	if idx < 0 {
		return nil, &domain.HTTPError{StatusCode: 404, Code: "NOT_FOUND", Message: "line not found"}
	}
	f.doc.Lines[idx] = f.doc.Lines[idx].WithDelta(req.Delta)
	line := f.doc.Lines[idx]
	if f.wrongLineID != "" {
		line.ID = f.wrongLineID
	}
	progress := f.doc.Progress()
	return &domain.MutationResult{
		Line:           line,
		Progress:       &progress,
		DocumentStatus: domain.DocumentStatusInProgress,
	}, nil
}

func (f *fakePickServer) CompleteDocument(ctx context.Context, documentID string) (*domain.PickDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return &domain.PickDocument{ID: documentID, Reference: f.doc.Reference, Status: f.completeStatus}, nil
}

func (f *fakePickServer) ResolveBarcode(ctx context.Context, barcode string) (*domain.EntityRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if ref, ok := f.refs[barcode]; ok {
		return ref, nil
	}
	return &domain.EntityRef{Type: domain.EntityTypeUnknown}, nil
}

func (f *fakePickServer) InventoryByBarcode(ctx context.Context, barcode string) (*domain.ProductInventorySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventoryCalls++
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if snapshot, ok := f.inventories[barcode]; ok {
		copied := *snapshot
		return &copied, nil
	}
	return nil, &domain.HTTPError{StatusCode: 404, Code: "NOT_FOUND", Message: "product not found"}
}

// fakeScanCache is an in-memory ScanCache on a manual clock
type fakeScanCache struct {
	mu      sync.Mutex
	clock   *testutil.ManualClock
	records map[string]domain.CachedEntityRecord
	getErr  error
	setErr  error
}

func newFakeScanCache(clock *testutil.ManualClock) *fakeScanCache {
	return &fakeScanCache{clock: clock, records: make(map[string]domain.CachedEntityRecord)}
}

func (c *fakeScanCache) Get(ctx context.Context, barcode string) (*domain.CachedEntityRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	record, ok := c.records[barcode]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return &record, nil
}

func (c *fakeScanCache) Set(ctx context.Context, barcode string, record *domain.CachedEntityRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.records[barcode] = *record
	return nil
}

func (c *fakeScanCache) Now() time.Time {
	return c.clock.Now()
}

// fakeMetrics counts what the application reports
type fakeMetrics struct {
	mu          sync.Mutex
	deltas      map[string]int
	scans       map[string]int
	lookups     map[string]int
	completions map[string]int
	sessions    int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		deltas:      make(map[string]int),
		scans:       make(map[string]int),
		lookups:     make(map[string]int),
		completions: make(map[string]int),
	}
}

func (m *fakeMetrics) RecordPickDelta(delta int, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deltas[result]++
}

func (m *fakeMetrics) RecordScanResolution(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[outcome]++
}

func (m *fakeMetrics) RecordCacheLookup(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[result]++
}

func (m *fakeMetrics) RecordCompletion(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions[result]++
}

func (m *fakeMetrics) SetActiveSessions(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = count
}

func (m *fakeMetrics) count(counter map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counter[key]
}
