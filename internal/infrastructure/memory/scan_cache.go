// Package memory holds process-local adapters.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wms-platform/pick-terminal/internal/domain"
)

const backendName = "memory"

// OperationRecorder receives one observation per cache operation
type OperationRecorder interface {
	RecordCacheOperation(backend, operation string, success bool, duration time.Duration)
}

// ScanCache keeps product snapshots in process memory. Implements domain.ScanCache.
// Records survive until overwritten or the process exits.
type ScanCache struct {
	mu       sync.RWMutex
	records  map[string]domain.CachedEntityRecord
	clock    func() time.Time
	recorder OperationRecorder
}

// NewScanCache creates an empty cache. clock defaults to time.Now and recorder may be nil.
func NewScanCache(clock func() time.Time, recorder OperationRecorder) *ScanCache {
	if clock == nil {
		clock = time.Now
	}
	return &ScanCache{
		records:  make(map[string]domain.CachedEntityRecord),
		clock:    clock,
		recorder: recorder,
	}
}

// Get returns a copy of the record stored for barcode
func (c *ScanCache) Get(ctx context.Context, barcode string) (*domain.CachedEntityRecord, error) {
	start := time.Now()
	c.mu.RLock()
	record, ok := c.records[barcode]
	c.mu.RUnlock()
	c.observe("get", true, start)

	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return cloneRecord(record), nil
}

// Set stores record for barcode, replacing whatever was there
func (c *ScanCache) Set(ctx context.Context, barcode string, record *domain.CachedEntityRecord) error {
	start := time.Now()
	stored := cloneRecord(*record)
	c.mu.Lock()
	c.records[barcode] = *stored
	c.mu.Unlock()
	c.observe("set", true, start)
	return nil
}

// Now returns the cache clock
func (c *ScanCache) Now() time.Time {
	return c.clock()
}

// Len returns the number of stored records
func (c *ScanCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func (c *ScanCache) observe(operation string, success bool, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordCacheOperation(backendName, operation, success, time.Since(start))
	}
}

// cloneRecord copies the slices so callers cannot mutate stored state
func cloneRecord(r domain.CachedEntityRecord) *domain.CachedEntityRecord {
	r.BestLocations = append([]domain.LocationStock(nil), r.BestLocations...)
	r.FEFOLots = append([]domain.Lot(nil), r.FEFOLots...)
	return &r
}
