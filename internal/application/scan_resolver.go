package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/pkg/logging"
)

// Cache lookup results
const (
	cacheFresh   = "fresh"
	cacheExpired = "expired"
	cacheMiss    = "miss"
	cacheError   = "error"
)

// ScanResolver turns a scanned barcode into something the UI can act on
type ScanResolver interface {
	// Resolve identifies the barcode and, for products, loads inventory detail
	Resolve(ctx context.Context, barcode string) (*domain.ScanResult, error)
	// LookupProductDetail loads inventory detail for a barcode known to be a product
	LookupProductDetail(ctx context.Context, barcode string) (*domain.ScanResult, error)
}

// NormalizeBarcode trims scanner noise and rejects empty input
func NormalizeBarcode(barcode string) (string, error) {
	trimmed := strings.TrimSpace(barcode)
	if trimmed == "" {
		return "", domain.ErrInvalidBarcode
	}
	return trimmed, nil
}

// LiveResolver asks the pick server and records every product it sees in the cache
type LiveResolver struct {
	server domain.PickServer
	cache  domain.ScanCache
	logger *logging.Logger
}

// NewLiveResolver creates a new LiveResolver. cache may be nil.
func NewLiveResolver(server domain.PickServer, cache domain.ScanCache, logger *logging.Logger) *LiveResolver {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LiveResolver{
		server: server,
		cache:  cache,
		logger: logger.WithComponent("live-resolver"),
	}
}

// Resolve implements ScanResolver
func (r *LiveResolver) Resolve(ctx context.Context, barcode string) (*domain.ScanResult, error) {
	code, err := NormalizeBarcode(barcode)
	if err != nil {
		return nil, err
	}

	ref, err := r.server.ResolveBarcode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("resolve barcode %s: %w", code, err)
	}

	switch ref.Type {
	case domain.EntityTypeProduct:
		result, err := r.LookupProductDetail(ctx, code)
		if err != nil {
			return nil, err
		}
		result.Entity = *ref
		return result, nil
	case domain.EntityTypeLocation:
		return &domain.ScanResult{Barcode: code, Kind: domain.ScanKindLocation, Entity: *ref}, nil
	default:
		return &domain.ScanResult{Barcode: code, Kind: domain.ScanKindUnknown, Entity: *ref}, nil
	}
}

// LookupProductDetail implements ScanResolver
func (r *LiveResolver) LookupProductDetail(ctx context.Context, barcode string) (*domain.ScanResult, error) {
	code, err := NormalizeBarcode(barcode)
	if err != nil {
		return nil, err
	}

	snapshot, err := r.server.InventoryByBarcode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("inventory for barcode %s: %w", code, err)
	}

	r.remember(ctx, code, snapshot)

	return &domain.ScanResult{
		Barcode: code,
		Kind:    domain.ScanKindProduct,
		Entity: domain.EntityRef{
			Type:         domain.EntityTypeProduct,
			EntityID:     snapshot.ProductID,
			DisplayLabel: snapshot.Name,
		},
		Product: snapshot,
	}, nil
}

// remember writes the snapshot to the cache. A failed write does not fail the scan.
func (r *LiveResolver) remember(ctx context.Context, barcode string, snapshot *domain.ProductInventorySnapshot) {
	if r.cache == nil {
		return
	}
	record := &domain.CachedEntityRecord{
		ProductInventorySnapshot: *snapshot,
		Timestamp:                r.cache.Now(),
	}
	if err := r.cache.Set(ctx, barcode, record); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Failed to cache product snapshot", "barcode", barcode)
	}
}

// CacheFallbackResolver wraps a live resolver and, when the pick server cannot
// be reached or answers with an error, serves a cached product snapshot that is
// younger than the TTL. Results served from the cache are marked stale.
type CacheFallbackResolver struct {
	live    ScanResolver
	cache   domain.ScanCache
	ttl     time.Duration
	logger  *logging.Logger
	metrics MetricsRecorder
}

// NewCacheFallbackResolver creates a new CacheFallbackResolver. A ttl of zero
// or less selects domain.DefaultScanCacheTTL.
func NewCacheFallbackResolver(live ScanResolver, cache domain.ScanCache, ttl time.Duration, logger *logging.Logger, m MetricsRecorder) *CacheFallbackResolver {
	if ttl <= 0 {
		ttl = domain.DefaultScanCacheTTL
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &CacheFallbackResolver{
		live:    live,
		cache:   cache,
		ttl:     ttl,
		logger:  logger.WithComponent("cache-fallback-resolver"),
		metrics: metricsOrNoop(m),
	}
}

// TTL returns the maximum age of a record that may still be served
func (r *CacheFallbackResolver) TTL() time.Duration {
	return r.ttl
}

// Resolve implements ScanResolver
func (r *CacheFallbackResolver) Resolve(ctx context.Context, barcode string) (*domain.ScanResult, error) {
	result, err := r.live.Resolve(ctx, barcode)
	if err == nil {
		return result, nil
	}
	return r.fallback(ctx, barcode, err)
}

// LookupProductDetail implements ScanResolver
func (r *CacheFallbackResolver) LookupProductDetail(ctx context.Context, barcode string) (*domain.ScanResult, error) {
	result, err := r.live.LookupProductDetail(ctx, barcode)
	if err == nil {
		return result, nil
	}
	return r.fallback(ctx, barcode, err)
}

func (r *CacheFallbackResolver) fallback(ctx context.Context, barcode string, cause error) (*domain.ScanResult, error) {
	if !domain.IsRemoteFailure(cause) {
		return nil, cause
	}

	code := strings.TrimSpace(barcode)
	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"barcode":   code,
		"errorKind": string(domain.KindOf(cause)),
	})

	record, err := r.cache.Get(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			r.metrics.RecordCacheLookup(cacheMiss)
			log.Info("Live scan failed and barcode is not cached")
		} else {
			r.metrics.RecordCacheLookup(cacheError)
			log.WithError(err).Warn("Live scan failed and cache lookup errored")
		}
		return nil, &domain.UnresolvedScanError{Barcode: code, Cause: cause}
	}

	now := r.cache.Now()
	if !record.IsFresh(now, r.ttl) {
		r.metrics.RecordCacheLookup(cacheExpired)
		log.Info("Live scan failed and cached snapshot is expired", "age", record.Age(now).String())
		return nil, &domain.UnresolvedScanError{Barcode: code, Cause: cause}
	}

	r.metrics.RecordCacheLookup(cacheFresh)
	log.Info("Serving cached product snapshot", "age", record.Age(now).String())

	snapshot := record.ProductInventorySnapshot
	return &domain.ScanResult{
		Barcode: code,
		Kind:    domain.ScanKindProduct,
		Entity: domain.EntityRef{
			Type:         domain.EntityTypeProduct,
			EntityID:     snapshot.ProductID,
			DisplayLabel: snapshot.Name,
		},
		Product:     &snapshot,
		Stale:       true,
		StaleReason: domain.KindOf(cause),
		CapturedAt:  record.Timestamp,
	}, nil
}
