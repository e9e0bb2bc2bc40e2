package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/pkg/logging"
)

const (
	backendName         = "mongodb"
	scanCacheCollection = "scan_cache"
)

// DefaultCacheRetention bounds how long unused snapshots stay in the collection
const DefaultCacheRetention = 24 * time.Hour

// OperationRecorder receives one observation per cache operation
type OperationRecorder interface {
	RecordCacheOperation(backend, operation string, success bool, duration time.Duration)
}

type locationStockDocument struct {
	Code         string `bson:"code"`
	AvailableQty int    `bson:"available_qty"`
}

type lotDocument struct {
	Batch        string    `bson:"batch"`
	Expiry       time.Time `bson:"expiry"`
	AvailableQty int       `bson:"available_qty"`
}

// scanCacheDocument is the stored form of a cached product, keyed by the scanned barcode
type scanCacheDocument struct {
	ScannedBarcode string                  `bson:"_id"`
	ProductID      string                  `bson:"product_id"`
	Name           string                  `bson:"name"`
	Barcode        string                  `bson:"barcode"`
	BestLocations  []locationStockDocument `bson:"best_locations"`
	FEFOLots       []lotDocument           `bson:"fefo_lots"`
	TotalAvailable int                     `bson:"total_available"`
	Timestamp      time.Time               `bson:"timestamp"`
}

// ScanCacheRepository stores product snapshots in MongoDB so they survive a
// terminal restart. Implements domain.ScanCache.
type ScanCacheRepository struct {
	collection *mongo.Collection
	retention  time.Duration
	recorder   OperationRecorder
	logger     *logging.Logger
}

// NewScanCacheRepository creates a new ScanCacheRepository. Documents older
// than retention are removed by a TTL index; zero keeps them forever.
func NewScanCacheRepository(db *mongo.Database, retention time.Duration, recorder OperationRecorder, logger *logging.Logger) *ScanCacheRepository {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ScanCacheRepository{
		collection: db.Collection(scanCacheCollection),
		retention:  retention,
		recorder:   recorder,
		logger:     logger.WithComponent("scan-cache-repository"),
	}
}

// EnsureIndexes creates the TTL index on timestamp
func (r *ScanCacheRepository) EnsureIndexes(ctx context.Context) error {
	if r.retention <= 0 {
		return nil
	}
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "timestamp", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(r.retention.Seconds())),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, index); err != nil {
		return fmt.Errorf("failed to create scan cache indexes: %w", err)
	}
	return nil
}

// Get returns the record stored for barcode
func (r *ScanCacheRepository) Get(ctx context.Context, barcode string) (record *domain.CachedEntityRecord, err error) {
	start := time.Now()
	defer func() {
		r.observe(ctx, "get", barcode, start, err == nil || errors.Is(err, domain.ErrCacheMiss))
	}()

	var doc scanCacheDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": barcode}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scan cache: %w", err)
	}
	return doc.toDomain(), nil
}

// Set upserts the record for barcode. Concurrent writers race and the last one wins.
func (r *ScanCacheRepository) Set(ctx context.Context, barcode string, record *domain.CachedEntityRecord) (err error) {
	start := time.Now()
	defer func() {
		r.observe(ctx, "set", barcode, start, err == nil)
	}()

	doc := toScanCacheDocument(barcode, record)
	opts := options.Replace().SetUpsert(true)
	if _, err = r.collection.ReplaceOne(ctx, bson.M{"_id": barcode}, doc, opts); err != nil {
		return fmt.Errorf("failed to write scan cache: %w", err)
	}
	return nil
}

// Now returns the current time at the precision MongoDB stores
func (r *ScanCacheRepository) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *ScanCacheRepository) observe(ctx context.Context, operation, barcode string, start time.Time, success bool) {
	duration := time.Since(start)
	if r.recorder != nil {
		r.recorder.RecordCacheOperation(backendName, operation, success, duration)
	}
	r.logger.CacheAccess(ctx, backendName, operation, barcode, duration, success)
}

func toScanCacheDocument(barcode string, record *domain.CachedEntityRecord) *scanCacheDocument {
	locations := make([]locationStockDocument, 0, len(record.BestLocations))
	for _, loc := range record.BestLocations {
		locations = append(locations, locationStockDocument{Code: loc.Code, AvailableQty: loc.AvailableQty})
	}
	lots := make([]lotDocument, 0, len(record.FEFOLots))
	for _, lot := range record.FEFOLots {
		lots = append(lots, lotDocument{Batch: lot.Batch, Expiry: lot.Expiry, AvailableQty: lot.AvailableQty})
	}
	return &scanCacheDocument{
		ScannedBarcode: barcode,
		ProductID:      record.ProductID,
		Name:           record.Name,
		Barcode:        record.Barcode,
		BestLocations:  locations,
		FEFOLots:       lots,
		TotalAvailable: record.TotalAvailable,
		Timestamp:      record.Timestamp,
	}
}

func (d *scanCacheDocument) toDomain() *domain.CachedEntityRecord {
	locations := make([]domain.LocationStock, 0, len(d.BestLocations))
	for _, loc := range d.BestLocations {
		locations = append(locations, domain.LocationStock{Code: loc.Code, AvailableQty: loc.AvailableQty})
	}
	lots := make([]domain.Lot, 0, len(d.FEFOLots))
	for _, lot := range d.FEFOLots {
		lots = append(lots, domain.Lot{Batch: lot.Batch, Expiry: lot.Expiry, AvailableQty: lot.AvailableQty})
	}
	return &domain.CachedEntityRecord{
		ProductInventorySnapshot: domain.ProductInventorySnapshot{
			ProductID:      d.ProductID,
			Name:           d.Name,
			Barcode:        d.Barcode,
			BestLocations:  locations,
			FEFOLots:       lots,
			TotalAvailable: d.TotalAvailable,
		},
		Timestamp: d.Timestamp,
	}
}
