package domain

import "time"

// DefaultScanCacheTTL bounds how old a cached product may be when served offline
const DefaultScanCacheTTL = 20 * time.Minute

// EntityType is what the resolver says a barcode identifies
type EntityType string

const (
	EntityTypeProduct  EntityType = "PRODUCT"
	EntityTypeLocation EntityType = "LOCATION"
	EntityTypeUnknown  EntityType = "UNKNOWN"
)

// EntityRef is the resolver's answer for a barcode
type EntityRef struct {
	Type         EntityType
	EntityID     string
	DisplayLabel string
}

// LocationStock is available quantity of a product at one location
type LocationStock struct {
	Code         string
	AvailableQty int
}

// Lot is a batch of a product with its expiry, listed nearest expiry first
type Lot struct {
	Batch        string
	Expiry       time.Time
	AvailableQty int
}

// ProductInventorySnapshot is the detail shown after a product scan
type ProductInventorySnapshot struct {
	ProductID      string
	Name           string
	Barcode        string
	BestLocations  []LocationStock
	FEFOLots       []Lot
	TotalAvailable int
}

// CachedEntityRecord is a product snapshot captured at Timestamp.
// It is only read when the live path fails.
type CachedEntityRecord struct {
	ProductInventorySnapshot
	Timestamp time.Time
}

// Age returns how old the record is at now
func (r *CachedEntityRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}

// IsFresh reports whether the record may still be served: age < ttl
func (r *CachedEntityRecord) IsFresh(now time.Time, ttl time.Duration) bool {
	return r.Age(now) < ttl
}

// ScanKind is the outcome the UI branches on after a scan
type ScanKind string

const (
	ScanKindProduct  ScanKind = "product"
	ScanKindLocation ScanKind = "location"
	ScanKindUnknown  ScanKind = "unknown"
)

// ScanResult is a resolved scan. Stale is set when Product came from the
// local cache instead of the server; CapturedAt is then the cache timestamp
// and StaleReason the kind of remote failure that forced the fallback.
type ScanResult struct {
	Barcode     string
	Kind        ScanKind
	Entity      EntityRef
	Product     *ProductInventorySnapshot
	Stale       bool
	StaleReason ErrorKind
	CapturedAt  time.Time
}
