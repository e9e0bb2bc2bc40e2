package domain

import (
	"context"
	"time"
)

// PickServer is the remote source of truth for documents, picks and inventory
type PickServer interface {
	GetDocument(ctx context.Context, documentID string) (*PickDocument, error)
	ApplyPick(ctx context.Context, req MutationRequest) (*MutationResult, error)
	CompleteDocument(ctx context.Context, documentID string) (*PickDocument, error)
	ResolveBarcode(ctx context.Context, barcode string) (*EntityRef, error)
	InventoryByBarcode(ctx context.Context, barcode string) (*ProductInventorySnapshot, error)
}

// ScanCache is the advisory local store of product snapshots keyed by scanned barcode.
// Get returns ErrCacheMiss when nothing is stored. Writers race; the last one wins.
type ScanCache interface {
	Get(ctx context.Context, barcode string) (*CachedEntityRecord, error)
	Set(ctx context.Context, barcode string, record *CachedEntityRecord) error
	Now() time.Time
}
