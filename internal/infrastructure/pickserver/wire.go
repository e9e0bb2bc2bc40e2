package pickserver

import (
	"strings"
	"time"

	"github.com/wms-platform/pick-terminal/internal/domain"
)

// Wire types mirror the pick server's snake_case JSON

type productWire struct {
	Name    string `json:"name"`
	SKU     string `json:"sku"`
	Barcode string `json:"barcode"`
}

type pickLineWire struct {
	ID           string      `json:"id"`
	Product      productWire `json:"product"`
	LocationCode string      `json:"location_code"`
	QtyRequired  int         `json:"qty_required"`
	QtyPicked    int         `json:"qty_picked"`
}

type pickDocumentWire struct {
	ID        string         `json:"id"`
	Reference string         `json:"reference,omitempty"`
	Status    string         `json:"status"`
	Lines     []pickLineWire `json:"lines"`
}

type progressWire struct {
	LinesTotal  int `json:"lines_total"`
	LinesDone   int `json:"lines_done"`
	QtyRequired int `json:"qty_required"`
	QtyPicked   int `json:"qty_picked"`
}

type pickRequestWire struct {
	Delta     int    `json:"delta"`
	RequestID string `json:"request_id"`
}

type pickResponseWire struct {
	Line           pickLineWire  `json:"line"`
	Progress       *progressWire `json:"progress,omitempty"`
	DocumentStatus string        `json:"document_status,omitempty"`
}

type resolveRequestWire struct {
	Barcode string `json:"barcode"`
}

type entityRefWire struct {
	Type         string `json:"type"`
	EntityID     string `json:"entity_id,omitempty"`
	DisplayLabel string `json:"display_label,omitempty"`
}

type locationStockWire struct {
	Code         string `json:"code"`
	AvailableQty int    `json:"available_qty"`
}

type lotWire struct {
	Batch        string    `json:"batch"`
	Expiry       time.Time `json:"expiry"`
	AvailableQty int       `json:"available_qty"`
}

type inventoryWire struct {
	ProductID      string              `json:"product_id"`
	Name           string              `json:"name"`
	Barcode        string              `json:"barcode"`
	BestLocations  []locationStockWire `json:"best_locations"`
	FEFOLots       []lotWire           `json:"fefo_lots"`
	TotalAvailable int                 `json:"total_available"`
}

type errorWire struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (w pickLineWire) toDomain() domain.PickLine {
	return domain.PickLine{
		ID: w.ID,
		Product: domain.Product{
			Name:    w.Product.Name,
			SKU:     w.Product.SKU,
			Barcode: w.Product.Barcode,
		},
		LocationCode: w.LocationCode,
		QtyRequired:  w.QtyRequired,
		QtyPicked:    w.QtyPicked,
	}
}

func (w pickDocumentWire) toDomain() *domain.PickDocument {
	lines := make([]domain.PickLine, 0, len(w.Lines))
	for _, line := range w.Lines {
		lines = append(lines, line.toDomain())
	}
	return &domain.PickDocument{
		ID:        w.ID,
		Reference: w.Reference,
		Status:    domain.DocumentStatus(strings.ToUpper(w.Status)),
		Lines:     lines,
	}
}

func (w pickResponseWire) toDomain() *domain.MutationResult {
	result := &domain.MutationResult{
		Line:           w.Line.toDomain(),
		DocumentStatus: domain.DocumentStatus(strings.ToUpper(w.DocumentStatus)),
	}
	if w.Progress != nil {
		result.Progress = &domain.Progress{
			LinesTotal:  w.Progress.LinesTotal,
			LinesDone:   w.Progress.LinesDone,
			QtyRequired: w.Progress.QtyRequired,
			QtyPicked:   w.Progress.QtyPicked,
		}
	}
	return result
}

func (w entityRefWire) toDomain() *domain.EntityRef {
	entityType := domain.EntityType(strings.ToUpper(w.Type))
	switch entityType {
	case domain.EntityTypeProduct, domain.EntityTypeLocation:
	default:
		entityType = domain.EntityTypeUnknown
	}
	return &domain.EntityRef{
		Type:         entityType,
		EntityID:     w.EntityID,
		DisplayLabel: w.DisplayLabel,
	}
}

func (w inventoryWire) toDomain() *domain.ProductInventorySnapshot {
	locations := make([]domain.LocationStock, 0, len(w.BestLocations))
	for _, loc := range w.BestLocations {
		locations = append(locations, domain.LocationStock{Code: loc.Code, AvailableQty: loc.AvailableQty})
	}
	lots := make([]domain.Lot, 0, len(w.FEFOLots))
	for _, lot := range w.FEFOLots {
		lots = append(lots, domain.Lot{Batch: lot.Batch, Expiry: lot.Expiry, AvailableQty: lot.AvailableQty})
	}
	return &domain.ProductInventorySnapshot{
		ProductID:      w.ProductID,
		Name:           w.Name,
		Barcode:        w.Barcode,
		BestLocations:  locations,
		FEFOLots:       lots,
		TotalAvailable: w.TotalAvailable,
	}
}
