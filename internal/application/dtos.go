package application

import "time"

// PickDocumentDTO represents a loaded pick document in responses
type PickDocumentDTO struct {
	DocumentID  string        `json:"documentId"`
	Reference   string        `json:"reference,omitempty"`
	Status      string        `json:"status"`
	Lines       []PickLineDTO `json:"lines"`
	Progress    ProgressDTO   `json:"progress"`
	CanComplete bool          `json:"canComplete"`
	InFlight    int           `json:"inFlight"`
}

// PickLineDTO represents one pick line
type PickLineDTO struct {
	LineID       string `json:"lineId"`
	ProductName  string `json:"productName"`
	SKU          string `json:"sku"`
	Barcode      string `json:"barcode,omitempty"`
	LocationCode string `json:"locationCode"`
	QtyRequired  int    `json:"qtyRequired"`
	QtyPicked    int    `json:"qtyPicked"`
	Remaining    int    `json:"remaining"`
	Status       string `json:"status"`
	Pending      bool   `json:"pending,omitempty"`
}

// ProgressDTO summarizes how much of a document is picked
type ProgressDTO struct {
	LinesTotal  int `json:"linesTotal"`
	LinesDone   int `json:"linesDone"`
	QtyRequired int `json:"qtyRequired"`
	QtyPicked   int `json:"qtyPicked"`
	Percent     int `json:"percent"`
}

// PickUnitsResultDTO reports a multi-unit pick
type PickUnitsResultDTO struct {
	Requested int              `json:"requested"`
	Applied   int              `json:"applied"`
	Document  *PickDocumentDTO `json:"document"`
}

// CompletionStatusDTO tells the UI whether the complete action is enabled
type CompletionStatusDTO struct {
	DocumentID     string `json:"documentId"`
	CanComplete    bool   `json:"canComplete"`
	InFlight       int    `json:"inFlight"`
	LinesRemaining int    `json:"linesRemaining"`
}

// CompletedDocumentDTO is returned after a successful completion
type CompletedDocumentDTO struct {
	DocumentID string `json:"documentId"`
	Reference  string `json:"reference,omitempty"`
	Status     string `json:"status"`
}

// ScanResultDTO represents a resolved scan
type ScanResultDTO struct {
	Barcode       string              `json:"barcode"`
	Kind          string              `json:"kind"`
	EntityType    string              `json:"entityType"`
	EntityID      string              `json:"entityId,omitempty"`
	DisplayLabel  string              `json:"displayLabel,omitempty"`
	Product       *ProductSnapshotDTO `json:"product,omitempty"`
	Stale         bool                `json:"stale"`
	StaleReason   string              `json:"staleReason,omitempty"`
	CapturedAt    *time.Time          `json:"capturedAt,omitempty"`
	MatchingLines []string            `json:"matchingLines,omitempty"`
}

// ProductSnapshotDTO represents product inventory detail
type ProductSnapshotDTO struct {
	ProductID      string             `json:"productId"`
	Name           string             `json:"name"`
	Barcode        string             `json:"barcode"`
	BestLocations  []LocationStockDTO `json:"bestLocations"`
	FEFOLots       []LotDTO           `json:"fefoLots"`
	TotalAvailable int                `json:"totalAvailable"`
}

// LocationStockDTO is stock of a product at one location
type LocationStockDTO struct {
	Code         string `json:"code"`
	AvailableQty int    `json:"availableQty"`
}

// LotDTO is one batch of a product
type LotDTO struct {
	Batch        string    `json:"batch"`
	Expiry       time.Time `json:"expiry"`
	AvailableQty int       `json:"availableQty"`
}
