package application

import "github.com/wms-platform/pick-terminal/internal/domain"

// ToPickDocumentDTO converts a domain PickDocument to PickDocumentDTO.
// pending marks lines with a pick awaiting the server.
func ToPickDocumentDTO(doc *domain.PickDocument, pending map[string]bool) *PickDocumentDTO {
	if doc == nil {
		return nil
	}

	lines := make([]PickLineDTO, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		dto := ToPickLineDTO(line)
		dto.Pending = pending[line.ID]
		lines = append(lines, dto)
	}

	return &PickDocumentDTO{
		DocumentID:  doc.ID,
		Reference:   doc.Reference,
		Status:      string(doc.Status),
		Lines:       lines,
		Progress:    ToProgressDTO(doc.Progress()),
		CanComplete: CanComplete(doc),
		InFlight:    len(pending),
	}
}

// ToPickLineDTO converts a domain PickLine to PickLineDTO
func ToPickLineDTO(line domain.PickLine) PickLineDTO {
	return PickLineDTO{
		LineID:       line.ID,
		ProductName:  line.Product.Name,
		SKU:          line.Product.SKU,
		Barcode:      line.Product.Barcode,
		LocationCode: line.LocationCode,
		QtyRequired:  line.QtyRequired,
		QtyPicked:    line.QtyPicked,
		Remaining:    line.Remaining(),
		Status:       string(line.Status()),
	}
}

// ToProgressDTO converts a domain Progress to ProgressDTO
func ToProgressDTO(p domain.Progress) ProgressDTO {
	return ProgressDTO{
		LinesTotal:  p.LinesTotal,
		LinesDone:   p.LinesDone,
		QtyRequired: p.QtyRequired,
		QtyPicked:   p.QtyPicked,
		Percent:     p.Percent(),
	}
}

// ToCompletedDocumentDTO converts a completed domain PickDocument
func ToCompletedDocumentDTO(doc *domain.PickDocument) *CompletedDocumentDTO {
	if doc == nil {
		return nil
	}
	return &CompletedDocumentDTO{
		DocumentID: doc.ID,
		Reference:  doc.Reference,
		Status:     string(doc.Status),
	}
}

// ToScanResultDTO converts a domain ScanResult to ScanResultDTO
func ToScanResultDTO(result *domain.ScanResult) *ScanResultDTO {
	if result == nil {
		return nil
	}

	dto := &ScanResultDTO{
		Barcode:      result.Barcode,
		Kind:         string(result.Kind),
		EntityType:   string(result.Entity.Type),
		EntityID:     result.Entity.EntityID,
		DisplayLabel: result.Entity.DisplayLabel,
		Product:      ToProductSnapshotDTO(result.Product),
		Stale:        result.Stale,
		StaleReason:  string(result.StaleReason),
	}
	if result.Stale {
		capturedAt := result.CapturedAt
		dto.CapturedAt = &capturedAt
	}
	return dto
}

// ToProductSnapshotDTO converts a domain ProductInventorySnapshot
func ToProductSnapshotDTO(snapshot *domain.ProductInventorySnapshot) *ProductSnapshotDTO {
	if snapshot == nil {
		return nil
	}

	locations := make([]LocationStockDTO, 0, len(snapshot.BestLocations))
	for _, loc := range snapshot.BestLocations {
		locations = append(locations, LocationStockDTO{Code: loc.Code, AvailableQty: loc.AvailableQty})
	}

	lots := make([]LotDTO, 0, len(snapshot.FEFOLots))
	for _, lot := range snapshot.FEFOLots {
		lots = append(lots, LotDTO{Batch: lot.Batch, Expiry: lot.Expiry, AvailableQty: lot.AvailableQty})
	}

	return &ProductSnapshotDTO{
		ProductID:      snapshot.ProductID,
		Name:           snapshot.Name,
		Barcode:        snapshot.Barcode,
		BestLocations:  locations,
		FEFOLots:       lots,
		TotalAvailable: snapshot.TotalAvailable,
	}
}
