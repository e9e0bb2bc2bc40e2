package application

// LoadDocumentCommand opens a pick session for a document
type LoadDocumentCommand struct {
	DocumentID string
}

// ApplyDeltaCommand changes one line's picked quantity by +1 or -1
type ApplyDeltaCommand struct {
	DocumentID string
	LineID     string
	Delta      int
}

// PickUnitsCommand applies Quantity single-unit picks to one line
type PickUnitsCommand struct {
	DocumentID string
	LineID     string
	Quantity   int
}

// CompleteDocumentCommand finishes a fully picked document
type CompleteDocumentCommand struct {
	DocumentID string
}

// CloseSessionCommand drops a session without completing it
type CloseSessionCommand struct {
	DocumentID string
}

// ScanCommand resolves a scanned barcode, optionally against a loaded document
type ScanCommand struct {
	Barcode    string
	DocumentID string
}

// GetDocumentQuery returns the current state of a loaded document
type GetDocumentQuery struct {
	DocumentID string
}

// CompletionStatusQuery asks whether a loaded document can be completed
type CompletionStatusQuery struct {
	DocumentID string
}

// ProductByBarcodeQuery returns inventory detail for a product barcode
type ProductByBarcodeQuery struct {
	Barcode string
}
