package domain

import "fmt"

// DocumentStatus represents the lifecycle status of a pick document
type DocumentStatus string

const (
	DocumentStatusNew        DocumentStatus = "NEW"
	DocumentStatusInProgress DocumentStatus = "IN_PROGRESS"
	DocumentStatusDone       DocumentStatus = "DONE"
	DocumentStatusError      DocumentStatus = "ERROR"
)

// IsValid reports whether s is a known document status
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusNew, DocumentStatusInProgress, DocumentStatusDone, DocumentStatusError:
		return true
	}
	return false
}

// LineStatus is derived from the picked and required quantities of a line
type LineStatus string

const (
	LineStatusNew        LineStatus = "NEW"
	LineStatusInProgress LineStatus = "IN_PROGRESS"
	LineStatusDone       LineStatus = "DONE"
)

// Product describes what a line asks the worker to pick
type Product struct {
	Name    string
	SKU     string
	Barcode string
}

// PickLine is one product/location/quantity row of a pick document.
// Product, LocationCode and QtyRequired are fixed by the server.
type PickLine struct {
	ID           string
	Product      Product
	LocationCode string
	QtyRequired  int
	QtyPicked    int
}

// Status derives the line status from its quantities
func (l PickLine) Status() LineStatus {
	switch {
	case l.QtyPicked >= l.QtyRequired:
		return LineStatusDone
	case l.QtyPicked <= 0:
		return LineStatusNew
	default:
		return LineStatusInProgress
	}
}

// Remaining returns how many units are still to pick
func (l PickLine) Remaining() int {
	if r := l.QtyRequired - l.QtyPicked; r > 0 {
		return r
	}
	return 0
}

// CheckDelta applies the local guards for a ±1 mutation without changing the line
func (l PickLine) CheckDelta(delta int) error {
	if err := ValidateDelta(delta); err != nil {
		return err
	}
	if delta > 0 && l.QtyPicked >= l.QtyRequired {
		return ErrOverflow
	}
	if delta < 0 && l.QtyPicked <= 0 {
		return ErrBelowZero
	}
	return nil
}

// WithDelta returns the line with delta applied, clamped to [0, QtyRequired]
func (l PickLine) WithDelta(delta int) PickLine {
	picked := l.QtyPicked + delta
	if picked > l.QtyRequired {
		picked = l.QtyRequired
	}
	if picked < 0 {
		picked = 0
	}
	l.QtyPicked = picked
	return l
}

// PickDocument is the unit of work a worker picks in one session
type PickDocument struct {
	ID        string
	Reference string
	Status    DocumentStatus
	Lines     []PickLine
}

// Clone returns a deep copy of the document
func (d *PickDocument) Clone() *PickDocument {
	if d == nil {
		return nil
	}
	c := *d
	c.Lines = make([]PickLine, len(d.Lines))
	copy(c.Lines, d.Lines)
	return &c
}

// LineIndex returns the position of the line with id, or -1
func (d *PickDocument) LineIndex(id string) int {
	for i := range d.Lines {
		if d.Lines[i].ID == id {
			return i
		}
	}
	return -1
}

// FullyPicked reports whether the document has lines and every one of them is picked
func (d *PickDocument) FullyPicked() bool {
	if d == nil || len(d.Lines) == 0 {
		return false
	}
	for _, line := range d.Lines {
		if line.QtyPicked < line.QtyRequired {
			return false
		}
	}
	return true
}

// Progress computes aggregate progress over all lines
func (d *PickDocument) Progress() Progress {
	var p Progress
	for _, line := range d.Lines {
		p.LinesTotal++
		if line.Status() == LineStatusDone {
			p.LinesDone++
		}
		p.QtyRequired += line.QtyRequired
		p.QtyPicked += line.QtyPicked
	}
	return p
}

// Validate checks a document received from the server before a session adopts it
func (d *PickDocument) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDocument)
	}
	seen := make(map[string]struct{}, len(d.Lines))
	for _, line := range d.Lines {
		if line.ID == "" {
			return fmt.Errorf("%w: line without id", ErrInvalidDocument)
		}
		if _, dup := seen[line.ID]; dup {
			return fmt.Errorf("%w: duplicate line %s", ErrInvalidDocument, line.ID)
		}
		seen[line.ID] = struct{}{}
		if line.QtyRequired < 0 || line.QtyPicked < 0 || line.QtyPicked > line.QtyRequired {
			return fmt.Errorf("%w: line %s has picked %d of %d", ErrInvalidDocument, line.ID, line.QtyPicked, line.QtyRequired)
		}
	}
	return nil
}

// Progress aggregates line quantities for display
type Progress struct {
	LinesTotal  int
	LinesDone   int
	QtyRequired int
	QtyPicked   int
}

// Percent returns picked units as a whole percentage of required units
func (p Progress) Percent() int {
	if p.QtyRequired <= 0 {
		return 0
	}
	picked := p.QtyPicked
	if picked > p.QtyRequired {
		picked = p.QtyRequired
	}
	return picked * 100 / p.QtyRequired
}
