package application

import (
	"fmt"

	"github.com/wms-platform/pick-terminal/internal/domain"
)

type txState int

const (
	txOpen txState = iota
	txApplied
	txCommitted
	txRolledBack
)

// LineTransaction is the optimistic change of one line. It remembers the line
// as it was before Apply and restores exactly that on Rollback. Only the line
// it was opened for is ever touched. Callers hold the session lock.
type LineTransaction struct {
	Key    string
	LineID string
	Delta  int

	doc      *domain.PickDocument
	idx      int
	snapshot domain.PickLine
	state    txState
}

func beginLineTransaction(doc *domain.PickDocument, lineID string, delta int, key string) (*LineTransaction, error) {
	idx := doc.LineIndex(lineID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrLineNotFound, lineID)
	}
	return &LineTransaction{
		Key:      key,
		LineID:   lineID,
		Delta:    delta,
		doc:      doc,
		idx:      idx,
		snapshot: doc.Lines[idx],
	}, nil
}

// Snapshot returns the line as it was when the transaction began
func (tx *LineTransaction) Snapshot() domain.PickLine {
	return tx.snapshot
}

// Apply writes the clamped optimistic quantity
func (tx *LineTransaction) Apply() {
	if tx.state != txOpen {
		return
	}
	tx.doc.Lines[tx.idx] = tx.snapshot.WithDelta(tx.Delta)
	tx.state = txApplied
}

// Commit replaces the line with the server's version. The server's numbers
// win over the optimistic guess; descriptive fields the server leaves empty
// keep their local values. A line with another ID is refused and the
// transaction is rolled back.
func (tx *LineTransaction) Commit(serverLine domain.PickLine) error {
	if tx.state != txApplied {
		return fmt.Errorf("commit of line %s in state %d", tx.LineID, tx.state)
	}
	if serverLine.ID != tx.LineID {
		tx.Rollback()
		return fmt.Errorf("%w: expected %s, got %q", domain.ErrLineMismatch, tx.LineID, serverLine.ID)
	}

	merged := serverLine
	if merged.Product == (domain.Product{}) {
		merged.Product = tx.snapshot.Product
	}
	if merged.LocationCode == "" {
		merged.LocationCode = tx.snapshot.LocationCode
	}

	tx.doc.Lines[tx.idx] = merged
	tx.state = txCommitted
	return nil
}

// Rollback restores the pre-apply line
func (tx *LineTransaction) Rollback() {
	if tx.state != txApplied {
		return
	}
	tx.doc.Lines[tx.idx] = tx.snapshot
	tx.state = txRolledBack
}
