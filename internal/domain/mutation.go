package domain

// MutationRequest is a single ±1 change sent to the pick server.
// RequestID identifies one logical attempt and is never reused for another.
type MutationRequest struct {
	RequestID string
	LineID    string
	Delta     int
}

// MutationResult is the server's authoritative answer to a MutationRequest
type MutationResult struct {
	Line           PickLine
	Progress       *Progress
	DocumentStatus DocumentStatus
}

// ValidateDelta accepts exactly +1 or -1
func ValidateDelta(delta int) error {
	if delta != 1 && delta != -1 {
		return ErrInvalidDelta
	}
	return nil
}
