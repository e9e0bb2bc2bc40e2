// Package idempotency issues and checks the keys attached to pick mutations.
// A key identifies one logical attempt; the server deduplicates on it.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"

	"github.com/google/uuid"
)

// Headers carried on outgoing mutations
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderFingerprint    = "X-Idempotency-Fingerprint"
)

// MaxKeyLength is the longest key the pick server accepts
const MaxKeyLength = 255

var (
	ErrKeyRequired = errors.New("idempotency key is required for this operation")
	ErrKeyInvalid  = errors.New("invalid idempotency key format")
	ErrKeyTooLong  = errors.New("idempotency key exceeds maximum length of 255 characters")
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Generator produces idempotency keys
type Generator func() string

// NewKey returns a fresh random key. Every call yields a new key; callers must
// not cache one across attempts.
func NewKey() string {
	return uuid.NewString()
}

// ValidateKey validates an idempotency key format and length
func ValidateKey(key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if !keyPattern.MatchString(key) {
		return ErrKeyInvalid
	}
	return nil
}

// ComputeFingerprint returns the SHA256 of a request body, sent alongside the
// key so the server can reject a reused key carrying different parameters.
func ComputeFingerprint(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}
