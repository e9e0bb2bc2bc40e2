package idempotency

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "valid UUID", key: "550e8400-e29b-41d4-a716-446655440000"},
		{name: "valid alphanumeric", key: "abc123-def456_ghi789"},
		{name: "empty key", key: "", wantErr: ErrKeyRequired},
		{name: "too long", key: strings.Repeat("a", 256), wantErr: ErrKeyTooLong},
		{name: "spaces", key: "abc 123", wantErr: ErrKeyInvalid},
		{name: "special chars", key: "abc@123", wantErr: ErrKeyInvalid},
		{name: "exactly 255 chars", key: strings.Repeat("a", 255)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, ValidateKey(tt.key))
		})
	}
}

func TestNewKey_UniqueAndValid(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		key := NewKey()
		assert.NoError(t, ValidateKey(key))
		_, dup := seen[key]
		assert.False(t, dup, "duplicate key %s", key)
		seen[key] = struct{}{}
	}
}

func TestComputeFingerprint(t *testing.T) {
	a := ComputeFingerprint([]byte(`{"delta":1}`))
	b := ComputeFingerprint([]byte(`{"delta":-1}`))

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ComputeFingerprint([]byte(`{"delta":1}`)))
}
