package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	httpErr := &HTTPError{StatusCode: 409, Code: "CONFLICT", Message: "document modified"}

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "overflow", err: ErrOverflow, want: KindLocalGuard},
		{name: "timeout sentinel", err: fmt.Errorf("apply pick: %w", ErrTimeout), want: KindTimeout},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "network", err: fmt.Errorf("dial: %w", ErrNetwork), want: KindNetwork},
		{name: "http", err: fmt.Errorf("apply pick: %w", httpErr), want: KindHTTP},
		{name: "unresolved wraps network", err: &UnresolvedScanError{Barcode: "123", Cause: ErrNetwork}, want: KindUnresolvedScan},
		{name: "other", err: errors.New("boom"), want: KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsRemoteFailure(t *testing.T) {
	assert.True(t, IsRemoteFailure(ErrTimeout))
	assert.True(t, IsRemoteFailure(ErrNetwork))
	assert.True(t, IsRemoteFailure(&HTTPError{StatusCode: 500}))
	assert.False(t, IsRemoteFailure(ErrOverflow))
	assert.False(t, IsRemoteFailure(ErrInvalidBarcode))
	assert.False(t, IsRemoteFailure(nil))
}

func TestUnresolvedScanError(t *testing.T) {
	err := &UnresolvedScanError{Barcode: "999", Cause: ErrTimeout}

	assert.ErrorIs(t, err, ErrUnresolvedScan)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), `"999"`)
}

func TestCachedEntityRecord_IsFresh(t *testing.T) {
	captured := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	record := &CachedEntityRecord{Timestamp: captured}

	assert.True(t, record.IsFresh(captured, DefaultScanCacheTTL))
	assert.True(t, record.IsFresh(captured.Add(1199*time.Second), DefaultScanCacheTTL))
	assert.False(t, record.IsFresh(captured.Add(1200*time.Second), DefaultScanCacheTTL))
	assert.False(t, record.IsFresh(captured.Add(time.Hour), DefaultScanCacheTTL))
}
