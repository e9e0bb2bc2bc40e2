package domain

import (
	"context"
	"errors"
	"fmt"
)

// Local guard violations are raised before any network call
var (
	ErrLocalGuard = errors.New("local guard violation")
	ErrOverflow   = fmt.Errorf("%w: line is already fully picked", ErrLocalGuard)
	ErrBelowZero  = fmt.Errorf("%w: picked quantity cannot go below zero", ErrLocalGuard)
)

// Errors
var (
	ErrInvalidDelta         = errors.New("delta must be +1 or -1")
	ErrLineNotFound         = errors.New("pick line not found in document")
	ErrInvalidDocument      = errors.New("invalid pick document")
	ErrSessionNotFound      = errors.New("no pick session for document")
	ErrSessionClosed        = errors.New("pick session is closed")
	ErrCompletionNotAllowed = errors.New("document cannot be completed while lines are short")
	ErrMutationsPending     = errors.New("document cannot be completed while picks are in flight")
	ErrCompletionInProgress = errors.New("document completion is in progress")
	ErrLineMismatch         = errors.New("pick server answered for a different line")
	ErrInvalidBarcode       = errors.New("barcode is empty")
	ErrNotAProduct          = errors.New("barcode does not identify a product")
	ErrCacheMiss            = errors.New("no cached record for barcode")
)

// Remote failures
var (
	ErrTimeout        = errors.New("pick server call timed out")
	ErrNetwork        = errors.New("pick server unreachable")
	ErrUnresolvedScan = errors.New("barcode could not be resolved")
)

// HTTPError is a non-2xx answer from the pick server
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("pick server returned %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("pick server returned %d: %s", e.StatusCode, e.Message)
}

// UnresolvedScanError reports a barcode that resolved neither live nor from cache.
// It matches ErrUnresolvedScan and unwraps to the remote failure that caused it.
type UnresolvedScanError struct {
	Barcode string
	Cause   error
}

func (e *UnresolvedScanError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("barcode %q could not be resolved", e.Barcode)
	}
	return fmt.Sprintf("barcode %q could not be resolved: %v", e.Barcode, e.Cause)
}

func (e *UnresolvedScanError) Unwrap() error { return e.Cause }

func (e *UnresolvedScanError) Is(target error) bool { return target == ErrUnresolvedScan }

// ErrorKind classifies errors for the UI and for the fallback policy
type ErrorKind string

const (
	KindLocalGuard     ErrorKind = "local_guard"
	KindTimeout        ErrorKind = "timeout"
	KindNetwork        ErrorKind = "network"
	KindHTTP           ErrorKind = "http"
	KindUnresolvedScan ErrorKind = "unresolved_scan"
	KindOther          ErrorKind = "other"
)

// KindOf classifies err. An unresolved scan wins over the remote cause it wraps.
func KindOf(err error) ErrorKind {
	var httpErr *HTTPError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnresolvedScan):
		return KindUnresolvedScan
	case errors.Is(err, ErrLocalGuard):
		return KindLocalGuard
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.As(err, &httpErr):
		return KindHTTP
	default:
		return KindOther
	}
}

// IsRemoteFailure reports whether err came from talking to the pick server
func IsRemoteFailure(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindNetwork, KindHTTP:
		return true
	}
	return false
}
