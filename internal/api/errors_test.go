package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/pkg/errors"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"overflow guard", fmt.Errorf("line L1: %w", domain.ErrOverflow), http.StatusUnprocessableEntity, errors.CodeLocalGuard},
		{"below zero guard", domain.ErrBelowZero, http.StatusUnprocessableEntity, errors.CodeLocalGuard},
		{"invalid delta", domain.ErrInvalidDelta, http.StatusBadRequest, errors.CodeValidationError},
		{"invalid barcode", domain.ErrInvalidBarcode, http.StatusBadRequest, errors.CodeValidationError},
		{"session not found", fmt.Errorf("%w: DOC-1", domain.ErrSessionNotFound), http.StatusNotFound, errors.CodeNotFound},
		{"line not found", domain.ErrLineNotFound, http.StatusNotFound, errors.CodeNotFound},
		{"session closed", domain.ErrSessionClosed, http.StatusGone, errors.CodeSessionClosed},
		{"short lines", domain.ErrCompletionNotAllowed, http.StatusConflict, errors.CodeCompletionBlocked},
		{"picks in flight", domain.ErrMutationsPending, http.StatusConflict, errors.CodeCompletionBlocked},
		{"completion in progress", domain.ErrCompletionInProgress, http.StatusConflict, errors.CodeConflict},
		{"timeout", fmt.Errorf("apply pick on line L1: %w", domain.ErrTimeout), http.StatusGatewayTimeout, errors.CodeTimeout},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, errors.CodeTimeout},
		{"network", fmt.Errorf("%w: circuit breaker is open", domain.ErrNetwork), http.StatusServiceUnavailable, errors.CodeNetworkError},
		{"upstream 422", &domain.HTTPError{StatusCode: 422, Code: "OVER_PICK", Message: "line at capacity"}, http.StatusUnprocessableEntity, errors.CodeUpstreamError},
		{"upstream 503", &domain.HTTPError{StatusCode: 503, Message: "maintenance"}, http.StatusBadGateway, errors.CodeUpstreamError},
		{"line mismatch", domain.ErrLineMismatch, http.StatusBadGateway, errors.CodeUpstreamError},
		{"unexpected", fmt.Errorf("disk on fire"), http.StatusInternalServerError, errors.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := toAppError(tt.err)

			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestToAppError_UnresolvedWinsOverCause(t *testing.T) {
	err := &domain.UnresolvedScanError{
		Barcode: "4006381333931",
		Cause:   &domain.HTTPError{StatusCode: 503, Message: "down"},
	}

	appErr := toAppError(err)

	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	assert.Equal(t, errors.CodeUnresolvedScan, appErr.Code)
	assert.Equal(t, "4006381333931", appErr.Details["barcode"])
	assert.Equal(t, "http", appErr.Details["cause"])
}

func TestToAppError_KeepsAppErrors(t *testing.T) {
	original := errors.ErrValidation("bad input")

	assert.Same(t, original, toAppError(fmt.Errorf("wrapped: %w", original)))
}
