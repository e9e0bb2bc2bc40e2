package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/pkg/errors"
)

// toAppError maps application and transport errors onto the terminal API's
// error responses. Unresolved scans are checked first because they wrap the
// remote failure that caused them.
func toAppError(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	var (
		httpErr       *domain.HTTPError
		unresolvedErr *domain.UnresolvedScanError
	)

	switch {
	case stderrors.As(err, &unresolvedErr):
		appErr := errors.ErrUnresolvedScan(unresolvedErr.Barcode)
		if kind := domain.KindOf(unresolvedErr.Cause); kind != "" {
			appErr.WithDetail("cause", string(kind))
		}
		return appErr.Wrap(err)
	case stderrors.Is(err, domain.ErrUnresolvedScan):
		return errors.NewAppError(errors.CodeUnresolvedScan, "barcode could not be resolved", http.StatusNotFound).Wrap(err)

	case stderrors.Is(err, domain.ErrLocalGuard):
		return errors.ErrLocalGuard(guardMessage(err)).Wrap(err)

	case stderrors.Is(err, domain.ErrInvalidDelta):
		return errors.ErrValidationWithFields("validation failed", map[string]string{"delta": "must be +1 or -1"}).Wrap(err)
	case stderrors.Is(err, domain.ErrInvalidBarcode):
		return errors.ErrValidationWithFields("validation failed", map[string]string{"barcode": "is required"}).Wrap(err)
	case stderrors.Is(err, domain.ErrInvalidDocument):
		return errors.NewAppError(errors.CodeUpstreamError, "pick server returned an unusable document", http.StatusBadGateway).Wrap(err)
	case stderrors.Is(err, domain.ErrLineMismatch):
		return errors.NewAppError(errors.CodeUpstreamError, "pick server answered for a different line", http.StatusBadGateway).Wrap(err)

	case stderrors.Is(err, domain.ErrSessionNotFound):
		return errors.ErrNotFound("pick session").Wrap(err)
	case stderrors.Is(err, domain.ErrLineNotFound):
		return errors.ErrNotFound("pick line").Wrap(err)
	case stderrors.Is(err, domain.ErrSessionClosed):
		return errors.ErrSessionClosed().Wrap(err)

	case stderrors.Is(err, domain.ErrCompletionNotAllowed):
		return errors.ErrCompletionBlocked("document has lines that are not fully picked").Wrap(err)
	case stderrors.Is(err, domain.ErrMutationsPending):
		return errors.ErrCompletionBlocked("picks are still being confirmed").Wrap(err)
	case stderrors.Is(err, domain.ErrCompletionInProgress):
		return errors.ErrConflict("document completion is in progress").Wrap(err)

	case stderrors.As(err, &httpErr):
		return upstreamError(httpErr).Wrap(err)
	case stderrors.Is(err, domain.ErrTimeout), stderrors.Is(err, context.DeadlineExceeded):
		return errors.ErrTimeout("pick server call").Wrap(err)
	case stderrors.Is(err, domain.ErrNetwork):
		return errors.ErrNetwork("pick server").Wrap(err)
	case stderrors.Is(err, context.Canceled):
		return errors.NewAppError("REQUEST_CANCELLED", "request was cancelled", http.StatusRequestTimeout).Wrap(err)
	}

	return errors.ErrInternal("").Wrap(err)
}

// upstreamError keeps the pick server's 4xx status so the UI can tell a
// rejected pick from a broken server. 5xx answers become 502.
func upstreamError(httpErr *domain.HTTPError) *errors.AppError {
	appErr := errors.ErrUpstream(httpErr.StatusCode, httpErr.Message)
	if httpErr.Code != "" {
		appErr.WithDetail("upstreamCode", httpErr.Code)
	}
	if httpErr.StatusCode >= http.StatusBadRequest && httpErr.StatusCode < http.StatusInternalServerError {
		appErr.HTTPStatus = httpErr.StatusCode
	}
	return appErr
}

func guardMessage(err error) string {
	switch {
	case stderrors.Is(err, domain.ErrOverflow):
		return "line is already fully picked"
	case stderrors.Is(err, domain.ErrBelowZero):
		return "picked quantity cannot go below zero"
	default:
		return "pick refused on the terminal"
	}
}
