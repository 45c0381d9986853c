package assess

import (
	"context"
	"errors"

	"repoassess/internal/clone"
	"repoassess/internal/jobs"
	"repoassess/internal/scan"
	"repoassess/internal/store"
)

// Error kinds reported to API and CLI callers.
const (
	KindInvalidArgument = "invalid_argument"
	KindNotFound        = "not_found"
	KindOperation       = "operation"
	KindCanceled        = "canceled"
	KindUnavailable     = "unavailable"
	KindInternal        = "internal"
)

// Kind classifies err. Cancellation wins over the operation that observed it.
func Kind(err error) string {
	var opErr *clone.OperationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, scan.ErrInvalidArgument), errors.Is(err, clone.ErrInvalidURL), errors.Is(err, store.ErrInvalidKey),
		errors.Is(err, jobs.ErrInvalidRequest):
		return KindInvalidArgument
	case errors.Is(err, scan.ErrNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, jobs.ErrNotFound):
		return KindNotFound
	case errors.As(err, &opErr):
		return KindOperation
	case errors.Is(err, jobs.ErrClosed):
		return KindUnavailable
	}
	return KindInternal
}
