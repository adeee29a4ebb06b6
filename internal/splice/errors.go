package splice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resplice/internal/services"
)

// Error reports the op that stopped execution. Op is -1 for failures outside
// a plan op (final concat, probe, publish).
type Error struct {
	Op   int
	Kind string
	Err  error
}

func (e *Error) Error() string {
	if e.Op < 0 {
		return fmt.Sprintf("splice %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("splice op %d (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts the executor error from err.
func AsError(err error) (*Error, bool) {
	var se *Error
	ok := errors.As(err, &se)
	return se, ok
}

// classify tags context failures: parent cancellation becomes ErrCanceled,
// an expired per-op deadline becomes ErrTimeout.
func classify(parent, opCtx context.Context, kind string, timeout time.Duration, err error) error {
	switch {
	case parent.Err() != nil:
		return services.Wrap(services.ErrCanceled, "splice", kind, "task canceled", err)
	case errors.Is(opCtx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "splice", kind, fmt.Sprintf("exceeded %s", timeout), err)
	default:
		return err
	}
}
