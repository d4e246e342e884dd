package resilience

import (
	"context"
	"time"
)

// ExecuteWithTimeout runs op under a context derived from ctx that expires
// after timeout. If the deadline passes first, ErrTimeout is returned at
// once; op keeps running in the background until it observes the
// cancelled context. A non-positive timeout runs op without a deadline.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op OperationFunc) (any, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		v, err := op(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return nil, err
		}
		return nil, ErrTimeout
	}
}
