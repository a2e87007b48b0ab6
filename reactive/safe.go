package reactive

import (
	"context"

	"github.com/kbukum/reactor/errors"
)

// apply runs a user function, turning a panic into an OperatorPanic error.
func apply[T, R any](ctx context.Context, stage string, fn func(context.Context, T) (R, error), v T) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.OperatorPanic(stage, p)
		}
	}()
	return fn(ctx, v)
}

func test[T any](stage string, pred func(T) bool, v T) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.OperatorPanic(stage, p)
		}
	}()
	return pred(v), nil
}

// guard runs a side-effect hook and reports a panic as an error.
func guard(stage string, fn func()) (err *errors.AppError) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.OperatorPanic(stage, p)
		}
	}()
	fn()
	return nil
}
