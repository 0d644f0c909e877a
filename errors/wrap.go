package errors

import (
	"context"
)

// WrapIfContextDone wraps errors with Canceled or DeadlineExceeded if the
// context is done. It leaves already-wrapped errors unchanged.
func WrapIfContextDone(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ok := As(err, new(*Error)); ok {
		return err
	}
	ctxErr := ctx.Err()
	if Is(ctxErr, context.Canceled) {
		return FromError(err).WithCode(Canceled)
	} else if Is(ctxErr, context.DeadlineExceeded) {
		return FromError(err).WithCode(DeadlineExceeded)
	}
	return FromContextError(err)
}
