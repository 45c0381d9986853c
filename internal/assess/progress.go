package assess

import "context"

type progressKey struct{}

// WithProgress attaches a progress callback that the service calls at each
// stage of an assessment made with the returned context.
func WithProgress(ctx context.Context, fn func(msg string)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, progressKey{}, fn)
}

func report(ctx context.Context, msg string) {
	if fn, ok := ctx.Value(progressKey{}).(func(string)); ok {
		fn(msg)
	}
}
