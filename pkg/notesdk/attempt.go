package notesdk

import "context"

type attemptKey struct{}

// WithAttempt returns a context marking the request as attempt n. The first
// send is attempt 0; a replay after credential renewal is attempt 1.
func WithAttempt(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, attemptKey{}, n)
}

// AttemptFrom returns the attempt number carried by ctx.
func AttemptFrom(ctx context.Context) int {
	n, _ := ctx.Value(attemptKey{}).(int)
	return n
}

// IsReplay reports whether ctx belongs to a replayed request. A replay never
// triggers another renewal.
func IsReplay(ctx context.Context) bool {
	return AttemptFrom(ctx) > 0
}
