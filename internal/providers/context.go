package providers

import "context"

type runIDKey struct{}

// WithRunID tags ctx with the report pipeline run id. Adapters forward it to
// the provider as X-Request-ID so a failing run can be matched with the
// provider's own logs.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id set by WithRunID, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
