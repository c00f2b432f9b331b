package llm

import "context"

// Call describes what a request is for. It travels in the context so the
// decorators can tag, log and budget the request.
type Call struct {
	Purpose string
	DrillID string

	// MaxAttempts caps the retry decorator's attempts for this call. Zero
	// keeps the configured budget. Callers with a fallback answer use a low
	// cap so the learner is not kept waiting.
	MaxAttempts int

	// Attempt is set by the retry decorator, starting at 1.
	Attempt int
}

type callKey struct{}

// WithCall attaches c to the context.
func WithCall(ctx context.Context, c Call) context.Context {
	return context.WithValue(ctx, callKey{}, c)
}

// CallFrom returns the Call attached to ctx. Purpose is "unknown" when
// none was attached.
func CallFrom(ctx context.Context) Call {
	c, _ := ctx.Value(callKey{}).(Call)
	if c.Purpose == "" {
		c.Purpose = "unknown"
	}
	return c
}
