package domain

import "context"

// EmbeddingUsage accumulates token usage for a single request so the
// transport can report it to the caller.
type EmbeddingUsage struct {
	Used        bool
	TotalTokens int
}

// AddTokens records consumed tokens. Nil-safe.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.Used = true
	u.TotalTokens += n
}

type usageKey struct{}

// NewContextWithUsage attaches a fresh usage accumulator to the context.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the request usage accumulator, or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(usageKey{}).(*EmbeddingUsage)
	return u
}
