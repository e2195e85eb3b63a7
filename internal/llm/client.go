package llm

import (
	"context"
)

// Request is one rewrite completion call. Values are snapshotted by the
// caller before dispatch; a Request never changes once built.
type Request struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Rewriter is the completion capability the search loop depends on.
// Implementations do not retry; callers wrap them in the retry executor and
// treat budget exhaustion as fatal for the round.
type Rewriter interface {
	Complete(ctx context.Context, req Request) (string, error)
}
