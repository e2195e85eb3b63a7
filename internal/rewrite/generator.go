// Package rewrite turns flagged segments into whole-document candidate
// rewrites, one completion call per segment, dispatched in paced batches.
package rewrite

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillworks/redraft/internal/batch"
	"github.com/quillworks/redraft/internal/core"
	"github.com/quillworks/redraft/internal/llm"
	"github.com/quillworks/redraft/internal/retry"
)

type Options struct {
	// BasePrompt is the caller-supplied system prompt preamble.
	BasePrompt string
	// MaxTokens caps each completion; callers size it from the document.
	MaxTokens int

	Batch batch.Options
	Retry retry.Options
	// CandidatePacing is awaited between candidates, never after the last.
	CandidatePacing time.Duration

	// Rand and Sleep are injectable for tests.
	Rand  *rand.Rand
	Sleep func(ctx context.Context, d time.Duration) error
}

type Generator struct {
	rewriter llm.Rewriter
	opts     Options
}

func NewGenerator(rewriter llm.Rewriter, opts Options) *Generator {
	if opts.CandidatePacing == 0 {
		opts.CandidatePacing = 2 * time.Second
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Sleep == nil {
		opts.Sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return &Generator{rewriter: rewriter, opts: opts}
}

// Generate builds n independent candidates. Each issues one completion per
// flagged segment through the batched dispatcher; any rewrite call that
// exhausts its retries fails the whole generation.
func (g *Generator) Generate(ctx context.Context, n int, view core.StateView) ([]core.Candidate, error) {
	strategy := strategyFor(view.Score, view.ConsecutiveRollbacks)
	log.Printf("targeting %d flagged segments, temp %.1f-%.1f: %s",
		len(view.Flagged), strategy.TempMin, strategy.TempMax, strategy.Advice)

	candidates := make([]core.Candidate, 0, n)
	for c := 0; c < n; c++ {
		candidate, err := g.generateOne(ctx, view, strategy)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", c+1, err)
		}
		candidates = append(candidates, candidate)

		if c < n-1 {
			if err := g.opts.Sleep(ctx, g.opts.CandidatePacing); err != nil {
				return nil, err
			}
		}
	}
	return candidates, nil
}

func (g *Generator) generateOne(ctx context.Context, view core.StateView, strategy Strategy) (core.Candidate, error) {
	// Requests are fully built before dispatch so each task closes over an
	// immutable value, not a loop variable.
	requests := make([]llm.Request, len(view.Flagged))
	for i, segment := range view.Flagged {
		temp := strategy.TempMin + g.opts.Rand.Float64()*(strategy.TempMax-strategy.TempMin)
		requests[i] = llm.Request{
			System:      systemPrompt(g.opts.BasePrompt, view, segment, strategy),
			User:        userPrompt(view.BaseText, segment),
			Temperature: float32(temp),
			MaxTokens:   g.opts.MaxTokens,
		}
	}

	tasks := make([]batch.Task[string], len(requests))
	for i := range requests {
		req := requests[i]
		tasks[i] = func(ctx context.Context) (string, error) {
			return retry.Do(ctx, func(ctx context.Context) (string, error) {
				return g.rewriter.Complete(ctx, req)
			}, g.opts.Retry)
		}
	}

	rewrites, err := batch.Run(ctx, tasks, g.opts.Batch)
	if err != nil {
		return core.Candidate{}, err
	}

	// Splice each rewrite over the first occurrence of its original text.
	// If the same literal text recurs later in the document, the first
	// occurrence is rewritten regardless of which one was flagged.
	text := view.BaseText
	rewriteMap := make(map[string]string, len(view.Flagged))
	for i, segment := range view.Flagged {
		replacement := strings.TrimSpace(rewrites[i])
		rewriteMap[segment] = replacement
		text = strings.Replace(text, segment, replacement, 1)
	}

	return core.Candidate{
		ID:       uuid.NewString(),
		Text:     text,
		Rewrites: rewriteMap,
	}, nil
}
