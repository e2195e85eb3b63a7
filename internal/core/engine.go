// Package core drives the search: generate candidate rewrites, score them,
// keep strict improvements, roll everything else back to the best known
// state, and feed the failure back into the next round's prompts.
package core

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/quillworks/redraft/internal/detect"
)

// Reason says why the loop stopped.
type Reason string

const (
	// ReasonCleared: no flagged segments remain.
	ReasonCleared Reason = "cleared"
	// ReasonTargetReached: aggregate score dropped to or below the target.
	ReasonTargetReached Reason = "target_reached"
	// ReasonRollbackLimit: too many consecutive rounds failed to improve.
	ReasonRollbackLimit Reason = "rollback_limit"
	// ReasonRoundLimit: the optional max-round safety cap was hit.
	ReasonRoundLimit Reason = "round_limit"
)

// Evaluator scores a document across all detection providers.
type Evaluator interface {
	Evaluate(ctx context.Context, text string) (detect.Aggregate, error)
}

// CandidateSource produces n whole-document rewrites from the current state.
type CandidateSource interface {
	Generate(ctx context.Context, n int, view StateView) ([]Candidate, error)
}

type Params struct {
	Candidates   int
	TargetScore  float64
	MaxRollbacks int
	// MaxRounds caps the loop when > 0. The default 0 preserves the
	// unbounded behavior: only the rollback limit and the two success
	// predicates end the run.
	MaxRounds int
}

// Outcome is the run's result. Final* always reflect the best state ever
// seen, not the most recently attempted candidate.
type Outcome struct {
	FinalText  string
	FinalScore float64
	FinalRound int
	Reason     Reason
	Rounds     []RoundLogEntry
}

type Engine struct {
	evaluator Evaluator
	generator CandidateSource
	params    Params
	onRound   func(RoundLogEntry)
}

func NewEngine(evaluator Evaluator, generator CandidateSource, params Params) *Engine {
	if params.Candidates <= 0 {
		params.Candidates = 7
	}
	if params.MaxRollbacks <= 0 {
		params.MaxRollbacks = 3
	}
	return &Engine{
		evaluator: evaluator,
		generator: generator,
		params:    params,
	}
}

// OnRound registers a callback invoked with each round-log entry as it is
// appended. The callback runs on the engine's goroutine; it receives a copy
// and must not block for long.
func (e *Engine) OnRound(fn func(RoundLogEntry)) {
	e.onRound = fn
}

// Run executes rounds until a terminal condition. The returned error is
// fatal: either a rewrite call exhausted its retries or an evaluation had no
// successful provider.
func (e *Engine) Run(ctx context.Context, text string) (Outcome, error) {
	initial, err := e.evaluator.Evaluate(ctx, text)
	if err != nil {
		return Outcome{}, fmt.Errorf("initial evaluation: %w", err)
	}

	s := &searchState{
		currentText:  text,
		currentScore: initial.Score,
		flagged:      initial.Flagged,
		bestText:     text,
		bestScore:    initial.Score,
		bestRound:    0,
		history:      map[string][]HistoryEntry{},
	}
	log.Printf("initial score %.2f%% (%d flagged segments, providers: %v)",
		initial.Score, len(initial.Flagged), initial.Providers)

	var reason Reason
	round := 0
	for {
		switch {
		case len(s.flagged) == 0:
			reason = ReasonCleared
		case s.currentScore <= e.params.TargetScore:
			reason = ReasonTargetReached
		case s.consecutiveRollbacks >= e.params.MaxRollbacks:
			reason = ReasonRollbackLimit
		case e.params.MaxRounds > 0 && round >= e.params.MaxRounds:
			reason = ReasonRoundLimit
		}
		if reason != "" {
			break
		}

		round++
		if err := e.runRound(ctx, round, s); err != nil {
			return Outcome{}, fmt.Errorf("round %d: %w", round, err)
		}
	}

	log.Printf("stopped after %d rounds: %s (best %.2f%% from round %d)",
		round, reason, s.bestScore, s.bestRound)
	return Outcome{
		FinalText:  s.bestText,
		FinalScore: s.bestScore,
		FinalRound: s.bestRound,
		Reason:     reason,
		Rounds:     s.log,
	}, nil
}

func (e *Engine) runRound(ctx context.Context, round int, s *searchState) error {
	candidates, err := e.generator.Generate(ctx, e.params.Candidates, s.view(round))
	if err != nil {
		return err
	}

	// Full fan-out: every candidate is scored concurrently, results
	// re-associated by index.
	evals := make([]detect.Aggregate, len(candidates))
	errs := make([]error, len(candidates))
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			evals[i], errs[i] = e.evaluator.Evaluate(ctx, text)
		}(i, c.Text)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("scoring candidate %d: %w", i, err)
		}
	}

	// Lowest score wins; ties keep the earliest candidate.
	bestIdx := 0
	for i := 1; i < len(evals); i++ {
		if evals[i].Score < evals[bestIdx].Score {
			bestIdx = i
		}
	}
	selected := evals[bestIdx]

	// Every candidate teaches: record each rewrite that is still flagged in
	// its own candidate, whether or not that candidate won.
	for i, c := range candidates {
		flaggedSet := make(map[string]struct{}, len(evals[i].Flagged))
		for _, f := range evals[i].Flagged {
			flaggedSet[f] = struct{}{}
		}
		for orig, rewrite := range c.Rewrites {
			if _, still := flaggedSet[rewrite]; still {
				s.history[orig] = append(s.history[orig], HistoryEntry{
					Round:   round,
					Score:   evals[i].Score,
					Rewrite: rewrite,
				})
			}
		}
	}

	accepted := selected.Score < s.bestScore
	entry := RoundLogEntry{Round: round, BestCandidateScore: selected.Score, Accepted: accepted}
	s.log = append(s.log, entry)
	if e.onRound != nil {
		e.onRound(entry)
	}

	if accepted {
		s.bestText = candidates[bestIdx].Text
		s.bestScore = selected.Score
		s.bestRound = round
		s.currentText = candidates[bestIdx].Text
		s.currentScore = selected.Score
		s.flagged = selected.Flagged
		s.consecutiveRollbacks = 0
		s.failureNarrative = ""
		log.Printf("round %d accepted: %.2f%% (%d flagged)", round, selected.Score, len(selected.Flagged))
		return nil
	}

	// Regression: restore the best-ever text exactly, then re-evaluate it
	// rather than reusing cached flags, since providers may be
	// non-deterministic.
	s.consecutiveRollbacks++
	s.currentText = s.bestText
	s.currentScore = s.bestScore
	fresh, err := e.evaluator.Evaluate(ctx, s.currentText)
	if err != nil {
		return fmt.Errorf("re-evaluating after rollback: %w", err)
	}
	s.flagged = fresh.Flagged
	s.failureNarrative = failureNarrative(round, len(selected.Flagged), selected.Score, s.bestScore)
	log.Printf("round %d rolled back: %.2f%% vs best %.2f%% (rollback %d/%d)",
		round, selected.Score, s.bestScore, s.consecutiveRollbacks, e.params.MaxRollbacks)
	return nil
}

func failureNarrative(round, stillFlagged int, candidateScore, bestScore float64) string {
	return fmt.Sprintf(`IMPORTANT: Previous round %d made things WORSE.
- Attempted rewrites left %d sentences flagged
- Result: %.1f%% (up from %.1f%%)
- New sentences got flagged that weren't before

These rewrites FAILED and made detection worse. Learn from this.
DO NOT repeat similar patterns. Try fundamentally different approaches.`,
		round, stillFlagged, candidateScore, bestScore)
}
