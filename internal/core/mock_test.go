package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/quillworks/redraft/internal/detect"
)

// scriptedEvaluator returns canned aggregates keyed by exact text, so tests
// can control the score of every candidate and the base document. Candidates
// are evaluated concurrently, hence the mutex.
type scriptedEvaluator struct {
	mu      sync.Mutex
	results map[string]detect.Aggregate
	errs    map[string]error
	calls   []string
}

func (s *scriptedEvaluator) Evaluate(ctx context.Context, text string) (detect.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)
	if err, ok := s.errs[text]; ok {
		return detect.Aggregate{}, err
	}
	result, ok := s.results[text]
	if !ok {
		return detect.Aggregate{}, fmt.Errorf("unscripted text: %q", text)
	}
	return result, nil
}

// scriptedGenerator hands out pre-built candidate batches, one per round.
type scriptedGenerator struct {
	rounds [][]Candidate
	views  []StateView
}

func (s *scriptedGenerator) Generate(ctx context.Context, n int, view StateView) ([]Candidate, error) {
	s.views = append(s.views, view)
	if len(s.rounds) == 0 {
		return nil, fmt.Errorf("generator called more times than scripted")
	}
	batch := s.rounds[0]
	s.rounds = s.rounds[1:]
	return batch, nil
}

func candidate(text string) Candidate {
	return Candidate{ID: text, Text: text, Rewrites: map[string]string{}}
}
