package detect

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSignal is returned when every provider failed: there is no score to
// report and the caller must treat the evaluation as unusable.
var ErrNoSignal = errors.New("no detection provider returned a result")

// Aggregate is the merged verdict across all providers that succeeded.
type Aggregate struct {
	// Score is the mean of successful providers' overall scores.
	Score float64
	// Flagged holds segment texts whose mean score across providers is
	// strictly greater than 50, in order of first appearance.
	Flagged []string
	// Providers lists contributing providers in registration order.
	Providers []string
}

// Aggregator fans a document out to every registered provider and merges
// their per-segment scores by exact text equality. It is agnostic to each
// provider's segmentation policy: any (text, score) pairs will do.
type Aggregator struct {
	providers []Provider
}

func NewAggregator(providers ...Provider) *Aggregator {
	return &Aggregator{providers: providers}
}

func (a *Aggregator) Evaluate(ctx context.Context, text string) (Aggregate, error) {
	results := make([]Result, len(a.providers))

	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			results[i] = p.Evaluate(ctx, text)
		}(i, p)
	}
	wg.Wait()

	var (
		total     float64
		succeeded int
		names     []string
		scores    = map[string][]float64{}
		order     []string
	)
	for _, r := range results {
		if r.Status != StatusSuccess {
			continue
		}
		succeeded++
		total += r.Score
		names = append(names, r.Provider)
		for _, seg := range r.Segments {
			if _, seen := scores[seg.Text]; !seen {
				order = append(order, seg.Text)
			}
			scores[seg.Text] = append(scores[seg.Text], seg.Score)
		}
	}

	if succeeded == 0 {
		return Aggregate{}, ErrNoSignal
	}

	var flagged []string
	for _, segText := range order {
		list := scores[segText]
		var sum float64
		for _, s := range list {
			sum += s
		}
		// Strictly greater than: a mean of exactly 50 is not flagged.
		if sum/float64(len(list)) > 50 {
			flagged = append(flagged, segText)
		}
	}

	return Aggregate{
		Score:     total / float64(succeeded),
		Flagged:   flagged,
		Providers: names,
	}, nil
}
