// Package detect scores text for synthetic origin across multiple providers
// and merges their per-sentence verdicts into one aggregate.
package detect

import "context"

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// SegmentScore is one provider's verdict for one sentence. Segments are
// identified by their exact text: two distinct sentences with identical
// wording are treated as the same segment everywhere downstream.
type SegmentScore struct {
	Text  string
	Score float64 // 0..100
}

// Result is a single provider's evaluation of a document. Immutable once
// produced.
type Result struct {
	Status   Status
	Provider string
	Score    float64 // 0..100, whole-document verdict
	Segments []SegmentScore
}

// Provider scores a document. Implementations retry transient failures
// internally and never surface an error: anything unrecoverable is reported
// as a StatusFailed result so other providers can still contribute.
type Provider interface {
	Evaluate(ctx context.Context, text string) Result
}
