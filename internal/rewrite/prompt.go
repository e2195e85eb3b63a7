package rewrite

import (
	"fmt"
	"strings"

	"github.com/quillworks/redraft/internal/core"
)

const (
	roundLogWindow       = 5
	segmentHistoryWindow = 3
)

// systemPrompt assembles the per-segment instruction: the base prompt, the
// current score, global trend context, this segment's failed rewrites, and
// the failure narrative when the previous round rolled back.
func systemPrompt(base string, view core.StateView, segment string, strategy Strategy) string {
	var b strings.Builder
	b.WriteString(base)
	fmt.Fprintf(&b, `

CURRENT TASK:
Rewrite this flagged sentence. Detection score: %.1f%%

DETECTED ISSUES:
- AI-typical patterns in phrasing
- Predictable word choices for this formality level
- Mechanically perfect grammar

YOUR GOAL:
Rewrite to match a human writing, not an AI mimicking its tone.
Keep the formality EXACTLY the same, but make the execution less robotic.`, view.Score)

	if history := scoreHistoryContext(view); history != "" {
		b.WriteString("\n\n")
		b.WriteString(history)
	}
	if history := segmentHistoryContext(view, segment); history != "" {
		b.WriteString("\n\n")
		b.WriteString(history)
	}
	if view.FailureNarrative != "" {
		b.WriteString("\n\n")
		b.WriteString(view.FailureNarrative)
	}

	fmt.Fprintf(&b, "\n\nSTRATEGY: %s\n\nOutput ONLY the rewritten sentence.", strategy.Advice)
	return b.String()
}

func userPrompt(baseText, segment string) string {
	return fmt.Sprintf("Full text:\n%s\n\nRewrite:\n%s", baseText, segment)
}

func scoreHistoryContext(view core.StateView) string {
	rounds := view.LastRounds(roundLogWindow)
	if len(rounds) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("OVERALL SCORE HISTORY:\n")
	for _, entry := range rounds {
		status := "ROLLED BACK"
		if entry.Accepted {
			status = "ACCEPTED"
		}
		fmt.Fprintf(&b, "  Round %d: %.1f%% - %s\n", entry.Round, entry.BestCandidateScore, status)
	}
	fmt.Fprintf(&b, "Current best: %.1f%% (Round %d)", view.BestScore, view.BestRound)
	return b.String()
}

func segmentHistoryContext(view core.StateView, segment string) string {
	entries := view.SegmentHistory(segment, segmentHistoryWindow)
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("PREVIOUS REWRITES OF THIS SENTENCE (all flagged as AI):\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "  Attempt %d (%.1f%% AI): %s\n", e.Round, e.Score, e.Rewrite)
	}
	b.WriteString("\nThese patterns didn't work. Try a completely different approach.")
	return b.String()
}
