package core

// RoundLogEntry is the append-only audit record for one completed round.
type RoundLogEntry struct {
	Round              int     `json:"round"`
	BestCandidateScore float64 `json:"best_candidate_score"`
	Accepted           bool    `json:"accepted"`
}

// HistoryEntry records one failed rewrite of a segment: the round it was
// tried in, the score of the candidate that carried it, and the rewrite text
// itself. Entries are appended and never removed.
type HistoryEntry struct {
	Round   int
	Score   float64
	Rewrite string
}

// Candidate is one whole-document rewrite produced by the generator.
// Rewrites maps each original flagged segment to its replacement.
type Candidate struct {
	ID       string
	Text     string
	Rewrites map[string]string
}

// StateView is the read-only slice of search state the candidate generator
// needs for prompt assembly. It is handed out between round mutations on the
// engine's single logical thread; holders must not retain it across rounds.
//
// History and Flagged key segments by exact text, so two distinct sentences
// with identical wording share one identity throughout the run.
type StateView struct {
	Round                int
	BaseText             string
	Score                float64
	Flagged              []string
	BestScore            float64
	BestRound            int
	ConsecutiveRollbacks int
	FailureNarrative     string
	RoundLog             []RoundLogEntry
	History              map[string][]HistoryEntry
}

// LastRounds returns up to n of the most recent round-log entries.
func (v StateView) LastRounds(n int) []RoundLogEntry {
	if len(v.RoundLog) <= n {
		return v.RoundLog
	}
	return v.RoundLog[len(v.RoundLog)-n:]
}

// SegmentHistory returns up to n of the most recent failed rewrites of the
// given segment.
func (v StateView) SegmentHistory(segment string, n int) []HistoryEntry {
	entries := v.History[segment]
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

// searchState is owned exclusively by the engine and mutated only at round
// boundaries. best* fields are the run's only externally meaningful output.
type searchState struct {
	currentText  string
	currentScore float64
	flagged      []string

	bestText  string
	bestScore float64
	bestRound int

	consecutiveRollbacks int
	failureNarrative     string

	history map[string][]HistoryEntry
	log     []RoundLogEntry
}

func (s *searchState) view(round int) StateView {
	return StateView{
		Round:                round,
		BaseText:             s.currentText,
		Score:                s.currentScore,
		Flagged:              s.flagged,
		BestScore:            s.bestScore,
		BestRound:            s.bestRound,
		ConsecutiveRollbacks: s.consecutiveRollbacks,
		FailureNarrative:     s.failureNarrative,
		RoundLog:             s.log,
		History:              s.history,
	}
}
