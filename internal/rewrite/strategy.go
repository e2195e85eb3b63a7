package rewrite

// Strategy is the rewrite aggressiveness tier for the current score bracket.
// Both temperature bounds shift upward per consecutive rollback so the
// search mutates harder after repeated failure.
type Strategy struct {
	TempMin float64
	TempMax float64
	Advice  string
}

const rollbackBoost = 0.2

func strategyFor(score float64, consecutiveRollbacks int) Strategy {
	var s Strategy
	switch {
	case score > 80:
		s = Strategy{1.2, 1.5, "Try completely different phrasing, sentence structure, and vocabulary."}
	case score > 50:
		s = Strategy{1.0, 1.3, "Make substantial changes while keeping the core meaning."}
	default:
		s = Strategy{0.9, 1.1, "Make subtle stylistic adjustments to reduce AI patterns."}
	}

	boost := rollbackBoost * float64(consecutiveRollbacks)
	s.TempMin += boost
	s.TempMax += boost
	return s
}
