package risk

// Score returns probability × impact.
func Score(probability, impact int) int {
	return probability * impact
}

// LevelFor maps a score to its severity band:
// 1–4 low, 5–9 medium, 10–16 high, 20–25 critical.
func LevelFor(score int) Level {
	switch {
	case score >= 20:
		return LevelCritical
	case score >= 10:
		return LevelHigh
	case score >= 5:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Add records a risk in the matrix. Closed risks and out-of-range values
// are ignored.
func (m *Matrix) Add(r Risk) {
	if r.Status == StatusClosed {
		return
	}
	if r.Probability < 1 || r.Probability > 5 || r.Impact < 1 || r.Impact > 5 {
		return
	}
	m.Cells[r.Probability-1][r.Impact-1]++
	m.Total++
}
