package risk

import "testing"

func TestLevelFor(t *testing.T) {
	tests := []struct {
		p, i int
		want Level
	}{
		{1, 1, LevelLow},
		{2, 2, LevelLow},
		{1, 5, LevelMedium},
		{3, 3, LevelMedium},
		{2, 5, LevelHigh},
		{4, 4, LevelHigh},
		{4, 5, LevelCritical},
		{5, 5, LevelCritical},
	}
	for _, tt := range tests {
		if got := LevelFor(Score(tt.p, tt.i)); got != tt.want {
			t.Errorf("LevelFor(%d×%d) = %s, want %s", tt.p, tt.i, got, tt.want)
		}
	}
}

func TestMatrix_Add(t *testing.T) {
	var m Matrix
	m.Add(Risk{Probability: 5, Impact: 1, Status: StatusIdentified})
	m.Add(Risk{Probability: 5, Impact: 1, Status: StatusMonitoring})
	m.Add(Risk{Probability: 2, Impact: 3, Status: StatusClosed})
	m.Add(Risk{Probability: 0, Impact: 3})
	if m.Cells[4][0] != 2 || m.Total != 2 {
		t.Errorf("matrix = %+v", m)
	}
}
