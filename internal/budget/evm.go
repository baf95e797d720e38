package budget

import (
	"math"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
)

// ElapsedFraction is the share of the schedule between start and end that
// has passed on day, clamped to [0, 1]. Missing or inverted dates yield 0.
// A single-day schedule is fully elapsed from its start date.
func ElapsedFraction(start, end string, day time.Time) float64 {
	s, err1 := time.Parse(database.DateLayout, start)
	e, err2 := time.Parse(database.DateLayout, end)
	if err1 != nil || err2 != nil || e.Before(s) {
		return 0
	}
	d, _ := time.Parse(database.DateLayout, day.Format(database.DateLayout)) //nolint:errcheck // round-trips a formatted date
	if d.Before(s) {
		return 0
	}
	total := e.Sub(s).Hours() / 24
	if total == 0 {
		return 1
	}
	return math.Min(1, (d.Sub(s).Hours()/24)/total)
}

// ComputeEarnedValue derives EVM indicators. plannedCents is used as BAC when
// the project has no budget of its own; actualCents already includes labour.
func ComputeEarnedValue(b Baseline, plannedCents, actualCents int64, day time.Time) EarnedValue {
	bac := float64(b.BudgetCents)
	if bac == 0 {
		bac = float64(plannedCents)
	}
	progress := math.Max(0, math.Min(100, float64(b.Progress))) / 100

	ev := EarnedValue{
		BAC: bac,
		PV:  round2(bac * ElapsedFraction(b.StartDate, b.EndDate, day)),
		EV:  round2(bac * progress),
		AC:  float64(actualCents),
	}
	if ev.AC > 0 {
		ev.CPI = round4(ev.EV / ev.AC)
	}
	if ev.PV > 0 {
		ev.SPI = round4(ev.EV / ev.PV)
	}
	ev.EAC = bac
	if ev.CPI > 0 {
		ev.EAC = round2(bac / ev.CPI)
	}
	ev.VAC = round2(bac - ev.EAC)
	ev.CV = round2(ev.EV - ev.AC)
	ev.SV = round2(ev.EV - ev.PV)
	return ev
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
