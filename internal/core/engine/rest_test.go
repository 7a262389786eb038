package engine

import (
	"testing"
	"time"

	"timecompliance.service/internal/core/model"
)

func interval(t *testing.T, start, end string) model.WorkInterval {
	t.Helper()
	s, err := time.Parse("2006-01-02 15:04", start)
	if err != nil {
		t.Fatalf("parse %q: %v", start, err)
	}
	e, err := time.Parse("2006-01-02 15:04", end)
	if err != nil {
		t.Fatalf("parse %q: %v", end, err)
	}
	return model.WorkInterval{
		EmployeeID:    "emp-1",
		DateBucket:    s.Format(model.DateLayout),
		Start:         s,
		End:           e,
		StartLocal:    s,
		EndLocal:      e,
		WorkedMinutes: int(e.Sub(s).Minutes()),
	}
}

func TestRestGaps_ShortOvernightGap(t *testing.T) {
	intervals := []model.WorkInterval{
		interval(t, "2026-03-02 09:00", "2026-03-02 23:00"),
		interval(t, "2026-03-03 08:00", "2026-03-03 17:00"),
	}

	gaps, warnings := RestGaps(intervals)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(gaps))
	}
	g := gaps[0]
	if g.Hours != 9 {
		t.Fatalf("expected 9h rest, got %g", g.Hours)
	}
	if g.Date != "2026-03-03" {
		t.Fatalf("gap must be dated at the entry that ends it, got %s", g.Date)
	}
}

func TestRestGaps_NegativeGapSkipped(t *testing.T) {
	intervals := []model.WorkInterval{
		interval(t, "2026-03-02 09:00", "2026-03-02 18:00"),
		interval(t, "2026-03-02 17:00", "2026-03-02 21:00"),
	}

	gaps, warnings := RestGaps(intervals)
	if len(gaps) != 0 {
		t.Fatalf("overlapping intervals must not yield a gap, got %v", gaps)
	}
	if len(warnings) != 1 || warnings[0].Kind != model.WarnNegativeRest {
		t.Fatalf("expected a negative_rest warning, got %v", warnings)
	}
}

func TestMaxRestInWindow(t *testing.T) {
	intervals := []model.WorkInterval{
		interval(t, "2026-03-02 09:00", "2026-03-02 17:00"),
		interval(t, "2026-03-03 09:00", "2026-03-03 17:00"),
		interval(t, "2026-03-05 09:00", "2026-03-05 17:00"),
		interval(t, "2026-03-10 09:00", "2026-03-10 17:00"),
	}

	maxRest, count := MaxRestInWindow(intervals, "2026-03-01", "2026-03-07")
	if count != 3 {
		t.Fatalf("expected 3 intervals in the window, got %d", count)
	}
	// 2026-03-03 17:00 to 2026-03-05 09:00 is 40 hours.
	if maxRest != 40 {
		t.Fatalf("expected max rest 40h, got %g", maxRest)
	}
}

func TestMaxRestInWindow_SingleInterval(t *testing.T) {
	intervals := []model.WorkInterval{
		interval(t, "2026-03-02 09:00", "2026-03-02 17:00"),
	}

	maxRest, count := MaxRestInWindow(intervals, "2026-03-01", "2026-03-07")
	if count != 1 {
		t.Fatalf("expected 1 interval, got %d", count)
	}
	if maxRest != 0 {
		t.Fatalf("a single interval has no measurable gap, got %g", maxRest)
	}
}
