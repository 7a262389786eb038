package engine

import (
	"testing"
	"time"

	"timecompliance.service/internal/core/model"
)

func event(t *testing.T, typ model.EventType, local string) model.TimeEvent {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", local)
	if err != nil {
		t.Fatalf("parse %q: %v", local, err)
	}
	return model.TimeEvent{
		EmployeeID:     "emp-1",
		CompanyID:      "co-1",
		Type:           typ,
		Timestamp:      ts,
		LocalTimestamp: ts,
	}
}

func TestReconstructShifts_PairsEntryExit(t *testing.T) {
	events := []model.TimeEvent{
		event(t, model.EventEntry, "2026-03-02 09:00"),
		event(t, model.EventExit, "2026-03-02 17:30"),
		event(t, model.EventEntry, "2026-03-03 08:00"),
		event(t, model.EventExit, "2026-03-03 16:00"),
	}

	intervals, warnings := ReconstructShifts(events)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(intervals))
	}
	if intervals[0].DateBucket != "2026-03-02" || intervals[0].WorkedMinutes != 510 {
		t.Fatalf("unexpected first interval: %+v", intervals[0])
	}
	if intervals[1].DateBucket != "2026-03-03" || intervals[1].WorkedMinutes != 480 {
		t.Fatalf("unexpected second interval: %+v", intervals[1])
	}
}

func TestReconstructShifts_OvernightShiftStaysOneInterval(t *testing.T) {
	events := []model.TimeEvent{
		event(t, model.EventEntry, "2026-03-02 20:00"),
		event(t, model.EventExit, "2026-03-03 04:00"),
	}

	intervals, warnings := ReconstructShifts(events)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(intervals) != 1 {
		t.Fatalf("expected a single interval, got %d", len(intervals))
	}
	iv := intervals[0]
	if iv.DateBucket != "2026-03-02" {
		t.Fatalf("overnight shift must bucket to the entry date, got %s", iv.DateBucket)
	}
	if iv.WorkedMinutes != 480 {
		t.Fatalf("expected 480 worked minutes, got %d", iv.WorkedMinutes)
	}
	// 22:00-04:00 overlaps the night window for 6 hours.
	if iv.NightMinutes != 360 {
		t.Fatalf("expected 360 night minutes, got %d", iv.NightMinutes)
	}
}

func TestReconstructShifts_NightMinutesCappedAtEightHours(t *testing.T) {
	events := []model.TimeEvent{
		event(t, model.EventEntry, "2026-03-02 21:00"),
		event(t, model.EventExit, "2026-03-04 07:00"),
	}

	intervals, _ := ReconstructShifts(events)
	if len(intervals) != 1 {
		t.Fatalf("expected a single interval, got %d", len(intervals))
	}
	if got := intervals[0].NightMinutes; got != 480 {
		t.Fatalf("night minutes must cap at 480, got %d", got)
	}
}

func TestReconstructShifts_ConsecutiveEntryDropsEarlier(t *testing.T) {
	events := []model.TimeEvent{
		event(t, model.EventEntry, "2026-03-02 08:00"),
		event(t, model.EventEntry, "2026-03-02 13:00"),
		event(t, model.EventExit, "2026-03-02 17:00"),
	}

	intervals, warnings := ReconstructShifts(events)
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if intervals[0].WorkedMinutes != 240 {
		t.Fatalf("interval must start at the later entry, got %d minutes", intervals[0].WorkedMinutes)
	}
	if len(warnings) != 1 || warnings[0].Kind != model.WarnConsecutiveEntry {
		t.Fatalf("expected a consecutive_entry warning, got %v", warnings)
	}
}

func TestReconstructShifts_OrphanExitSkipped(t *testing.T) {
	events := []model.TimeEvent{
		event(t, model.EventExit, "2026-03-02 17:00"),
		event(t, model.EventEntry, "2026-03-03 09:00"),
		event(t, model.EventExit, "2026-03-03 17:00"),
	}

	intervals, warnings := ReconstructShifts(events)
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if len(warnings) != 1 || warnings[0].Kind != model.WarnOrphanExit {
		t.Fatalf("expected an orphan_exit warning, got %v", warnings)
	}
}

func TestReconstructShifts_OpenEntryAtEnd(t *testing.T) {
	events := []model.TimeEvent{
		event(t, model.EventEntry, "2026-03-02 09:00"),
	}

	intervals, warnings := ReconstructShifts(events)
	if len(intervals) != 0 {
		t.Fatalf("an open entry must not produce an interval, got %d", len(intervals))
	}
	if len(warnings) != 1 || warnings[0].Kind != model.WarnOpenInterval {
		t.Fatalf("expected an open_interval warning, got %v", warnings)
	}
}

func TestReconstructShifts_BreakPairing(t *testing.T) {
	events := []model.TimeEvent{
		event(t, model.EventEntry, "2026-03-02 09:00"),
		event(t, model.EventBreakStart, "2026-03-02 13:00"),
		event(t, model.EventBreakEnd, "2026-03-02 13:30"),
		event(t, model.EventExit, "2026-03-02 18:00"),
	}

	intervals, warnings := ReconstructShifts(events)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	iv := intervals[0]
	if len(iv.Breaks) != 1 || iv.Breaks[0].Minutes != 30 {
		t.Fatalf("expected one 30min break, got %+v", iv.Breaks)
	}
	if iv.BreakMinutes() != 30 {
		t.Fatalf("BreakMinutes = %d, want 30", iv.BreakMinutes())
	}
}

func TestReconstructShifts_OrphanBreakEvents(t *testing.T) {
	events := []model.TimeEvent{
		event(t, model.EventBreakEnd, "2026-03-02 10:00"),
		event(t, model.EventEntry, "2026-03-02 11:00"),
		event(t, model.EventBreakStart, "2026-03-02 12:00"),
		event(t, model.EventExit, "2026-03-02 17:00"),
	}

	intervals, warnings := ReconstructShifts(events)
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if len(intervals[0].Breaks) != 0 {
		t.Fatalf("an unterminated break must not be recorded, got %+v", intervals[0].Breaks)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 orphan break warnings, got %v", warnings)
	}
	for _, w := range warnings {
		if w.Kind != model.WarnOrphanBreak {
			t.Fatalf("unexpected warning kind %s", w.Kind)
		}
	}
}
