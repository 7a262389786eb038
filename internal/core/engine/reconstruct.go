// Package engine holds the pure computation pipeline: shift reconstruction,
// rest gaps, yearly accumulation and rule evaluation. Nothing in here does
// IO or reads the wall clock, so identical inputs always produce identical
// outputs.
package engine

import (
	"fmt"
	"time"

	"timecompliance.service/internal/core/model"
)

const (
	nightStartHour = 22
	nightEndHour   = 6

	// nightCapMinutes caps the night minutes credited to a single interval
	// at 8 hours. Documented policy carried over from the clocking system;
	// kept as-is even for very long overnight shifts.
	nightCapMinutes = 8 * 60
)

// ReconstructShifts pairs one employee's ordered events into work intervals
// using a single open-entry pointer. Anomalies (consecutive entries, orphan
// exits, unpaired breaks, an entry left open at the end) are dropped and
// reported as warnings, never repaired.
func ReconstructShifts(events []model.TimeEvent) ([]model.WorkInterval, []model.DataQualityWarning) {
	var (
		intervals []model.WorkInterval
		warnings  []model.DataQualityWarning

		pendingEntry *model.TimeEvent
		pendingBreak *model.TimeEvent
		breaks       []model.BreakPeriod
	)

	for i := range events {
		ev := events[i]
		switch ev.Type {
		case model.EventEntry:
			if pendingEntry != nil {
				// Two entries with no exit between them: the earlier
				// sub-interval is unusable and gets dropped.
				warnings = append(warnings, model.DataQualityWarning{
					EmployeeID: ev.EmployeeID,
					Kind:       model.WarnConsecutiveEntry,
					Date:       pendingEntry.LocalDate(),
					Message:    fmt.Sprintf("entry at %s superseded by entry at %s without an exit", pendingEntry.LocalTimestamp.Format(time.RFC3339), ev.LocalTimestamp.Format(time.RFC3339)),
				})
			}
			pendingEntry = &events[i]
			pendingBreak = nil
			breaks = nil

		case model.EventExit:
			if pendingEntry == nil {
				warnings = append(warnings, model.DataQualityWarning{
					EmployeeID: ev.EmployeeID,
					Kind:       model.WarnOrphanExit,
					Date:       ev.LocalDate(),
					Message:    fmt.Sprintf("exit at %s has no matching entry", ev.LocalTimestamp.Format(time.RFC3339)),
				})
				continue
			}
			if pendingBreak != nil {
				warnings = append(warnings, model.DataQualityWarning{
					EmployeeID: ev.EmployeeID,
					Kind:       model.WarnOrphanBreak,
					Date:       pendingBreak.LocalDate(),
					Message:    fmt.Sprintf("break started at %s never ended", pendingBreak.LocalTimestamp.Format(time.RFC3339)),
				})
				pendingBreak = nil
			}
			intervals = append(intervals, buildInterval(*pendingEntry, ev, breaks))
			pendingEntry = nil
			breaks = nil

		case model.EventBreakStart:
			if pendingEntry == nil || pendingBreak != nil {
				warnings = append(warnings, model.DataQualityWarning{
					EmployeeID: ev.EmployeeID,
					Kind:       model.WarnOrphanBreak,
					Date:       ev.LocalDate(),
					Message:    fmt.Sprintf("break_start at %s outside an open shift", ev.LocalTimestamp.Format(time.RFC3339)),
				})
				continue
			}
			pendingBreak = &events[i]

		case model.EventBreakEnd:
			if pendingBreak == nil {
				warnings = append(warnings, model.DataQualityWarning{
					EmployeeID: ev.EmployeeID,
					Kind:       model.WarnOrphanBreak,
					Date:       ev.LocalDate(),
					Message:    fmt.Sprintf("break_end at %s has no matching break_start", ev.LocalTimestamp.Format(time.RFC3339)),
				})
				continue
			}
			breaks = append(breaks, model.BreakPeriod{
				Start:   pendingBreak.Timestamp,
				End:     ev.Timestamp,
				Minutes: int(ev.Timestamp.Sub(pendingBreak.Timestamp).Minutes()),
			})
			pendingBreak = nil
		}
	}

	if pendingEntry != nil {
		warnings = append(warnings, model.DataQualityWarning{
			EmployeeID: pendingEntry.EmployeeID,
			Kind:       model.WarnOpenInterval,
			Date:       pendingEntry.LocalDate(),
			Message:    fmt.Sprintf("entry at %s has no exit yet", pendingEntry.LocalTimestamp.Format(time.RFC3339)),
		})
	}

	return intervals, warnings
}

// buildInterval derives one interval from a closed entry/exit pair. Events
// arrive sorted by timestamp, so the duration is non-negative by
// construction. Shifts crossing midnight stay a single interval bucketed to
// the entry's local date.
func buildInterval(entry, exit model.TimeEvent, breaks []model.BreakPeriod) model.WorkInterval {
	worked := exit.Timestamp.Sub(entry.Timestamp)
	startLocal := entry.LocalTimestamp
	endLocal := startLocal.Add(worked)

	return model.WorkInterval{
		EmployeeID:    entry.EmployeeID,
		DateBucket:    entry.LocalDate(),
		Start:         entry.Timestamp,
		End:           exit.Timestamp,
		StartLocal:    startLocal,
		EndLocal:      endLocal,
		WorkedMinutes: int(worked.Minutes()),
		NightMinutes:  nightMinutes(startLocal, endLocal),
		Breaks:        breaks,
		Authorized:    entry.Authorized,
	}
}

// nightMinutes computes the overlap of [start, end) with the nightly window
// [22:00, 06:00) in local wall-clock time, summed per calendar night and
// capped at 8 hours.
func nightMinutes(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}

	total := 0
	// Walk every night window that can touch the interval. The window
	// anchored at day d spans [d 22:00, d+1 06:00), so start one day early.
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()).AddDate(0, 0, -1)
	for !day.After(end) {
		windowStart := time.Date(day.Year(), day.Month(), day.Day(), nightStartHour, 0, 0, 0, day.Location())
		windowEnd := windowStart.Add(time.Duration(24-nightStartHour+nightEndHour) * time.Hour)
		total += overlapMinutes(start, end, windowStart, windowEnd)
		day = day.AddDate(0, 0, 1)
	}

	if total > nightCapMinutes {
		return nightCapMinutes
	}
	return total
}

func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) int {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start).Minutes())
}
