package engine

import (
	"time"

	"timecompliance.service/internal/core/model"
)

// StandardYearlyHours is the annual baseline (~40h/week over 45 working
// weeks). Hours beyond it count as overtime.
const StandardYearlyHours = 1800

// YearlyOvertime is one employee's year-to-date position against the yearly
// overtime cap.
type YearlyOvertime struct {
	EmployeeID      string
	YearlyHours     float64
	OvertimeHours   float64
	OvertimePercent float64
}

// AccumulateYearly re-pairs entry/exit events across [yearStart,
// evaluation_end] and sums worked hours. Events before yearStart are
// excluded here, so callers can hand over the full fetched slice even when
// it carries a lookback day from the previous year. Break events are
// ignored: the yearly figure is gross shift time, matching how the monthly
// closure reports it. The pairing rule is the reconstructor's (a later
// entry supersedes an open one, orphan exits are skipped); anomalies were
// already reported once during reconstruction, so they are not re-warned
// here.
func AccumulateYearly(employeeID string, events []model.TimeEvent, yearStart time.Time, maxOvertimeYearly float64) YearlyOvertime {
	var (
		total     float64
		openEntry *model.TimeEvent
	)

	for i := range events {
		ev := events[i]
		if ev.Timestamp.Before(yearStart) {
			continue
		}
		switch ev.Type {
		case model.EventEntry:
			openEntry = &events[i]
		case model.EventExit:
			if openEntry == nil {
				continue
			}
			if d := ev.Timestamp.Sub(openEntry.Timestamp); d > 0 {
				total += d.Hours()
			}
			openEntry = nil
		}
	}

	overtime := total - StandardYearlyHours
	if overtime < 0 {
		overtime = 0
	}

	percent := 0.0
	if maxOvertimeYearly > 0 {
		percent = overtime / maxOvertimeYearly * 100
	}

	return YearlyOvertime{
		EmployeeID:      employeeID,
		YearlyHours:     total,
		OvertimeHours:   overtime,
		OvertimePercent: percent,
	}
}
