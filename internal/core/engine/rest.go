package engine

import (
	"fmt"
	"time"

	"timecompliance.service/internal/core/model"
)

// RestGap is the elapsed time between one interval's exit and the next
// chronological entry of the same employee. Same-day gaps (split shifts) and
// overnight gaps are treated alike.
type RestGap struct {
	EmployeeID string
	ExitAt     time.Time
	EntryAt    time.Time
	Hours      float64
	// Date is the local date of the entry that ends the gap; daily-rest
	// violations are dated here.
	Date string
}

// RestGaps walks the reconstructed intervals in chronological order and
// returns every exit→entry gap. A negative gap means overlapping intervals,
// which the reconstructor should have made impossible; it is reported as a
// warning and skipped, never turned into a negative-duration violation.
func RestGaps(intervals []model.WorkInterval) ([]RestGap, []model.DataQualityWarning) {
	var (
		gaps     []RestGap
		warnings []model.DataQualityWarning
	)

	for i := 1; i < len(intervals); i++ {
		prev, next := intervals[i-1], intervals[i]
		rest := next.Start.Sub(prev.End)
		if rest < 0 {
			warnings = append(warnings, model.DataQualityWarning{
				EmployeeID: next.EmployeeID,
				Kind:       model.WarnNegativeRest,
				Date:       next.DateBucket,
				Message:    fmt.Sprintf("entry at %s precedes previous exit at %s", next.Start.Format(time.RFC3339), prev.End.Format(time.RFC3339)),
			})
			continue
		}
		gaps = append(gaps, RestGap{
			EmployeeID: next.EmployeeID,
			ExitAt:     prev.End,
			EntryAt:    next.Start,
			Hours:      rest.Hours(),
			Date:       next.DateBucket,
		})
	}

	return gaps, warnings
}

// MaxRestInWindow returns the longest exit→entry gap among the intervals
// whose day bucket falls in [windowStart, windowEnd] (both YYYY-MM-DD,
// inclusive), and how many intervals the window holds. Only gaps between
// consecutive in-window intervals count; with fewer than two intervals there
// is no gap to measure.
func MaxRestInWindow(intervals []model.WorkInterval, windowStart, windowEnd string) (maxHours float64, count int) {
	var prev *model.WorkInterval
	for i := range intervals {
		iv := &intervals[i]
		if iv.DateBucket < windowStart || iv.DateBucket > windowEnd {
			continue
		}
		count++
		if prev != nil {
			if rest := iv.Start.Sub(prev.End).Hours(); rest > maxHours {
				maxHours = rest
			}
		}
		prev = iv
	}
	return maxHours, count
}
