package engine

import (
	"fmt"
	"sort"
	"time"

	"timecompliance.service/internal/core/model"
	"timecompliance.service/internal/core/ruleset"
)

// HolidayFunc answers whether a local date (YYYY-MM-DD) is a non-working
// holiday for the employee's company. The caller prefetches the holiday
// calendar so evaluation itself stays pure.
type HolidayFunc func(date string) bool

// Input bundles everything Evaluate needs for one employee. All of it is
// precomputed; Evaluate performs no IO.
type Input struct {
	Employee  model.Employee
	Intervals []model.WorkInterval
	RestGaps  []RestGap
	Yearly    YearlyOvertime
	Period    model.EvaluationPeriod
	IsHoliday HolidayFunc
}

// Evaluate applies the rule template to one employee's reconstructed
// timeline and returns the violations dated inside the evaluation period,
// in canonical order. Evaluating the same input twice yields an identical
// slice; the upsert key (employee, rule, date) appears at most once.
func Evaluate(in Input, tpl *ruleset.Template) []model.Violation {
	var out []model.Violation
	out = append(out, maxDailyHours(in, tpl)...)
	out = append(out, minDailyRest(in, tpl)...)
	out = append(out, minWeeklyRest(in, tpl)...)
	out = append(out, minBreakTime(in, tpl)...)
	out = append(out, holidayWork(in)...)
	out = append(out, overtimeThresholds(in, tpl)...)

	sort.Slice(out, func(i, j int) bool {
		if out[i].ViolationDate != out[j].ViolationDate {
			return out[i].ViolationDate < out[j].ViolationDate
		}
		return out[i].RuleCode < out[j].RuleCode
	})
	return out
}

// maxDailyHours sums worked minutes per day bucket and emits exactly one
// violation per day over the limit. A day worked exactly at the limit is
// compliant; the comparison runs on whole minutes so float drift cannot tip
// a boundary day over.
func maxDailyHours(in Input, tpl *ruleset.Template) []model.Violation {
	totals := make(map[string]int)
	for _, iv := range in.Intervals {
		if in.Period.Contains(iv.DateBucket) {
			totals[iv.DateBucket] += iv.WorkedMinutes
		}
	}

	var out []model.Violation
	for date, minutes := range totals {
		if float64(minutes) <= tpl.Limits.MaxDailyHours*60 {
			continue
		}
		severity := model.SeverityWarn
		if float64(minutes) > tpl.DailyHoursCritical*60 {
			severity = model.SeverityCritical
		}
		out = append(out, model.Violation{
			RuleCode:      model.RuleMaxDailyHours,
			EmployeeID:    in.Employee.ID,
			ViolationDate: date,
			Severity:      severity,
			Details:       fmt.Sprintf("%.1fh worked (max %gh)", float64(minutes)/60, tpl.Limits.MaxDailyHours),
		})
	}
	return out
}

// minDailyRest checks every exit→entry gap. Several gaps can share a date
// on split-shift days; only the shortest one is reported so the (employee,
// rule, date) key stays unique.
func minDailyRest(in Input, tpl *ruleset.Template) []model.Violation {
	shortest := make(map[string]RestGap)
	for _, gap := range in.RestGaps {
		if !in.Period.Contains(gap.Date) || gap.Hours >= tpl.Limits.MinDailyRest {
			continue
		}
		if cur, ok := shortest[gap.Date]; !ok || gap.Hours < cur.Hours {
			shortest[gap.Date] = gap
		}
	}

	var out []model.Violation
	for date, gap := range shortest {
		severity := model.SeverityWarn
		if gap.Hours < tpl.DailyRestCritical {
			severity = model.SeverityCritical
		}
		out = append(out, model.Violation{
			RuleCode:      model.RuleMinDailyRest,
			EmployeeID:    in.Employee.ID,
			ViolationDate: date,
			Severity:      severity,
			Details:       fmt.Sprintf("%.1fh rest before shift (min %gh)", gap.Hours, tpl.Limits.MinDailyRest),
		})
	}
	return out
}

// minWeeklyRest slides a trailing 7-day window over every evaluated date and
// requires at least one contiguous rest gap of min_weekly_rest hours inside
// it. Windows with fewer than two intervals have no measurable gap and are
// skipped.
func minWeeklyRest(in Input, tpl *ruleset.Template) []model.Violation {
	var out []model.Violation
	for day := in.Period.Start; !day.After(in.Period.End); day = day.AddDate(0, 0, 1) {
		windowEnd := day.Format(model.DateLayout)
		windowStart := day.AddDate(0, 0, -6).Format(model.DateLayout)

		maxRest, count := MaxRestInWindow(in.Intervals, windowStart, windowEnd)
		if count < 2 || maxRest >= tpl.Limits.MinWeeklyRest {
			continue
		}
		out = append(out, model.Violation{
			RuleCode:      model.RuleMinWeeklyRest,
			EmployeeID:    in.Employee.ID,
			ViolationDate: windowEnd,
			Severity:      model.SeverityCritical,
			Details:       fmt.Sprintf("longest rest %.1fh in the 7 days ending %s (min %gh)", maxRest, windowEnd, tpl.Limits.MinWeeklyRest),
		})
	}
	return out
}

// minBreakTime finds the longest stretch of continuous work in each
// interval, counting only breaks of at least min_break_minutes as real
// interruptions, and flags days where that stretch exceeds
// required_after_hours. One violation per day, reporting the worst stretch.
func minBreakTime(in Input, tpl *ruleset.Template) []model.Violation {
	longest := make(map[string]float64)
	for _, iv := range in.Intervals {
		if !in.Period.Contains(iv.DateBucket) {
			continue
		}
		stretch := longestContinuousWork(iv, tpl.Breaks.MinBreakMinutes)
		if stretch > longest[iv.DateBucket] {
			longest[iv.DateBucket] = stretch
		}
	}

	var out []model.Violation
	for date, hours := range longest {
		if hours <= tpl.Breaks.RequiredAfterHours {
			continue
		}
		out = append(out, model.Violation{
			RuleCode:      model.RuleMinBreakTime,
			EmployeeID:    in.Employee.ID,
			ViolationDate: date,
			Severity:      model.SeverityWarn,
			Details:       fmt.Sprintf("%.1fh continuous work without a %dmin break (required after %gh)", hours, tpl.Breaks.MinBreakMinutes, tpl.Breaks.RequiredAfterHours),
		})
	}
	return out
}

// longestContinuousWork returns the longest work stretch in hours, split at
// breaks of at least minBreakMinutes. Shorter breaks do not reset the
// stretch.
func longestContinuousWork(iv model.WorkInterval, minBreakMinutes int) float64 {
	segmentStart := iv.Start
	var longest time.Duration
	for _, b := range iv.Breaks {
		if b.Minutes < minBreakMinutes {
			continue
		}
		if d := b.Start.Sub(segmentStart); d > longest {
			longest = d
		}
		segmentStart = b.End
	}
	if d := iv.End.Sub(segmentStart); d > longest {
		longest = d
	}
	return longest.Hours()
}

// holidayWork flags any day bucket on a non-working holiday where at least
// one interval lacks the authorization flag.
func holidayWork(in Input) []model.Violation {
	if in.IsHoliday == nil {
		return nil
	}
	flagged := make(map[string]bool)
	for _, iv := range in.Intervals {
		if !in.Period.Contains(iv.DateBucket) || iv.Authorized {
			continue
		}
		if in.IsHoliday(iv.DateBucket) {
			flagged[iv.DateBucket] = true
		}
	}

	var out []model.Violation
	for date := range flagged {
		out = append(out, model.Violation{
			RuleCode:      model.RuleHolidayWork,
			EmployeeID:    in.Employee.ID,
			ViolationDate: date,
			Severity:      model.SeverityWarn,
			Details:       "work recorded on a non-working holiday without authorization",
		})
	}
	return out
}

// overtimeThresholds emits one candidate per configured threshold the
// employee's YTD overtime percentage has reached, dated at the end of the
// evaluation period.
func overtimeThresholds(in Input, tpl *ruleset.Template) []model.Violation {
	date := in.Period.End.Format(model.DateLayout)
	seen := make(map[model.RuleCode]bool)

	var out []model.Violation
	for _, th := range tpl.OvertimeThresholds {
		if in.Yearly.OvertimePercent < th.Percent {
			continue
		}
		code := model.OvertimeRuleCode(th.Percent)
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, model.Violation{
			RuleCode:      code,
			EmployeeID:    in.Employee.ID,
			ViolationDate: date,
			Severity:      th.Severity,
			Details:       fmt.Sprintf("%.0fh overtime year-to-date (%.0f%% of the %gh cap)", in.Yearly.OvertimeHours, in.Yearly.OvertimePercent, tpl.Limits.MaxOvertimeYearly),
		})
	}
	return out
}
