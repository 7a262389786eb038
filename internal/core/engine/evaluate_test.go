package engine

import (
	"reflect"
	"testing"
	"time"

	"timecompliance.service/internal/core/model"
	"timecompliance.service/internal/core/ruleset"
)

func defaultTemplate(t *testing.T) *ruleset.Template {
	t.Helper()
	tpl, err := ruleset.Parse("v1", nil)
	if err != nil {
		t.Fatalf("parse default template: %v", err)
	}
	return tpl
}

func weekPeriod(t *testing.T) model.EvaluationPeriod {
	t.Helper()
	return model.EvaluationPeriod{
		Start:     time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC),
		YearStart: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func evalInput(t *testing.T, intervals []model.WorkInterval) Input {
	t.Helper()
	gaps, _ := RestGaps(intervals)
	return Input{
		Employee:  model.Employee{ID: "emp-1", FirstName: "Ana", LastName: "Pop"},
		Intervals: intervals,
		RestGaps:  gaps,
		Period:    weekPeriod(t),
	}
}

func findRule(violations []model.Violation, code model.RuleCode) []model.Violation {
	var out []model.Violation
	for _, v := range violations {
		if v.RuleCode == code {
			out = append(out, v)
		}
	}
	return out
}

func TestEvaluate_LawfulDayIsCompliant(t *testing.T) {
	events := []model.TimeEvent{
		event(t, model.EventEntry, "2026-03-02 09:00"),
		event(t, model.EventBreakStart, "2026-03-02 14:00"),
		event(t, model.EventBreakEnd, "2026-03-02 15:00"),
		event(t, model.EventExit, "2026-03-02 18:00"),
	}
	intervals, warnings := ReconstructShifts(events)
	if len(warnings) != 0 {
		t.Fatalf("expected a clean reconstruction, got %v", warnings)
	}
	in := evalInput(t, intervals)

	if got := Evaluate(in, defaultTemplate(t)); len(got) != 0 {
		t.Fatalf("a 9h day with a lawful break must be compliant, got %v", got)
	}
}

func TestEvaluate_MaxDailyHoursBoundary(t *testing.T) {
	tpl := defaultTemplate(t)

	// Exactly at the 9h limit: compliant.
	in := evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-02 08:00", "2026-03-02 17:00"),
	})
	if got := findRule(Evaluate(in, tpl), model.RuleMaxDailyHours); len(got) != 0 {
		t.Fatalf("a day exactly at the limit must be compliant, got %v", got)
	}

	// One minute over: warn.
	in = evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-02 08:00", "2026-03-02 17:01"),
	})
	got := findRule(Evaluate(in, tpl), model.RuleMaxDailyHours)
	if len(got) != 1 {
		t.Fatalf("expected 1 violation, got %v", got)
	}
	if got[0].Severity != model.SeverityWarn {
		t.Fatalf("one minute over must be warn, got %s", got[0].Severity)
	}
	if got[0].ViolationDate != "2026-03-02" {
		t.Fatalf("unexpected violation date %s", got[0].ViolationDate)
	}

	// More than 10h: critical.
	in = evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-03 08:00", "2026-03-03 19:00"),
	})
	got = findRule(Evaluate(in, tpl), model.RuleMaxDailyHours)
	if len(got) != 1 || got[0].Severity != model.SeverityCritical {
		t.Fatalf("11h worked must be critical, got %v", got)
	}
}

func TestEvaluate_MaxDailyHoursSumsSplitShifts(t *testing.T) {
	tpl := defaultTemplate(t)
	in := evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-02 06:00", "2026-03-02 11:00"),
		interval(t, "2026-03-02 14:00", "2026-03-02 19:30"),
	})

	got := findRule(Evaluate(in, tpl), model.RuleMaxDailyHours)
	if len(got) != 1 {
		t.Fatalf("split shifts must sum into one daily violation, got %v", got)
	}
	if got[0].Severity != model.SeverityCritical {
		t.Fatalf("10.5h worked must be critical, got %s", got[0].Severity)
	}
}

func TestEvaluate_MinDailyRestSeverity(t *testing.T) {
	tpl := defaultTemplate(t)

	// 9h rest overnight: below the 10h critical cutoff.
	in := evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-02 09:00", "2026-03-02 23:00"),
		interval(t, "2026-03-03 08:00", "2026-03-03 17:00"),
	})
	got := findRule(Evaluate(in, tpl), model.RuleMinDailyRest)
	if len(got) != 1 {
		t.Fatalf("expected 1 daily-rest violation, got %v", got)
	}
	if got[0].Severity != model.SeverityCritical {
		t.Fatalf("9h rest must be critical, got %s", got[0].Severity)
	}
	if got[0].ViolationDate != "2026-03-03" {
		t.Fatalf("violation must be dated at the entry, got %s", got[0].ViolationDate)
	}

	// 11h rest: below the 12h limit but above the critical cutoff.
	in = evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-02 09:00", "2026-03-02 21:00"),
		interval(t, "2026-03-03 08:00", "2026-03-03 17:00"),
	})
	got = findRule(Evaluate(in, tpl), model.RuleMinDailyRest)
	if len(got) != 1 || got[0].Severity != model.SeverityWarn {
		t.Fatalf("11h rest must be warn, got %v", got)
	}
}

func TestEvaluate_MinDailyRestOnePerDate(t *testing.T) {
	tpl := defaultTemplate(t)
	// Split-shift day: two short gaps on the same date must collapse to one
	// violation keyed on the shortest gap.
	in := evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-02 06:00", "2026-03-02 10:00"),
		interval(t, "2026-03-02 12:00", "2026-03-02 15:00"),
		interval(t, "2026-03-02 16:00", "2026-03-02 19:00"),
	})

	got := findRule(Evaluate(in, tpl), model.RuleMinDailyRest)
	if len(got) != 1 {
		t.Fatalf("expected exactly one violation per date, got %v", got)
	}
	if got[0].Details != "1.0h rest before shift (min 12h)" {
		t.Fatalf("shortest gap must win, got %q", got[0].Details)
	}
}

func TestEvaluate_MinWeeklyRest(t *testing.T) {
	tpl := defaultTemplate(t)

	// Seven straight working days: no gap ever reaches 36h.
	var intervals []model.WorkInterval
	for day := 2; day <= 8; day++ {
		date := time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		intervals = append(intervals, interval(t, date+" 09:00", date+" 17:00"))
	}
	in := evalInput(t, intervals)

	got := findRule(Evaluate(in, tpl), model.RuleMinWeeklyRest)
	if len(got) == 0 {
		t.Fatal("expected weekly-rest violations for a week without a 36h gap")
	}
	for _, v := range got {
		if v.Severity != model.SeverityCritical {
			t.Fatalf("weekly rest breaches are critical, got %s", v.Severity)
		}
	}

	// Working every third day leaves 64h gaps, well above the minimum.
	in = evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-02 09:00", "2026-03-02 17:00"),
		interval(t, "2026-03-05 09:00", "2026-03-05 17:00"),
		interval(t, "2026-03-08 09:00", "2026-03-08 17:00"),
	})
	if got := findRule(Evaluate(in, tpl), model.RuleMinWeeklyRest); len(got) != 0 {
		t.Fatalf("a 64h gap must satisfy the weekly rest rule, got %v", got)
	}
}

func TestEvaluate_MinBreakTime(t *testing.T) {
	tpl := defaultTemplate(t)

	// 8h with no break exceeds the 6h continuous-work allowance.
	in := evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-02 09:00", "2026-03-02 17:00"),
	})
	got := findRule(Evaluate(in, tpl), model.RuleMinBreakTime)
	if len(got) != 1 || got[0].Severity != model.SeverityWarn {
		t.Fatalf("8h without a break must be a warn violation, got %v", got)
	}

	// A qualifying 30min break in the middle splits the stretch.
	iv := interval(t, "2026-03-02 09:00", "2026-03-02 17:00")
	iv.Breaks = []model.BreakPeriod{{
		Start:   iv.Start.Add(4 * time.Hour),
		End:     iv.Start.Add(4*time.Hour + 30*time.Minute),
		Minutes: 30,
	}}
	in = evalInput(t, []model.WorkInterval{iv})
	if got := findRule(Evaluate(in, tpl), model.RuleMinBreakTime); len(got) != 0 {
		t.Fatalf("a qualifying break must clear the rule, got %v", got)
	}

	// A 10min pause is below min_break_minutes and does not split.
	iv = interval(t, "2026-03-02 09:00", "2026-03-02 17:00")
	iv.Breaks = []model.BreakPeriod{{
		Start:   iv.Start.Add(4 * time.Hour),
		End:     iv.Start.Add(4*time.Hour + 10*time.Minute),
		Minutes: 10,
	}}
	in = evalInput(t, []model.WorkInterval{iv})
	if got := findRule(Evaluate(in, tpl), model.RuleMinBreakTime); len(got) != 1 {
		t.Fatalf("a sub-minimum pause must not reset the stretch, got %v", got)
	}
}

func TestEvaluate_HolidayWork(t *testing.T) {
	tpl := defaultTemplate(t)

	in := evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-02 09:00", "2026-03-02 13:00"),
	})
	in.IsHoliday = func(date string) bool { return date == "2026-03-02" }

	got := findRule(Evaluate(in, tpl), model.RuleHolidayWork)
	if len(got) != 1 || got[0].Severity != model.SeverityWarn {
		t.Fatalf("unauthorized holiday work must be a warn violation, got %v", got)
	}

	// The same shift with prior authorization is compliant.
	iv := interval(t, "2026-03-02 09:00", "2026-03-02 13:00")
	iv.Authorized = true
	in = evalInput(t, []model.WorkInterval{iv})
	in.IsHoliday = func(date string) bool { return date == "2026-03-02" }
	if got := findRule(Evaluate(in, tpl), model.RuleHolidayWork); len(got) != 0 {
		t.Fatalf("authorized holiday work must be compliant, got %v", got)
	}
}

func TestEvaluate_OvertimeThresholds(t *testing.T) {
	raw := []byte(`{
		"overtime": {"thresholds": [
			{"percent": 100, "severity": "critical"},
			{"percent": 75, "severity": "warn"}
		]}
	}`)
	tpl, err := ruleset.Parse("v1", raw)
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}

	in := evalInput(t, nil)
	in.Yearly = YearlyOvertime{EmployeeID: "emp-1", YearlyHours: 1900, OvertimeHours: 100, OvertimePercent: 125}

	violations := Evaluate(in, tpl)
	if len(violations) != 2 {
		t.Fatalf("expected both thresholds to fire, got %v", violations)
	}
	for _, v := range violations {
		if v.ViolationDate != "2026-03-08" {
			t.Fatalf("overtime violations are dated at period end, got %s", v.ViolationDate)
		}
	}
	if findRule(violations, model.OvertimeRuleCode(75))[0].Severity != model.SeverityWarn {
		t.Fatal("75% threshold must carry its configured severity")
	}
	if findRule(violations, model.OvertimeRuleCode(100))[0].Severity != model.SeverityCritical {
		t.Fatal("100% threshold must carry its configured severity")
	}
}

func TestEvaluate_IgnoresDatesOutsidePeriod(t *testing.T) {
	tpl := defaultTemplate(t)
	// The lookback day before the period feeds rest computation but must not
	// surface its own daily-hours violation.
	in := evalInput(t, []model.WorkInterval{
		interval(t, "2026-03-01 06:00", "2026-03-01 18:00"),
		interval(t, "2026-03-02 09:00", "2026-03-02 17:00"),
	})

	if got := findRule(Evaluate(in, tpl), model.RuleMaxDailyHours); len(got) != 0 {
		t.Fatalf("violations outside the period must be filtered, got %v", got)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	tpl := defaultTemplate(t)
	var intervals []model.WorkInterval
	for day := 2; day <= 8; day++ {
		date := time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		intervals = append(intervals, interval(t, date+" 07:00", date+" 18:30"))
	}
	in := evalInput(t, intervals)

	first := Evaluate(in, tpl)
	second := Evaluate(in, tpl)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical input must produce identical output")
	}

	seen := make(map[string]bool)
	for i, v := range first {
		if i > 0 {
			prev := first[i-1]
			if v.ViolationDate < prev.ViolationDate ||
				(v.ViolationDate == prev.ViolationDate && v.RuleCode < prev.RuleCode) {
				t.Fatalf("violations out of canonical order at index %d", i)
			}
		}
		if seen[v.Key()] {
			t.Fatalf("duplicate violation key %s", v.Key())
		}
		seen[v.Key()] = true
	}
}
