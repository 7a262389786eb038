package model

import (
	"testing"
	"time"
)

func TestCanonicalRuleCode(t *testing.T) {
	cases := []struct {
		in   string
		want RuleCode
	}{
		{"MISSING_BREAK", RuleMinBreakTime},
		{"BREAK_REQUIRED", RuleMinBreakTime},
		{"MIN_BREAK_TIME", RuleMinBreakTime},
		{"MAX_DAILY_HOURS", RuleMaxDailyHours},
		{"OVERTIME_YTD_75", RuleCode("OVERTIME_YTD_75")},
	}
	for _, c := range cases {
		if got := CanonicalRuleCode(c.in); got != c.want {
			t.Fatalf("CanonicalRuleCode(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestOvertimeRuleCode(t *testing.T) {
	if got := OvertimeRuleCode(75); got != RuleCode("OVERTIME_YTD_75") {
		t.Fatalf("OvertimeRuleCode(75) = %s", got)
	}
	if got := OvertimeRuleCode(100); got != RuleCode("OVERTIME_YTD_100") {
		t.Fatalf("OvertimeRuleCode(100) = %s", got)
	}
}

func TestSeverityLess(t *testing.T) {
	if !SeverityInfo.Less(SeverityWarn) || !SeverityWarn.Less(SeverityCritical) {
		t.Fatal("severity ordering broken")
	}
	if SeverityCritical.Less(SeverityWarn) {
		t.Fatal("critical must not rank below warn")
	}
}

func TestPeriodContains(t *testing.T) {
	p := EvaluationPeriod{
		Start: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 8, 23, 59, 59, 0, time.UTC),
	}
	if !p.Contains("2026-03-02") || !p.Contains("2026-03-08") {
		t.Fatal("boundary dates are inside the period")
	}
	if p.Contains("2026-03-01") || p.Contains("2026-03-09") {
		t.Fatal("neighboring dates are outside the period")
	}
}

func TestViolationKey(t *testing.T) {
	v := Violation{RuleCode: RuleMaxDailyHours, EmployeeID: "emp-1", ViolationDate: "2026-03-02"}
	if v.Key() != "emp-1|MAX_DAILY_HOURS|2026-03-02" {
		t.Fatalf("unexpected key %q", v.Key())
	}
}
