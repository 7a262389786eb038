package model

import (
	"fmt"
	"time"
)

// EventType classifies a raw clock event.
type EventType string

const (
	EventEntry      EventType = "entry"
	EventExit       EventType = "exit"
	EventBreakStart EventType = "break_start"
	EventBreakEnd   EventType = "break_end"
)

// DateLayout is the wire format for violation dates and day buckets.
const DateLayout = "2006-01-02"

// TimeEvent is a single immutable clock event produced by the clocking
// subsystem (kiosk, mobile). The engine never writes these.
type TimeEvent struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	CompanyID  string    `json:"companyId"`
	Type       EventType `json:"eventType"`
	// Timestamp is the UTC instant, LocalTimestamp the wall-clock time in
	// the employee's timezone. Durations use Timestamp; day bucketing and
	// the night window use LocalTimestamp.
	Timestamp      time.Time `json:"timestamp"`
	LocalTimestamp time.Time `json:"localTimestamp"`
	// Authorized marks pre-approved holiday work (set by a manager at
	// clock-in time).
	Authorized bool `json:"authorized,omitempty"`
}

// LocalDate returns the event's local calendar date as YYYY-MM-DD.
func (e TimeEvent) LocalDate() string {
	return e.LocalTimestamp.Format(DateLayout)
}

// BreakPeriod is a break_start/break_end pair inside a work interval.
type BreakPeriod struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Minutes int       `json:"minutes"`
}

// WorkInterval is one reconstructed entry→exit span. Derived, never
// persisted. Intervals of the same employee never overlap; DateBucket is
// always the entry event's local date, also for shifts crossing midnight.
type WorkInterval struct {
	EmployeeID string    `json:"employeeId"`
	DateBucket string    `json:"dateBucket"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	// StartLocal/EndLocal carry the wall-clock edges used for the night
	// window overlap.
	StartLocal    time.Time     `json:"startLocal"`
	EndLocal      time.Time     `json:"endLocal"`
	WorkedMinutes int           `json:"workedMinutes"`
	NightMinutes  int           `json:"nightMinutes"`
	Breaks        []BreakPeriod `json:"breaks,omitempty"`
	Authorized    bool          `json:"authorized,omitempty"`
}

// BreakMinutes sums the lawful break time inside the interval.
func (w WorkInterval) BreakMinutes() int {
	total := 0
	for _, b := range w.Breaks {
		total += b.Minutes
	}
	return total
}

// Severity ranks how far a metric exceeds its threshold.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// rank orders severities for canonical sorting; unknown values sort first.
func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarn:
		return 2
	case SeverityCritical:
		return 3
	}
	return 0
}

// Less reports whether s ranks below other.
func (s Severity) Less(other Severity) bool { return s.rank() < other.rank() }

// RuleCode identifies a compliance rule. Only the canonical spellings below
// are ever emitted; legacy spellings are accepted on input through
// CanonicalRuleCode.
type RuleCode string

const (
	RuleMaxDailyHours RuleCode = "MAX_DAILY_HOURS"
	RuleMinDailyRest  RuleCode = "MIN_DAILY_REST"
	RuleMinWeeklyRest RuleCode = "MIN_WEEKLY_REST"
	RuleMinBreakTime  RuleCode = "MIN_BREAK_TIME"
	RuleHolidayWork   RuleCode = "HOLIDAY_WORK_UNAUTHORIZED"
)

// ruleAliases maps legacy rule-code spellings, which still appear in stored
// violations and older templates, onto the canonical codes.
var ruleAliases = map[string]RuleCode{
	"MISSING_BREAK":  RuleMinBreakTime,
	"BREAK_REQUIRED": RuleMinBreakTime,
}

// CanonicalRuleCode resolves a rule-code string to its canonical form,
// passing unknown codes (e.g. OVERTIME_YTD_75) through unchanged.
func CanonicalRuleCode(code string) RuleCode {
	if canonical, ok := ruleAliases[code]; ok {
		return canonical
	}
	return RuleCode(code)
}

// OvertimeRuleCode builds the code for a year-to-date overtime threshold,
// e.g. OVERTIME_YTD_75 for the 75% threshold.
func OvertimeRuleCode(percent float64) RuleCode {
	return RuleCode(fmt.Sprintf("OVERTIME_YTD_%g", percent))
}

// Violation is one severity-tagged rule breach. Persisted violations are
// keyed by (employee_id, rule_code, violation_date) so re-evaluation upserts
// instead of duplicating.
type Violation struct {
	RuleCode      RuleCode `json:"rule_code"`
	EmployeeID    string   `json:"employee_id"`
	ViolationDate string   `json:"violation_date"`
	Severity      Severity `json:"severity"`
	Details       string   `json:"details"`
}

// Key returns the natural upsert key of the violation.
func (v Violation) Key() string {
	return v.EmployeeID + "|" + string(v.RuleCode) + "|" + v.ViolationDate
}

// WarningKind classifies a recoverable data-quality anomaly.
type WarningKind string

const (
	WarnNoEvents         WarningKind = "no_events"
	WarnConsecutiveEntry WarningKind = "consecutive_entry"
	WarnOrphanExit       WarningKind = "orphan_exit"
	WarnOrphanBreak      WarningKind = "orphan_break"
	WarnOpenInterval     WarningKind = "open_interval"
	WarnNegativeRest     WarningKind = "negative_rest"
	WarnEmployeeSkipped  WarningKind = "employee_skipped"
)

// DataQualityWarning flags an anomalous event sequence. The engine never
// repairs the data; it skips the offending piece and keeps going.
type DataQualityWarning struct {
	EmployeeID string      `json:"employee_id"`
	Kind       WarningKind `json:"kind"`
	Date       string      `json:"date,omitempty"`
	Message    string      `json:"message"`
}

// EvaluationPeriod bounds one evaluation run. YearStart is always January 1
// of the evaluation year and must be passed in explicitly; core logic never
// reads the wall clock.
type EvaluationPeriod struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	YearStart time.Time `json:"year_start"`
}

// Contains reports whether a YYYY-MM-DD date falls inside [Start, End].
func (p EvaluationPeriod) Contains(date string) bool {
	return date >= p.Start.Format(DateLayout) && date <= p.End.Format(DateLayout)
}

// Employee is the slim projection the engine needs for evaluation.
type Employee struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// FullName joins first and last name for violation details and emails.
func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// RuleVersionStatus tracks the template publication lifecycle.
type RuleVersionStatus string

const (
	VersionDraft     RuleVersionStatus = "draft"
	VersionPublished RuleVersionStatus = "published"
	VersionArchived  RuleVersionStatus = "archived"
)

// RuleVersion is one immutable-once-published template version row. Payload
// is the raw JSON document; internal/core/ruleset decodes it.
type RuleVersion struct {
	ID        string            `json:"id"`
	CompanyID string            `json:"company_id"`
	Status    RuleVersionStatus `json:"status"`
	Payload   []byte            `json:"payload_json"`
}

// NotifyStatus tracks asynchronous notification processing on a persisted
// violation, one status per delivery channel.
type NotifyStatus string

const (
	NotifyPending    NotifyStatus = "PENDING"
	NotifyProcessing NotifyStatus = "PROCESSING"
	NotifyCompleted  NotifyStatus = "COMPLETED"
	NotifyFailed     NotifyStatus = "FAILED"
)

// StoredViolation is a persisted violation row with its notification state.
type StoredViolation struct {
	ID              int64        `json:"id"`
	CompanyID       string       `json:"company_id"`
	Violation       Violation    `json:"violation"`
	AlertStatus     NotifyStatus `json:"alert_status"`
	AlertRetryCount int          `json:"alert_retry_count"`
	EmailStatus     NotifyStatus `json:"email_status"`
	EmailRetryCount int          `json:"email_retry_count"`
}

// PeriodSummary echoes the evaluated window in responses.
type PeriodSummary struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// EvaluateResult is the response of a persisted evaluation run.
type EvaluateResult struct {
	CompanyID          string               `json:"company_id"`
	Period             PeriodSummary        `json:"period"`
	EmployeesEvaluated int                  `json:"employees_evaluated"`
	ViolationsFound    int                  `json:"violations_found"`
	Violations         []Violation          `json:"violations"`
	Warnings           []DataQualityWarning `json:"warnings"`
}

// SimulationSummary aggregates a simulation run.
type SimulationSummary struct {
	Total             int            `json:"total"`
	ByRule            map[string]int `json:"by_rule"`
	BySeverity        map[string]int `json:"by_severity"`
	EmployeesAffected int            `json:"employees_affected"`
}

// TemplateLimits echoes the effective limits a simulation ran with.
type TemplateLimits struct {
	MaxDailyHours     float64 `json:"max_daily_hours"`
	MinDailyRest      float64 `json:"min_daily_rest"`
	MinWeeklyRest     float64 `json:"min_weekly_rest"`
	MaxOvertimeYearly float64 `json:"max_overtime_yearly"`
}

// SimulationResult is the full what-if answer for a template version. It is
// never persisted.
type SimulationResult struct {
	RunID          string               `json:"run_id"`
	Violations     []Violation          `json:"violations"`
	Summary        SimulationSummary    `json:"summary"`
	Period         PeriodSummary        `json:"period"`
	TemplateLimits TemplateLimits       `json:"template_limits"`
	Warnings       []DataQualityWarning `json:"warnings"`
}
