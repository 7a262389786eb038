// Package ruleset decodes and validates versioned rule templates. Templates
// arrive as weakly-typed JSON; they are parsed into a strongly-typed,
// fully-defaulted Template exactly once per evaluation and never re-read
// ad hoc inside rule checks.
package ruleset

import (
	"encoding/json"
	"fmt"
	"sort"

	"timecompliance.service/internal/core/model"
)

// Documented defaults applied when a template omits a field.
const (
	DefaultMaxDailyHours     = 9
	DefaultMinDailyRest      = 12
	DefaultMinWeeklyRest     = 36
	DefaultMaxOvertimeYearly = 80
	DefaultBreakAfterHours   = 6
	DefaultMinBreakMinutes   = 15

	// DefaultDailyRestCritical is the rest cutoff below which a daily-rest
	// breach escalates from warn to critical. Tunable per template.
	DefaultDailyRestCritical = 10
	// DefaultDailyHoursCritical is the worked-hours cutoff above which a
	// daily-limit breach escalates from warn to critical.
	DefaultDailyHoursCritical = 10
)

// Legal caps a published template may not cross (drafts only get warnings,
// so a what-if simulation can still explore them).
const (
	legalMinDailyRest      = 12
	legalMaxDailyHours     = 12
	legalMinWeeklyRest     = 36
	legalMaxOvertimeYearly = 80
)

// ConfigError marks a fatal template problem. It aborts the whole
// evaluation call; nothing is evaluated with a broken template.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule template: %s: %v", e.Reason, e.Err)
	}
	return "rule template: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Limits are the hard per-day/week/year thresholds, all in hours.
type Limits struct {
	MaxDailyHours     float64 `json:"max_daily_hours"`
	MinDailyRest      float64 `json:"min_daily_rest"`
	MinWeeklyRest     float64 `json:"min_weekly_rest"`
	MaxOvertimeYearly float64 `json:"max_overtime_yearly"`
}

// Breaks configures the intra-shift break requirement.
type Breaks struct {
	RequiredAfterHours float64 `json:"required_after_hours"`
	MinBreakMinutes    int     `json:"min_break_minutes"`
}

// OvertimeThreshold fires when YTD overtime reaches Percent of the yearly
// overtime cap.
type OvertimeThreshold struct {
	Percent  float64        `json:"percent"`
	Severity model.Severity `json:"severity"`
}

// Template is the decoded, defaulted rule configuration one evaluation runs
// against.
type Template struct {
	VersionID          string
	Limits             Limits
	Breaks             Breaks
	OvertimeThresholds []OvertimeThreshold
	// DailyRestCritical and DailyHoursCritical are the severity cutoffs for
	// MIN_DAILY_REST and MAX_DAILY_HOURS.
	DailyRestCritical  float64
	DailyHoursCritical float64
}

// payload mirrors the raw JSON document. Pointers distinguish "absent" from
// zero so defaults only fill genuinely missing fields.
type payload struct {
	Limits *struct {
		MaxDailyHours     *float64 `json:"max_daily_hours"`
		MinDailyRest      *float64 `json:"min_daily_rest"`
		MinWeeklyRest     *float64 `json:"min_weekly_rest"`
		MaxOvertimeYearly *float64 `json:"max_overtime_yearly"`
	} `json:"limits"`
	Breaks *struct {
		RequiredAfterHours *float64 `json:"required_after_hours"`
		MinBreakMinutes    *int     `json:"min_break_minutes"`
	} `json:"breaks"`
	Overtime *struct {
		Thresholds []struct {
			Percent  float64 `json:"percent"`
			Severity string  `json:"severity"`
		} `json:"thresholds"`
	} `json:"overtime"`
	Severities *struct {
		DailyRestCritical  *float64 `json:"daily_rest_critical_hours"`
		DailyHoursCritical *float64 `json:"daily_hours_critical"`
	} `json:"severities"`
}

// Parse decodes a raw template payload and applies defaults. A payload that
// is not valid JSON is a ConfigError.
func Parse(versionID string, raw []byte) (*Template, error) {
	var p payload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &ConfigError{Reason: "malformed payload", Err: err}
		}
	}

	t := &Template{
		VersionID: versionID,
		Limits: Limits{
			MaxDailyHours:     DefaultMaxDailyHours,
			MinDailyRest:      DefaultMinDailyRest,
			MinWeeklyRest:     DefaultMinWeeklyRest,
			MaxOvertimeYearly: DefaultMaxOvertimeYearly,
		},
		Breaks: Breaks{
			RequiredAfterHours: DefaultBreakAfterHours,
			MinBreakMinutes:    DefaultMinBreakMinutes,
		},
		DailyRestCritical:  DefaultDailyRestCritical,
		DailyHoursCritical: DefaultDailyHoursCritical,
	}

	if p.Limits != nil {
		setFloat(&t.Limits.MaxDailyHours, p.Limits.MaxDailyHours)
		setFloat(&t.Limits.MinDailyRest, p.Limits.MinDailyRest)
		setFloat(&t.Limits.MinWeeklyRest, p.Limits.MinWeeklyRest)
		setFloat(&t.Limits.MaxOvertimeYearly, p.Limits.MaxOvertimeYearly)
	}
	if p.Breaks != nil {
		setFloat(&t.Breaks.RequiredAfterHours, p.Breaks.RequiredAfterHours)
		if p.Breaks.MinBreakMinutes != nil {
			t.Breaks.MinBreakMinutes = *p.Breaks.MinBreakMinutes
		}
	}
	if p.Severities != nil {
		setFloat(&t.DailyRestCritical, p.Severities.DailyRestCritical)
		setFloat(&t.DailyHoursCritical, p.Severities.DailyHoursCritical)
	}
	if p.Overtime != nil {
		for _, th := range p.Overtime.Thresholds {
			sev := model.Severity(th.Severity)
			switch sev {
			case model.SeverityInfo, model.SeverityWarn, model.SeverityCritical:
			default:
				return nil, &ConfigError{Reason: fmt.Sprintf("unknown overtime threshold severity %q", th.Severity)}
			}
			t.OvertimeThresholds = append(t.OvertimeThresholds, OvertimeThreshold{Percent: th.Percent, Severity: sev})
		}
		// Thresholds fire in ascending order; sorting here keeps the emitted
		// violation order deterministic regardless of payload order.
		sort.Slice(t.OvertimeThresholds, func(i, j int) bool {
			return t.OvertimeThresholds[i].Percent < t.OvertimeThresholds[j].Percent
		})
	}

	return t, nil
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// ValidationIssue is one legal-minimum check result.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks the template against the statutory floor. The caller
// decides how strictly to treat the issues: a published template with
// issues is rejected, a draft used in simulation carries them as warnings.
func (t *Template) Validate() []ValidationIssue {
	var issues []ValidationIssue
	if t.Limits.MinDailyRest < legalMinDailyRest {
		issues = append(issues, ValidationIssue{
			Field:   "limits.min_daily_rest",
			Message: fmt.Sprintf("daily rest below the statutory minimum of %dh", legalMinDailyRest),
		})
	}
	if t.Limits.MaxDailyHours > legalMaxDailyHours {
		issues = append(issues, ValidationIssue{
			Field:   "limits.max_daily_hours",
			Message: fmt.Sprintf("daily hours above the statutory maximum of %dh", legalMaxDailyHours),
		})
	}
	if t.Limits.MinWeeklyRest < legalMinWeeklyRest {
		issues = append(issues, ValidationIssue{
			Field:   "limits.min_weekly_rest",
			Message: fmt.Sprintf("weekly rest below the statutory minimum of %dh", legalMinWeeklyRest),
		})
	}
	if t.Limits.MaxOvertimeYearly > legalMaxOvertimeYearly {
		issues = append(issues, ValidationIssue{
			Field:   "limits.max_overtime_yearly",
			Message: fmt.Sprintf("yearly overtime above the statutory maximum of %dh", legalMaxOvertimeYearly),
		})
	}
	return issues
}

// ModelLimits converts the limits into the response echo shape.
func (t *Template) ModelLimits() model.TemplateLimits {
	return model.TemplateLimits{
		MaxDailyHours:     t.Limits.MaxDailyHours,
		MinDailyRest:      t.Limits.MinDailyRest,
		MinWeeklyRest:     t.Limits.MinWeeklyRest,
		MaxOvertimeYearly: t.Limits.MaxOvertimeYearly,
	}
}
