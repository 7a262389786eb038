package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"timecompliance.service/internal/core/engine"
	"timecompliance.service/internal/core/model"
	"timecompliance.service/internal/core/ruleset"
	"timecompliance.service/internal/observability/metrics"
	"timecompliance.service/internal/ports/messaging"
	"timecompliance.service/internal/ports/repository"
)

// ComputationError wraps an unexpected failure while evaluating one
// employee. In batch mode it is swallowed into a warning; in
// single-employee mode it surfaces to the caller.
type ComputationError struct {
	EmployeeID string
	Cause      any
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("evaluation failed for employee %s: %v", e.EmployeeID, e.Cause)
}

// EvaluationService runs persisted compliance evaluations: it loads events
// and the published template, runs the engine, upserts violations and
// enqueues notifications for newly detected critical ones.
type EvaluationService struct {
	repo     repository.Repository
	producer messaging.AlertProducer
}

// NewEvaluationService wires up the database repository and the message
// queue producer.
func NewEvaluationService(repo repository.Repository, p messaging.AlertProducer) *EvaluationService {
	return &EvaluationService{
		repo:     repo,
		producer: p,
	}
}

// EvaluateCompany evaluates all active employees of a company (or just one,
// when employeeID is set) over the given period. A broken or missing
// template aborts the whole call; anomalies in a single employee's event
// stream only produce warnings.
func (s *EvaluationService) EvaluateCompany(ctx context.Context, companyID string, period model.EvaluationPeriod, employeeID string) (*model.EvaluateResult, error) {
	started := time.Now()

	tpl, err := s.loadPublishedTemplate(ctx, companyID)
	if err != nil {
		metrics.RecordEvaluation("config_error")
		return nil, err
	}

	employees, err := s.repo.ListActiveEmployees(ctx, companyID)
	if err != nil {
		metrics.RecordEvaluation("error")
		return nil, fmt.Errorf("list employees: %w", err)
	}
	if employeeID != "" {
		filtered := employees[:0]
		for _, e := range employees {
			if e.ID == employeeID {
				filtered = append(filtered, e)
			}
		}
		employees = filtered
		if len(employees) == 0 {
			metrics.RecordEvaluation("error")
			return nil, fmt.Errorf("employee %s is not an active employee of company %s", employeeID, companyID)
		}
	}

	result := &model.EvaluateResult{
		CompanyID: companyID,
		Period: model.PeriodSummary{
			Start: period.Start,
			End:   period.End,
			Days:  int(period.End.Sub(period.Start).Hours()/24) + 1,
		},
		EmployeesEvaluated: len(employees),
		Violations:         []model.Violation{},
		Warnings:           []model.DataQualityWarning{},
	}
	if len(employees) == 0 {
		metrics.RecordEvaluation("success")
		return result, nil
	}

	ids := make([]string, len(employees))
	for i, e := range employees {
		ids[i] = e.ID
	}

	// One batched read covers both the evaluation range (plus the one-day
	// lookback the rest calculator needs) and the yearly accumulation.
	loadFrom := loadStart(period)
	eventsByEmployee, err := s.repo.ListTimeEvents(ctx, companyID, ids, loadFrom, period.End)
	if err != nil {
		metrics.RecordEvaluation("error")
		return nil, fmt.Errorf("load time events: %w", err)
	}

	holidays, err := s.repo.ListHolidays(ctx, companyID, period.Start.Format(model.DateLayout), period.End.Format(model.DateLayout))
	if err != nil {
		metrics.RecordEvaluation("error")
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	isHoliday := func(date string) bool { return holidays[date] }

	singleMode := employeeID != ""
	for _, emp := range employees {
		events := eventsByEmployee[emp.ID]
		if len(events) == 0 {
			result.Warnings = append(result.Warnings, model.DataQualityWarning{
				EmployeeID: emp.ID,
				Kind:       model.WarnNoEvents,
				Message:    "no time events in the evaluated range",
			})
			continue
		}

		violations, warnings, evalErr := runEvaluation(emp, events, period, tpl, isHoliday)
		if evalErr != nil {
			if singleMode {
				metrics.RecordEvaluation("error")
				return nil, evalErr
			}
			log.Ctx(ctx).Error().Err(evalErr).Str("employee_id", emp.ID).Msg("Skipping employee after computation failure")
			result.Warnings = append(result.Warnings, model.DataQualityWarning{
				EmployeeID: emp.ID,
				Kind:       model.WarnEmployeeSkipped,
				Message:    evalErr.Error(),
			})
			continue
		}

		result.Warnings = append(result.Warnings, warnings...)
		for _, v := range violations {
			if err := s.persist(ctx, companyID, emp, v); err != nil {
				metrics.RecordEvaluation("error")
				return nil, err
			}
		}
		result.Violations = append(result.Violations, violations...)
	}

	sortViolations(result.Violations)
	result.ViolationsFound = len(result.Violations)

	metrics.RecordEvaluation("success")
	metrics.ObserveEvaluationDuration(time.Since(started))
	return result, nil
}

// loadPublishedTemplate fetches, parses and validates the company's
// published template. Every failure here is fatal for the evaluation call.
func (s *EvaluationService) loadPublishedTemplate(ctx context.Context, companyID string) (*ruleset.Template, error) {
	version, err := s.repo.GetPublishedRuleVersion(ctx, companyID)
	if errors.Is(err, repository.ErrVersionNotFound) {
		return nil, &ruleset.ConfigError{Reason: "no published rule template for company " + companyID}
	}
	if err != nil {
		return nil, fmt.Errorf("load rule template: %w", err)
	}

	tpl, err := ruleset.Parse(version.ID, version.Payload)
	if err != nil {
		return nil, err
	}
	if issues := tpl.Validate(); len(issues) > 0 {
		return nil, &ruleset.ConfigError{Reason: fmt.Sprintf("published template %s violates legal minimums: %s", version.ID, issues[0].Message)}
	}
	return tpl, nil
}

// persist upserts one violation and, when it is a newly detected critical
// one, enqueues the alert and email notifications. Publish failures are
// logged but do not fail the evaluation; the violation row is already
// stored and the notify workers pick up pending rows on the next run.
func (s *EvaluationService) persist(ctx context.Context, companyID string, emp model.Employee, v model.Violation) error {
	id, created, err := s.repo.UpsertViolation(ctx, companyID, v)
	if err != nil {
		return fmt.Errorf("persist violation: %w", err)
	}
	metrics.RecordViolation(string(v.RuleCode), string(v.Severity))

	if !created || v.Severity.Less(model.SeverityCritical) {
		return nil
	}

	now := time.Now().UTC()
	alert := messaging.ViolationAlertEvent{
		ViolationID:   id,
		CompanyID:     companyID,
		EmployeeID:    emp.ID,
		RuleCode:      string(v.RuleCode),
		Severity:      string(v.Severity),
		ViolationDate: v.ViolationDate,
		Details:       v.Details,
		OccurredAt:    now,
	}
	if err := s.producer.PublishAlert(ctx, alert); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("violation_id", id).Msg("Failed to publish alert event")
	}

	email := messaging.ViolationEmailEvent{
		ViolationID:   id,
		CompanyID:     companyID,
		EmployeeID:    emp.ID,
		EmployeeName:  emp.FullName(),
		RuleCode:      string(v.RuleCode),
		Severity:      string(v.Severity),
		ViolationDate: v.ViolationDate,
		Details:       v.Details,
		OccurredAt:    now,
	}
	if err := s.producer.PublishEmail(ctx, email); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("violation_id", id).Msg("Failed to publish email event")
	}
	return nil
}

// loadStart returns the single fetch lower bound: the earlier of the
// year start (for the yearly accumulator) and the one-day lookback (for the
// rest calculator).
func loadStart(period model.EvaluationPeriod) time.Time {
	lookback := period.Start.AddDate(0, 0, -1)
	if period.YearStart.Before(lookback) {
		return period.YearStart
	}
	return lookback
}

// runEvaluation is stubbed out in tests that need a failing employee.
var runEvaluation = safeEvaluate

// safeEvaluate runs the pure pipeline for one employee, converting panics on
// pathological input into a ComputationError so one bad stream cannot take
// down a batch.
func safeEvaluate(emp model.Employee, events []model.TimeEvent, period model.EvaluationPeriod, tpl *ruleset.Template, isHoliday engine.HolidayFunc) (violations []model.Violation, warnings []model.DataQualityWarning, err error) {
	defer func() {
		if r := recover(); r != nil {
			violations, warnings = nil, nil
			err = &ComputationError{EmployeeID: emp.ID, Cause: r}
		}
	}()

	// The fetch starts at min(yearStart, lookback); the reconstructor only
	// sees the evaluation range plus lookback, the accumulator bounds
	// itself to [yearStart, end].
	lookback := period.Start.AddDate(0, 0, -1)
	var rangeEvents []model.TimeEvent
	for _, ev := range events {
		if !ev.Timestamp.Before(lookback) && !ev.Timestamp.After(period.End) {
			rangeEvents = append(rangeEvents, ev)
		}
	}

	intervals, warnings := engine.ReconstructShifts(rangeEvents)
	gaps, restWarnings := engine.RestGaps(intervals)
	warnings = append(warnings, restWarnings...)

	yearly := engine.AccumulateYearly(emp.ID, events, period.YearStart, tpl.Limits.MaxOvertimeYearly)

	violations = engine.Evaluate(engine.Input{
		Employee:  emp,
		Intervals: intervals,
		RestGaps:  gaps,
		Yearly:    yearly,
		Period:    period,
		IsHoliday: isHoliday,
	}, tpl)
	return violations, warnings, nil
}

// sortViolations orders a multi-employee violation list canonically so two
// identical runs serialize byte-for-byte the same.
func sortViolations(violations []model.Violation) {
	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.ViolationDate != b.ViolationDate {
			return a.ViolationDate < b.ViolationDate
		}
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		return a.RuleCode < b.RuleCode
	})
}
