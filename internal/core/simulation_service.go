package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"timecompliance.service/internal/core/model"
	"timecompliance.service/internal/core/ruleset"
	"timecompliance.service/internal/observability/metrics"
	"timecompliance.service/internal/ports/repository"
)

// DefaultSimulationWorkers bounds the per-employee fan-out. Each worker does
// one employee read at a time, which caps concurrent load on the store.
const DefaultSimulationWorkers = 8

// SimulationService answers "what would this template flag" without
// persisting anything, so cancelling a run mid-flight is always safe.
type SimulationService struct {
	repo    repository.Repository
	workers int
}

// NewSimulationService creates the orchestrator. workers <= 0 selects the
// default pool size.
func NewSimulationService(repo repository.Repository, workers int) *SimulationService {
	if workers <= 0 {
		workers = DefaultSimulationWorkers
	}
	return &SimulationService{repo: repo, workers: workers}
}

// employeeOutcome is what one pool worker hands to the reducer.
type employeeOutcome struct {
	employeeID string
	violations []model.Violation
	warnings   []model.DataQualityWarning
	err        error
}

// Simulate evaluates every active employee of the company over the trailing
// periodDays window against the given template version (drafts allowed) and
// aggregates the outcome. The caller supplies now; the service itself never
// reads the wall clock, which keeps simulations replayable.
func (s *SimulationService) Simulate(ctx context.Context, ruleVersionID, companyID string, periodDays int, now time.Time) (*model.SimulationResult, error) {
	started := time.Now()
	if periodDays <= 0 {
		periodDays = 30
	}

	version, err := s.repo.GetRuleVersion(ctx, ruleVersionID)
	if errors.Is(err, repository.ErrVersionNotFound) {
		return nil, &ruleset.ConfigError{Reason: "rule version " + ruleVersionID + " not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("load rule version: %w", err)
	}
	if version.CompanyID != companyID {
		return nil, &ruleset.ConfigError{Reason: "rule version " + ruleVersionID + " belongs to another company"}
	}

	tpl, err := ruleset.Parse(version.ID, version.Payload)
	if err != nil {
		return nil, err
	}
	// Draft templates may explore limits below the legal floor; that is the
	// point of simulation, so issues are only logged here.
	for _, issue := range tpl.Validate() {
		log.Ctx(ctx).Warn().Str("field", issue.Field).Str("version_id", version.ID).Msg(issue.Message)
	}

	end := now.UTC()
	period := model.EvaluationPeriod{
		Start:     end.AddDate(0, 0, -periodDays),
		End:       end,
		YearStart: time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
	}

	result := &model.SimulationResult{
		RunID:      uuid.NewString(),
		Violations: []model.Violation{},
		Summary: model.SimulationSummary{
			ByRule:     map[string]int{},
			BySeverity: map[string]int{},
		},
		Period: model.PeriodSummary{
			Start: period.Start,
			End:   period.End,
			Days:  periodDays,
		},
		TemplateLimits: tpl.ModelLimits(),
		Warnings:       []model.DataQualityWarning{},
	}

	employees, err := s.repo.ListActiveEmployees(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	if len(employees) == 0 {
		// An empty company simulates to an empty summary, never an error.
		return result, nil
	}

	holidays, err := s.repo.ListHolidays(ctx, companyID, period.Start.Format(model.DateLayout), period.End.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	isHoliday := func(date string) bool { return holidays[date] }

	jobs := make(chan model.Employee)
	outcomes := make(chan employeeOutcome, s.workers)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for emp := range jobs {
				outcomes <- s.simulateEmployee(ctx, companyID, emp, period, tpl, isHoliday)
			}
		}()
	}

	// Feeder: stops early once the context is gone so workers drain fast.
	go func() {
		defer close(jobs)
		for _, emp := range employees {
			select {
			case jobs <- emp:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Single reducer: the only place the shared aggregates are touched.
	affected := make(map[string]bool)
	for outcome := range outcomes {
		if outcome.err != nil {
			log.Ctx(ctx).Error().Err(outcome.err).Str("employee_id", outcome.employeeID).Msg("Skipping employee in simulation")
			result.Warnings = append(result.Warnings, model.DataQualityWarning{
				EmployeeID: outcome.employeeID,
				Kind:       model.WarnEmployeeSkipped,
				Message:    outcome.err.Error(),
			})
			continue
		}
		result.Violations = append(result.Violations, outcome.violations...)
		result.Warnings = append(result.Warnings, outcome.warnings...)
		for _, v := range outcome.violations {
			result.Summary.ByRule[string(v.RuleCode)]++
			result.Summary.BySeverity[string(v.Severity)]++
			affected[v.EmployeeID] = true
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sortViolations(result.Violations)
	sortWarnings(result.Warnings)
	result.Summary.Total = len(result.Violations)
	result.Summary.EmployeesAffected = len(affected)

	metrics.ObserveSimulationDuration(time.Since(started))
	return result, nil
}

// simulateEmployee loads one employee's events and runs the pure pipeline.
// Anything unexpected is contained in the outcome so the pool keeps going.
func (s *SimulationService) simulateEmployee(ctx context.Context, companyID string, emp model.Employee, period model.EvaluationPeriod, tpl *ruleset.Template, isHoliday func(string) bool) employeeOutcome {
	if err := ctx.Err(); err != nil {
		return employeeOutcome{employeeID: emp.ID, err: err}
	}

	grouped, err := s.repo.ListTimeEvents(ctx, companyID, []string{emp.ID}, loadStart(period), period.End)
	if err != nil {
		return employeeOutcome{employeeID: emp.ID, err: fmt.Errorf("load time events: %w", err)}
	}

	events := grouped[emp.ID]
	if len(events) == 0 {
		return employeeOutcome{
			employeeID: emp.ID,
			warnings: []model.DataQualityWarning{{
				EmployeeID: emp.ID,
				Kind:       model.WarnNoEvents,
				Message:    "no time events in the simulated range",
			}},
		}
	}

	violations, warnings, err := runEvaluation(emp, events, period, tpl, isHoliday)
	return employeeOutcome{employeeID: emp.ID, violations: violations, warnings: warnings, err: err}
}

// sortWarnings keeps the aggregated warning list deterministic regardless of
// which worker finished first.
func sortWarnings(warnings []model.DataQualityWarning) {
	sort.Slice(warnings, func(i, j int) bool {
		a, b := warnings[i], warnings[j]
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Message < b.Message
	})
}
