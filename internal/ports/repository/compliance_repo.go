package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"timecompliance.service/internal/core/model"
)

// ComplianceRepository is the concrete implementation for a PostgreSQL
// database.
type ComplianceRepository struct {
	DB *sql.DB
}

// NewComplianceRepository create new instance
func NewComplianceRepository(db *sql.DB) Repository {
	return &ComplianceRepository{DB: db}
}

// ListTimeEvents batch-fetches the full requested range in one round trip.
// Callers are expected to include the one-day lookback themselves.
func (r *ComplianceRepository) ListTimeEvents(ctx context.Context, companyID string, employeeIDs []string, from, to time.Time) (map[string][]model.TimeEvent, error) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("app.companyId", companyID),
		attribute.Int("app.employeeCount", len(employeeIDs)),
	)

	query := `SELECT id, employee_id, company_id, event_type, timestamp, local_timestamp, authorized
              FROM time_events
              WHERE company_id = $1 AND employee_id = ANY($2) AND timestamp >= $3 AND timestamp <= $4
              ORDER BY timestamp ASC`

	rows, err := r.DB.QueryContext(ctx, query, companyID, employeeIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("query time events: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]model.TimeEvent)
	for rows.Next() {
		var ev model.TimeEvent
		if err := rows.Scan(&ev.ID, &ev.EmployeeID, &ev.CompanyID, &ev.Type, &ev.Timestamp, &ev.LocalTimestamp, &ev.Authorized); err != nil {
			return nil, fmt.Errorf("scan time event: %w", err)
		}
		grouped[ev.EmployeeID] = append(grouped[ev.EmployeeID], ev)
	}
	return grouped, rows.Err()
}

// ListActiveEmployees returns all active employees of a company.
func (r *ComplianceRepository) ListActiveEmployees(ctx context.Context, companyID string) ([]model.Employee, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.companyId", companyID))

	query := `SELECT id, first_name, last_name, COALESCE(email, '')
              FROM employees
              WHERE company_id = $1 AND status = 'active'
              ORDER BY id`

	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// GetRuleVersion fetches one template version by id, draft or published.
func (r *ComplianceRepository) GetRuleVersion(ctx context.Context, versionID string) (*model.RuleVersion, error) {
	query := `SELECT id, company_id, status, payload_json FROM rule_versions WHERE id = $1`

	v := &model.RuleVersion{}
	err := r.DB.QueryRowContext(ctx, query, versionID).Scan(&v.ID, &v.CompanyID, &v.Status, &v.Payload)
	if err == sql.ErrNoRows {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetPublishedRuleVersion fetches the newest published template of a
// company. Persisted evaluation only ever runs against published versions.
func (r *ComplianceRepository) GetPublishedRuleVersion(ctx context.Context, companyID string) (*model.RuleVersion, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.companyId", companyID))

	query := `SELECT id, company_id, status, payload_json
              FROM rule_versions
              WHERE company_id = $1 AND status = 'published'
              ORDER BY published_at DESC
              LIMIT 1`

	v := &model.RuleVersion{}
	err := r.DB.QueryRowContext(ctx, query, companyID).Scan(&v.ID, &v.CompanyID, &v.Status, &v.Payload)
	if err == sql.ErrNoRows {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListHolidays loads a company's non-working holiday calendar for a date
// range, as a set keyed by YYYY-MM-DD.
func (r *ComplianceRepository) ListHolidays(ctx context.Context, companyID string, from, to string) (map[string]bool, error) {
	query := `SELECT to_char(holiday_date, 'YYYY-MM-DD')
              FROM company_holidays
              WHERE company_id = $1 AND holiday_date >= $2::date AND holiday_date <= $3::date AND working = false`

	rows, err := r.DB.QueryContext(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query holidays: %w", err)
	}
	defer rows.Close()

	holidays := make(map[string]bool)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		holidays[date] = true
	}
	return holidays, rows.Err()
}

// UpsertViolation writes one violation. Re-running an evaluation refreshes
// severity and details in place instead of inserting a second row; the
// notification state of an existing row is left alone so alerts are not
// re-sent.
func (r *ComplianceRepository) UpsertViolation(ctx context.Context, companyID string, v model.Violation) (int64, bool, error) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("app.employeeId", v.EmployeeID),
		attribute.String("app.ruleCode", string(v.RuleCode)),
	)

	query := `INSERT INTO compliance_violations
                (company_id, employee_id, rule_code, violation_date, severity, details,
                 alert_status, alert_retry_count, email_status, email_retry_count)
              VALUES ($1, $2, $3, $4::date, $5, $6, $7, 0, $8, 0)
              ON CONFLICT (employee_id, rule_code, violation_date)
              DO UPDATE SET severity = EXCLUDED.severity, details = EXCLUDED.details
              RETURNING id, (xmax = 0)`

	var (
		id      int64
		created bool
	)
	err := r.DB.QueryRowContext(ctx, query,
		companyID, v.EmployeeID, string(v.RuleCode), v.ViolationDate, string(v.Severity), v.Details,
		model.NotifyPending, model.NotifyPending,
	).Scan(&id, &created)
	if err != nil {
		return 0, false, fmt.Errorf("upsert violation: %w", err)
	}
	return id, created, nil
}

// GetViolation fetches a stored violation with its notification state.
func (r *ComplianceRepository) GetViolation(ctx context.Context, id int64) (*model.StoredViolation, error) {
	query := `SELECT id, company_id, employee_id, rule_code, to_char(violation_date, 'YYYY-MM-DD'), severity, details,
                     alert_status, alert_retry_count, email_status, email_retry_count
              FROM compliance_violations WHERE id = $1`

	sv := &model.StoredViolation{}
	var ruleCode, severity string
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&sv.ID, &sv.CompanyID, &sv.Violation.EmployeeID, &ruleCode, &sv.Violation.ViolationDate,
		&severity, &sv.Violation.Details,
		&sv.AlertStatus, &sv.AlertRetryCount, &sv.EmailStatus, &sv.EmailRetryCount,
	)
	if err != nil {
		return nil, err
	}
	sv.Violation.RuleCode = model.CanonicalRuleCode(ruleCode)
	sv.Violation.Severity = model.Severity(severity)
	return sv, nil
}

// UpdateAlertStatus updates the status and retry count for the dispatcher
// notification job of a violation.
func (r *ComplianceRepository) UpdateAlertStatus(ctx context.Context, id int64, status model.NotifyStatus, retryCount int) error {
	query := `UPDATE compliance_violations SET alert_status = $1, alert_retry_count = $2 WHERE id = $3`
	_, err := r.DB.ExecContext(ctx, query, status, retryCount, id)
	return err
}

// UpdateEmailStatus updates the status and retry count for the email job of
// a violation.
func (r *ComplianceRepository) UpdateEmailStatus(ctx context.Context, id int64, status model.NotifyStatus, retryCount int) error {
	query := `UPDATE compliance_violations SET email_status = $1, email_retry_count = $2 WHERE id = $3`
	_, err := r.DB.ExecContext(ctx, query, status, retryCount, id)
	return err
}

// GetComplianceContact returns the escalation address configured on the
// company record.
func (r *ComplianceRepository) GetComplianceContact(ctx context.Context, companyID string) (string, error) {
	query := `SELECT COALESCE(compliance_email, '') FROM companies WHERE id = $1`
	var email string
	if err := r.DB.QueryRowContext(ctx, query, companyID).Scan(&email); err != nil {
		return "", err
	}
	return email, nil
}
