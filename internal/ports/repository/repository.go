package repository

import (
	"context"
	"errors"
	"time"

	"timecompliance.service/internal/core/model"
)

// ErrVersionNotFound is returned when a rule version id, or a company's
// published version, does not exist. The core turns it into a fatal
// configuration error.
var ErrVersionNotFound = errors.New("rule version not found")

// Repository is the engine's single data-access contract. The event loader
// batch-fetches everything it needs up front; the engine itself never
// touches the store.
type Repository interface {
	// ListTimeEvents returns all events of the given employees in
	// [from, to], ascending by timestamp and grouped per employee.
	// Employees without events are simply absent from the map.
	ListTimeEvents(ctx context.Context, companyID string, employeeIDs []string, from, to time.Time) (map[string][]model.TimeEvent, error)
	ListActiveEmployees(ctx context.Context, companyID string) ([]model.Employee, error)

	GetRuleVersion(ctx context.Context, versionID string) (*model.RuleVersion, error)
	GetPublishedRuleVersion(ctx context.Context, companyID string) (*model.RuleVersion, error)

	// ListHolidays returns the non-working holiday dates (YYYY-MM-DD) of a
	// company in [from, to].
	ListHolidays(ctx context.Context, companyID string, from, to string) (map[string]bool, error)

	// UpsertViolation inserts or refreshes a violation keyed by
	// (employee_id, rule_code, violation_date) and returns the row id and
	// whether the row was newly created.
	UpsertViolation(ctx context.Context, companyID string, v model.Violation) (id int64, created bool, err error)
	GetViolation(ctx context.Context, id int64) (*model.StoredViolation, error)
	UpdateAlertStatus(ctx context.Context, id int64, status model.NotifyStatus, retryCount int) error
	UpdateEmailStatus(ctx context.Context, id int64, status model.NotifyStatus, retryCount int) error

	// GetComplianceContact returns the email address violations are
	// escalated to for a company.
	GetComplianceContact(ctx context.Context, companyID string) (string, error)
}
