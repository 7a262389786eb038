package messaging

import "time"

// ViolationAlertEvent is the JSON payload sent via SQS for the alert queue.
// The alert worker forwards it to the notification dispatcher.
type ViolationAlertEvent struct {
	ViolationID   int64     `json:"violationId"`
	CompanyID     string    `json:"companyId"`
	EmployeeID    string    `json:"employeeId"`
	RuleCode      string    `json:"ruleCode"`
	Severity      string    `json:"severity"`
	ViolationDate string    `json:"violationDate"`
	Details       string    `json:"details"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// ViolationEmailEvent is the JSON payload sent via SQS for the email queue.
// The email worker mails a summary to the company's compliance contact.
type ViolationEmailEvent struct {
	ViolationID   int64     `json:"violationId"`
	CompanyID     string    `json:"companyId"`
	EmployeeID    string    `json:"employeeId"`
	EmployeeName  string    `json:"employeeName"`
	RuleCode      string    `json:"ruleCode"`
	Severity      string    `json:"severity"`
	ViolationDate string    `json:"violationDate"`
	Details       string    `json:"details"`
	OccurredAt    time.Time `json:"occurredAt"`
}
