package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"timecompliance.service/internal/core"
	"timecompliance.service/internal/core/model"
	"timecompliance.service/internal/core/ruleset"
)

type ComplianceHandler struct {
	Evaluations *core.EvaluationService
	Simulations *core.SimulationService
}

type EvaluateRequest struct {
	CompanyID  string `json:"companyId"`
	Date       string `json:"date,omitempty"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`
}

type SimulateRequest struct {
	RuleVersionID string `json:"ruleVersionId"`
	CompanyID     string `json:"companyId"`
	PeriodDays    int    `json:"periodDays,omitempty"`
}

// Evaluate runs a persisted compliance evaluation for one company.
func (h *ComplianceHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CompanyID == "" {
		http.Error(w, "companyId is required", http.StatusBadRequest)
		return
	}

	period, err := buildPeriod(req, time.Now().UTC())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.Evaluations.EvaluateCompany(r.Context(), req.CompanyID, period, req.EmployeeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Simulate runs a non-persisting what-if evaluation of a template version.
func (h *ComplianceHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RuleVersionID == "" || req.CompanyID == "" {
		http.Error(w, "ruleVersionId and companyId are required", http.StatusBadRequest)
		return
	}

	// The wall clock is read once here at the boundary; the service itself
	// only sees the explicit instant.
	result, err := h.Simulations.Simulate(r.Context(), req.RuleVersionID, req.CompanyID, req.PeriodDays, time.Now().UTC())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// buildPeriod resolves the requested date or range into an evaluation
// period. With no date at all, the evaluation covers today.
func buildPeriod(req EvaluateRequest, now time.Time) (model.EvaluationPeriod, error) {
	startStr, endStr := req.StartDate, req.EndDate
	if req.Date != "" {
		startStr, endStr = req.Date, req.Date
	}
	if startStr == "" {
		today := now.Format(model.DateLayout)
		startStr, endStr = today, today
	}
	if endStr == "" {
		endStr = startStr
	}

	start, err := time.ParseInLocation(model.DateLayout, startStr, time.UTC)
	if err != nil {
		return model.EvaluationPeriod{}, errors.New("invalid start date, expected YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(model.DateLayout, endStr, time.UTC)
	if err != nil {
		return model.EvaluationPeriod{}, errors.New("invalid end date, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return model.EvaluationPeriod{}, errors.New("end date precedes start date")
	}

	return model.EvaluationPeriod{
		Start:     start,
		End:       end.Add(24*time.Hour - time.Second),
		YearStart: time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

// writeServiceError maps core errors onto HTTP statuses: configuration
// problems are the caller's to fix, everything else is a server error.
func writeServiceError(w http.ResponseWriter, err error) {
	var cfgErr *ruleset.ConfigError
	if errors.As(err, &cfgErr) {
		http.Error(w, cfgErr.Error(), http.StatusUnprocessableEntity)
		return
	}
	http.Error(w, "Service error processing evaluation", http.StatusInternalServerError)
}
