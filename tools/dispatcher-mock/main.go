package main

import (
	"encoding/json"
	"log"
	"net/http"
)

// A simple struct to capture the incoming event data
type ViolationAlertEvent struct {
	ViolationID   int64  `json:"violationId"`
	EmployeeID    string `json:"employeeId"`
	CompanyID     string `json:"companyId"`
	RuleCode      string `json:"ruleCode"`
	Severity      string `json:"severity"`
	ViolationDate string `json:"violationDate"`
}

func alertHandler(w http.ResponseWriter, r *http.Request) {
	var event ViolationAlertEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	log.Printf("Received alert for EmployeeID: %s, Rule: %s, Severity: %s", event.EmployeeID, event.RuleCode, event.Severity)
	w.WriteHeader(http.StatusOK)
}

func main() {
	http.HandleFunc("/", alertHandler)
	log.Println("Dispatcher mock server starting on port 8081...")
	log.Fatal(http.ListenAndServe(":8081", nil))
}
