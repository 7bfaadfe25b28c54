/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built datasets that each demonstrate one engine behaviour.
	Scenarios are YAML documents run through the same factory as
	POST /api/dataset, so they double as dataset examples.

AVAILABLE SCENARIOS:

	christmas-week:  Trip over a weekday holiday, holiday not charged
	weekday-holiday: Monday rule leaves a weekday holiday alone
	observed-spill:  Sunday holiday observed on Monday of the next year
	carry-over:      Unused days carried into the next year, capped
	unlimited:       Unlimited entitlement, remaining is null

HOW SCENARIOS WORK:
 1. Parse the scenario document
 2. Replace all stored data with it (ImportDataset)
 3. Remember it as the current scenario

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "carry-over"}

NOTE:

	Scenarios replace the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ImportDataset shares the loading path
  - factory/dataset.go: Document schema
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/leave-engine/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "christmas-week",
		Name:        "Christmas Week",
		Description: "Five-day trip over Christmas Day uses four days",
		UserID:      "alice",
		Year:        2024,
	},
	{
		ID:          "weekday-holiday",
		Name:        "Weekday Holiday",
		Description: "Monday rule does not shift a holiday that falls on a Wednesday",
		UserID:      "alice",
		Year:        2024,
	},
	{
		ID:          "observed-spill",
		Name:        "Observed Spill",
		Description: "Sunday 31 December is observed on Monday 1 January of the next year",
		UserID:      "alice",
		Year:        2024,
	},
	{
		ID:          "carry-over",
		Name:        "Carry-Over",
		Description: "20 days in 2024, 17 used, 3 carried into 2025 (cap 5)",
		UserID:      "bob",
		Year:        2025,
	},
	{
		ID:          "unlimited",
		Name:        "Unlimited Sick Leave",
		Description: "Unlimited entitlement reports usage with no remaining figure",
		UserID:      "carol",
		Year:        2025,
	},
}

var scenarioDocuments = map[string]string{
	"christmas-week": `
entitlements:
  - id: vacation
    name: Vacation
    color: blue
    accrual: {period: yearly, amount: 25}
users:
  - id: alice
    name: Alice
    holiday_config_ids: [uk]
    holiday_weekend_rule: none
holiday_configs:
  - id: uk
    name: United Kingdom
    jurisdiction: GB
    holidays:
      - {id: uk-xmas-2024, name: Christmas Day, date: "2024-12-25"}
trips:
  - id: christmas
    user_id: alice
    name: Christmas week
    start_date: "2024-12-23"
    end_date: "2024-12-27"
    entitlement_id: vacation
`,
	"weekday-holiday": `
entitlements:
  - id: vacation
    name: Vacation
    accrual: {period: yearly, amount: 25}
users:
  - id: alice
    name: Alice
    holiday_config_ids: [uk]
    holiday_weekend_rule: monday
holiday_configs:
  - id: uk
    name: United Kingdom
    jurisdiction: GB
    holidays:
      - {id: uk-xmas-2024, name: Christmas Day, date: "2024-12-25"}
`,
	"observed-spill": `
entitlements:
  - id: vacation
    name: Vacation
    accrual: {period: yearly, amount: 25}
users:
  - id: alice
    name: Alice
    holiday_config_ids: [uk]
    holiday_weekend_rule: monday
holiday_configs:
  - id: uk
    name: United Kingdom
    jurisdiction: GB
    holidays:
      - {id: uk-nye-2023, name: New Year's Eve, date: "2023-12-31"}
trips:
  - id: new-year
    user_id: alice
    start_date: "2024-01-01"
    end_date: "2024-01-05"
    entitlement_id: vacation
`,
	"carry-over": `
entitlements:
  - id: vacation
    name: Vacation
    color: green
    accrual: {period: yearly, amount: 20}
users:
  - id: bob
    name: Bob
policies:
  - user_id: bob
    entitlement_id: vacation
    year: 2024
    accrual: {period: yearly, amount: 20}
    carry_over: {enabled: true, max_days: 5}
  - user_id: bob
    entitlement_id: vacation
    year: 2025
    accrual: {period: yearly, amount: 20}
    carry_over: {enabled: true, max_days: 5}
trips:
  - {id: spring-2024, user_id: bob, start_date: "2024-03-04", end_date: "2024-03-08", entitlement_id: vacation}
  - {id: summer-2024, user_id: bob, start_date: "2024-06-03", end_date: "2024-06-07", entitlement_id: vacation}
  - {id: autumn-2024, user_id: bob, start_date: "2024-09-02", end_date: "2024-09-06", entitlement_id: vacation}
  - {id: winter-2024, user_id: bob, start_date: "2024-11-04", end_date: "2024-11-05", entitlement_id: vacation}
  - {id: ski-2025, user_id: bob, start_date: "2025-02-10", end_date: "2025-02-14", entitlement_id: vacation}
`,
	"unlimited": `
entitlements:
  - id: sick
    name: Sick Leave
    color: red
    is_unlimited: true
users:
  - id: carol
    name: Carol
trips:
  - {id: flu, user_id: carol, start_date: "2025-04-14", end_date: "2025-04-16", entitlement_id: sick}
`,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces all data with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	doc, ok := scenarioDocuments[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ds, err := h.Factory.Parse([]byte(doc), factory.FormatYAML)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	if err := h.Repo.ImportDataset(r.Context(), ds); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.setCurrentScenario(req.ScenarioID)
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}
