/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built employees with contracts so the payroll endpoints can
	be tried without hand-writing records. Each scenario is a list of JSON
	employee documents in the factory schema.

AVAILABLE SCENARIOS:

	london-hourly:       Hourly worker at the London branch (weighted)
	yeovil-salaried:     Salaried employee outside London
	part-time-overtime:  Part-time contract with overtime above contract hours

EXPECTED PAY:

	london-hourly,      40h:  (37 x 10 + 3 x 10 x 2.5) x 1.2 = 534.00
	yeovil-salaried,    any:  2000.00
	part-time-overtime, 25h:  1200 + 5 x 12 x 2.5           = 1350.00

HOW SCENARIOS WORK:
 1. Parse the scenario's employee documents via factory
 2. Create each employee
 3. Store each employee's contracts

	The server's -scenario flag uses LoadScenarioInto to seed at startup.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "london-hourly"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add its documents to 'scenarioDocuments'

NOTE:

	Scenarios do not reset the database. Loading one twice fails with 409
	because NI numbers are unique.

SEE ALSO:
  - handlers.go: Employee creation
  - factory/records.go: Employee document schema
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yeoconnect/payroll/factory"
	"github.com/yeoconnect/payroll/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "london-hourly",
		Name:        "London Hourly",
		Description: "Hourly sales assistant in London at £10/h. 40 hours pays £534.00 with location weighting.",
		Category:    "hourly",
	},
	{
		ID:          "yeovil-salaried",
		Name:        "Yeovil Salaried",
		Description: "Store manager in Yeovil on £2000 per period. Hours do not change pay.",
		Category:    "salaried",
	},
	{
		ID:          "part-time-overtime",
		Name:        "Part-Time Overtime",
		Description: "Part-time assistant in Bristol on £1200 for 20 contract hours, overtime at £12/h x 2.5.",
		Category:    "part-time",
	},
}

var scenarioDocuments = map[string][]string{
	"london-hourly": {`{
		"employee": {
			"first_name": "Priya",
			"last_name": "Shah",
			"address": "12 Oxford Street, London",
			"start_date": "2023-03-01",
			"ni_number": "QQ123456A",
			"department": "Sales",
			"branch": "London",
			"contract_type": "HOURLY"
		},
		"contracts": [
			{"hourly_rate": "10.00", "effective_from": "2023-03-01"}
		]
	}`},
	"yeovil-salaried": {`{
		"employee": {
			"first_name": "Tom",
			"last_name": "Hughes",
			"address": "4 Middle Street, Yeovil",
			"start_date": "2021-06-14",
			"ni_number": "QQ123456B",
			"department": "Management",
			"branch": "Yeovil",
			"contract_type": "SALARIED"
		},
		"contracts": [
			{"base_salary": "1800.00", "effective_from": "2021-06-14", "effective_to": "2023-12-31"},
			{"base_salary": "2000.00", "effective_from": "2024-01-01"}
		]
	}`},
	"part-time-overtime": {`{
		"employee": {
			"first_name": "Megan",
			"last_name": "Price",
			"address": "9 Broadmead, Bristol",
			"start_date": "2024-09-02",
			"ni_number": "QQ123456C",
			"department": "Sales",
			"branch": "Bristol",
			"contract_type": "PART_TIME"
		},
		"contracts": [
			{"base_salary": "1200.00", "hourly_rate": "12.00", "contract_hours": "20", "effective_from": "2024-09-02"}
		]
	}`},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns all available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, ok := scenarioDocuments[req.ScenarioID]; !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ids, err := LoadScenarioInto(r.Context(), h.Store, req.ScenarioID)
	if err != nil {
		h.fail(w, r, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}

	employees := make([]EmployeeDTO, 0, len(ids))
	for _, id := range ids {
		emp, err := h.Store.GetEmployee(r.Context(), id)
		if err != nil {
			h.fail(w, r, "Failed to get employee", err)
			return
		}
		if emp != nil {
			employees = append(employees, toEmployeeDTO(*emp))
		}
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Status:     "loaded",
		ScenarioID: req.ScenarioID,
		Employees:  employees,
	})
}

// LoadScenarioInto seeds store with a scenario outside of HTTP, for the
// server's -scenario flag.
func LoadScenarioInto(ctx context.Context, store payroll.Registry, scenarioID string) ([]int64, error) {
	docs, ok := scenarioDocuments[scenarioID]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", scenarioID)
	}

	var ids []int64
	for _, doc := range docs {
		emp, contracts, err := factory.ParseEmployeeDocument(doc)
		if err != nil {
			return nil, err
		}
		id, _, err := addEmployeeWithContracts(ctx, store, emp, contracts)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
