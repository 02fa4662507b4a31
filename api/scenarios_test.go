/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario creates the expected employees and contracts,
	and that running payroll on them produces the documented pay.

These tests double as end-to-end checks of the payroll flow over SQLite.
*/
package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeoconnect/payroll/payroll"
)

func TestScenarioDocuments_AllListedAndParse(t *testing.T) {
	require.Len(t, scenarioDocuments, len(scenarios))
	for _, s := range scenarios {
		docs, ok := scenarioDocuments[s.ID]
		require.True(t, ok, "scenario %s has no documents", s.ID)
		require.NotEmpty(t, docs)
	}
}

func TestScenario_ExpectedPay(t *testing.T) {
	tests := []struct {
		scenario string
		hours    string
		gross    string
		weighted bool
	}{
		{"london-hourly", "40", "534.00", true},
		{"yeovil-salaried", "37", "2000.00", false},
		{"yeovil-salaried", "0", "2000.00", false},
		{"part-time-overtime", "25", "1350.00", false},
		{"part-time-overtime", "18", "1200.00", false},
	}
	for _, tt := range tests {
		t.Run(tt.scenario+"/"+tt.hours, func(t *testing.T) {
			// GIVEN: A freshly loaded scenario
			// WHEN: Running payroll for the given hours
			// THEN: Gross pay matches the documented figure

			handler := setupTestHandler(t)
			ctx := context.Background()

			ids, err := LoadScenarioInto(ctx, handler.Store, tt.scenario)
			require.NoError(t, err)
			require.Len(t, ids, 1)

			run, err := handler.Service.RunPayrollForEmployee(ctx, payroll.RunRequest{
				EmployeeID:     ids[0],
				HoursWorked:    payroll.MustDecimal(tt.hours),
				PayPeriodStart: payroll.Date(2025, 3, 1),
				PayPeriodEnd:   payroll.Date(2025, 3, 31),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.gross, run.GrossPay.StringFixed(2))
			assert.Equal(t, tt.weighted, run.LocationWeightingApplied)
		})
	}
}

func TestScenario_YeovilSalaried_UsesLatestContract(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()

	ids, err := LoadScenarioInto(ctx, handler.Store, "yeovil-salaried")
	require.NoError(t, err)

	contracts, err := handler.Store.ListContracts(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Nil(t, contracts[0].EffectiveTo)
	require.NotNil(t, contracts[1].EffectiveTo)
}

func TestScenario_Unknown(t *testing.T) {
	handler := setupTestHandler(t)

	_, err := LoadScenarioInto(context.Background(), handler.Store, "does-not-exist")
	assert.Error(t, err)
}

// =============================================================================
// HTTP
// =============================================================================

func TestScenarioEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	listed := decode[[]ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios", ""))
	assert.Len(t, listed, 3)

	rec := ts.do(t, http.MethodGet, "/api/scenarios/current", "")
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "london-hourly"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loaded := decode[LoadScenarioResponse](t, rec)
	assert.Equal(t, "loaded", loaded.Status)
	require.Len(t, loaded.Employees, 1)
	assert.Equal(t, "London", loaded.Employees[0].Branch)

	current := decode[ScenarioDTO](t, ts.do(t, http.MethodGet, "/api/scenarios/current", ""))
	assert.Equal(t, "london-hourly", current.ID)

	// NI numbers are unique, so loading the same scenario again conflicts.
	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "london-hourly"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

