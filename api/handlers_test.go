/*
handlers_test.go - HTTP tests for the filings API

Tests run against the in-memory store through a real chi router, so
routing, status mapping, and JSON shapes are covered together.
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/insmag/filings-engine/api"
	"github.com/insmag/filings-engine/concepts"
	"github.com/insmag/filings-engine/correction"
	"github.com/insmag/filings-engine/ledger"
	"github.com/insmag/filings-engine/ledger/store"
	"github.com/insmag/filings-engine/pipeline"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	clock := ledger.FixedClock{At: time.Date(2026, time.February, 20, 10, 0, 0, 0, time.UTC)}
	log := zap.NewNop()
	selector := pipeline.NewSelector(mem, clock, 2, log)
	agg := concepts.NewAggregator(mem, log)
	engine := correction.NewEngine(mem, nil, "", log)
	runner := pipeline.NewRunner(mem, selector, agg, engine, clock, log)

	h := api.NewHandler(mem, selector, agg, engine, runner, log)
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, mem
}

func seedFilings(t *testing.T, mem *store.Memory) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, mem.ReplaceCatalog(ctx, []ledger.ConceptDefinition{
		{Concept: "written_premiums", Sign: 1, SubLine: true, Accounts: []ledger.AccountCode{"1.01.01"}},
		{Concept: "technical_result", Sign: 1, SubLine: false, Accounts: []ledger.AccountCode{"1.01.01"}},
	}))
	periods := map[ledger.Period]int64{202501: 4000, 202401: 3600}
	for p, amount := range periods {
		require.NoError(t, mem.LoadPeriod(ctx, p, []ledger.Entry{
			{Company: "0101", Period: p, SubLine: "01", Account: "1.01.01", Amount: amount},
		}))
	}
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// =============================================================================
// HEALTH AND PERIODS
// =============================================================================

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.HealthDTO](t, resp)
	assert.Equal(t, "ok", body.Status)
}

func TestListPeriods(t *testing.T) {
	srv, mem := newTestServer(t)
	seedFilings(t, mem)

	resp, err := http.Get(srv.URL + "/api/periods")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]api.PeriodInfoDTO](t, resp)
	require.Len(t, body, 2)
	assert.Equal(t, "202401", body[0].Period)
	assert.Equal(t, "2024Q1", body[0].Label)
	assert.Equal(t, 1, body[0].Companies)
	assert.Equal(t, 1, body[0].Entries)
	assert.Equal(t, "202501", body[1].Period)
}

// =============================================================================
// COMPANY MASTER DATA
// =============================================================================

func TestCompanyLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	// Create. Short codes are stored zero-padded.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/companies", api.SaveCompanyRequest{
		Code: "829", ShortName: "Austral", Kind: "life",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[api.CompanyDTO](t, resp)
	assert.Equal(t, "0829", created.Code)
	assert.Equal(t, "Austral", created.ShortName)
	assert.Equal(t, "life", created.Kind)
	assert.NotEmpty(t, created.UpdatedAt)

	// Read back.
	resp, err := http.Get(srv.URL + "/api/companies/0829")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[api.CompanyDTO](t, resp)
	assert.Equal(t, "Austral", got.ShortName)

	// Update through PUT.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/companies/0829", api.SaveCompanyRequest{
		ShortName: "Austral Vida", Kind: "life",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[api.CompanyDTO](t, resp)
	assert.Equal(t, "Austral Vida", updated.ShortName)

	// List shows exactly one record.
	resp, err = http.Get(srv.URL + "/api/companies")
	require.NoError(t, err)
	list := decodeBody[[]api.CompanyDTO](t, resp)
	require.Len(t, list, 1)

	// Delete, then the record is gone.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/companies/0829", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/companies/0829")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateCompany_MissingCode(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/companies", api.SaveCompanyRequest{
		ShortName: "No code", Kind: "general",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.NotEmpty(t, body.Error)
}

func TestCreateCompany_UnknownKind(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/companies", api.SaveCompanyRequest{
		Code: "0101", ShortName: "Bad kind", Kind: "cooperative",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.NotEmpty(t, body.Details)
}

func TestGetCompany_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/companies/9999")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, "Company not found", body.Error)
}

// =============================================================================
// PIPELINE TRIGGERS
// =============================================================================

func TestTriggerWindow_DefaultFloor(t *testing.T) {
	// GIVEN a period below the clock-derived floor and two above it
	srv, mem := newTestServer(t)
	seedFilings(t, mem)
	require.NoError(t, mem.LoadPeriod(context.Background(), 202304, []ledger.Entry{
		{Company: "0101", Period: 202304, SubLine: "01", Account: "1.01.01", Amount: 999},
	}))

	// WHEN triggering the window stage with an empty body
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/pipeline/window", nil)

	// THEN only the periods at or above the floor survive
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.StageResultDTO](t, resp)
	assert.Equal(t, "window", body.Stage)
	assert.Equal(t, 2, body.Rows)
}

func TestTriggerWindow_ExplicitFloor(t *testing.T) {
	srv, mem := newTestServer(t)
	seedFilings(t, mem)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/pipeline/window", api.WindowRequest{Floor: "202501"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.StageResultDTO](t, resp)
	assert.Equal(t, 1, body.Rows)
}

func TestTriggerWindow_MalformedFloor(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/pipeline/window", api.WindowRequest{Floor: "20251"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestTriggerConcepts_NoCatalog(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/pipeline/concepts", nil)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.NotEmpty(t, body.Details)
}

func TestTriggerCorrected_WithCompanyRollup(t *testing.T) {
	// GIVEN a populated sub-line base
	srv, mem := newTestServer(t)
	seedFilings(t, mem)
	for _, path := range []string{"/api/pipeline/window", "/api/pipeline/sublines"} {
		resp := doJSON(t, http.MethodPost, srv.URL+path, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// WHEN triggering the correction with the company rollup
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/pipeline/corrected", api.CorrectedRequest{
		Period: "202501", Companies: true,
	})

	// THEN both stages report their row counts
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]api.StageResultDTO](t, resp)
	require.Len(t, body, 2)
	assert.Equal(t, "corrected", body[0].Stage)
	assert.Equal(t, 1, body[0].Rows)
	assert.Equal(t, "companies", body[1].Stage)
	assert.Equal(t, 1, body[1].Rows)

	premiums, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	require.Len(t, premiums, 1)
	assert.Equal(t, int64(4000), premiums[0].Current)
	assert.Equal(t, int64(3600), premiums[0].PriorYear)
}

func TestTriggerCorrected_MalformedPeriod(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/pipeline/corrected", api.CorrectedRequest{Period: "202505"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestTriggerRun_FullPipeline(t *testing.T) {
	srv, mem := newTestServer(t)
	seedFilings(t, mem)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/pipeline/run", api.RunRequest{Period: "202501"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.RunResultDTO](t, resp)
	assert.Equal(t, "202501", body.Target)
	assert.Equal(t, "ok", body.Status)

	premiums, err := mem.CompanyPremiums(context.Background())
	require.NoError(t, err)
	require.Len(t, premiums, 1)
	assert.Equal(t, int64(4000), premiums[0].Current)
}

func TestTriggerRun_NoCatalogConflict(t *testing.T) {
	srv, mem := newTestServer(t)
	require.NoError(t, mem.LoadPeriod(context.Background(), 202501, []ledger.Entry{
		{Company: "0101", Period: 202501, SubLine: "01", Account: "1.01.01", Amount: 4000},
	}))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/pipeline/run", api.RunRequest{Period: "202501"})

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestListRuns_LimitAndOrder(t *testing.T) {
	// GIVEN a completed run, five audit rows
	srv, mem := newTestServer(t)
	seedFilings(t, mem)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/pipeline/run", api.RunRequest{Period: "202501"})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// WHEN listing with a limit
	resp, err := http.Get(srv.URL + "/api/pipeline/runs?limit=2")

	// THEN the newest two stages come back
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]api.RunDTO](t, resp)
	require.Len(t, body, 2)
	assert.Equal(t, "companies", body[0].Stage)
	assert.Equal(t, "corrected", body[1].Stage)
	assert.Equal(t, "ok", string(body[0].Status))
	assert.Equal(t, "202501", body[0].Period)
	assert.NotEmpty(t, body[0].ID)
	assert.NotEmpty(t, body[0].StartedAt)
}

func TestListRuns_MalformedLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/pipeline/runs?limit=ten")

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// REPORT READS
// =============================================================================

func TestReportSubLinePremiums(t *testing.T) {
	srv, mem := newTestServer(t)
	require.NoError(t, mem.ReplaceSubLinePremiums(context.Background(), []ledger.SubLinePremium{
		{Company: "0101", SubLine: "01", Current: 4000, PriorYear: 3600},
	}))

	resp, err := http.Get(srv.URL + "/api/reports/subline-premiums")

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]api.SubLinePremiumDTO](t, resp)
	require.Len(t, body, 1)
	assert.Equal(t, api.SubLinePremiumDTO{
		Company: "0101", SubLine: "01", Current: 4000, PriorYear: 3600,
	}, body[0])
}

func TestReportCompanyPremiums(t *testing.T) {
	srv, mem := newTestServer(t)
	require.NoError(t, mem.ReplaceCompanyPremiums(context.Background(), []ledger.CompanyPremium{
		{Company: "0829", Current: 2250, PriorYear: 750},
	}))

	resp, err := http.Get(srv.URL + "/api/reports/company-premiums")

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]api.CompanyPremiumDTO](t, resp)
	require.Len(t, body, 1)
	assert.Equal(t, int64(2250), body[0].Current)
}

func TestReportCompanyConcepts_PivotKeepsAbsenceNull(t *testing.T) {
	// GIVEN one company with an explicit zero and one that never filed
	// the concept
	srv, mem := newTestServer(t)
	require.NoError(t, mem.ReplaceCompanyConcepts(context.Background(), []ledger.CompanyConcept{
		{Company: "0101", Period: 202501, Concept: "net_worth", Amount: 0},
		{Company: "0101", Period: 202501, Concept: "technical_result", Amount: 900},
		{Company: "0202", Period: 202501, Concept: "technical_result", Amount: -50},
	}))

	// WHEN reading the wide pivot
	resp, err := http.Get(srv.URL + "/api/reports/company-concepts")

	// THEN the zero survives as 0 and the absence stays null
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.ConceptPivotDTO](t, resp)
	assert.Equal(t, "202501", body.Period)
	assert.Equal(t, []string{"net_worth", "technical_result"}, body.Concepts)
	require.Len(t, body.Rows, 2)

	first := body.Rows[0]
	assert.Equal(t, "0101", first.Company)
	require.NotNil(t, first.Values["net_worth"])
	assert.Equal(t, int64(0), *first.Values["net_worth"])

	second := body.Rows[1]
	assert.Equal(t, "0202", second.Company)
	assert.Nil(t, second.Values["net_worth"])
	require.NotNil(t, second.Values["technical_result"])
	assert.Equal(t, int64(-50), *second.Values["technical_result"])
}

func TestReportCompanyConcepts_Empty(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/reports/company-concepts")

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.ConceptPivotDTO](t, resp)
	assert.Empty(t, body.Rows)
	assert.Empty(t, body.Period)
}

// =============================================================================
// VERIFICATION
// =============================================================================

func TestGetVerification(t *testing.T) {
	// GIVEN a December-close company with filings in the consulted periods
	srv, mem := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, mem.ReplaceCatalog(ctx, []ledger.ConceptDefinition{
		{Concept: "written_premiums", Sign: 1, SubLine: true, Accounts: []ledger.AccountCode{"1.01.01"}},
	}))
	for p, amount := range map[ledger.Period]int64{202501: 1000, 202402: 750, 202404: 2000} {
		require.NoError(t, mem.LoadPeriod(ctx, p, []ledger.Entry{
			{Company: "0829", Period: p, SubLine: "01", Account: "1.01.01", Amount: amount},
		}))
	}
	for _, path := range []string{"/api/pipeline/window", "/api/pipeline/sublines"} {
		resp := doJSON(t, http.MethodPost, srv.URL+path, nil)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// WHEN requesting the diagnostics for 202501
	resp, err := http.Get(srv.URL + "/api/verification/202501")

	// THEN the recombination is traced operand by operand
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]api.DiagnosticDTO](t, resp)
	require.Len(t, body, 1)
	d := body[0]
	assert.Equal(t, "0829", d.Company)
	assert.Equal(t, "01", d.SubLine)
	assert.Equal(t, "202501", d.Target)
	assert.Equal(t, 1, d.Quarter)
	assert.Equal(t, int64(2250), d.Current)
	assert.Equal(t, "202501 - 202402 + 202404", d.CurrentFormula)
	require.Len(t, d.CurrentOperands, 3)
	assert.Equal(t, api.OperandDTO{Period: "202402", Coefficient: -1, Amount: 750, Filed: true}, d.CurrentOperands[1])
	require.Len(t, d.PriorOperands, 3)
	assert.False(t, d.PriorOperands[0].Filed)
}

func TestGetVerification_MalformedPeriod(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/verification/2025Q1")

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// TABLE INSPECTION
// =============================================================================

func TestListTables(t *testing.T) {
	srv, mem := newTestServer(t)
	seedFilings(t, mem)

	resp, err := http.Get(srv.URL + "/api/tables")

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]api.TableInfoDTO](t, resp)
	counts := make(map[string]int, len(body))
	for _, tab := range body {
		counts[tab.Name] = tab.Rows
	}
	assert.Equal(t, 2, counts["ledger_entries"])
	assert.Equal(t, 2, counts["concept_rules"])
	assert.Contains(t, counts, "subline_premiums")
	assert.Contains(t, counts, "pipeline_runs")
}

func TestPreviewTable_LimitAndTotal(t *testing.T) {
	srv, mem := newTestServer(t)
	seedFilings(t, mem)

	resp, err := http.Get(srv.URL + "/api/tables/ledger_entries?limit=1")

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.TablePreviewDTO](t, resp)
	assert.Equal(t, "ledger_entries", body.Name)
	assert.Len(t, body.Rows, 1)
	assert.Equal(t, 2, body.Total)
}

func TestPreviewTable_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/tables/secret_table")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Contains(t, body.Details, "secret_table")
}

func TestPreviewTable_MalformedLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/tables/ledger_entries?limit=-3")

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
