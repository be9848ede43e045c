/*
handlers.go - HTTP handlers for the filings pipeline

PURPOSE:
  Exposes the pipeline over REST for downstream collaborators and
  operators. Handlers parse and validate input, delegate to the stage
  components, and serialize DTOs. No computation happens here.

ENDPOINTS:
  Health:
    GET    /api/health                   Liveness

  Periods:
    GET    /api/periods                  Loaded period inventory

  Companies:
    GET    /api/companies                List master records
    POST   /api/companies                Create company
    GET    /api/companies/{code}         Get one company
    PUT    /api/companies/{code}         Update company
    DELETE /api/companies/{code}         Delete company

  Pipeline:
    POST   /api/pipeline/window          Rebuild the trailing window
    POST   /api/pipeline/concepts        Rebuild company concepts
    POST   /api/pipeline/sublines        Rebuild the sub-line base
    POST   /api/pipeline/corrected       Rebuild corrected premiums
    POST   /api/pipeline/run             Full stage sequence
    GET    /api/pipeline/runs            Audit log, newest first

  Reports:
    GET    /api/reports/subline-premiums Corrected sub-line output
    GET    /api/reports/company-premiums Corrected company output
    GET    /api/reports/company-concepts Concept figures, wide pivot

  Verification:
    GET    /api/verification/{period}    December-close diagnostics

  Inspection:
    GET    /api/tables                   Table inventory
    GET    /api/tables/{name}            Bounded table preview

ERROR HANDLING:
  Errors are returned as JSON with the taxonomy's status:
  - 400: validation (malformed period, bad company kind)
  - 404: unknown company or table
  - 409: state preconditions (period already loaded, empty catalog)
  - 500: everything else

  The pipeline triggers execute inline on the request goroutine; runs
  must not be fired concurrently.

SEE ALSO:
  - dto.go: request/response shapes
  - inspector.go: the table inventory and preview
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/insmag/filings-engine/concepts"
	"github.com/insmag/filings-engine/correction"
	"github.com/insmag/filings-engine/ledger"
	"github.com/insmag/filings-engine/pipeline"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the components the endpoints delegate to.
type Handler struct {
	Store      ledger.Store
	Selector   *pipeline.Selector
	Aggregator *concepts.Aggregator
	Engine     *correction.Engine
	Runner     *pipeline.Runner
	Inspector  *Inspector
	Log        *zap.Logger
}

// NewHandler wires a handler around the stage components.
func NewHandler(store ledger.Store, selector *pipeline.Selector, agg *concepts.Aggregator, engine *correction.Engine, runner *pipeline.Runner, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:      store,
		Selector:   selector,
		Aggregator: agg,
		Engine:     engine,
		Runner:     runner,
		Inspector:  NewInspector(store),
		Log:        log,
	}
}

// =============================================================================
// HEALTH AND PERIODS
// =============================================================================

// Health answers the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok"})
}

// ListPeriods returns one summary per loaded period, ascending.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Store.ListPeriods(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list periods", err)
		return
	}
	dtos := make([]PeriodInfoDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodInfoDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// COMPANY MASTER DATA
// =============================================================================

// ListCompanies returns every company record.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list companies", err)
		return
	}
	dtos := make([]CompanyDTO, len(companies))
	for i, c := range companies {
		dtos[i] = toCompanyDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCompany returns one company record.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	code := ledger.NormalizeCompanyCode(chi.URLParam(r, "code"))

	company, err := h.Store.GetCompany(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get company", err)
		return
	}
	if company == nil {
		writeError(w, http.StatusNotFound, "Company not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyDTO(*company))
}

// CreateCompany creates or replaces a company record.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req SaveCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "Company code is required", nil)
		return
	}
	h.saveCompany(w, r, ledger.NormalizeCompanyCode(req.Code), req)
}

// UpdateCompany updates the company named in the URL.
func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var req SaveCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.saveCompany(w, r, ledger.NormalizeCompanyCode(chi.URLParam(r, "code")), req)
}

func (h *Handler) saveCompany(w http.ResponseWriter, r *http.Request, code ledger.CompanyCode, req SaveCompanyRequest) {
	company := ledger.Company{
		Code:      code,
		ShortName: req.ShortName,
		Kind:      ledger.CompanyKind(req.Kind),
	}
	if err := h.Store.SaveCompany(r.Context(), company); err != nil {
		writeError(w, statusFor(err), "Failed to save company", err)
		return
	}
	saved, err := h.Store.GetCompany(r.Context(), code)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "Failed to read back company", err)
		return
	}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSON(w, status, toCompanyDTO(*saved))
}

// DeleteCompany removes a company record.
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	code := ledger.NormalizeCompanyCode(chi.URLParam(r, "code"))
	if err := h.Store.DeleteCompany(r.Context(), code); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PIPELINE TRIGGERS
// =============================================================================

// TriggerWindow rebuilds the trailing window. The body may carry an
// explicit floor; without one the clock-derived default applies.
func (h *Handler) TriggerWindow(w http.ResponseWriter, r *http.Request) {
	var req WindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	var floor ledger.Period
	if req.Floor != "" {
		p, err := ledger.ParsePeriod(req.Floor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid floor period", err)
			return
		}
		floor = p
	}
	rows, err := h.Selector.Build(r.Context(), floor)
	if err != nil {
		writeError(w, statusFor(err), "Window stage failed", err)
		return
	}
	writeJSON(w, http.StatusOK, StageResultDTO{Stage: pipeline.StageWindow, Rows: rows})
}

// TriggerConcepts rebuilds the company concept aggregation.
func (h *Handler) TriggerConcepts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Aggregator.BuildCompanyConcepts(r.Context())
	if err != nil {
		writeError(w, statusFor(err), "Concepts stage failed", err)
		return
	}
	writeJSON(w, http.StatusOK, StageResultDTO{Stage: pipeline.StageConcepts, Rows: rows})
}

// TriggerSubLines rebuilds the sub-line base.
func (h *Handler) TriggerSubLines(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Aggregator.BuildSubLineBase(r.Context())
	if err != nil {
		writeError(w, statusFor(err), "Sub-line stage failed", err)
		return
	}
	writeJSON(w, http.StatusOK, StageResultDTO{Stage: pipeline.StageSubLines, Rows: rows})
}

// TriggerCorrected rebuilds the corrected sub-line premiums for a
// target period, plus the company rollup when requested.
func (h *Handler) TriggerCorrected(w http.ResponseWriter, r *http.Request) {
	var req CorrectedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	target, err := ledger.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid target period", err)
		return
	}

	results := []StageResultDTO{}
	rows, err := h.Engine.Run(r.Context(), target)
	if err != nil {
		writeError(w, statusFor(err), "Correction stage failed", err)
		return
	}
	results = append(results, StageResultDTO{Stage: pipeline.StageCorrected, Rows: rows})

	if req.Companies {
		rows, err := h.Engine.RunCompanies(r.Context(), target)
		if err != nil {
			writeError(w, statusFor(err), "Company rollup failed", err)
			return
		}
		results = append(results, StageResultDTO{Stage: pipeline.StageCompanies, Rows: rows})
	}
	writeJSON(w, http.StatusOK, results)
}

// TriggerRun executes the full stage sequence for a target period.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	target, err := ledger.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid target period", err)
		return
	}
	if err := h.Runner.Run(r.Context(), target); err != nil {
		writeError(w, statusFor(err), "Pipeline run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RunResultDTO{Target: target.String(), Status: "ok"})
}

// ListRuns returns the audit log, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT READS
// =============================================================================

// ReportSubLinePremiums returns the corrected sub-line output table.
func (h *Handler) ReportSubLinePremiums(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.SubLinePremiums(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read sub-line premiums", err)
		return
	}
	dtos := make([]SubLinePremiumDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toSubLinePremiumDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReportCompanyPremiums returns the corrected company output table.
func (h *Handler) ReportCompanyPremiums(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.CompanyPremiums(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read company premiums", err)
		return
	}
	dtos := make([]CompanyPremiumDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toCompanyPremiumDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReportCompanyConcepts returns the company concept table pivoted
// wide. A concept a company never filed stays null, so the reader can
// tell absence from an explicit zero.
func (h *Handler) ReportCompanyConcepts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.CompanyConcepts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read company concepts", err)
		return
	}
	writeJSON(w, http.StatusOK, pivotConcepts(rows))
}

// pivotConcepts turns the long company_concepts rows into the wide
// report form: sorted concept columns, one row per company.
func pivotConcepts(rows []ledger.CompanyConcept) ConceptPivotDTO {
	conceptSet := make(map[string]bool)
	byCompany := make(map[ledger.CompanyCode]map[string]*int64)
	var period ledger.Period
	var companies []ledger.CompanyCode

	for _, row := range rows {
		conceptSet[row.Concept] = true
		if row.Period > period {
			period = row.Period
		}
		values, ok := byCompany[row.Company]
		if !ok {
			values = make(map[string]*int64)
			byCompany[row.Company] = values
			companies = append(companies, row.Company)
		}
		amount := row.Amount
		values[row.Concept] = &amount
	}

	names := make([]string, 0, len(conceptSet))
	for name := range conceptSet {
		names = append(names, name)
	}
	sort.Strings(names)
	sort.Slice(companies, func(i, j int) bool { return companies[i] < companies[j] })

	pivot := ConceptPivotDTO{Concepts: names, Rows: make([]ConceptPivotRow, 0, len(companies))}
	if !period.IsZero() {
		pivot.Period = period.String()
	}
	for _, company := range companies {
		values := make(map[string]*int64, len(names))
		for _, name := range names {
			values[name] = byCompany[company][name]
		}
		pivot.Rows = append(pivot.Rows, ConceptPivotRow{Company: string(company), Values: values})
	}
	return pivot
}

// =============================================================================
// VERIFICATION
// =============================================================================

// GetVerification returns the December-close diagnostics for a target
// period without touching the output tables.
func (h *Handler) GetVerification(w http.ResponseWriter, r *http.Request) {
	target, err := ledger.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid target period", err)
		return
	}
	diags, err := h.Engine.Verify(r.Context(), target)
	if err != nil {
		writeError(w, statusFor(err), "Verification failed", err)
		return
	}
	dtos := make([]DiagnosticDTO, len(diags))
	for i, d := range diags {
		dtos[i] = toDiagnosticDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TABLE INSPECTION
// =============================================================================

// ListTables returns the table inventory with row counts.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.Inspector.Tables(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to inspect tables", err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// PreviewTable returns the first rows of one table.
func (h *Handler) PreviewTable(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	preview, err := h.Inspector.Preview(r.Context(), chi.URLParam(r, "name"), limit)
	if err != nil {
		writeError(w, statusFor(err), "Failed to preview table", err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps the error taxonomy to HTTP statuses.
func statusFor(err error) int {
	switch {
	case ledger.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrPeriodLoaded):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNoCatalog):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrUnknownTable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
