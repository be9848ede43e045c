/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures of the API. These types decouple the
  internal model from the wire contract: periods travel as their
  six-digit code strings, timestamps as RFC3339, amounts as currency
  minor units.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

SEE ALSO:
  - handlers.go: uses these types
  - inspector.go: table preview rows
*/
package api

import (
	"time"

	"github.com/insmag/filings-engine/correction"
	"github.com/insmag/filings-engine/ledger"
)

// =============================================================================
// GENERAL
// =============================================================================

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthDTO answers the liveness probe.
type HealthDTO struct {
	Status string `json:"status"`
}

// =============================================================================
// PERIODS
// =============================================================================

// PeriodInfoDTO summarizes one loaded period.
type PeriodInfoDTO struct {
	Period    string `json:"period"`
	Label     string `json:"label"`
	Companies int    `json:"companies"`
	Entries   int    `json:"entries"`
}

func toPeriodInfoDTO(p ledger.PeriodInfo) PeriodInfoDTO {
	return PeriodInfoDTO{
		Period:    p.Period.String(),
		Label:     p.Period.Label(),
		Companies: p.Companies,
		Entries:   p.Entries,
	}
}

// =============================================================================
// COMPANIES
// =============================================================================

// CompanyDTO represents a company master record.
type CompanyDTO struct {
	Code      string `json:"code"`
	ShortName string `json:"short_name"`
	Kind      string `json:"kind"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toCompanyDTO(c ledger.Company) CompanyDTO {
	dto := CompanyDTO{
		Code:      string(c.Code),
		ShortName: c.ShortName,
		Kind:      string(c.Kind),
	}
	if !c.UpdatedAt.IsZero() {
		dto.UpdatedAt = c.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

// SaveCompanyRequest creates or updates a company. On PUT the code
// comes from the URL.
type SaveCompanyRequest struct {
	Code      string `json:"code"`
	ShortName string `json:"short_name"`
	Kind      string `json:"kind"`
}

// =============================================================================
// PIPELINE
// =============================================================================

// WindowRequest triggers the window stage. An empty floor selects the
// clock-derived default.
type WindowRequest struct {
	Floor string `json:"floor,omitempty"`
}

// CorrectedRequest triggers the correction stage. Companies also
// rebuilds the company rollup.
type CorrectedRequest struct {
	Period    string `json:"period"`
	Companies bool   `json:"companies,omitempty"`
}

// RunRequest triggers the full stage sequence.
type RunRequest struct {
	Period string `json:"period"`
}

// StageResultDTO reports one completed stage trigger.
type StageResultDTO struct {
	Stage string `json:"stage"`
	Rows  int    `json:"rows"`
}

// RunResultDTO reports a completed full run.
type RunResultDTO struct {
	Target string `json:"target"`
	Status string `json:"status"`
}

// RunDTO is one audit row of the run log.
type RunDTO struct {
	ID         string `json:"id"`
	Stage      string `json:"stage"`
	Period     string `json:"period,omitempty"`
	Rows       int    `json:"rows"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

func toRunDTO(r ledger.Run) RunDTO {
	dto := RunDTO{
		ID:         r.ID,
		Stage:      r.Stage,
		Rows:       r.Rows,
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		FinishedAt: r.FinishedAt.Format(time.RFC3339),
		Status:     string(r.Status),
		Error:      r.Error,
	}
	if !r.Period.IsZero() {
		dto.Period = r.Period.String()
	}
	return dto
}

// =============================================================================
// VERIFICATION
// =============================================================================

// OperandDTO is one consulted term of a verified formula.
type OperandDTO struct {
	Period      string `json:"period"`
	Coefficient int    `json:"coefficient"`
	Amount      int64  `json:"amount"`
	Filed       bool   `json:"filed"`
}

// DiagnosticDTO traces one December-close correction.
type DiagnosticDTO struct {
	Company         string       `json:"company"`
	SubLine         string       `json:"sub_line"`
	Target          string       `json:"target"`
	Quarter         int          `json:"quarter"`
	Current         int64        `json:"current"`
	PriorYear       int64        `json:"prior_year"`
	CurrentFormula  string       `json:"current_formula"`
	PriorFormula    string       `json:"prior_formula"`
	CurrentOperands []OperandDTO `json:"current_operands"`
	PriorOperands   []OperandDTO `json:"prior_operands"`
}

func toDiagnosticDTO(d correction.Diagnostic) DiagnosticDTO {
	return DiagnosticDTO{
		Company:         string(d.Company),
		SubLine:         string(d.SubLine),
		Target:          d.Target.String(),
		Quarter:         int(d.Target.Quarter()),
		Current:         d.Current,
		PriorYear:       d.PriorYear,
		CurrentFormula:  d.CurrentFormula,
		PriorFormula:    d.PriorFormula,
		CurrentOperands: toOperandDTOs(d.CurrentOperands),
		PriorOperands:   toOperandDTOs(d.PriorOperands),
	}
}

func toOperandDTOs(operands []correction.Operand) []OperandDTO {
	out := make([]OperandDTO, len(operands))
	for i, op := range operands {
		out[i] = OperandDTO{
			Period:      op.Period.String(),
			Coefficient: op.Coeff,
			Amount:      op.Amount,
			Filed:       op.Found,
		}
	}
	return out
}

// =============================================================================
// TABLE INSPECTION
// =============================================================================

// TableInfoDTO is one entry of the table inventory.
type TableInfoDTO struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// TablePreviewDTO is a bounded preview of one table.
type TablePreviewDTO struct {
	Name  string `json:"name"`
	Rows  []any  `json:"rows"`
	Total int    `json:"total"`
}

// EntryDTO is one raw filing line in table previews.
type EntryDTO struct {
	Company string `json:"company"`
	Period  string `json:"period"`
	SubLine string `json:"sub_line,omitempty"`
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		Company: string(e.Company),
		Period:  e.Period.String(),
		SubLine: string(e.SubLine),
		Account: string(e.Account),
		Amount:  e.Amount,
	}
}

// ConceptRuleDTO is one catalog definition in table previews.
type ConceptRuleDTO struct {
	Concept  string   `json:"concept"`
	Sign     int      `json:"sign"`
	SubLine  bool     `json:"sub_line"`
	Accounts []string `json:"accounts"`
}

// CompanyConceptDTO is one aggregated company concept row.
type CompanyConceptDTO struct {
	Company string `json:"company"`
	Period  string `json:"period"`
	Concept string `json:"concept"`
	Amount  int64  `json:"amount"`
}

// SubLineConceptDTO is one sub-line base row.
type SubLineConceptDTO struct {
	Company string `json:"company"`
	Period  string `json:"period"`
	SubLine string `json:"sub_line"`
	Concept string `json:"concept"`
	Amount  int64  `json:"amount"`
}

// SubLinePremiumDTO is one corrected sub-line output row.
type SubLinePremiumDTO struct {
	Company   string `json:"company"`
	SubLine   string `json:"sub_line"`
	Current   int64  `json:"premiums_current"`
	PriorYear int64  `json:"premiums_prior_year"`
}

func toSubLinePremiumDTO(r ledger.SubLinePremium) SubLinePremiumDTO {
	return SubLinePremiumDTO{
		Company:   string(r.Company),
		SubLine:   string(r.SubLine),
		Current:   r.Current,
		PriorYear: r.PriorYear,
	}
}

// CompanyPremiumDTO is one corrected company output row.
type CompanyPremiumDTO struct {
	Company   string `json:"company"`
	Current   int64  `json:"premiums_current"`
	PriorYear int64  `json:"premiums_prior_year"`
}

func toCompanyPremiumDTO(r ledger.CompanyPremium) CompanyPremiumDTO {
	return CompanyPremiumDTO{
		Company:   string(r.Company),
		Current:   r.Current,
		PriorYear: r.PriorYear,
	}
}

// =============================================================================
// CONCEPT PIVOT - company_concepts in wide form
// =============================================================================

// ConceptPivotDTO is the company concept table pivoted wide: one row
// per company, one entry per concept. A concept the company never
// filed is null, distinct from an explicit zero.
type ConceptPivotDTO struct {
	Period   string            `json:"period"`
	Concepts []string          `json:"concepts"`
	Rows     []ConceptPivotRow `json:"rows"`
}

// ConceptPivotRow is one company's concept figures.
type ConceptPivotRow struct {
	Company string            `json:"company"`
	Values  map[string]*int64 `json:"values"`
}
