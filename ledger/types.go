/*
Package ledger holds the core data model of the filings pipeline.

PURPOSE:
  This package contains the types and storage contracts shared by every
  pipeline stage: the raw filing fact table, the trailing window, the
  concept catalog, and the derived output tables. Stages depend on this
  package and on nothing in each other.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: one raw balance line from a quarterly filing
  - CompanyCode / SubLineCode / AccountCode: type-safe identifiers
  - CompanyConcept / SubLineConcept: aggregated signed sums
  - SubLinePremium / CompanyPremium: corrected rolling-twelve-month output
  - Company: master data maintained outside the computation
  - Run: one audited stage execution

DESIGN PRINCIPLES:
  1. Immutability: fact rows are loaded once per period, never patched
  2. Replace, not merge: derived tables are rebuilt wholesale each run
  3. Absence over zero: a missing aggregate row means "no data", which
     consumers must keep distinct from an explicit zero balance
  4. Type safety: strong typing for codes prevents mixing identifiers

SEE ALSO:
  - period.go: the YYYYQQ period code
  - store.go: persistence contract
  - catalog.go: account-to-concept mapping
*/
package ledger

import (
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CompanyCode string
type SubLineCode string
type AccountCode string

// companyCodeWidth is the fixed width filings use for company codes.
const companyCodeWidth = 4

// NormalizeCompanyCode left-pads a company code with zeros to the fixed
// filing width. Codes already at or beyond the width pass through.
func NormalizeCompanyCode(raw string) CompanyCode {
	code := strings.TrimSpace(raw)
	for len(code) < companyCodeWidth {
		code = "0" + code
	}
	return CompanyCode(code)
}

// =============================================================================
// ENTRY - One raw filing line (the fact table)
// =============================================================================

// Entry is a single balance line from a quarterly filing: a signed
// amount for one account of one company in one period. SubLine is empty
// for accounts reported without sub-line granularity. Amount is in
// currency minor units and never zero; zero rows are dropped at load.
type Entry struct {
	Company CompanyCode
	Period  Period
	SubLine SubLineCode
	Account AccountCode
	Amount  int64
}

// PeriodInfo summarizes one loaded period of the fact table.
type PeriodInfo struct {
	Period    Period
	Companies int
	Entries   int
}

// =============================================================================
// AGGREGATES - Derived signed sums
// =============================================================================

// CompanyConcept is one whole-company concept figure at the latest
// window period. Rows exist only where at least one filing line matched
// the concept's accounts.
type CompanyConcept struct {
	Company CompanyCode
	Period  Period
	Concept string
	Amount  int64
}

// SubLineConcept is one per-sub-line concept figure. This is the base
// table the correction engine reads its premium operands from; it spans
// all loaded periods, not just the window.
type SubLineConcept struct {
	Company CompanyCode
	Period  Period
	SubLine SubLineCode
	Concept string
	Amount  int64
}

// CompanyAmount is a company-level sum of a sub-line concept for one
// period, used by the company rollup of the correction engine.
type CompanyAmount struct {
	Company CompanyCode
	Period  Period
	Amount  int64
}

// =============================================================================
// CORRECTED PREMIUMS - Engine output
// =============================================================================

// SubLinePremium is the corrected rolling-twelve-month premium pair for
// one (company, sub-line). Current and PriorYear are each a ±1 linear
// combination of raw quarter amounts from at most three source periods.
type SubLinePremium struct {
	Company   CompanyCode
	SubLine   SubLineCode
	Current   int64
	PriorYear int64
}

// CompanyPremium is the company-level rollup of the same correction.
type CompanyPremium struct {
	Company   CompanyCode
	Current   int64
	PriorYear int64
}

// =============================================================================
// COMPANY MASTER DATA
// =============================================================================

type CompanyKind string

const (
	KindGeneral     CompanyKind = "general"
	KindLife        CompanyKind = "life"
	KindRetirement  CompanyKind = "retirement"
	KindWorkersComp CompanyKind = "workers_comp"
	KindTransport   CompanyKind = "transport"
)

// CompanyKinds lists the closed enum in display order.
func CompanyKinds() []CompanyKind {
	return []CompanyKind{KindGeneral, KindLife, KindRetirement, KindWorkersComp, KindTransport}
}

func (k CompanyKind) Valid() bool {
	switch k {
	case KindGeneral, KindLife, KindRetirement, KindWorkersComp, KindTransport:
		return true
	}
	return false
}

// Company is master data edited by operators; the pipeline computation
// never reads it, only the API and reports do.
type Company struct {
	Code      CompanyCode
	ShortName string
	Kind      CompanyKind
	UpdatedAt time.Time
}

// =============================================================================
// RUN LOG - One audited stage execution
// =============================================================================

type RunStatus string

const (
	RunOK     RunStatus = "ok"
	RunFailed RunStatus = "failed"
)

// Run records one stage execution for the audit log. Period is zero for
// stages that take no target period.
type Run struct {
	ID         string
	Stage      string
	Period     Period
	Rows       int
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus
	Error      string
}
