/*
store.go - Persistence contract for the fact table and derived tables

PURPOSE:
  Defines the interface between the pipeline stages and the database.
  One store holds everything: the raw fact table, the trailing window,
  the concept catalog, the derived output tables, company master data,
  and the run log.

FACT TABLE CONTRACT:
  The fact table is append-only per period:
  - LoadPeriod(): all-or-nothing insert of one period's rows
  - RemovePeriod(): wholesale delete of one period (for reloads)
  - NO row-level update or delete exists

REPLACE CONTRACT:
  Every derived table is rebuilt with a Replace* call that deletes the
  previous contents and writes the new rows inside one transaction.
  A failed replace leaves the previous contents intact. Repeated runs
  are idempotent.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite store
  - ledger/store/memory.go: in-memory store for tests

SEE ALSO:
  - types.go: the record types
  - catalog.go: the Catalog returned by the catalog read
*/
package ledger

import "context"

// Store is the single persistence contract of the pipeline. Stages use
// only the methods of the tables they touch; tests substitute the
// in-memory implementation.
type Store interface {
	// ---- Fact table (raw filings) ----

	// LoadPeriod inserts one period's rows atomically. Returns
	// ErrPeriodLoaded when the period is already present; the caller
	// decides between skipping and remove-and-reload.
	LoadPeriod(ctx context.Context, p Period, entries []Entry) error

	// RemovePeriod deletes every row of one period. Removing an absent
	// period is a no-op.
	RemovePeriod(ctx context.Context, p Period) error

	// HasPeriod reports whether the period is loaded.
	HasPeriod(ctx context.Context, p Period) (bool, error)

	// ListPeriods returns one summary per loaded period, ascending.
	ListPeriods(ctx context.Context) ([]PeriodInfo, error)

	// EntriesSince returns fact rows with period >= floor, every row
	// when floor is zero. Ordering is unspecified.
	EntriesSince(ctx context.Context, floor Period) ([]Entry, error)

	// ---- Trailing window ----

	// ReplaceWindow rebuilds the window table from the given rows.
	ReplaceWindow(ctx context.Context, entries []Entry) error

	// WindowEntries returns the current window contents.
	WindowEntries(ctx context.Context) ([]Entry, error)

	// ---- Concept catalog (reference data) ----

	// ReplaceCatalog rebuilds the catalog reference table.
	ReplaceCatalog(ctx context.Context, defs []ConceptDefinition) error

	// Catalog returns the validated catalog, ErrNoCatalog when the
	// reference table is empty.
	Catalog(ctx context.Context) (*Catalog, error)

	// ---- Derived aggregates ----

	ReplaceCompanyConcepts(ctx context.Context, rows []CompanyConcept) error
	CompanyConcepts(ctx context.Context) ([]CompanyConcept, error)

	ReplaceSubLineConcepts(ctx context.Context, rows []SubLineConcept) error
	SubLineConcepts(ctx context.Context) ([]SubLineConcept, error)

	// SubLineAmounts returns the sub-line base rows of one concept
	// restricted to the given periods, the engine's operand feed.
	SubLineAmounts(ctx context.Context, concept string, periods []Period) ([]SubLineConcept, error)

	// CompanyAmounts returns the same restricted to company grain,
	// summing the sub-line base over sub-lines.
	CompanyAmounts(ctx context.Context, concept string, periods []Period) ([]CompanyAmount, error)

	// ---- Corrected premium outputs ----

	ReplaceSubLinePremiums(ctx context.Context, rows []SubLinePremium) error
	SubLinePremiums(ctx context.Context) ([]SubLinePremium, error)

	ReplaceCompanyPremiums(ctx context.Context, rows []CompanyPremium) error
	CompanyPremiums(ctx context.Context) ([]CompanyPremium, error)

	// ---- Company master data ----

	SaveCompany(ctx context.Context, c Company) error
	GetCompany(ctx context.Context, code CompanyCode) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	DeleteCompany(ctx context.Context, code CompanyCode) error

	// ---- Run log ----

	RecordRun(ctx context.Context, r Run) error

	// ListRuns returns runs newest first. A limit of zero or less
	// selects DefaultRunPage.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// DefaultRunPage is the run log page size when the caller gives no
// limit.
const DefaultRunPage = 50
