/*
Package sqlite provides the SQLite-backed implementation of ledger.Store.

PURPOSE:
  Implements the full persistence contract (fact table, window, catalog,
  derived outputs, company master, run log) on a single local SQLite
  file. The source filings arrive as local files and every computation
  is local, so SQLite is the production engine, not a stand-in.

KEY TABLES:
  ledger_entries:    raw filing lines, append-only per period
  ledger_window:     trailing window snapshot (replace-only)
  concept_rules:     account-to-concept mapping (reference data)
  company_concepts:  whole-company aggregates at the latest period
  subline_concepts:  per-sub-line concept base (engine operand feed)
  subline_premiums:  corrected premium output per (company, sub-line)
  company_premiums:  corrected premium output per company
  companies:         master data
  pipeline_runs:     stage audit log

REPLACE PATTERN:
  Derived tables are rebuilt with DELETE + INSERT inside one database
  transaction. A failed rebuild rolls back and leaves the previous
  contents untouched, which is what makes repeated runs idempotent.

WAL MODE:
  The database is opened with WAL so reads do not block during a
  rebuild. There is still exactly one pipeline writer at a time; the
  mutex here guards the process, the transaction guards the file.

USAGE:
  store, err := sqlite.New("./filings.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: interface definition
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/insmag/filings-engine/ledger"
)

// Store implements ledger.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ledger.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and migrates the
// schema. Use ":memory:" for a throwaway database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Raw filing lines (append-only per period)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		company_code TEXT NOT NULL,
		period INTEGER NOT NULL,
		sub_line_code TEXT,
		account_code TEXT NOT NULL,
		amount INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_period
		ON ledger_entries(period);
	CREATE INDEX IF NOT EXISTS idx_ledger_company_period
		ON ledger_entries(company_code, period);

	-- Trailing window snapshot (replace-only)
	CREATE TABLE IF NOT EXISTS ledger_window (
		company_code TEXT NOT NULL,
		period INTEGER NOT NULL,
		sub_line_code TEXT,
		account_code TEXT NOT NULL,
		amount INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_window_period
		ON ledger_window(period);

	-- Account-to-concept mapping (reference data)
	CREATE TABLE IF NOT EXISTS concept_rules (
		concept TEXT NOT NULL,
		account_code TEXT NOT NULL,
		sign INTEGER NOT NULL,
		sub_line INTEGER NOT NULL,
		UNIQUE(concept, account_code)
	);

	CREATE INDEX IF NOT EXISTS idx_concept_rules_account
		ON concept_rules(account_code);

	-- Whole-company aggregates at the latest window period
	CREATE TABLE IF NOT EXISTS company_concepts (
		company_code TEXT NOT NULL,
		period INTEGER NOT NULL,
		concept TEXT NOT NULL,
		amount INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_company_concepts_company
		ON company_concepts(company_code);

	-- Per-sub-line concept base over all loaded periods
	CREATE TABLE IF NOT EXISTS subline_concepts (
		company_code TEXT NOT NULL,
		period INTEGER NOT NULL,
		sub_line_code TEXT NOT NULL,
		concept TEXT NOT NULL,
		amount INTEGER NOT NULL
	);

	-- Hot path: the correction engine selects one concept over a few periods
	CREATE INDEX IF NOT EXISTS idx_subline_concepts_concept_period
		ON subline_concepts(concept, period);

	-- Corrected premium outputs (replace-only)
	CREATE TABLE IF NOT EXISTS subline_premiums (
		company_code TEXT NOT NULL,
		sub_line_code TEXT NOT NULL,
		premiums_current INTEGER NOT NULL,
		premiums_prior_year INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS company_premiums (
		company_code TEXT NOT NULL,
		premiums_current INTEGER NOT NULL,
		premiums_prior_year INTEGER NOT NULL
	);

	-- Company master data
	CREATE TABLE IF NOT EXISTS companies (
		code TEXT PRIMARY KEY,
		short_name TEXT NOT NULL,
		kind TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Stage audit log
	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		stage TEXT NOT NULL,
		period INTEGER NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started
		ON pipeline_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// FACT TABLE
// =============================================================================

// LoadPeriod inserts one period's rows atomically. The presence check
// and the inserts share a transaction so a concurrent double-load
// cannot interleave.
func (s *Store) LoadPeriod(ctx context.Context, p ledger.Period, entries []ledger.Entry) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE period = ?", int(p),
	).Scan(&count); err != nil {
		return fmt.Errorf("failed to check period: %w", err)
	}
	if count > 0 {
		return ledger.ErrPeriodLoaded
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_entries (company_code, period, sub_line_code, account_code, amount)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			string(e.Company), int(e.Period), nullString(string(e.SubLine)), string(e.Account), e.Amount,
		); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	return tx.Commit()
}

// RemovePeriod deletes every row of one period.
func (s *Store) RemovePeriod(ctx context.Context, p ledger.Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM ledger_entries WHERE period = ?", int(p))
	return err
}

// HasPeriod reports whether the period has any rows.
func (s *Store) HasPeriod(ctx context.Context, p ledger.Period) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE period = ?", int(p),
	).Scan(&count)
	return count > 0, err
}

// ListPeriods summarizes the loaded periods, ascending.
func (s *Store) ListPeriods(ctx context.Context) ([]ledger.PeriodInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT period, COUNT(DISTINCT company_code), COUNT(*)
		FROM ledger_entries
		GROUP BY period
		ORDER BY period ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	var infos []ledger.PeriodInfo
	for rows.Next() {
		var info ledger.PeriodInfo
		var period int
		if err := rows.Scan(&period, &info.Companies, &info.Entries); err != nil {
			return nil, err
		}
		info.Period = ledger.Period(period)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// EntriesSince returns fact rows with period >= floor.
func (s *Store) EntriesSince(ctx context.Context, floor ledger.Period) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT company_code, period, sub_line_code, account_code, amount
		FROM ledger_entries
		WHERE period >= ?
		ORDER BY period ASC, company_code ASC
	`
	return s.queryEntries(ctx, query, int(floor))
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e       ledger.Entry
			period  int
			subLine sql.NullString
		)
		if err := rows.Scan(&e.Company, &period, &subLine, &e.Account, &e.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Period = ledger.Period(period)
		e.SubLine = ledger.SubLineCode(subLine.String)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// WINDOW
// =============================================================================

// ReplaceWindow rebuilds the window table inside one transaction.
func (s *Store) ReplaceWindow(ctx context.Context, entries []ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(ctx, "ledger_window", `
		INSERT INTO ledger_window (company_code, period, sub_line_code, account_code, amount)
		VALUES (?, ?, ?, ?, ?)
	`, len(entries), func(i int) []any {
		e := entries[i]
		return []any{string(e.Company), int(e.Period), nullString(string(e.SubLine)), string(e.Account), e.Amount}
	})
}

// WindowEntries returns the current window contents.
func (s *Store) WindowEntries(ctx context.Context) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT company_code, period, sub_line_code, account_code, amount
		FROM ledger_window
		ORDER BY period ASC, company_code ASC
	`
	return s.queryEntries(ctx, query)
}

// replace is the shared drop-and-rebuild: DELETE plus N inserts in one
// transaction. argsAt supplies the bind arguments for row i.
func (s *Store) replace(ctx context.Context, table, insert string, n int, argsAt func(int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, argsAt(i)...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// CATALOG
// =============================================================================

// ReplaceCatalog rebuilds the concept_rules reference table from the
// definitions, one row per (concept, account).
func (s *Store) ReplaceCatalog(ctx context.Context, defs []ledger.ConceptDefinition) error {
	// Validate before touching the table.
	if _, err := ledger.NewCatalog(defs); err != nil {
		return err
	}

	type rule struct {
		concept string
		account ledger.AccountCode
		sign    int
		subLine bool
	}
	var rules []rule
	for _, def := range defs {
		for _, account := range def.Accounts {
			rules = append(rules, rule{def.Concept, account, def.Sign, def.SubLine})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(ctx, "concept_rules", `
		INSERT INTO concept_rules (concept, account_code, sign, sub_line)
		VALUES (?, ?, ?, ?)
	`, len(rules), func(i int) []any {
		r := rules[i]
		return []any{r.concept, string(r.account), r.sign, boolInt(r.subLine)}
	})
}

// Catalog reads the reference table back into a validated Catalog.
func (s *Store) Catalog(ctx context.Context) (*ledger.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT concept, account_code, sign, sub_line
		FROM concept_rules
		ORDER BY concept ASC, sign DESC, account_code ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query concept rules: %w", err)
	}
	defer rows.Close()

	type group struct {
		concept string
		sign    int
	}
	var (
		order []group
		defs  = make(map[group]*ledger.ConceptDefinition)
	)
	for rows.Next() {
		var (
			concept, account string
			sign, subLine    int
		)
		if err := rows.Scan(&concept, &account, &sign, &subLine); err != nil {
			return nil, err
		}
		g := group{concept, sign}
		def, ok := defs[g]
		if !ok {
			def = &ledger.ConceptDefinition{Concept: concept, Sign: sign, SubLine: subLine != 0}
			defs[g] = def
			order = append(order, g)
		}
		def.Accounts = append(def.Accounts, ledger.AccountCode(account))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, ledger.ErrNoCatalog
	}

	out := make([]ledger.ConceptDefinition, 0, len(order))
	for _, g := range order {
		out = append(out, *defs[g])
	}
	return ledger.NewCatalog(out)
}

// =============================================================================
// DERIVED AGGREGATES
// =============================================================================

func (s *Store) ReplaceCompanyConcepts(ctx context.Context, rows []ledger.CompanyConcept) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(ctx, "company_concepts", `
		INSERT INTO company_concepts (company_code, period, concept, amount)
		VALUES (?, ?, ?, ?)
	`, len(rows), func(i int) []any {
		r := rows[i]
		return []any{string(r.Company), int(r.Period), r.Concept, r.Amount}
	})
}

func (s *Store) CompanyConcepts(ctx context.Context) ([]ledger.CompanyConcept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT company_code, period, concept, amount
		FROM company_concepts
		ORDER BY company_code ASC, concept ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query company concepts: %w", err)
	}
	defer rows.Close()

	var out []ledger.CompanyConcept
	for rows.Next() {
		var (
			r      ledger.CompanyConcept
			period int
		)
		if err := rows.Scan(&r.Company, &period, &r.Concept, &r.Amount); err != nil {
			return nil, err
		}
		r.Period = ledger.Period(period)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ReplaceSubLineConcepts(ctx context.Context, rows []ledger.SubLineConcept) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(ctx, "subline_concepts", `
		INSERT INTO subline_concepts (company_code, period, sub_line_code, concept, amount)
		VALUES (?, ?, ?, ?, ?)
	`, len(rows), func(i int) []any {
		r := rows[i]
		return []any{string(r.Company), int(r.Period), string(r.SubLine), r.Concept, r.Amount}
	})
}

func (s *Store) SubLineConcepts(ctx context.Context) ([]ledger.SubLineConcept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT company_code, period, sub_line_code, concept, amount
		FROM subline_concepts
		ORDER BY company_code ASC, period ASC, sub_line_code ASC, concept ASC
	`
	return s.querySubLineConcepts(ctx, query)
}

// SubLineAmounts feeds the correction engine: one concept, a handful of
// periods.
func (s *Store) SubLineAmounts(ctx context.Context, concept string, periods []ledger.Period) ([]ledger.SubLineConcept, error) {
	if len(periods) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT company_code, period, sub_line_code, concept, amount
		FROM subline_concepts
		WHERE concept = ? AND period IN (%s)
		ORDER BY company_code ASC, sub_line_code ASC, period ASC
	`, placeholders(len(periods)))

	args := make([]any, 0, len(periods)+1)
	args = append(args, concept)
	for _, p := range periods {
		args = append(args, int(p))
	}
	return s.querySubLineConcepts(ctx, query, args...)
}

func (s *Store) querySubLineConcepts(ctx context.Context, query string, args ...any) ([]ledger.SubLineConcept, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subline concepts: %w", err)
	}
	defer rows.Close()

	var out []ledger.SubLineConcept
	for rows.Next() {
		var (
			r      ledger.SubLineConcept
			period int
		)
		if err := rows.Scan(&r.Company, &period, &r.SubLine, &r.Concept, &r.Amount); err != nil {
			return nil, err
		}
		r.Period = ledger.Period(period)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CompanyAmounts is SubLineAmounts rolled up to company grain.
func (s *Store) CompanyAmounts(ctx context.Context, concept string, periods []ledger.Period) ([]ledger.CompanyAmount, error) {
	if len(periods) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT company_code, period, SUM(amount)
		FROM subline_concepts
		WHERE concept = ? AND period IN (%s)
		GROUP BY company_code, period
		ORDER BY company_code ASC, period ASC
	`, placeholders(len(periods)))

	args := make([]any, 0, len(periods)+1)
	args = append(args, concept)
	for _, p := range periods {
		args = append(args, int(p))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query company amounts: %w", err)
	}
	defer rows.Close()

	var out []ledger.CompanyAmount
	for rows.Next() {
		var (
			r      ledger.CompanyAmount
			period int
		)
		if err := rows.Scan(&r.Company, &period, &r.Amount); err != nil {
			return nil, err
		}
		r.Period = ledger.Period(period)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// CORRECTED PREMIUM OUTPUTS
// =============================================================================

func (s *Store) ReplaceSubLinePremiums(ctx context.Context, rows []ledger.SubLinePremium) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(ctx, "subline_premiums", `
		INSERT INTO subline_premiums (company_code, sub_line_code, premiums_current, premiums_prior_year)
		VALUES (?, ?, ?, ?)
	`, len(rows), func(i int) []any {
		r := rows[i]
		return []any{string(r.Company), string(r.SubLine), r.Current, r.PriorYear}
	})
}

func (s *Store) SubLinePremiums(ctx context.Context) ([]ledger.SubLinePremium, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT company_code, sub_line_code, premiums_current, premiums_prior_year
		FROM subline_premiums
		ORDER BY company_code ASC, sub_line_code ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subline premiums: %w", err)
	}
	defer rows.Close()

	var out []ledger.SubLinePremium
	for rows.Next() {
		var r ledger.SubLinePremium
		if err := rows.Scan(&r.Company, &r.SubLine, &r.Current, &r.PriorYear); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ReplaceCompanyPremiums(ctx context.Context, rows []ledger.CompanyPremium) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(ctx, "company_premiums", `
		INSERT INTO company_premiums (company_code, premiums_current, premiums_prior_year)
		VALUES (?, ?, ?)
	`, len(rows), func(i int) []any {
		r := rows[i]
		return []any{string(r.Company), r.Current, r.PriorYear}
	})
}

func (s *Store) CompanyPremiums(ctx context.Context) ([]ledger.CompanyPremium, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT company_code, premiums_current, premiums_prior_year
		FROM company_premiums
		ORDER BY company_code ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query company premiums: %w", err)
	}
	defer rows.Close()

	var out []ledger.CompanyPremium
	for rows.Next() {
		var r ledger.CompanyPremium
		if err := rows.Scan(&r.Company, &r.Current, &r.PriorYear); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// COMPANY MASTER DATA
// =============================================================================

// SaveCompany inserts or updates a company record.
func (s *Store) SaveCompany(ctx context.Context, c ledger.Company) error {
	if !c.Kind.Valid() {
		return ledger.ErrBadCompanyKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO companies (code, short_name, kind, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			short_name = excluded.short_name,
			kind = excluded.kind,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(c.Code), c.ShortName, string(c.Kind), c.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

// GetCompany retrieves a company by code, nil when absent.
func (s *Store) GetCompany(ctx context.Context, code ledger.CompanyCode) (*ledger.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		c         ledger.Company
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT code, short_name, kind, updated_at FROM companies WHERE code = ?",
		string(code),
	).Scan(&c.Code, &c.ShortName, &c.Kind, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

// ListCompanies returns all companies ordered by code.
func (s *Store) ListCompanies(ctx context.Context) ([]ledger.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code, short_name, kind, updated_at FROM companies ORDER BY code ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Company
	for rows.Next() {
		var (
			c         ledger.Company
			updatedAt string
		)
		if err := rows.Scan(&c.Code, &c.ShortName, &c.Kind, &updatedAt); err != nil {
			return nil, err
		}
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCompany removes a company record.
func (s *Store) DeleteCompany(ctx context.Context, code ledger.CompanyCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM companies WHERE code = ?", string(code))
	return err
}

// =============================================================================
// RUN LOG
// =============================================================================

// RecordRun appends one stage execution to the audit log.
func (s *Store) RecordRun(ctx context.Context, r ledger.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO pipeline_runs (id, stage, period, row_count, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Stage, int(r.Period), r.Rows, string(r.Status),
		nullString(r.Error),
		r.StartedAt.Format(time.RFC3339Nano),
		r.FinishedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ListRuns returns the newest runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ledger.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = ledger.DefaultRunPage
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stage, period, row_count, status, error, started_at, finished_at
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Run
	for rows.Next() {
		var (
			r                   ledger.Run
			period              int
			errMsg              sql.NullString
			startedAt, finished string
		)
		if err := rows.Scan(&r.ID, &r.Stage, &period, &r.Rows, &r.Status, &errMsg, &startedAt, &finished); err != nil {
			return nil, err
		}
		r.Period = ledger.Period(period)
		r.Error = errMsg.String
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
