/*
inspector.go - Bounded table inspection over the store

PURPOSE:
  Lets operators look at any pipeline table through the API without a
  database client: the inventory lists every known table with its row
  count, the preview returns the first rows of one table as DTOs.
  Reads only; table names are a closed set.
*/
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/insmag/filings-engine/ledger"
)

// DefaultPreviewRows caps a table preview when no limit is given.
const DefaultPreviewRows = 50

// Inspectable table names, in inventory order.
const (
	tableEntries         = "ledger_entries"
	tableWindow          = "ledger_window"
	tableConceptRules    = "concept_rules"
	tableCompanyConcepts = "company_concepts"
	tableSubLineConcepts = "subline_concepts"
	tableSubLinePremiums = "subline_premiums"
	tableCompanyPremiums = "company_premiums"
	tableCompanies       = "companies"
	tableRuns            = "pipeline_runs"
)

var tableNames = []string{
	tableEntries,
	tableWindow,
	tableConceptRules,
	tableCompanyConcepts,
	tableSubLineConcepts,
	tableSubLinePremiums,
	tableCompanyPremiums,
	tableCompanies,
	tableRuns,
}

// Inspector reads tables through the store contract.
type Inspector struct {
	store ledger.Store
}

func NewInspector(store ledger.Store) *Inspector {
	return &Inspector{store: store}
}

// Tables returns the inventory: every known table with its row count.
func (i *Inspector) Tables(ctx context.Context) ([]TableInfoDTO, error) {
	out := make([]TableInfoDTO, 0, len(tableNames))
	for _, name := range tableNames {
		rows, err := i.read(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", name, err)
		}
		out = append(out, TableInfoDTO{Name: name, Rows: len(rows)})
	}
	return out, nil
}

// Preview returns the first rows of one table. A non-positive limit
// means DefaultPreviewRows. Unknown names fail with ErrUnknownTable.
func (i *Inspector) Preview(ctx context.Context, name string, limit int) (*TablePreviewDTO, error) {
	rows, err := i.read(ctx, name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPreviewRows
	}
	total := len(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return &TablePreviewDTO{Name: name, Rows: rows, Total: total}, nil
}

func (i *Inspector) read(ctx context.Context, name string) ([]any, error) {
	switch name {
	case tableEntries:
		rows, err := i.store.EntriesSince(ctx, 0)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for j, r := range rows {
			out[j] = toEntryDTO(r)
		}
		return out, nil
	case tableWindow:
		rows, err := i.store.WindowEntries(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for j, r := range rows {
			out[j] = toEntryDTO(r)
		}
		return out, nil
	case tableConceptRules:
		cat, err := i.store.Catalog(ctx)
		if errors.Is(err, ledger.ErrNoCatalog) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		defs := cat.Definitions()
		out := make([]any, len(defs))
		for j, d := range defs {
			accounts := make([]string, len(d.Accounts))
			for k, a := range d.Accounts {
				accounts[k] = string(a)
			}
			out[j] = ConceptRuleDTO{
				Concept:  d.Concept,
				Sign:     d.Sign,
				SubLine:  d.SubLine,
				Accounts: accounts,
			}
		}
		return out, nil
	case tableCompanyConcepts:
		rows, err := i.store.CompanyConcepts(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for j, r := range rows {
			out[j] = CompanyConceptDTO{
				Company: string(r.Company),
				Period:  r.Period.String(),
				Concept: r.Concept,
				Amount:  r.Amount,
			}
		}
		return out, nil
	case tableSubLineConcepts:
		rows, err := i.store.SubLineConcepts(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for j, r := range rows {
			out[j] = SubLineConceptDTO{
				Company: string(r.Company),
				Period:  r.Period.String(),
				SubLine: string(r.SubLine),
				Concept: r.Concept,
				Amount:  r.Amount,
			}
		}
		return out, nil
	case tableSubLinePremiums:
		rows, err := i.store.SubLinePremiums(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for j, r := range rows {
			out[j] = toSubLinePremiumDTO(r)
		}
		return out, nil
	case tableCompanyPremiums:
		rows, err := i.store.CompanyPremiums(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for j, r := range rows {
			out[j] = toCompanyPremiumDTO(r)
		}
		return out, nil
	case tableCompanies:
		rows, err := i.store.ListCompanies(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for j, r := range rows {
			out[j] = toCompanyDTO(r)
		}
		return out, nil
	case tableRuns:
		rows, err := i.store.ListRuns(ctx, 0)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(rows))
		for j, r := range rows {
			out[j] = toRunDTO(r)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ledger.ErrUnknownTable, name)
	}
}
