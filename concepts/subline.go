/*
subline.go - Per-sub-line concept base builder

PURPOSE:
  Rebuilds subline_concepts, the operand table of the correction
  engine. Unlike the company table, which keeps only the latest window
  period, the sub-line base spans every loaded period: the correction
  formulas reach up to two years back.

SEE ALSO:
  - aggregator.go: company-grain counterpart and shared semantics
*/
package concepts

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/insmag/filings-engine/ledger"
)

// BuildSubLineBase rebuilds subline_concepts from the full fact table.
// Returns the number of rows written.
func (a *Aggregator) BuildSubLineBase(ctx context.Context) (int, error) {
	cat, err := a.store.Catalog(ctx)
	if err != nil {
		return 0, err
	}

	entries, err := a.store.EntriesSince(ctx, 0)
	if err != nil {
		return 0, err
	}

	rows := SubLineBase(entries, cat)
	if err := a.store.ReplaceSubLineConcepts(ctx, rows); err != nil {
		return 0, err
	}

	a.log.Info("sub-line base rebuilt", zap.Int("rows", len(rows)))
	return len(rows), nil
}

// SubLineBase computes per-sub-line concept figures over all periods in
// entries. Lines filed without a sub-line never contribute here; they
// are company-grain only.
func SubLineBase(entries []ledger.Entry, cat *ledger.Catalog) []ledger.SubLineConcept {
	type key struct {
		company ledger.CompanyCode
		period  ledger.Period
		subLine ledger.SubLineCode
		concept string
	}
	sums := make(map[key]int64)

	for _, e := range entries {
		if e.SubLine == "" {
			continue
		}
		for _, hit := range cat.Lookup(e.Account) {
			if !hit.SubLine {
				continue
			}
			sums[key{e.Company, e.Period, e.SubLine, hit.Concept}] += int64(hit.Sign) * e.Amount
		}
	}

	rows := make([]ledger.SubLineConcept, 0, len(sums))
	for k, amount := range sums {
		rows = append(rows, ledger.SubLineConcept{
			Company: k.company,
			Period:  k.period,
			SubLine: k.subLine,
			Concept: k.concept,
			Amount:  amount,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Company != b.Company {
			return a.Company < b.Company
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.SubLine != b.SubLine {
			return a.SubLine < b.SubLine
		}
		return a.Concept < b.Concept
	})
	return rows
}
