/*
Package concepts turns raw filing lines into named concept figures.

PURPOSE:
  Implements the aggregation stage of the pipeline. Raw filing lines
  carry account codes; analysts work with concepts (earned premiums,
  incurred claims, net worth). This package applies the concept catalog
  to the fact data and rebuilds the two derived concept tables:

  - company_concepts: whole-company figures at the latest window period
  - subline_concepts: per-sub-line figures over every loaded period,
    which the correction engine reads its premium operands from

ABSENCE VERSUS ZERO:
  A concept row is written only when at least one filing line matched
  one of the concept's accounts. A matched sum of zero is written as an
  explicit zero. No match means no row: "the company filed nothing for
  this concept" and "the concept nets to zero" stay distinguishable.

SIGNED SUMS:
  Each matched line contributes sign * amount, with the sign taken from
  the catalog definition the account belongs to. An account missing
  from the catalog contributes to nothing, by construction.

SEE ALSO:
  - ledger/catalog.go: the mapping this package applies
  - subline.go: the per-sub-line base builder
  - correction/engine.go: the main consumer of the sub-line base
*/
package concepts

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/insmag/filings-engine/ledger"
)

// Aggregator rebuilds the derived concept tables from the fact data.
type Aggregator struct {
	store ledger.Store
	log   *zap.Logger
}

func NewAggregator(store ledger.Store, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{store: store, log: log}
}

// BuildCompanyConcepts rebuilds company_concepts from the trailing
// window: every company-grain concept, for every company present at
// the latest window period. Returns the number of rows written.
func (a *Aggregator) BuildCompanyConcepts(ctx context.Context) (int, error) {
	cat, err := a.store.Catalog(ctx)
	if err != nil {
		return 0, err
	}

	entries, err := a.store.WindowEntries(ctx)
	if err != nil {
		return 0, err
	}

	rows := CompanyConcepts(entries, cat)
	if err := a.store.ReplaceCompanyConcepts(ctx, rows); err != nil {
		return 0, err
	}

	a.log.Info("company concepts rebuilt",
		zap.Int("rows", len(rows)),
		zap.String("period", LatestPeriod(entries).String()),
	)
	return len(rows), nil
}

// CompanyConcepts computes the whole-company concept figures at the
// latest period found in entries. Lines of every sub-line, including
// lines filed without one, contribute to the company figure.
func CompanyConcepts(entries []ledger.Entry, cat *ledger.Catalog) []ledger.CompanyConcept {
	latest := LatestPeriod(entries)
	if latest.IsZero() {
		return nil
	}

	type key struct {
		company ledger.CompanyCode
		concept string
	}
	sums := make(map[key]int64)

	for _, e := range entries {
		if e.Period != latest {
			continue
		}
		for _, hit := range cat.Lookup(e.Account) {
			if hit.SubLine {
				continue
			}
			sums[key{e.Company, hit.Concept}] += int64(hit.Sign) * e.Amount
		}
	}

	rows := make([]ledger.CompanyConcept, 0, len(sums))
	for k, amount := range sums {
		rows = append(rows, ledger.CompanyConcept{
			Company: k.company,
			Period:  latest,
			Concept: k.concept,
			Amount:  amount,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Company != rows[j].Company {
			return rows[i].Company < rows[j].Company
		}
		return rows[i].Concept < rows[j].Concept
	})
	return rows
}

// LatestPeriod returns the maximum period present in entries, zero
// when entries is empty.
func LatestPeriod(entries []ledger.Entry) ledger.Period {
	var latest ledger.Period
	for _, e := range entries {
		if e.Period > latest {
			latest = e.Period
		}
	}
	return latest
}
