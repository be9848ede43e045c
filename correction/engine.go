/*
engine.go - Applies the correction branches and rebuilds the outputs

PURPOSE:
  The engine turns the sub-line base table into the two corrected
  premium tables. For a target period it picks each company's branch,
  fetches the branch's source periods in one read, evaluates the
  formula with zero for missing operands, and replaces the output
  table wholesale.

PAIR UNIVERSE:
  A (company, sub-line) pair earns an output row when it appears in at
  least one source period its own class consults. Pairs seen only in
  periods the other class reaches produce nothing.

SEE ALSO:
  - formula.go: the branch table
  - verify.go: read-only diagnostics over the same branches
*/
package correction

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/insmag/filings-engine/ledger"
)

// DefaultConcept is the premium concept the engine corrects unless
// configured otherwise.
const DefaultConcept = "written_premiums"

// Engine rebuilds the corrected premium tables for a target period.
type Engine struct {
	store      ledger.Store
	classifier *Classifier
	concept    string
	log        *zap.Logger
}

// NewEngine wires an engine. An empty concept falls back to
// DefaultConcept; a nil classifier uses the default December-close set.
func NewEngine(store ledger.Store, classifier *Classifier, concept string, log *zap.Logger) *Engine {
	if classifier == nil {
		classifier = NewClassifier(DefaultDecemberClose())
	}
	if concept == "" {
		concept = DefaultConcept
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, classifier: classifier, concept: concept, log: log}
}

// Concept returns the premium concept the engine consults.
func (e *Engine) Concept() string { return e.concept }

// =============================================================================
// SUB-LINE CORRECTION
// =============================================================================

type subLineKey struct {
	company ledger.CompanyCode
	subLine ledger.SubLineCode
	period  ledger.Period
}

type subLinePair struct {
	company ledger.CompanyCode
	subLine ledger.SubLineCode
}

// Run rebuilds the corrected sub-line premium table for the target
// period and returns the number of rows written.
func (e *Engine) Run(ctx context.Context, target ledger.Period) (int, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}

	branches := e.branches(target)
	rows, err := e.store.SubLineAmounts(ctx, e.concept, unionPeriods(branches))
	if err != nil {
		return 0, err
	}

	amounts := make(map[subLineKey]int64, len(rows))
	pairs := map[Class]map[subLinePair]bool{
		Standard:      make(map[subLinePair]bool),
		DecemberClose: make(map[subLinePair]bool),
	}
	consulted := consultedSets(branches)
	for _, r := range rows {
		amounts[subLineKey{r.Company, r.SubLine, r.Period}] = r.Amount
		cls := e.classifier.ClassOf(r.Company)
		if consulted[cls][r.Period] {
			pairs[cls][subLinePair{r.Company, r.SubLine}] = true
		}
	}

	var out []ledger.SubLinePremium
	for cls, branch := range branches {
		for pair := range pairs[cls] {
			cur, prior := branch.Eval(func(p ledger.Period) int64 {
				return amounts[subLineKey{pair.company, pair.subLine, p}]
			})
			out = append(out, ledger.SubLinePremium{
				Company:   pair.company,
				SubLine:   pair.subLine,
				Current:   cur,
				PriorYear: prior,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Company != out[j].Company {
			return out[i].Company < out[j].Company
		}
		return out[i].SubLine < out[j].SubLine
	})

	if err := e.store.ReplaceSubLinePremiums(ctx, out); err != nil {
		return 0, err
	}
	e.log.Info("corrected sub-line premiums rebuilt",
		zap.String("target", target.String()),
		zap.String("concept", e.concept),
		zap.Int("rows", len(out)),
		zap.Int("december_close_pairs", len(pairs[DecemberClose])),
	)
	return len(out), nil
}

// =============================================================================
// COMPANY ROLLUP
// =============================================================================

type companyKey struct {
	company ledger.CompanyCode
	period  ledger.Period
}

// RunCompanies rebuilds the corrected company premium table: the same
// branch evaluation over company-level sums of the sub-line base.
func (e *Engine) RunCompanies(ctx context.Context, target ledger.Period) (int, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}

	branches := e.branches(target)
	rows, err := e.store.CompanyAmounts(ctx, e.concept, unionPeriods(branches))
	if err != nil {
		return 0, err
	}

	amounts := make(map[companyKey]int64, len(rows))
	companies := map[Class]map[ledger.CompanyCode]bool{
		Standard:      make(map[ledger.CompanyCode]bool),
		DecemberClose: make(map[ledger.CompanyCode]bool),
	}
	consulted := consultedSets(branches)
	for _, r := range rows {
		amounts[companyKey{r.Company, r.Period}] = r.Amount
		cls := e.classifier.ClassOf(r.Company)
		if consulted[cls][r.Period] {
			companies[cls][r.Company] = true
		}
	}

	var out []ledger.CompanyPremium
	for cls, branch := range branches {
		for company := range companies[cls] {
			cur, prior := branch.Eval(func(p ledger.Period) int64 {
				return amounts[companyKey{company, p}]
			})
			out = append(out, ledger.CompanyPremium{
				Company:   company,
				Current:   cur,
				PriorYear: prior,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Company < out[j].Company })

	if err := e.store.ReplaceCompanyPremiums(ctx, out); err != nil {
		return 0, err
	}
	e.log.Info("corrected company premiums rebuilt",
		zap.String("target", target.String()),
		zap.String("concept", e.concept),
		zap.Int("rows", len(out)),
	)
	return len(out), nil
}

// =============================================================================
// SHARED BRANCH PLUMBING
// =============================================================================

func (e *Engine) branches(target ledger.Period) map[Class]Branch {
	return map[Class]Branch{
		Standard:      BranchFor(target, Standard),
		DecemberClose: BranchFor(target, DecemberClose),
	}
}

// unionPeriods merges the source periods of all branches, ascending.
func unionPeriods(branches map[Class]Branch) []ledger.Period {
	seen := make(map[ledger.Period]bool)
	var periods []ledger.Period
	for _, b := range branches {
		for _, p := range b.SourcePeriods() {
			if !seen[p] {
				seen[p] = true
				periods = append(periods, p)
			}
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i] < periods[j] })
	return periods
}

// consultedSets indexes each class's source periods for membership
// checks.
func consultedSets(branches map[Class]Branch) map[Class]map[ledger.Period]bool {
	sets := make(map[Class]map[ledger.Period]bool, len(branches))
	for cls, b := range branches {
		set := make(map[ledger.Period]bool)
		for _, p := range b.SourcePeriods() {
			set[p] = true
		}
		sets[cls] = set
	}
	return sets
}
