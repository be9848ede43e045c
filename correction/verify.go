/*
verify.go - Read-only diagnostics for the December-close corrections

PURPOSE:
  The recombined figures of the December-close companies are the part
  of the pipeline analysts question first. Verify exposes every operand
  that went into those figures without touching the output tables, so a
  doubtful number can be traced back to the filed quarters.
*/
package correction

import (
	"context"
	"sort"

	"github.com/insmag/filings-engine/ledger"
)

// Operand is one consulted term of a verified formula. Found is false
// when the period had no amount and zero was substituted.
type Operand struct {
	Coeff  int
	Period ledger.Period
	Amount int64
	Found  bool
}

// Diagnostic traces one December-close (company, sub-line) correction:
// the formulas applied, every operand consulted, and the resulting
// figures. Produced by Verify, never persisted.
type Diagnostic struct {
	Company         ledger.CompanyCode
	SubLine         ledger.SubLineCode
	Target          ledger.Period
	Current         int64
	PriorYear       int64
	CurrentFormula  string
	PriorFormula    string
	CurrentOperands []Operand
	PriorOperands   []Operand
}

// Verify evaluates the December-close branch for the target period and
// returns one diagnostic per (company, sub-line) pair of the configured
// special companies. The output tables are not written.
func (e *Engine) Verify(ctx context.Context, target ledger.Period) ([]Diagnostic, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	branch := BranchFor(target, DecemberClose)
	rows, err := e.store.SubLineAmounts(ctx, e.concept, branch.SourcePeriods())
	if err != nil {
		return nil, err
	}

	amounts := make(map[subLineKey]int64)
	pairSet := make(map[subLinePair]bool)
	for _, r := range rows {
		if e.classifier.ClassOf(r.Company) != DecemberClose {
			continue
		}
		amounts[subLineKey{r.Company, r.SubLine, r.Period}] = r.Amount
		pairSet[subLinePair{r.Company, r.SubLine}] = true
	}

	pairs := make([]subLinePair, 0, len(pairSet))
	for pair := range pairSet {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].company != pairs[j].company {
			return pairs[i].company < pairs[j].company
		}
		return pairs[i].subLine < pairs[j].subLine
	})

	curFormula, priorFormula := branch.Formula()
	out := make([]Diagnostic, 0, len(pairs))
	for _, pair := range pairs {
		d := Diagnostic{
			Company:        pair.company,
			SubLine:        pair.subLine,
			Target:         target,
			CurrentFormula: curFormula,
			PriorFormula:   priorFormula,
		}
		d.CurrentOperands, d.Current = traceTerms(branch.Current, pair, amounts)
		d.PriorOperands, d.PriorYear = traceTerms(branch.Prior, pair, amounts)
		out = append(out, d)
	}
	return out, nil
}

// traceTerms evaluates one side of a branch while recording each
// operand.
func traceTerms(terms []Term, pair subLinePair, amounts map[subLineKey]int64) ([]Operand, int64) {
	operands := make([]Operand, 0, len(terms))
	var total int64
	for _, t := range terms {
		amount, found := amounts[subLineKey{pair.company, pair.subLine, t.Period}]
		operands = append(operands, Operand{
			Coeff:  t.Coeff,
			Period: t.Period,
			Amount: amount,
			Found:  found,
		})
		total += int64(t.Coeff) * amount
	}
	return operands, total
}
