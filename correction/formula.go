/*
Package correction rebuilds the corrected rolling-twelve-month premium
tables.

PURPOSE:
  Quarterly filings report premiums cumulatively within each company's
  fiscal year. For companies whose fiscal year closes in June, the
  figure filed at quarter Q already covers the twelve months analysts
  compare, so the corrected value is the filed value. Companies closing
  their fiscal year in December restart their accumulation mid
  calendar-year, and their rolling twelve-month figure has to be
  reassembled from up to three filed quarters.

THE BRANCH TABLE:
  A(y, q) is the filed amount at quarter q of year y. For a target
  period (Y, Q):

  Standard (June close), every quarter:
    current = A(Y, Q)          prior = A(Y-1, Q)

  December close:
    Q1: current = A(Y,1) - A(Y-1,2) + A(Y-1,4)
        prior   = A(Y-1,1) - A(Y-2,2) + A(Y-2,4)
    Q2: current = A(Y,2) + A(Y-1,4) - A(Y-1,2)
        prior   = A(Y-1,2) + A(Y-2,4) - A(Y-2,2)
    Q3: same as standard
    Q4: current = A(Y,4) - A(Y,2)
        prior   = A(Y-1,4) - A(Y-1,2)

MISSING OPERANDS:
  An operand period with no filed amount contributes zero. Early years
  of a data set and newly licensed companies are expected to miss
  history; the correction still produces a row.

SEE ALSO:
  - engine.go: applies branches to the sub-line base and writes outputs
  - verify.go: per-operand diagnostics for the special companies
*/
package correction

import (
	"fmt"
	"sort"
	"strings"

	"github.com/insmag/filings-engine/ledger"
)

// =============================================================================
// COMPANY CLASS
// =============================================================================

// Class is a company's fiscal closing class, which picks the formula
// branch.
type Class int

const (
	// Standard covers the June-close companies: filed figures are used
	// directly.
	Standard Class = iota
	// DecemberClose covers the companies whose fiscal year ends in
	// December and whose figures are recombined.
	DecemberClose
)

func (c Class) String() string {
	if c == DecemberClose {
		return "december_close"
	}
	return "standard"
}

// DefaultDecemberClose lists the December-close company codes in the
// current register.
func DefaultDecemberClose() []ledger.CompanyCode {
	return []ledger.CompanyCode{"0829", "0541", "0686"}
}

// Classifier answers the class of a company code.
type Classifier struct {
	december map[ledger.CompanyCode]bool
}

func NewClassifier(decemberClose []ledger.CompanyCode) *Classifier {
	c := &Classifier{december: make(map[ledger.CompanyCode]bool, len(decemberClose))}
	for _, code := range decemberClose {
		c.december[code] = true
	}
	return c
}

func (c *Classifier) ClassOf(code ledger.CompanyCode) Class {
	if c.december[code] {
		return DecemberClose
	}
	return Standard
}

// DecemberCloseCodes returns the configured December-close codes,
// sorted.
func (c *Classifier) DecemberCloseCodes() []ledger.CompanyCode {
	codes := make([]ledger.CompanyCode, 0, len(c.december))
	for code := range c.december {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// =============================================================================
// BRANCH - One target period's formula pair
// =============================================================================

// Term is one signed operand of a correction formula.
type Term struct {
	Coeff  int
	Period ledger.Period
}

// Branch is the formula pair for one (target period, class): the
// current-side terms and the prior-year-side terms.
type Branch struct {
	Current []Term
	Prior   []Term
}

// BranchFor returns the branch for a target period and company class.
// The target must already be validated.
func BranchFor(target ledger.Period, class Class) Branch {
	direct := Branch{
		Current: []Term{{1, target}},
		Prior:   []Term{{1, target.YearsBack(1)}},
	}
	if class != DecemberClose {
		return direct
	}

	lastYear := target.YearsBack(1)
	twoBack := target.YearsBack(2)

	switch target.Quarter() {
	case ledger.QMar:
		return Branch{
			Current: []Term{
				{1, target},
				{-1, lastYear.WithQuarter(ledger.QJun)},
				{1, lastYear.WithQuarter(ledger.QDec)},
			},
			Prior: []Term{
				{1, lastYear},
				{-1, twoBack.WithQuarter(ledger.QJun)},
				{1, twoBack.WithQuarter(ledger.QDec)},
			},
		}
	case ledger.QJun:
		return Branch{
			Current: []Term{
				{1, target},
				{1, lastYear.WithQuarter(ledger.QDec)},
				{-1, lastYear.WithQuarter(ledger.QJun)},
			},
			Prior: []Term{
				{1, lastYear},
				{1, twoBack.WithQuarter(ledger.QDec)},
				{-1, twoBack.WithQuarter(ledger.QJun)},
			},
		}
	case ledger.QDec:
		return Branch{
			Current: []Term{
				{1, target},
				{-1, target.WithQuarter(ledger.QJun)},
			},
			Prior: []Term{
				{1, lastYear.WithQuarter(ledger.QDec)},
				{-1, lastYear.WithQuarter(ledger.QJun)},
			},
		}
	default:
		// September filings cover July through September of a fiscal
		// year in progress for both classes alike.
		return direct
	}
}

// SourcePeriods returns the distinct periods the branch consults,
// ascending.
func (b Branch) SourcePeriods() []ledger.Period {
	seen := make(map[ledger.Period]bool)
	var periods []ledger.Period
	for _, t := range append(append([]Term(nil), b.Current...), b.Prior...) {
		if !seen[t.Period] {
			seen[t.Period] = true
			periods = append(periods, t.Period)
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i] < periods[j] })
	return periods
}

// Eval computes both sides of the branch. at returns the filed amount
// for a period, zero when nothing was filed.
func (b Branch) Eval(at func(ledger.Period) int64) (current, prior int64) {
	for _, t := range b.Current {
		current += int64(t.Coeff) * at(t.Period)
	}
	for _, t := range b.Prior {
		prior += int64(t.Coeff) * at(t.Period)
	}
	return current, prior
}

// Formula renders both sides for diagnostics, e.g.
// "202501 - 202402 + 202404".
func (b Branch) Formula() (current, prior string) {
	return renderTerms(b.Current), renderTerms(b.Prior)
}

func renderTerms(terms []Term) string {
	var sb strings.Builder
	for i, t := range terms {
		switch {
		case i == 0 && t.Coeff < 0:
			sb.WriteString("-")
		case i > 0 && t.Coeff < 0:
			sb.WriteString(" - ")
		case i > 0:
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%s", t.Period)
	}
	return sb.String()
}
