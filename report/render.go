/*
render.go - Markdown renderings of the verification and the movers

PURPOSE:
  Builds the markdown the CLI pipes through its terminal renderer: the
  December-close verification detail and a top-movers summary of the
  corrected company premiums. Amounts are formatted as money in the
  configured currency; relative changes are computed with decimals, not
  floats.
*/
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/insmag/filings-engine/correction"
	"github.com/insmag/filings-engine/ledger"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "ARS"

// DefaultMovers is how many companies the summary ranks when no limit
// is given.
const DefaultMovers = 10

// Renderer builds markdown reports with money formatting.
type Renderer struct {
	currency string
}

// NewRenderer returns a renderer formatting amounts in the given
// currency code, falling back to DefaultCurrency for unknown codes.
func NewRenderer(currency string) *Renderer {
	if money.GetCurrency(currency) == nil {
		currency = DefaultCurrency
	}
	return &Renderer{currency: currency}
}

// Money formats minor units in the renderer's currency.
func (r *Renderer) Money(v int64) string {
	return money.New(v, r.currency).Display()
}

// =============================================================================
// VERIFICATION REPORT
// =============================================================================

// DiagnosticsMarkdown renders the verification diagnostics: the
// recombined figures first, then every consulted operand.
func (r *Renderer) DiagnosticsMarkdown(target ledger.Period, diags []correction.Diagnostic) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Premium verification %s\n\n", target.Label())

	if len(diags) == 0 {
		sb.WriteString("No December-close rows were found in the consulted periods.\n")
		return sb.String()
	}

	sb.WriteString("Recombined rolling-twelve-month premiums for the December-close companies.\n\n")
	sb.WriteString("| Company | Sub-line | Current | Prior year |\n")
	sb.WriteString("|---------|----------|--------:|-----------:|\n")
	for _, d := range diags {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			d.Company, d.SubLine, r.Money(d.Current), r.Money(d.PriorYear))
	}

	sb.WriteString("\n## Operands\n\n")
	fmt.Fprintf(&sb, "Current side: `%s`\n\n", diags[0].CurrentFormula)
	fmt.Fprintf(&sb, "Prior side: `%s`\n\n", diags[0].PriorFormula)
	sb.WriteString("Operands not filed contribute zero.\n\n")
	sb.WriteString("| Company | Sub-line | Side | Period | Sign | Amount | Filed |\n")
	sb.WriteString("|---------|----------|------|--------|------|-------:|-------|\n")
	for _, d := range diags {
		writeOperandRows(&sb, r, d, "current", d.CurrentOperands)
		writeOperandRows(&sb, r, d, "prior", d.PriorOperands)
	}
	return sb.String()
}

func writeOperandRows(sb *strings.Builder, r *Renderer, d correction.Diagnostic, side string, operands []correction.Operand) {
	for _, op := range operands {
		sign := "+"
		if op.Coeff < 0 {
			sign = "-"
		}
		filed := "yes"
		if !op.Found {
			filed = "no"
		}
		fmt.Fprintf(sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			d.Company, d.SubLine, side, op.Period, sign, r.Money(op.Amount), filed)
	}
}

// =============================================================================
// TOP MOVERS SUMMARY
// =============================================================================

type mover struct {
	row    ledger.CompanyPremium
	change decimal.Decimal
}

// SummaryMarkdown renders the corrected company premiums ranked by
// absolute relative change against the prior year. Companies without a
// prior-year figure cannot be ranked and are only counted. A
// non-positive limit means DefaultMovers.
func (r *Renderer) SummaryMarkdown(target ledger.Period, rows []ledger.CompanyPremium, limit int) string {
	if limit <= 0 {
		limit = DefaultMovers
	}

	var movers []mover
	unranked := 0
	for _, row := range rows {
		if row.PriorYear == 0 {
			unranked++
			continue
		}
		change := decimal.NewFromInt(row.Current).
			Sub(decimal.NewFromInt(row.PriorYear)).
			Div(decimal.NewFromInt(row.PriorYear).Abs()).
			Mul(decimal.NewFromInt(100))
		movers = append(movers, mover{row: row, change: change})
	}
	sort.Slice(movers, func(i, j int) bool {
		if !movers[i].change.Abs().Equal(movers[j].change.Abs()) {
			return movers[i].change.Abs().GreaterThan(movers[j].change.Abs())
		}
		return movers[i].row.Company < movers[j].row.Company
	})
	if len(movers) > limit {
		movers = movers[:limit]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Corrected premium movers %s\n\n", target.Label())
	if len(movers) == 0 {
		sb.WriteString("No rankable companies: every row misses a prior-year figure.\n")
	} else {
		sb.WriteString("Company-level rolling-twelve-month premiums, ranked by relative change.\n\n")
		sb.WriteString("| Company | Current | Prior year | Change |\n")
		sb.WriteString("|---------|--------:|-----------:|-------:|\n")
		for _, m := range movers {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				m.row.Company, r.Money(m.row.Current), r.Money(m.row.PriorYear), formatChange(m.change))
		}
	}
	if unranked > 0 {
		fmt.Fprintf(&sb, "\nCompanies without a prior-year figure: %d (not ranked).\n", unranked)
	}
	return sb.String()
}

func formatChange(change decimal.Decimal) string {
	rounded := change.Round(1)
	if rounded.IsPositive() {
		return "+" + rounded.String() + "%"
	}
	return rounded.String() + "%"
}
