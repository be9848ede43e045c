/*
Package report turns the output tables into files and text.

PURPOSE:
  Downstream collaborators consume the pipeline through flat CSV files
  and short markdown summaries, not through the database. This package
  owns both renderings: export.go writes the CSV files with fixed
  headers, render.go builds the markdown.

CSV LAYOUTS:
  company_concepts:  company,period,concept,amount
  subline_premiums:  company,sub_line,premiums_current,premiums_prior_year
  company_premiums:  company,premiums_current,premiums_prior_year
  verification:      company,sub_line,target,quarter,side,period,
                     coefficient,amount,filed,result,formula

  Amounts are currency minor units, unformatted.
*/
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/insmag/filings-engine/correction"
	"github.com/insmag/filings-engine/ledger"
)

// Exportable table names.
const (
	TableCompanyConcepts = "company_concepts"
	TableSubLinePremiums = "subline_premiums"
	TableCompanyPremiums = "company_premiums"
)

// ExportTables lists the table names Export accepts.
func ExportTables() []string {
	return []string{TableCompanyConcepts, TableSubLinePremiums, TableCompanyPremiums}
}

// Exporter writes output tables as CSV.
type Exporter struct {
	store ledger.Store
}

func NewExporter(store ledger.Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes one output table to w and returns the number of data
// rows written. Unknown names fail with ErrUnknownTable.
func (e *Exporter) Export(ctx context.Context, table string, w io.Writer) (int, error) {
	switch table {
	case TableCompanyConcepts:
		rows, err := e.store.CompanyConcepts(ctx)
		if err != nil {
			return 0, err
		}
		return writeCompanyConcepts(w, rows)
	case TableSubLinePremiums:
		rows, err := e.store.SubLinePremiums(ctx)
		if err != nil {
			return 0, err
		}
		return writeSubLinePremiums(w, rows)
	case TableCompanyPremiums:
		rows, err := e.store.CompanyPremiums(ctx)
		if err != nil {
			return 0, err
		}
		return writeCompanyPremiums(w, rows)
	default:
		return 0, fmt.Errorf("%w: %s", ledger.ErrUnknownTable, table)
	}
}

func writeCompanyConcepts(w io.Writer, rows []ledger.CompanyConcept) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"company", "period", "concept", "amount"}); err != nil {
		return 0, err
	}
	for _, r := range rows {
		record := []string{
			string(r.Company),
			r.Period.String(),
			r.Concept,
			strconv.FormatInt(r.Amount, 10),
		}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

func writeSubLinePremiums(w io.Writer, rows []ledger.SubLinePremium) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"company", "sub_line", "premiums_current", "premiums_prior_year"}); err != nil {
		return 0, err
	}
	for _, r := range rows {
		record := []string{
			string(r.Company),
			string(r.SubLine),
			strconv.FormatInt(r.Current, 10),
			strconv.FormatInt(r.PriorYear, 10),
		}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

func writeCompanyPremiums(w io.Writer, rows []ledger.CompanyPremium) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"company", "premiums_current", "premiums_prior_year"}); err != nil {
		return 0, err
	}
	for _, r := range rows {
		record := []string{
			string(r.Company),
			strconv.FormatInt(r.Current, 10),
			strconv.FormatInt(r.PriorYear, 10),
		}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

// WriteDiagnostics writes the verification diagnostics as CSV, one row
// per consulted operand, and returns the number of data rows.
func WriteDiagnostics(w io.Writer, diags []correction.Diagnostic) (int, error) {
	cw := csv.NewWriter(w)
	header := []string{
		"company", "sub_line", "target", "quarter", "side",
		"period", "coefficient", "amount", "filed", "result", "formula",
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	rows := 0
	for _, d := range diags {
		sides := []struct {
			name     string
			operands []correction.Operand
			result   int64
			formula  string
		}{
			{"current", d.CurrentOperands, d.Current, d.CurrentFormula},
			{"prior", d.PriorOperands, d.PriorYear, d.PriorFormula},
		}
		for _, side := range sides {
			for _, op := range side.operands {
				record := []string{
					string(d.Company),
					string(d.SubLine),
					d.Target.String(),
					strconv.Itoa(int(d.Target.Quarter())),
					side.name,
					op.Period.String(),
					strconv.Itoa(op.Coeff),
					strconv.FormatInt(op.Amount, 10),
					strconv.FormatBool(op.Found),
					strconv.FormatInt(side.result, 10),
					side.formula,
				}
				if err := cw.Write(record); err != nil {
					return rows, err
				}
				rows++
			}
		}
	}
	cw.Flush()
	return rows, cw.Error()
}
