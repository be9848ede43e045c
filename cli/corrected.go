package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/insmag/filings-engine/ledger"
)

// correctedCmd rebuilds the corrected premium tables for one period.
type correctedCmd struct {
	period    string
	companies bool
}

func (*correctedCmd) Name() string     { return "corrected" }
func (*correctedCmd) Synopsis() string { return "rebuild fiscal-year corrected premiums" }
func (*correctedCmd) Usage() string {
	return `filings corrected -period <YYYYQQ> [-companies]

  Applies the fiscal-year correction to the sub-line base for the
  target period. With -companies the whole-company rollup is rebuilt
  as well.
`
}

func (c *correctedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "period", "", "Target period, YYYYQQ.")
	f.BoolVar(&c.companies, "companies", false, "Also rebuild the company-grain rollup.")
}

func (c *correctedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.period == "" {
		fmt.Fprintln(os.Stderr, "Error: -period is required")
		return subcommands.ExitUsageError
	}
	target, err := ledger.ParsePeriod(c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing period: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	engine := a.engine()
	rows, err := engine.Run(ctx, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error correcting premiums: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Corrected premiums rebuilt for %s: %d rows\n", target.Label(), rows)

	if c.companies {
		rows, err := engine.RunCompanies(ctx, target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rolling up companies: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("Company rollup rebuilt for %s: %d rows\n", target.Label(), rows)
	}
	return subcommands.ExitSuccess
}
