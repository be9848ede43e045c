package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/insmag/filings-engine/ledger"
	"github.com/insmag/filings-engine/report"
)

// runCmd executes the full stage sequence for one target period.
type runCmd struct {
	period string
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run the full pipeline for a target period" }
func (*runCmd) Usage() string {
	return `filings run -period <YYYYQQ>

  Runs window, concepts, sublines, corrected, and the company rollup
  in order. Every stage is audited; the first failure aborts the
  sequence. Prints the top premium movers when the run succeeds.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "period", "", "Target period, YYYYQQ.")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	if err := a.runner().Run(ctx, target); err != nil {
		fmt.Fprintf(os.Stderr, "Error: pipeline failed: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Pipeline complete for %s\n", target.Label())

	premiums, err := a.store.CompanyPremiums(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading company premiums: %v\n", err)
		return subcommands.ExitFailure
	}
	md := report.NewRenderer(a.cfg.Currency).SummaryMarkdown(target, premiums, report.DefaultMovers)
	printMarkdown(md)
	return subcommands.ExitSuccess
}
