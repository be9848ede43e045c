package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/insmag/filings-engine/ledger"
)

// windowCmd rebuilds the trailing analysis window.
type windowCmd struct {
	floor string
}

func (*windowCmd) Name() string     { return "window" }
func (*windowCmd) Synopsis() string { return "rebuild the trailing analysis window" }
func (*windowCmd) Usage() string {
	return `filings window [-floor <period>]

  Rebuilds the window table from the fact table. Without -floor the
  floor is derived from the current year and the configured number of
  window years.
`
}

func (c *windowCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.floor, "floor", "", "Keep periods at or above this YYYYQQ period.")
}

func (c *windowCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	var floor ledger.Period
	if c.floor != "" {
		floor, err = ledger.ParsePeriod(c.floor)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing floor: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	selector := a.selector()
	if floor.IsZero() {
		floor = selector.DefaultFloor()
	}
	rows, err := selector.Build(ctx, floor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rebuilding window: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Window rebuilt: %d rows at or above %s\n", rows, floor)
	return subcommands.ExitSuccess
}
