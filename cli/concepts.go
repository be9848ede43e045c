package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// conceptsCmd rebuilds the company concept aggregation.
type conceptsCmd struct{}

func (*conceptsCmd) Name() string     { return "concepts" }
func (*conceptsCmd) Synopsis() string { return "rebuild company concept figures from the window" }
func (*conceptsCmd) Usage() string {
	return `filings concepts

  Applies the concept catalog to the window and rebuilds the
  company-grain concept table at the latest period.
`
}

func (*conceptsCmd) SetFlags(*flag.FlagSet) {}

func (c *conceptsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	rows, err := a.aggregator().BuildCompanyConcepts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rebuilding company concepts: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Company concepts rebuilt: %d rows\n", rows)
	return subcommands.ExitSuccess
}
