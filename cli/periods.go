package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
)

// periodsCmd lists the loaded periods.
type periodsCmd struct{}

func (*periodsCmd) Name() string     { return "periods" }
func (*periodsCmd) Synopsis() string { return "list the loaded filing periods" }
func (*periodsCmd) Usage() string {
	return `filings periods

  Lists every loaded period with its company and entry counts.
`
}

func (*periodsCmd) SetFlags(*flag.FlagSet) {}

func (c *periodsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	periods, err := a.store.ListPeriods(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing periods: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(periods) == 0 {
		fmt.Println("No periods loaded.")
		return subcommands.ExitSuccess
	}

	var sb strings.Builder
	sb.WriteString("# Loaded periods\n\n")
	sb.WriteString("| Period | Quarter | Companies | Entries |\n")
	sb.WriteString("|---|---|---:|---:|\n")
	for _, p := range periods {
		fmt.Fprintf(&sb, "| %s | %s | %d | %d |\n", p.Period, p.Period.Label(), p.Companies, p.Entries)
	}
	printMarkdown(sb.String())
	return subcommands.ExitSuccess
}
