package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"github.com/insmag/filings-engine/report"
)

// exportCmd writes one output table as CSV.
type exportCmd struct {
	table string
	out   string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export an output table as CSV" }
func (*exportCmd) Usage() string {
	return fmt.Sprintf(`filings export -table <name> [-out <file>]

  Writes one output table as CSV. Tables: %s.
  Without -out the file goes to the configured reports directory as
  <table>.csv.
`, strings.Join(report.ExportTables(), ", "))
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.table, "table", "", "Output table to export.")
	f.StringVar(&c.out, "out", "", "Destination file. Defaults to <reports_dir>/<table>.csv.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.table == "" {
		fmt.Fprintln(os.Stderr, "Error: -table is required")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	path := c.out
	if path == "" {
		if err := os.MkdirAll(a.cfg.ReportsDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", a.cfg.ReportsDir, err)
			return subcommands.ExitFailure
		}
		path = filepath.Join(a.cfg.ReportsDir, c.table+".csv")
	}

	out, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", path, err)
		return subcommands.ExitFailure
	}
	defer out.Close()

	rows, err := report.NewExporter(a.store).Export(ctx, c.table, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting %s: %v\n", c.table, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Exported %d rows to %s\n", rows, path)
	return subcommands.ExitSuccess
}
