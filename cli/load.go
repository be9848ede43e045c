package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/insmag/filings-engine/loader"
)

// loadCmd loads filing files into the fact table.
type loadCmd struct {
	replace bool
}

func (*loadCmd) Name() string     { return "load" }
func (*loadCmd) Synopsis() string { return "load filing files into the fact table" }
func (*loadCmd) Usage() string {
	return `filings load [-replace] [file ...]

  Loads the given filing files. Without arguments, loads every *.csv
  in the configured inbox. Already loaded periods are skipped unless
  -replace is set, in which case they are removed and reloaded.
`
}

func (c *loadCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.replace, "replace", false, "Remove and reload periods that are already present.")
}

func (c *loadCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	l := loader.New(a.store, a.log)
	opts := loader.Options{Replace: c.replace}

	var results []loader.Result
	var loadErr error
	if f.NArg() == 0 {
		results, loadErr = l.LoadDir(ctx, a.cfg.Inbox, opts)
	} else {
		for _, path := range f.Args() {
			result, err := l.LoadFile(ctx, path, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", path, err)
				loadErr = err
				continue
			}
			results = append(results, result)
		}
	}

	for _, r := range results {
		name := filepath.Base(r.Path)
		switch {
		case r.Skipped:
			fmt.Printf("Skipped %s: period %s already loaded\n", name, r.Period)
		case r.Replaced:
			fmt.Printf("Reloaded %s: %d entries from %d companies\n", r.Period, r.Entries, r.Companies)
		default:
			fmt.Printf("Loaded %s: %d entries from %d companies\n", r.Period, r.Entries, r.Companies)
		}
	}

	if loadErr != nil {
		fmt.Fprintf(os.Stderr, "Error: some filings were rejected: %v\n", loadErr)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
