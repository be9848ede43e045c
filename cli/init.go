package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/insmag/filings-engine/factory"
	"github.com/insmag/filings-engine/ledger"
)

// initCmd creates the database, the working directories, and seeds the
// concept catalog.
type initCmd struct {
	catalogFile string
	force       bool
}

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create the database and seed the concept catalog" }
func (*initCmd) Usage() string {
	return `filings init [-catalog <file>] [-force]

  Creates the SQLite database, the inbox and reports directories, and
  seeds the concept catalog. Without -catalog the built-in standard
  catalog is used. An existing catalog is kept unless -force is set.
`
}

func (c *initCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.catalogFile, "catalog", "", "YAML catalog file. Uses the built-in catalog when empty.")
	f.BoolVar(&c.force, "force", false, "Replace an existing catalog.")
}

func (c *initCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	for _, dir := range []string{a.cfg.Inbox, a.cfg.ReportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", dir, err)
			return subcommands.ExitFailure
		}
	}

	if !c.force {
		if _, err := a.store.Catalog(ctx); err == nil {
			fmt.Println("Catalog already seeded, keeping it. Use -force to replace.")
			return subcommands.ExitSuccess
		}
	}

	defs, err := c.definitions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading catalog: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.store.ReplaceCatalog(ctx, defs); err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding catalog: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Initialized %s with %d concept definitions\n", a.cfg.Database, len(defs))
	return subcommands.ExitSuccess
}

func (c *initCmd) definitions() ([]ledger.ConceptDefinition, error) {
	fc := factory.NewCatalogFactory()
	if c.catalogFile == "" {
		return fc.Default(), nil
	}
	doc, err := os.ReadFile(c.catalogFile)
	if err != nil {
		return nil, err
	}
	return fc.ParseCatalog(doc)
}
