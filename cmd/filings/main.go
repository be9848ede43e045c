/*
main.go - Application entry point

PURPOSE:
  The filings binary. Registers the subcommands and dispatches. All
  real work lives in the cli package; this file only assembles it.

STARTUP SEQUENCE:
  1. Load .env if one exists (DATABASE, FILINGS_CONFIG)
  2. Register subcommands
  3. Parse global flags
  4. Execute the selected subcommand

EXAMPLES:
  # First-time setup with the built-in catalog
  filings init

  # Load a quarter and run the pipeline
  filings load inbox/202501.csv
  filings run -period 202501

  # Inspect the December-close recombination
  filings verify -period 202501

  # Serve the REST API
  filings serve -addr :8077

SEE ALSO:
  - cli/app.go: subcommand registration and shared wiring
*/
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"github.com/insmag/filings-engine/cli"
)

func main() {
	// A missing .env is fine; the config has defaults for everything.
	godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	cli.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
