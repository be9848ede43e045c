/*
Package cli implements the filings command line application.

PURPOSE:
  One subcommand per pipeline operation, so an analyst can drive the
  whole quarterly cycle from a terminal: load filings, rebuild the
  derived tables, run the correction, inspect the result, export CSVs,
  and serve the HTTP API.

COMMAND GROUPS:
  setup:       init
  ingestion:   load, watch, periods
  pipeline:    window, concepts, sublines, corrected, run
  reporting:   verify, export
  master data: companies
  server:      serve

GLOBAL FLAGS:
  -config  Path to the YAML config file (FILINGS_CONFIG when empty)
  -db      SQLite database path, overrides the config
  -debug   Verbose development logging

SEE ALSO:
  - cmd/filings/main.go: the binary entry point
  - config/config.go: the configuration this package loads
*/
package cli

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/insmag/filings-engine/concepts"
	"github.com/insmag/filings-engine/config"
	"github.com/insmag/filings-engine/correction"
	"github.com/insmag/filings-engine/ledger"
	"github.com/insmag/filings-engine/logging"
	"github.com/insmag/filings-engine/pipeline"
	"github.com/insmag/filings-engine/store/sqlite"
	"github.com/insmag/filings-engine/trace"
)

// Register registers every subcommand on the commander.
func Register(c *subcommands.Commander) {
	c.Register(&initCmd{}, "setup")

	c.Register(&loadCmd{}, "ingestion")
	c.Register(&watchCmd{}, "ingestion")
	c.Register(&periodsCmd{}, "ingestion")

	c.Register(&windowCmd{}, "pipeline")
	c.Register(&conceptsCmd{}, "pipeline")
	c.Register(&subLinesCmd{}, "pipeline")
	c.Register(&correctedCmd{}, "pipeline")
	c.Register(&runCmd{}, "pipeline")

	c.Register(&verifyCmd{}, "reporting")
	c.Register(&exportCmd{}, "reporting")

	c.Register(&companiesCmd{}, "master data")

	c.Register(&serveCmd{}, "server")
}

// The CLI lifecycle is short lived, so globals are fine here.
var (
	configPath = flag.String("config", "", "Path to the YAML config file (FILINGS_CONFIG when empty)")
	dbPath     = flag.String("db", "", "SQLite database path, overrides the config")
	debug      = flag.Bool("debug", false, "Verbose development logging")
)

// app bundles what every subcommand needs: configuration, a logger,
// and the opened store.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *sqlite.Store
}

// openApp loads the configuration, opens the store, and initializes
// logging and tracing. Callers must close the returned app.
func openApp() (*app, error) {
	path := *configPath
	if path == "" {
		path = os.Getenv("FILINGS_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}

	log, err := logging.New(*debug)
	if err != nil {
		return nil, err
	}

	if err := trace.Init(cfg.Tracing); err != nil {
		return nil, err
	}

	store, err := sqlite.New(cfg.Database)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, store: store}, nil
}

func (a *app) close() {
	a.store.Close()
	trace.Shutdown(context.Background())
	a.log.Sync()
}

// ---- Component wiring ----

func (a *app) selector() *pipeline.Selector {
	return pipeline.NewSelector(a.store, ledger.SystemClock{}, a.cfg.WindowYears, a.log)
}

func (a *app) aggregator() *concepts.Aggregator {
	return concepts.NewAggregator(a.store, a.log)
}

func (a *app) engine() *correction.Engine {
	classifier := correction.NewClassifier(a.cfg.SpecialCompanyCodes())
	return correction.NewEngine(a.store, classifier, a.cfg.PremiumConcept, a.log)
}

func (a *app) runner() *pipeline.Runner {
	return pipeline.NewRunner(a.store, a.selector(), a.aggregator(), a.engine(), ledger.SystemClock{}, a.log)
}
