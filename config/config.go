/*
Package config loads the engine configuration.

PURPOSE:
  One YAML file describes an installation: where the database and the
  CSV inbox live, how wide the analysis window is, which concept the
  correction engine consults, and which companies close their fiscal
  year in December.

PRECEDENCE:
  Explicit CLI flags override the DATABASE environment variable, which
  overrides the file, which overrides the built-in defaults. A .env
  file loaded at startup may populate the environment.

EXAMPLE:
  database: filings.db
  inbox: inbox
  reports_dir: reports
  window_years: 2
  premium_concept: written_premiums
  special_companies: ["0829", "0541", "0686"]
  currency: ARS
  http_addr: ":8077"
  tracing: false
*/
package config

import (
	"fmt"
	"os"

	"github.com/Rhymond/go-money"
	"gopkg.in/yaml.v3"

	"github.com/insmag/filings-engine/correction"
	"github.com/insmag/filings-engine/ledger"
)

// Config is the engine configuration. Zero values are filled from
// Default before a file is applied, so partial files are valid.
type Config struct {
	Database         string   `yaml:"database"`
	Inbox            string   `yaml:"inbox"`
	ReportsDir       string   `yaml:"reports_dir"`
	WindowYears      int      `yaml:"window_years"`
	PremiumConcept   string   `yaml:"premium_concept"`
	SpecialCompanies []string `yaml:"special_companies"`
	Currency         string   `yaml:"currency"`
	HTTPAddr         string   `yaml:"http_addr"`
	Tracing          bool     `yaml:"tracing"`
}

// Default returns the configuration of a fresh installation.
func Default() *Config {
	special := correction.DefaultDecemberClose()
	codes := make([]string, len(special))
	for i, c := range special {
		codes[i] = string(c)
	}
	return &Config{
		Database:         "filings.db",
		Inbox:            "inbox",
		ReportsDir:       "reports",
		WindowYears:      2,
		PremiumConcept:   correction.DefaultConcept,
		SpecialCompanies: codes,
		Currency:         "ARS",
		HTTPAddr:         ":8077",
		Tracing:          false,
	}
}

// Load reads the configuration file at path over the defaults and
// applies the DATABASE environment override. An empty path skips the
// file and returns defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if db := os.Getenv("DATABASE"); db != "" {
		cfg.Database = db
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.WindowYears < 1 || c.WindowYears > 10 {
		return fmt.Errorf("window_years must be between 1 and 10, got %d", c.WindowYears)
	}
	if c.PremiumConcept == "" {
		return fmt.Errorf("premium_concept cannot be empty")
	}
	if money.GetCurrency(c.Currency) == nil {
		return fmt.Errorf("unknown currency code '%s'", c.Currency)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr cannot be empty")
	}
	return nil
}

// SpecialCompanyCodes returns the December-close set normalized to the
// filing code width.
func (c *Config) SpecialCompanyCodes() []ledger.CompanyCode {
	codes := make([]ledger.CompanyCode, len(c.SpecialCompanies))
	for i, raw := range c.SpecialCompanies {
		codes[i] = ledger.NormalizeCompanyCode(raw)
	}
	return codes
}
