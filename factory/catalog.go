/*
Package factory provides YAML to Go concept catalog conversion.

PURPOSE:
  Converts YAML catalog documents into ledger.ConceptDefinition sets.
  This enables catalog changes without code changes: the supervision
  analysts maintain the account groupings in a YAML file, and the
  factory produces the validated definitions the store persists.

YAML SCHEMA:
  concepts:
    - name: earned_premiums
      grain: sub_line          # sub_line or company
      add: ["1.01.01.01", "1.01.01.02"]
      subtract: ["1.03.01.01"]

  Each concept contributes its "add" accounts with +1 and its
  "subtract" accounts with -1. Grain decides whether the concept is
  aggregated per sub-line or for the whole company.

KEY FEATURES:
  - Validates the document structure and grain names
  - Runs the full ledger.NewCatalog validation before returning
  - Ships a built-in standard catalog for first-time setup

USAGE:
  factory := NewCatalogFactory()

  // From a YAML document
  defs, err := factory.ParseCatalog(yamlBytes)

  // Built-in standard catalog (recommended for init)
  defs := factory.Default()

  // Seed the store
  store.ReplaceCatalog(ctx, defs)

SEE ALSO:
  - ledger/catalog.go: ConceptDefinition and catalog validation
  - cli/init.go: seeding the reference table at setup time
*/
package factory

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/insmag/filings-engine/ledger"
)

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// CatalogDocument is the YAML representation of a concept catalog.
type CatalogDocument struct {
	Concepts []ConceptYAML `yaml:"concepts"`
}

// ConceptYAML is one concept entry in the document.
type ConceptYAML struct {
	Name     string   `yaml:"name"`
	Grain    string   `yaml:"grain"`
	Add      []string `yaml:"add"`
	Subtract []string `yaml:"subtract,omitempty"`
}

// Grain names accepted in catalog documents.
const (
	GrainCompany = "company"
	GrainSubLine = "sub_line"
)

// =============================================================================
// CATALOG FACTORY
// =============================================================================

// CatalogFactory converts YAML catalogs to validated definitions.
type CatalogFactory struct{}

// NewCatalogFactory creates a new catalog factory.
func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// ParseCatalog parses a YAML document into concept definitions. The
// result has passed full catalog validation.
func (f *CatalogFactory) ParseCatalog(doc []byte) ([]ledger.ConceptDefinition, error) {
	var cd CatalogDocument
	if err := yaml.Unmarshal(doc, &cd); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return f.FromDocument(cd)
}

// FromDocument converts a CatalogDocument to concept definitions.
func (f *CatalogFactory) FromDocument(cd CatalogDocument) ([]ledger.ConceptDefinition, error) {
	var defs []ledger.ConceptDefinition

	for _, c := range cd.Concepts {
		subLine, err := parseGrain(c)
		if err != nil {
			return nil, err
		}
		if len(c.Add) == 0 && len(c.Subtract) == 0 {
			return nil, &ledger.CatalogError{Concept: c.Name, Reason: "no account codes"}
		}

		if len(c.Add) > 0 {
			defs = append(defs, ledger.ConceptDefinition{
				Concept:  c.Name,
				Sign:     1,
				SubLine:  subLine,
				Accounts: toAccountCodes(c.Add),
			})
		}
		if len(c.Subtract) > 0 {
			defs = append(defs, ledger.ConceptDefinition{
				Concept:  c.Name,
				Sign:     -1,
				SubLine:  subLine,
				Accounts: toAccountCodes(c.Subtract),
			})
		}
	}

	// Full structural validation before anything touches the store.
	if _, err := ledger.NewCatalog(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// ToDocument converts definitions back to the YAML document form, used
// when exporting the active catalog for editing.
func (f *CatalogFactory) ToDocument(defs []ledger.ConceptDefinition) CatalogDocument {
	byName := make(map[string]*ConceptYAML)
	var order []string

	for _, def := range defs {
		c, ok := byName[def.Concept]
		if !ok {
			grain := GrainCompany
			if def.SubLine {
				grain = GrainSubLine
			}
			c = &ConceptYAML{Name: def.Concept, Grain: grain}
			byName[def.Concept] = c
			order = append(order, def.Concept)
		}
		for _, account := range def.Accounts {
			if def.Sign < 0 {
				c.Subtract = append(c.Subtract, string(account))
			} else {
				c.Add = append(c.Add, string(account))
			}
		}
	}

	doc := CatalogDocument{Concepts: make([]ConceptYAML, 0, len(order))}
	for _, name := range order {
		doc.Concepts = append(doc.Concepts, *byName[name])
	}
	return doc
}

func parseGrain(c ConceptYAML) (bool, error) {
	switch c.Grain {
	case GrainSubLine:
		return true, nil
	case GrainCompany:
		return false, nil
	default:
		return false, &ledger.CatalogError{
			Concept: c.Name,
			Reason:  fmt.Sprintf("grain must be %q or %q, got %q", GrainCompany, GrainSubLine, c.Grain),
		}
	}
}

func toAccountCodes(accounts []string) []ledger.AccountCode {
	codes := make([]ledger.AccountCode, len(accounts))
	for i, a := range accounts {
		codes[i] = ledger.AccountCode(a)
	}
	return codes
}

// =============================================================================
// STANDARD CATALOG
// =============================================================================

// Default returns the built-in standard catalog: the account groupings
// of the supervisory chart of accounts as filed quarterly. Deployments
// with a customized chart load their own YAML instead.
func (f *CatalogFactory) Default() []ledger.ConceptDefinition {
	doc := CatalogDocument{Concepts: []ConceptYAML{
		// ---- Sub-line concepts (income statement per product category) ----
		{
			Name:  "written_premiums",
			Grain: GrainSubLine,
			Add:   []string{"1.01.01.01", "1.01.01.02"},
		},
		{
			Name:     "earned_premiums",
			Grain:    GrainSubLine,
			Add:      []string{"1.01.01.01", "1.01.01.02"},
			Subtract: []string{"1.03.01.01"},
		},
		{
			Name:  "ceded_premiums",
			Grain: GrainSubLine,
			Add:   []string{"1.02.01.01", "1.02.01.02"},
		},
		{
			Name:     "incurred_claims",
			Grain:    GrainSubLine,
			Add:      []string{"2.01.01.01", "2.01.02.01"},
			Subtract: []string{"2.02.01.01"},
		},
		{
			Name:  "incurred_expenses",
			Grain: GrainSubLine,
			Add:   []string{"3.01.01.01", "3.01.02.01", "3.02.01.01"},
		},
		{
			Name:  "acquisition_commissions",
			Grain: GrainSubLine,
			Add:   []string{"3.01.01.01", "3.01.01.02"},
		},
		{
			Name:  "acquisition_other",
			Grain: GrainSubLine,
			Add:   []string{"3.01.02.01"},
		},
		{
			Name:  "operating_salaries",
			Grain: GrainSubLine,
			Add:   []string{"3.02.01.01", "3.02.01.02"},
		},
		{
			Name:     "reinsurance_expenses",
			Grain:    GrainSubLine,
			Add:      []string{"3.03.01.01"},
			Subtract: []string{"3.03.02.01"},
		},

		// ---- Company concepts (balance sheet and results) ----
		{
			Name:     "technical_result",
			Grain:    GrainCompany,
			Add:      []string{"1.01.01.01", "1.01.01.02"},
			Subtract: []string{"1.02.01.01", "2.01.01.01", "2.01.02.01", "3.01.01.01", "3.01.02.01"},
		},
		{
			Name:     "financial_result",
			Grain:    GrainCompany,
			Add:      []string{"5.01.01.01", "5.01.02.01"},
			Subtract: []string{"5.02.01.01"},
		},
		{
			Name:     "operating_result",
			Grain:    GrainCompany,
			Add:      []string{"1.01.01.01", "1.01.01.02", "5.01.01.01", "5.01.02.01"},
			Subtract: []string{"1.02.01.01", "2.01.01.01", "2.01.02.01", "3.01.01.01", "3.01.02.01", "5.02.01.01"},
		},
		{
			Name:  "income_tax",
			Grain: GrainCompany,
			Add:   []string{"3.04.01.01"},
		},
		{
			Name:  "policyholder_liabilities",
			Grain: GrainCompany,
			Add:   []string{"6.01.01.01", "6.01.02.01", "6.01.03.01"},
		},
		{
			Name:  "reinsurance_liabilities",
			Grain: GrainCompany,
			Add:   []string{"6.02.01.01"},
		},
		{
			Name:  "liquid_funds",
			Grain: GrainCompany,
			Add:   []string{"7.01.01.01", "7.01.02.01"},
		},
		{
			Name:  "investments",
			Grain: GrainCompany,
			Add:   []string{"7.02.01.01", "7.02.02.01", "7.02.03.01"},
		},
		{
			Name:  "investment_property",
			Grain: GrainCompany,
			Add:   []string{"7.03.01.01"},
		},
		{
			Name:  "owner_occupied_property",
			Grain: GrainCompany,
			Add:   []string{"7.03.02.01"},
		},
		{
			Name:     "net_worth",
			Grain:    GrainCompany,
			Add:      []string{"8.01.01.01", "8.02.01.01", "8.03.01.01"},
			Subtract: []string{"8.04.01.01"},
		},
	}}

	defs, err := f.FromDocument(doc)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog invalid: %v", err))
	}
	return defs
}
