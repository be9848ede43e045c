/*
catalog.go - Account-to-concept mapping (static reference data)

PURPOSE:
  Defines how raw account codes roll up into named financial concepts.
  A concept is a signed sum: each of its definitions contributes the
  listed accounts with a +1 or -1 coefficient. Concepts are either
  whole-company (balance aggregates like net_worth) or sub-line grained
  (premium and claim figures per product category).

MAPPING SEMANTICS:
  - An account may feed several concepts.
  - An account with no catalog entry is silently excluded from every
    aggregation; that is accepted behavior, not an error.
  - A concept never mixes grains: all its definitions are company-level
    or all sub-line-level.

SEE ALSO:
  - factory/catalog.go: YAML parsing and the built-in standard catalog
  - store.go: catalog persistence
*/
package ledger

import (
	"fmt"
	"sort"
)

// =============================================================================
// CONCEPT DEFINITION
// =============================================================================

// ConceptDefinition maps a set of account codes into a named concept
// with one sign. A concept with both added and subtracted accounts has
// two definitions, one per sign.
type ConceptDefinition struct {
	Concept  string
	Sign     int
	SubLine  bool
	Accounts []AccountCode
}

// AccountConcept is one catalog hit for an account code.
type AccountConcept struct {
	Concept string
	Sign    int
	SubLine bool
}

// =============================================================================
// CATALOG - Validated, indexed mapping
// =============================================================================

// Catalog is the full validated set of concept definitions with a
// per-account lookup index. Build one with NewCatalog; the zero value
// is unusable.
type Catalog struct {
	defs      []ConceptDefinition
	byAccount map[AccountCode][]AccountConcept
	company   []string
	subLine   []string
}

// NewCatalog validates and indexes a definition set.
func NewCatalog(defs []ConceptDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, ErrNoCatalog
	}

	c := &Catalog{
		defs:      make([]ConceptDefinition, 0, len(defs)),
		byAccount: make(map[AccountCode][]AccountConcept),
	}

	grain := make(map[string]bool)
	seenGrain := make(map[string]bool)
	seenAccount := make(map[string]map[AccountCode]bool)

	for _, def := range defs {
		if def.Concept == "" {
			return nil, &CatalogError{Reason: "definition with empty concept name"}
		}
		if def.Sign != 1 && def.Sign != -1 {
			return nil, &CatalogError{Concept: def.Concept, Reason: fmt.Sprintf("sign must be +1 or -1, got %d", def.Sign)}
		}
		if len(def.Accounts) == 0 {
			return nil, &CatalogError{Concept: def.Concept, Reason: "no account codes"}
		}
		if seenGrain[def.Concept] && grain[def.Concept] != def.SubLine {
			return nil, &CatalogError{Concept: def.Concept, Reason: "mixes company-level and sub-line definitions"}
		}
		grain[def.Concept] = def.SubLine
		seenGrain[def.Concept] = true

		accounts := seenAccount[def.Concept]
		if accounts == nil {
			accounts = make(map[AccountCode]bool)
			seenAccount[def.Concept] = accounts
		}
		for _, account := range def.Accounts {
			if account == "" {
				return nil, &CatalogError{Concept: def.Concept, Reason: "empty account code"}
			}
			if accounts[account] {
				return nil, &CatalogError{Concept: def.Concept, Reason: fmt.Sprintf("account %q listed twice", account)}
			}
			accounts[account] = true
			c.byAccount[account] = append(c.byAccount[account], AccountConcept{
				Concept: def.Concept,
				Sign:    def.Sign,
				SubLine: def.SubLine,
			})
		}
		c.defs = append(c.defs, def)
	}

	for name, subLine := range grain {
		if subLine {
			c.subLine = append(c.subLine, name)
		} else {
			c.company = append(c.company, name)
		}
	}
	sort.Strings(c.company)
	sort.Strings(c.subLine)

	return c, nil
}

// Definitions returns the validated definitions in input order.
func (c *Catalog) Definitions() []ConceptDefinition {
	out := make([]ConceptDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Lookup returns every concept an account code feeds, or nil for an
// unmapped account.
func (c *Catalog) Lookup(account AccountCode) []AccountConcept {
	return c.byAccount[account]
}

// CompanyConcepts returns the sorted whole-company concept names.
func (c *Catalog) CompanyConcepts() []string {
	out := make([]string, len(c.company))
	copy(out, c.company)
	return out
}

// SubLineConcepts returns the sorted sub-line concept names.
func (c *Catalog) SubLineConcepts() []string {
	out := make([]string, len(c.subLine))
	copy(out, c.subLine)
	return out
}

// Has reports whether the catalog defines the named concept at any grain.
func (c *Catalog) Has(concept string) bool {
	for _, name := range c.company {
		if name == concept {
			return true
		}
	}
	for _, name := range c.subLine {
		if name == concept {
			return true
		}
	}
	return false
}
