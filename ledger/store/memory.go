// Package store provides the in-memory ledger.Store implementation
// used by stage tests and local experiments.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/insmag/filings-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	facts           map[ledger.Period][]ledger.Entry
	window          []ledger.Entry
	catalog         []ledger.ConceptDefinition
	companyConcepts []ledger.CompanyConcept
	subLineConcepts []ledger.SubLineConcept
	subLinePremiums []ledger.SubLinePremium
	companyPremiums []ledger.CompanyPremium
	companies       map[ledger.CompanyCode]ledger.Company
	runs            []ledger.Run
}

func NewMemory() *Memory {
	return &Memory{
		facts:     make(map[ledger.Period][]ledger.Entry),
		companies: make(map[ledger.CompanyCode]ledger.Company),
	}
}

var _ ledger.Store = (*Memory)(nil)

// =============================================================================
// FACT TABLE
// =============================================================================

func (m *Memory) LoadPeriod(_ context.Context, p ledger.Period, entries []ledger.Entry) error {
	if err := p.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.facts[p]; ok {
		return ledger.ErrPeriodLoaded
	}
	m.facts[p] = append([]ledger.Entry(nil), entries...)
	return nil
}

func (m *Memory) RemovePeriod(_ context.Context, p ledger.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.facts, p)
	return nil
}

func (m *Memory) HasPeriod(_ context.Context, p ledger.Period) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.facts[p]
	return ok, nil
}

func (m *Memory) ListPeriods(_ context.Context) ([]ledger.PeriodInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]ledger.PeriodInfo, 0, len(m.facts))
	for p, entries := range m.facts {
		companies := make(map[ledger.CompanyCode]bool)
		for _, e := range entries {
			companies[e.Company] = true
		}
		infos = append(infos, ledger.PeriodInfo{Period: p, Companies: len(companies), Entries: len(entries)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Period < infos[j].Period })
	return infos, nil
}

func (m *Memory) EntriesSince(_ context.Context, floor ledger.Period) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	periods := make([]ledger.Period, 0, len(m.facts))
	for p := range m.facts {
		if p >= floor {
			periods = append(periods, p)
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i] < periods[j] })

	var out []ledger.Entry
	for _, p := range periods {
		out = append(out, m.facts[p]...)
	}
	return out, nil
}

// =============================================================================
// WINDOW
// =============================================================================

func (m *Memory) ReplaceWindow(_ context.Context, entries []ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.window = append([]ledger.Entry(nil), entries...)
	return nil
}

func (m *Memory) WindowEntries(_ context.Context) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]ledger.Entry(nil), m.window...), nil
}

// =============================================================================
// CATALOG
// =============================================================================

func (m *Memory) ReplaceCatalog(_ context.Context, defs []ledger.ConceptDefinition) error {
	if _, err := ledger.NewCatalog(defs); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.catalog = append([]ledger.ConceptDefinition(nil), defs...)
	return nil
}

func (m *Memory) Catalog(_ context.Context) (*ledger.Catalog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.catalog) == 0 {
		return nil, ledger.ErrNoCatalog
	}
	return ledger.NewCatalog(m.catalog)
}

// =============================================================================
// DERIVED AGGREGATES
// =============================================================================

func (m *Memory) ReplaceCompanyConcepts(_ context.Context, rows []ledger.CompanyConcept) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.companyConcepts = append([]ledger.CompanyConcept(nil), rows...)
	return nil
}

func (m *Memory) CompanyConcepts(_ context.Context) ([]ledger.CompanyConcept, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]ledger.CompanyConcept(nil), m.companyConcepts...), nil
}

func (m *Memory) ReplaceSubLineConcepts(_ context.Context, rows []ledger.SubLineConcept) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subLineConcepts = append([]ledger.SubLineConcept(nil), rows...)
	return nil
}

func (m *Memory) SubLineConcepts(_ context.Context) ([]ledger.SubLineConcept, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]ledger.SubLineConcept(nil), m.subLineConcepts...), nil
}

func (m *Memory) SubLineAmounts(_ context.Context, concept string, periods []ledger.Period) ([]ledger.SubLineConcept, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := periodSet(periods)
	var out []ledger.SubLineConcept
	for _, row := range m.subLineConcepts {
		if row.Concept == concept && wanted[row.Period] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *Memory) CompanyAmounts(_ context.Context, concept string, periods []ledger.Period) ([]ledger.CompanyAmount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := periodSet(periods)
	type key struct {
		company ledger.CompanyCode
		period  ledger.Period
	}
	sums := make(map[key]int64)
	for _, row := range m.subLineConcepts {
		if row.Concept != concept || !wanted[row.Period] {
			continue
		}
		sums[key{row.Company, row.Period}] += row.Amount
	}

	out := make([]ledger.CompanyAmount, 0, len(sums))
	for k, amount := range sums {
		out = append(out, ledger.CompanyAmount{Company: k.company, Period: k.period, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Company != out[j].Company {
			return out[i].Company < out[j].Company
		}
		return out[i].Period < out[j].Period
	})
	return out, nil
}

func periodSet(periods []ledger.Period) map[ledger.Period]bool {
	set := make(map[ledger.Period]bool, len(periods))
	for _, p := range periods {
		set[p] = true
	}
	return set
}

// =============================================================================
// CORRECTED PREMIUM OUTPUTS
// =============================================================================

func (m *Memory) ReplaceSubLinePremiums(_ context.Context, rows []ledger.SubLinePremium) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subLinePremiums = append([]ledger.SubLinePremium(nil), rows...)
	return nil
}

func (m *Memory) SubLinePremiums(_ context.Context) ([]ledger.SubLinePremium, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]ledger.SubLinePremium(nil), m.subLinePremiums...), nil
}

func (m *Memory) ReplaceCompanyPremiums(_ context.Context, rows []ledger.CompanyPremium) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.companyPremiums = append([]ledger.CompanyPremium(nil), rows...)
	return nil
}

func (m *Memory) CompanyPremiums(_ context.Context) ([]ledger.CompanyPremium, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]ledger.CompanyPremium(nil), m.companyPremiums...), nil
}

// =============================================================================
// COMPANY MASTER DATA
// =============================================================================

func (m *Memory) SaveCompany(_ context.Context, c ledger.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !c.Kind.Valid() {
		return ledger.ErrBadCompanyKind
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	m.companies[c.Code] = c
	return nil
}

func (m *Memory) GetCompany(_ context.Context, code ledger.CompanyCode) (*ledger.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.companies[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListCompanies(_ context.Context) ([]ledger.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Memory) DeleteCompany(_ context.Context, code ledger.CompanyCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.companies, code)
	return nil
}

// =============================================================================
// RUN LOG
// =============================================================================

func (m *Memory) RecordRun(_ context.Context, r ledger.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, r)
	return nil
}

func (m *Memory) ListRuns(_ context.Context, limit int) ([]ledger.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = ledger.DefaultRunPage
	}

	out := append([]ledger.Run(nil), m.runs...)
	// Newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
