/*
storetest.go - Store conformance suite shared by both implementations

PURPOSE:
  Runs one behavioral suite against any ledger.Store so the in-memory
  store used in tests and the production SQLite store cannot drift
  apart on the operations the pipeline stages depend on. Each subtest
  opens a fresh store through the supplied factory.

USAGE:
  func TestMemory_Conformance(t *testing.T) {
      storetest.Run(t, func(t *testing.T) ledger.Store { return store.NewMemory() })
  }

SEE ALSO:
  - ledger/store.go: the contract under test
  - ledger/store/memory.go, store/sqlite/sqlite.go: the implementations
*/
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insmag/filings-engine/ledger"
)

// Factory opens a fresh, empty store. Cleanup belongs to the factory
// (register it with t.Cleanup).
type Factory func(t *testing.T) ledger.Store

// Run executes the conformance suite against the factory's stores.
func Run(t *testing.T, open Factory) {
	t.Run("FactTable", func(t *testing.T) { testFactTable(t, open(t)) })
	t.Run("EntriesSinceFloor", func(t *testing.T) { testEntriesSinceFloor(t, open(t)) })
	t.Run("ListPeriods", func(t *testing.T) { testListPeriods(t, open(t)) })
	t.Run("WindowReplace", func(t *testing.T) { testWindowReplace(t, open(t)) })
	t.Run("Catalog", func(t *testing.T) { testCatalog(t, open(t)) })
	t.Run("OperandFeeds", func(t *testing.T) { testOperandFeeds(t, open(t)) })
	t.Run("CompanyConcepts", func(t *testing.T) { testCompanyConcepts(t, open(t)) })
	t.Run("PremiumOutputs", func(t *testing.T) { testPremiumOutputs(t, open(t)) })
	t.Run("CompanyMasterData", func(t *testing.T) { testCompanyMasterData(t, open(t)) })
	t.Run("RunLog", func(t *testing.T) { testRunLog(t, open(t)) })
}

func entry(company string, p ledger.Period, subLine, account string, amount int64) ledger.Entry {
	return ledger.Entry{
		Company: ledger.CompanyCode(company),
		Period:  p,
		SubLine: ledger.SubLineCode(subLine),
		Account: ledger.AccountCode(account),
		Amount:  amount,
	}
}

func testFactTable(t *testing.T, s ledger.Store) {
	// GIVEN: Period 202501 loaded once
	// WHEN: Loading it again, removing it, reloading it
	// THEN: Duplicate rejected, removal allows the reload

	ctx := context.Background()

	require.NoError(t, s.LoadPeriod(ctx, 202501, []ledger.Entry{entry("0001", 202501, "101", "1.01.01", 1000)}))

	has, err := s.HasPeriod(ctx, 202501)
	require.NoError(t, err)
	assert.True(t, has)

	err = s.LoadPeriod(ctx, 202501, []ledger.Entry{entry("0002", 202501, "101", "1.01.01", 2000)})
	assert.ErrorIs(t, err, ledger.ErrPeriodLoaded)

	err = s.LoadPeriod(ctx, 202505, []ledger.Entry{entry("0001", 202505, "101", "1.01.01", 1)})
	assert.ErrorIs(t, err, ledger.ErrBadPeriod)

	require.NoError(t, s.RemovePeriod(ctx, 202501))
	require.NoError(t, s.RemovePeriod(ctx, 202501))
	require.NoError(t, s.LoadPeriod(ctx, 202501, []ledger.Entry{entry("0001", 202501, "101", "1.01.01", 1500)}))

	entries, err := s.EntriesSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1500), entries[0].Amount)
}

func testEntriesSinceFloor(t *testing.T, s ledger.Store) {
	// GIVEN: Periods 202304, 202401, 202501
	// WHEN: Reading entries since 202401
	// THEN: 202304 excluded, zero floor returns everything

	ctx := context.Background()

	for _, p := range []ledger.Period{202304, 202401, 202501} {
		require.NoError(t, s.LoadPeriod(ctx, p, []ledger.Entry{entry("0001", p, "101", "1.01.01", 1)}))
	}

	since, err := s.EntriesSince(ctx, 202401)
	require.NoError(t, err)
	require.Len(t, since, 2)
	for _, e := range since {
		assert.GreaterOrEqual(t, e.Period, ledger.Period(202401))
	}

	all, err := s.EntriesSince(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testListPeriods(t *testing.T, s ledger.Store) {
	// GIVEN: Two loaded periods with different company counts
	// WHEN: Listing periods
	// THEN: Ascending summaries with distinct company counts

	ctx := context.Background()

	require.NoError(t, s.LoadPeriod(ctx, 202502, []ledger.Entry{
		entry("0001", 202502, "101", "1.01.01", 1),
	}))
	require.NoError(t, s.LoadPeriod(ctx, 202501, []ledger.Entry{
		entry("0001", 202501, "101", "1.01.01", 1),
		entry("0001", 202501, "102", "1.01.01", 2),
		entry("0002", 202501, "101", "1.01.01", 3),
	}))

	infos, err := s.ListPeriods(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, ledger.Period(202501), infos[0].Period)
	assert.Equal(t, 2, infos[0].Companies)
	assert.Equal(t, 3, infos[0].Entries)
	assert.Equal(t, ledger.Period(202502), infos[1].Period)
	assert.Equal(t, 1, infos[1].Companies)
}

func testWindowReplace(t *testing.T, s ledger.Store) {
	// GIVEN: A window built from one period
	// WHEN: Replacing it with another period's rows
	// THEN: Only the new rows remain

	ctx := context.Background()

	require.NoError(t, s.ReplaceWindow(ctx, []ledger.Entry{entry("0001", 202501, "101", "1.01.01", 1)}))
	require.NoError(t, s.ReplaceWindow(ctx, []ledger.Entry{entry("0001", 202502, "101", "1.01.01", 2)}))

	entries, err := s.WindowEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.Period(202502), entries[0].Period)
}

func testCatalog(t *testing.T, s ledger.Store) {
	// GIVEN: An unseeded store
	// WHEN: Reading, then replacing, then reading again
	// THEN: ErrNoCatalog first, both grains after the replace

	ctx := context.Background()

	_, err := s.Catalog(ctx)
	assert.ErrorIs(t, err, ledger.ErrNoCatalog)

	require.NoError(t, s.ReplaceCatalog(ctx, []ledger.ConceptDefinition{
		{Concept: "written_premiums", Sign: 1, SubLine: true, Accounts: []ledger.AccountCode{"1.01.01"}},
		{Concept: "net_worth", Sign: 1, SubLine: false, Accounts: []ledger.AccountCode{"6.01.01"}},
	}))

	cat, err := s.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"written_premiums"}, cat.SubLineConcepts())
	assert.Equal(t, []string{"net_worth"}, cat.CompanyConcepts())

	err = s.ReplaceCatalog(ctx, []ledger.ConceptDefinition{
		{Concept: "written_premiums", Sign: 3, SubLine: true, Accounts: []ledger.AccountCode{"1.01.01"}},
	})
	assert.ErrorIs(t, err, ledger.ErrBadCatalog)
}

func testOperandFeeds(t *testing.T, s ledger.Store) {
	// GIVEN: A sub-line base with two concepts over three periods
	// WHEN: Reading operands per concept and period set
	// THEN: Filtered sub-line rows; company rollup sums sub-lines

	ctx := context.Background()

	require.NoError(t, s.ReplaceSubLineConcepts(ctx, []ledger.SubLineConcept{
		{Company: "0002", Period: 202501, SubLine: "101", Concept: "written_premiums", Amount: 300},
		{Company: "0001", Period: 202501, SubLine: "101", Concept: "written_premiums", Amount: 1000},
		{Company: "0001", Period: 202501, SubLine: "102", Concept: "written_premiums", Amount: 500},
		{Company: "0001", Period: 202401, SubLine: "101", Concept: "written_premiums", Amount: 900},
		{Company: "0001", Period: 202301, SubLine: "101", Concept: "written_premiums", Amount: 800},
		{Company: "0001", Period: 202501, SubLine: "101", Concept: "incurred_claims", Amount: -50},
	}))

	rows, err := s.SubLineAmounts(ctx, "written_premiums", []ledger.Period{202501, 202401})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.Equal(t, "written_premiums", r.Concept)
		assert.Contains(t, []ledger.Period{202501, 202401}, r.Period)
	}

	none, err := s.SubLineAmounts(ctx, "written_premiums", nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	sums, err := s.CompanyAmounts(ctx, "written_premiums", []ledger.Period{202501})
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, ledger.CompanyCode("0001"), sums[0].Company)
	assert.Equal(t, int64(1500), sums[0].Amount)
	assert.Equal(t, ledger.CompanyCode("0002"), sums[1].Company)
	assert.Equal(t, int64(300), sums[1].Amount)
}

func testCompanyConcepts(t *testing.T, s ledger.Store) {
	// GIVEN: A company concept table
	// WHEN: Replacing it twice
	// THEN: Only the second contents remain

	ctx := context.Background()

	require.NoError(t, s.ReplaceCompanyConcepts(ctx, []ledger.CompanyConcept{
		{Company: "0001", Period: 202501, Concept: "net_worth", Amount: 10},
	}))
	require.NoError(t, s.ReplaceCompanyConcepts(ctx, []ledger.CompanyConcept{
		{Company: "0001", Period: 202502, Concept: "net_worth", Amount: 20},
		{Company: "0002", Period: 202502, Concept: "net_worth", Amount: 30},
	}))

	rows, err := s.CompanyConcepts(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, ledger.Period(202502), r.Period)
	}
}

func testPremiumOutputs(t *testing.T, s ledger.Store) {
	// GIVEN: Corrected premium outputs
	// WHEN: Replacing with the same rows twice
	// THEN: Contents identical after each run

	ctx := context.Background()

	subLine := []ledger.SubLinePremium{
		{Company: "0001", SubLine: "101", Current: 2250, PriorYear: 2000},
	}
	require.NoError(t, s.ReplaceSubLinePremiums(ctx, subLine))
	require.NoError(t, s.ReplaceSubLinePremiums(ctx, subLine))

	gotSub, err := s.SubLinePremiums(ctx)
	require.NoError(t, err)
	assert.Equal(t, subLine, gotSub)

	company := []ledger.CompanyPremium{
		{Company: "0001", Current: 2250, PriorYear: 2000},
	}
	require.NoError(t, s.ReplaceCompanyPremiums(ctx, company))

	gotCompany, err := s.CompanyPremiums(ctx)
	require.NoError(t, err)
	assert.Equal(t, company, gotCompany)
}

func testCompanyMasterData(t *testing.T, s ledger.Store) {
	// GIVEN: A saved company
	// WHEN: Getting, updating, listing and deleting it
	// THEN: Get returns nil for missing, update overwrites, delete removes

	ctx := context.Background()

	missing, err := s.GetCompany(ctx, "0001")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.SaveCompany(ctx, ledger.Company{Code: "0001", ShortName: "ACME", Kind: ledger.KindGeneral}))
	require.NoError(t, s.SaveCompany(ctx, ledger.Company{Code: "0001", ShortName: "ACME RE", Kind: ledger.KindGeneral}))

	err = s.SaveCompany(ctx, ledger.Company{Code: "0002", Kind: "banking"})
	assert.ErrorIs(t, err, ledger.ErrBadCompanyKind)

	got, err := s.GetCompany(ctx, "0001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ACME RE", got.ShortName)
	assert.False(t, got.UpdatedAt.IsZero())

	list, err := s.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteCompany(ctx, "0001"))
	gone, err := s.GetCompany(ctx, "0001")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func testRunLog(t *testing.T, s ledger.Store) {
	// GIVEN: Three recorded runs
	// WHEN: Listing with limit 2
	// THEN: The two most recent, newest first

	ctx := context.Background()

	base := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	for i, stage := range []string{"window", "concepts", "corrected"} {
		require.NoError(t, s.RecordRun(ctx, ledger.Run{
			ID:         stage,
			Stage:      stage,
			Period:     202501,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Status:     ledger.RunOK,
		}))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "corrected", runs[0].Stage)
	assert.Equal(t, "concepts", runs[1].Stage)

	// Zero limit selects the default page, which holds all three here.
	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
