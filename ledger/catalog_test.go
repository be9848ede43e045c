package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insmag/filings-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func def(concept string, sign int, subLine bool, accounts ...string) ledger.ConceptDefinition {
	codes := make([]ledger.AccountCode, len(accounts))
	for i, a := range accounts {
		codes[i] = ledger.AccountCode(a)
	}
	return ledger.ConceptDefinition{Concept: concept, Sign: sign, SubLine: subLine, Accounts: codes}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestNewCatalog_Empty_Rejected(t *testing.T) {
	// GIVEN: No definitions at all
	// WHEN: Building a catalog
	// THEN: ErrNoCatalog

	_, err := ledger.NewCatalog(nil)
	assert.ErrorIs(t, err, ledger.ErrNoCatalog)
}

func TestNewCatalog_BadSign_Rejected(t *testing.T) {
	// GIVEN: A definition with sign 2
	// WHEN: Building a catalog
	// THEN: Rejected naming the concept

	_, err := ledger.NewCatalog([]ledger.ConceptDefinition{
		def("written_premiums", 2, true, "1.01.01"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrBadCatalog)

	var cerr *ledger.CatalogError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "written_premiums", cerr.Concept)
}

func TestNewCatalog_EmptyConceptName_Rejected(t *testing.T) {
	// GIVEN: A definition with no concept name
	// WHEN: Building a catalog
	// THEN: Rejected

	_, err := ledger.NewCatalog([]ledger.ConceptDefinition{
		def("", 1, true, "1.01.01"),
	})
	assert.ErrorIs(t, err, ledger.ErrBadCatalog)
}

func TestNewCatalog_NoAccounts_Rejected(t *testing.T) {
	// GIVEN: A definition listing no account codes
	// WHEN: Building a catalog
	// THEN: Rejected

	_, err := ledger.NewCatalog([]ledger.ConceptDefinition{
		def("written_premiums", 1, true),
	})
	assert.ErrorIs(t, err, ledger.ErrBadCatalog)
}

func TestNewCatalog_MixedGrain_Rejected(t *testing.T) {
	// GIVEN: One concept defined at sub-line grain and again at company grain
	// WHEN: Building a catalog
	// THEN: Rejected, a concept never mixes grains

	_, err := ledger.NewCatalog([]ledger.ConceptDefinition{
		def("written_premiums", 1, true, "1.01.01"),
		def("written_premiums", -1, false, "1.02.01"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrBadCatalog)
}

func TestNewCatalog_DuplicateAccountInConcept_Rejected(t *testing.T) {
	// GIVEN: The same account listed twice under one concept, even with
	//        opposite signs
	// WHEN: Building a catalog
	// THEN: Rejected, the contribution of an account must be unambiguous

	_, err := ledger.NewCatalog([]ledger.ConceptDefinition{
		def("technical_result", 1, false, "4.01.01"),
		def("technical_result", -1, false, "4.01.01"),
	})
	assert.ErrorIs(t, err, ledger.ErrBadCatalog)
}

// =============================================================================
// LOOKUP SEMANTICS
// =============================================================================

func TestCatalog_AccountFeedsSeveralConcepts(t *testing.T) {
	// GIVEN: One account that appears in two concepts with different signs
	// WHEN: Looking the account up
	// THEN: Both hits are returned

	cat, err := ledger.NewCatalog([]ledger.ConceptDefinition{
		def("written_premiums", 1, true, "1.01.01"),
		def("technical_result", -1, false, "1.01.01"),
	})
	require.NoError(t, err)

	hits := cat.Lookup("1.01.01")
	require.Len(t, hits, 2)

	bySign := map[string]int{}
	for _, h := range hits {
		bySign[h.Concept] = h.Sign
	}
	assert.Equal(t, 1, bySign["written_premiums"])
	assert.Equal(t, -1, bySign["technical_result"])
}

func TestCatalog_UnmappedAccount_NoHits(t *testing.T) {
	// GIVEN: A catalog that never mentions account "9.99.99"
	// WHEN: Looking it up
	// THEN: No hits, which downstream treats as "exclude the line"

	cat, err := ledger.NewCatalog([]ledger.ConceptDefinition{
		def("written_premiums", 1, true, "1.01.01"),
	})
	require.NoError(t, err)

	assert.Nil(t, cat.Lookup("9.99.99"))
}

func TestCatalog_ConceptNamesByGrain(t *testing.T) {
	// GIVEN: A mix of company-level and sub-line concepts
	// WHEN: Listing names by grain
	// THEN: Each grain lists its own concepts, sorted

	cat, err := ledger.NewCatalog([]ledger.ConceptDefinition{
		def("written_premiums", 1, true, "1.01.01"),
		def("incurred_claims", -1, true, "2.01.01"),
		def("net_worth", 1, false, "6.01.01"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"net_worth"}, cat.CompanyConcepts())
	assert.Equal(t, []string{"incurred_claims", "written_premiums"}, cat.SubLineConcepts())
	assert.True(t, cat.Has("net_worth"))
	assert.True(t, cat.Has("written_premiums"))
	assert.False(t, cat.Has("owner_equity"))
}

func TestCatalog_SplitSignConcept(t *testing.T) {
	// GIVEN: A concept with added and subtracted account groups
	// WHEN: Looking up accounts from each group
	// THEN: Signs come back per group, and both definitions survive

	cat, err := ledger.NewCatalog([]ledger.ConceptDefinition{
		def("technical_result", 1, false, "4.01.01", "4.01.02"),
		def("technical_result", -1, false, "4.02.01"),
	})
	require.NoError(t, err)

	plus := cat.Lookup("4.01.02")
	require.Len(t, plus, 1)
	assert.Equal(t, 1, plus[0].Sign)

	minus := cat.Lookup("4.02.01")
	require.Len(t, minus, 1)
	assert.Equal(t, -1, minus[0].Sign)

	assert.Len(t, cat.Definitions(), 2)
}
