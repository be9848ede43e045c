package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/insmag/filings-engine/concepts"
	"github.com/insmag/filings-engine/correction"
	"github.com/insmag/filings-engine/ledger"
	"github.com/insmag/filings-engine/ledger/store"
	"github.com/insmag/filings-engine/pipeline"
)

func newTestRunner(t *testing.T, mem *store.Memory) *pipeline.Runner {
	t.Helper()
	clock := ledger.FixedClock{At: time.Date(2026, time.February, 20, 10, 0, 0, 0, time.UTC)}
	log := zap.NewNop()
	return pipeline.NewRunner(
		mem,
		pipeline.NewSelector(mem, clock, 2, log),
		concepts.NewAggregator(mem, log),
		correction.NewEngine(mem, nil, "", log),
		clock,
		log,
	)
}

func seedCatalog(t *testing.T, mem *store.Memory) {
	t.Helper()
	require.NoError(t, mem.ReplaceCatalog(context.Background(), []ledger.ConceptDefinition{
		{Concept: "written_premiums", Sign: 1, SubLine: true, Accounts: []ledger.AccountCode{"1.01"}},
		{Concept: "technical_result", Sign: 1, SubLine: false, Accounts: []ledger.AccountCode{"1.01"}},
	}))
}

// =============================================================================
// FULL SEQUENCE
// =============================================================================

func TestRunner_FullSequenceBuildsEveryTable(t *testing.T) {
	// GIVEN a catalog and two loaded periods
	mem := store.NewMemory()
	seedCatalog(t, mem)
	loadPeriod(t, mem, 202501, entry("0101", 202501, "01", "1.01", 4000))
	loadPeriod(t, mem, 202401, entry("0101", 202401, "01", "1.01", 3600))
	runner := newTestRunner(t, mem)

	// WHEN running the pipeline for 202501
	err := runner.Run(context.Background(), 202501)

	// THEN every derived table is populated
	require.NoError(t, err)
	ctx := context.Background()
	window, err := mem.WindowEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, window, 2)
	companyConcepts, err := mem.CompanyConcepts(ctx)
	require.NoError(t, err)
	require.Len(t, companyConcepts, 1)
	assert.Equal(t, int64(4000), companyConcepts[0].Amount)
	base, err := mem.SubLineConcepts(ctx)
	require.NoError(t, err)
	assert.Len(t, base, 2)
	subLines, err := mem.SubLinePremiums(ctx)
	require.NoError(t, err)
	require.Len(t, subLines, 1)
	assert.Equal(t, ledger.SubLinePremium{
		Company: "0101", SubLine: "01", Current: 4000, PriorYear: 3600,
	}, subLines[0])
	companies, err := mem.CompanyPremiums(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, int64(4000), companies[0].Current)
}

func TestRunner_AuditsEveryStage(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(t, mem)
	loadPeriod(t, mem, 202501, entry("0101", 202501, "01", "1.01", 4000))
	runner := newTestRunner(t, mem)

	err := runner.Run(context.Background(), 202501)

	require.NoError(t, err)
	runs, err := mem.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 5)

	// Newest first.
	wantStages := []string{
		pipeline.StageCompanies,
		pipeline.StageCorrected,
		pipeline.StageSubLines,
		pipeline.StageConcepts,
		pipeline.StageWindow,
	}
	for i, run := range runs {
		assert.Equal(t, wantStages[i], run.Stage)
		assert.Equal(t, ledger.RunOK, run.Status)
		assert.NotEmpty(t, run.ID)
		assert.Empty(t, run.Error)
	}

	// Only the correction stages carry the target period.
	assert.Equal(t, ledger.Period(202501), runs[0].Period)
	assert.Equal(t, ledger.Period(202501), runs[1].Period)
	assert.True(t, runs[2].Period.IsZero())
	assert.True(t, runs[3].Period.IsZero())
	assert.True(t, runs[4].Period.IsZero())
}

func TestRunner_DistinctRunIDs(t *testing.T) {
	mem := store.NewMemory()
	seedCatalog(t, mem)
	loadPeriod(t, mem, 202501, entry("0101", 202501, "01", "1.01", 4000))
	runner := newTestRunner(t, mem)

	require.NoError(t, runner.Run(context.Background(), 202501))

	runs, err := mem.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, run := range runs {
		assert.False(t, seen[run.ID], "duplicate run id %s", run.ID)
		seen[run.ID] = true
	}
}

// =============================================================================
// FAILURE HANDLING
// =============================================================================

func TestRunner_MalformedTargetRunsNothing(t *testing.T) {
	mem := store.NewMemory()
	runner := newTestRunner(t, mem)

	err := runner.Run(context.Background(), ledger.Period(20251))

	require.ErrorIs(t, err, ledger.ErrBadPeriod)
	runs, listErr := mem.ListRuns(context.Background(), 0)
	require.NoError(t, listErr)
	assert.Empty(t, runs)
}

func TestRunner_StageFailureAbortsSequence(t *testing.T) {
	// GIVEN filings but no catalog, so the concepts stage must fail
	mem := store.NewMemory()
	loadPeriod(t, mem, 202501, entry("0101", 202501, "01", "1.01", 4000))
	runner := newTestRunner(t, mem)

	// WHEN running the pipeline
	err := runner.Run(context.Background(), 202501)

	// THEN the failure is reported with its stage
	require.ErrorIs(t, err, ledger.ErrNoCatalog)
	assert.ErrorContains(t, err, "stage concepts")

	// AND the log holds the successful window stage plus the failure,
	// nothing after
	runs, listErr := mem.ListRuns(context.Background(), 0)
	require.NoError(t, listErr)
	require.Len(t, runs, 2)
	assert.Equal(t, pipeline.StageConcepts, runs[0].Stage)
	assert.Equal(t, ledger.RunFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
	assert.Equal(t, pipeline.StageWindow, runs[1].Stage)
	assert.Equal(t, ledger.RunOK, runs[1].Status)

	// AND the later tables were never written
	premiums, readErr := mem.SubLinePremiums(context.Background())
	require.NoError(t, readErr)
	assert.Empty(t, premiums)
}
