package correction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/insmag/filings-engine/correction"
	"github.com/insmag/filings-engine/ledger"
	"github.com/insmag/filings-engine/ledger/store"
)

func newTestEngine(t *testing.T) (*correction.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return correction.NewEngine(mem, nil, "", zap.NewNop()), mem
}

func baseRow(company string, period ledger.Period, subLine string, amount int64) ledger.SubLineConcept {
	return ledger.SubLineConcept{
		Company: ledger.CompanyCode(company),
		Period:  period,
		SubLine: ledger.SubLineCode(subLine),
		Concept: correction.DefaultConcept,
		Amount:  amount,
	}
}

func seedBase(t *testing.T, mem *store.Memory, rows ...ledger.SubLineConcept) {
	t.Helper()
	require.NoError(t, mem.ReplaceSubLineConcepts(context.Background(), rows))
}

// =============================================================================
// SUB-LINE CORRECTION
// =============================================================================

func TestRun_StandardCompanyIsDirect(t *testing.T) {
	// GIVEN a standard company with premiums filed at the target and a
	// year earlier
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0101", 202501, "03", 4000),
		baseRow("0101", 202401, "03", 3600),
	)

	// WHEN correcting for 202501
	n, err := eng.Run(context.Background(), 202501)

	// THEN the filed figures pass through unchanged
	require.NoError(t, err)
	require.Equal(t, 1, n)
	rows, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.SubLinePremium{
		{Company: "0101", SubLine: "03", Current: 4000, PriorYear: 3600},
	}, rows)
}

func TestRun_DecemberCloseQuarterOne(t *testing.T) {
	// GIVEN a December-close company with both sides' source quarters
	// filed
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0829", 202501, "01", 1000),
		baseRow("0829", 202402, "01", 750),
		baseRow("0829", 202404, "01", 2000),
		baseRow("0829", 202401, "01", 800),
		baseRow("0829", 202302, "01", 100),
		baseRow("0829", 202304, "01", 50),
	)

	// WHEN correcting for 202501
	_, err := eng.Run(context.Background(), 202501)

	// THEN current = 1000 - 750 + 2000 and prior = 800 - 100 + 50
	require.NoError(t, err)
	rows, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.SubLinePremium{
		{Company: "0829", SubLine: "01", Current: 2250, PriorYear: 750},
	}, rows)
}

func TestRun_DecemberCloseQuarterFour(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0829", 202504, "01", 5000),
		baseRow("0829", 202502, "01", 1200),
		baseRow("0829", 202404, "01", 2000),
		baseRow("0829", 202402, "01", 750),
	)

	_, err := eng.Run(context.Background(), 202504)

	require.NoError(t, err)
	rows, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.SubLinePremium{
		{Company: "0829", SubLine: "01", Current: 3800, PriorYear: 1250},
	}, rows)
}

func TestRun_QuarterThreeNoRecombination(t *testing.T) {
	// GIVEN a December-close company at a September target
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0829", 202503, "01", 700),
		baseRow("0829", 202403, "01", 600),
		baseRow("0829", 202502, "01", 9999),
	)

	_, err := eng.Run(context.Background(), 202503)

	// THEN the filed figures pass through and 202502 is never consulted
	require.NoError(t, err)
	rows, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.SubLinePremium{
		{Company: "0829", SubLine: "01", Current: 700, PriorYear: 600},
	}, rows)
}

func TestRun_MissingOperandsSubstituteZero(t *testing.T) {
	// GIVEN a December-close company with only the target quarter filed
	eng, mem := newTestEngine(t)
	seedBase(t, mem, baseRow("0829", 202501, "01", 1000))

	_, err := eng.Run(context.Background(), 202501)

	// THEN absent history contributes zero instead of failing
	require.NoError(t, err)
	rows, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.SubLinePremium{
		{Company: "0829", SubLine: "01", Current: 1000, PriorYear: 0},
	}, rows)
}

func TestRun_PairUniverseFollowsClassBranch(t *testing.T) {
	// GIVEN a standard company seen only at 202402, a period the
	// standard branch never consults for a 202501 target, and a
	// December-close company seen only at that same period
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0101", 202402, "01", 500),
		baseRow("0829", 202402, "01", 750),
	)

	_, err := eng.Run(context.Background(), 202501)

	// THEN only the December-close pair earns a row, with its one
	// operand subtracted on the current side
	require.NoError(t, err)
	rows, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.SubLinePremium{
		{Company: "0829", SubLine: "01", Current: -750, PriorYear: 0},
	}, rows)
}

func TestRun_OtherConceptsIgnored(t *testing.T) {
	eng, mem := newTestEngine(t)
	claims := baseRow("0101", 202501, "01", 9999)
	claims.Concept = "incurred_claims"
	seedBase(t, mem, baseRow("0101", 202501, "01", 4000), claims)

	_, err := eng.Run(context.Background(), 202501)

	require.NoError(t, err)
	rows, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.SubLinePremium{
		{Company: "0101", SubLine: "01", Current: 4000, PriorYear: 0},
	}, rows)
}

func TestRun_MalformedTargetFailsBeforeTableAccess(t *testing.T) {
	// GIVEN an output table with previous contents
	eng, mem := newTestEngine(t)
	stale := []ledger.SubLinePremium{{Company: "0001", SubLine: "01", Current: 1, PriorYear: 1}}
	require.NoError(t, mem.ReplaceSubLinePremiums(context.Background(), stale))

	// WHEN correcting for a five-digit period
	_, err := eng.Run(context.Background(), ledger.Period(20251))

	// THEN the run fails and the previous contents survive
	require.ErrorIs(t, err, ledger.ErrBadPeriod)
	rows, readErr := mem.SubLinePremiums(context.Background())
	require.NoError(t, readErr)
	assert.Equal(t, stale, rows)
}

func TestRun_OutOfRangeQuarterRejected(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Run(context.Background(), ledger.Period(202505))

	require.ErrorIs(t, err, ledger.ErrBadPeriod)
}

func TestRun_ReplacesAndIsIdempotent(t *testing.T) {
	// GIVEN a stale output row and one filed premium
	eng, mem := newTestEngine(t)
	require.NoError(t, mem.ReplaceSubLinePremiums(context.Background(),
		[]ledger.SubLinePremium{{Company: "9999", SubLine: "99", Current: 1, PriorYear: 1}}))
	seedBase(t, mem, baseRow("0101", 202501, "01", 4000))

	// WHEN the correction runs twice
	var rows []ledger.SubLinePremium
	for i := 0; i < 2; i++ {
		_, err := eng.Run(context.Background(), 202501)
		require.NoError(t, err)
		var readErr error
		rows, readErr = mem.SubLinePremiums(context.Background())
		require.NoError(t, readErr)
	}

	// THEN the stale row is gone and the result is stable
	assert.Equal(t, []ledger.SubLinePremium{
		{Company: "0101", SubLine: "01", Current: 4000, PriorYear: 0},
	}, rows)
}

func TestRun_RowsSortedByCompanyThenSubLine(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0829", 202501, "02", 10),
		baseRow("0829", 202501, "01", 20),
		baseRow("0101", 202501, "09", 30),
	)

	_, err := eng.Run(context.Background(), 202501)

	require.NoError(t, err)
	rows, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ledger.CompanyCode("0101"), rows[0].Company)
	assert.Equal(t, ledger.SubLineCode("01"), rows[1].SubLine)
	assert.Equal(t, ledger.SubLineCode("02"), rows[2].SubLine)
}

// =============================================================================
// COMPANY ROLLUP
// =============================================================================

func TestRunCompanies_SumsSubLines(t *testing.T) {
	// GIVEN a standard company filing two sub-lines per period
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0101", 202501, "01", 4000),
		baseRow("0101", 202501, "02", 600),
		baseRow("0101", 202401, "01", 3600),
	)

	n, err := eng.RunCompanies(context.Background(), 202501)

	// THEN the rollup corrects the company-level sums
	require.NoError(t, err)
	require.Equal(t, 1, n)
	rows, err := mem.CompanyPremiums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.CompanyPremium{
		{Company: "0101", Current: 4600, PriorYear: 3600},
	}, rows)
}

func TestRunCompanies_DecemberCloseRecombines(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0829", 202501, "01", 600),
		baseRow("0829", 202501, "02", 400),
		baseRow("0829", 202402, "01", 750),
		baseRow("0829", 202404, "01", 2000),
	)

	_, err := eng.RunCompanies(context.Background(), 202501)

	require.NoError(t, err)
	rows, err := mem.CompanyPremiums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ledger.CompanyPremium{
		{Company: "0829", Current: 2250, PriorYear: 0},
	}, rows)
}

func TestRunCompanies_MalformedTargetRejected(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.RunCompanies(context.Background(), ledger.Period(20251))

	require.ErrorIs(t, err, ledger.ErrBadPeriod)
}

// =============================================================================
// VERIFICATION
// =============================================================================

func TestVerify_TracesDecemberCloseOperands(t *testing.T) {
	// GIVEN a December-close company with a partly filed history and a
	// standard company alongside
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0829", 202501, "01", 1000),
		baseRow("0829", 202402, "01", 750),
		baseRow("0829", 202404, "01", 2000),
		baseRow("0101", 202501, "01", 4000),
	)

	// WHEN verifying 202501
	diags, err := eng.Verify(context.Background(), 202501)

	// THEN only the December-close company is traced
	require.NoError(t, err)
	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, ledger.CompanyCode("0829"), d.Company)
	assert.Equal(t, ledger.SubLineCode("01"), d.SubLine)
	assert.Equal(t, ledger.Period(202501), d.Target)
	assert.Equal(t, int64(2250), d.Current)
	assert.Equal(t, int64(0), d.PriorYear)
	assert.Equal(t, "202501 - 202402 + 202404", d.CurrentFormula)
	assert.Equal(t, "202401 - 202302 + 202304", d.PriorFormula)

	// AND every operand is reported with its coefficient and presence
	require.Len(t, d.CurrentOperands, 3)
	assert.Equal(t, correction.Operand{Coeff: 1, Period: 202501, Amount: 1000, Found: true}, d.CurrentOperands[0])
	assert.Equal(t, correction.Operand{Coeff: -1, Period: 202402, Amount: 750, Found: true}, d.CurrentOperands[1])
	assert.Equal(t, correction.Operand{Coeff: 1, Period: 202404, Amount: 2000, Found: true}, d.CurrentOperands[2])
	require.Len(t, d.PriorOperands, 3)
	for _, op := range d.PriorOperands {
		assert.False(t, op.Found)
		assert.Zero(t, op.Amount)
	}
}

func TestVerify_DoesNotTouchOutputs(t *testing.T) {
	// GIVEN an already corrected output table
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0829", 202501, "01", 1000),
		baseRow("0101", 202501, "01", 4000),
	)
	_, err := eng.Run(context.Background(), 202501)
	require.NoError(t, err)
	before, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)

	// WHEN verifying
	_, err = eng.Verify(context.Background(), 202501)

	// THEN the table is unchanged
	require.NoError(t, err)
	after, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestVerify_SortedByCompanyThenSubLine(t *testing.T) {
	eng, mem := newTestEngine(t)
	seedBase(t, mem,
		baseRow("0829", 202501, "02", 10),
		baseRow("0829", 202501, "01", 20),
		baseRow("0541", 202501, "05", 30),
	)

	diags, err := eng.Verify(context.Background(), 202501)

	require.NoError(t, err)
	require.Len(t, diags, 3)
	assert.Equal(t, ledger.CompanyCode("0541"), diags[0].Company)
	assert.Equal(t, ledger.SubLineCode("01"), diags[1].SubLine)
	assert.Equal(t, ledger.SubLineCode("02"), diags[2].SubLine)
}

func TestVerify_MalformedTargetRejected(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Verify(context.Background(), ledger.Period(202599))

	require.ErrorIs(t, err, ledger.ErrBadPeriod)
}

// =============================================================================
// ENGINE WIRING
// =============================================================================

func TestNewEngine_Defaults(t *testing.T) {
	eng := correction.NewEngine(store.NewMemory(), nil, "", nil)

	assert.Equal(t, correction.DefaultConcept, eng.Concept())
}

func TestNewEngine_CustomConcept(t *testing.T) {
	// GIVEN an engine correcting earned premiums instead
	mem := store.NewMemory()
	eng := correction.NewEngine(mem, nil, "earned_premiums", zap.NewNop())
	row := baseRow("0101", 202501, "01", 4000)
	row.Concept = "earned_premiums"
	seedBase(t, mem, row)

	_, err := eng.Run(context.Background(), 202501)

	require.NoError(t, err)
	rows, err := mem.SubLinePremiums(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(4000), rows[0].Current)
}
