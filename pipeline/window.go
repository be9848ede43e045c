/*
Package pipeline sequences the derivation stages.

PURPOSE:
  The pipeline turns loaded filings into the derived tables, in
  dependency order: the trailing window, the per-company concept
  aggregation, the sub-line base, and the two corrected premium
  tables. Stages can run individually (one CLI subcommand each) or as
  one audited sequence via the Runner.

KEY CONCEPTS:
  - Selector (this file): materializes the trailing window table
  - Runner (runner.go): runs all stages for a target period, with one
    span, one log line and one audit row per stage

SEE ALSO:
  - concepts/: the aggregation stages
  - correction/: the corrected premium engine
*/
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/insmag/filings-engine/ledger"
)

// DefaultWindowYears is how far the window reaches back when no floor
// is given.
const DefaultWindowYears = 2

// Selector rebuilds the trailing window table: every ledger row with
// period at or after a floor.
type Selector struct {
	store ledger.Store
	clock ledger.Clock
	years int
	log   *zap.Logger
}

// NewSelector wires a selector. A nil clock means the system clock, a
// non-positive years means DefaultWindowYears.
func NewSelector(store ledger.Store, clock ledger.Clock, years int, log *zap.Logger) *Selector {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if years <= 0 {
		years = DefaultWindowYears
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Selector{store: store, clock: clock, years: years, log: log}
}

// DefaultFloor is quarter 1 of (current year - window years): with the
// default two years, a 2026 run keeps 202401 and later and drops
// 202304.
func (s *Selector) DefaultFloor() ledger.Period {
	return ledger.PeriodOf(s.clock.Now().Year()-s.years, ledger.QMar)
}

// Build replaces the window table with every ledger row at or after
// the floor and returns the row count. A zero floor selects the
// default; an explicit floor must be well-formed. An empty result is
// valid and yields an empty window.
func (s *Selector) Build(ctx context.Context, floor ledger.Period) (int, error) {
	if floor.IsZero() {
		floor = s.DefaultFloor()
	} else if err := floor.Validate(); err != nil {
		return 0, err
	}

	entries, err := s.store.EntriesSince(ctx, floor)
	if err != nil {
		return 0, err
	}
	if err := s.store.ReplaceWindow(ctx, entries); err != nil {
		return 0, err
	}
	s.log.Info("window rebuilt",
		zap.String("floor", floor.String()),
		zap.Int("rows", len(entries)),
	)
	return len(entries), nil
}
