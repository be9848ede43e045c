/*
runner.go - The audited stage sequence

PURPOSE:
  One call rebuilds everything for a target period: window, company
  concepts, sub-line base, corrected sub-lines, company rollup. Every
  stage leaves one audit row in the run log, one log line and one
  span; the first failure aborts the sequence.
*/
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/insmag/filings-engine/concepts"
	"github.com/insmag/filings-engine/correction"
	"github.com/insmag/filings-engine/ledger"
	"github.com/insmag/filings-engine/logging"
	"github.com/insmag/filings-engine/trace"
)

// Stage names as recorded in the run log.
const (
	StageWindow    = "window"
	StageConcepts  = "concepts"
	StageSubLines  = "sublines"
	StageCorrected = "corrected"
	StageCompanies = "companies"
)

// Runner executes the full stage sequence for a target period.
type Runner struct {
	store    ledger.Store
	selector *Selector
	agg      *concepts.Aggregator
	engine   *correction.Engine
	clock    ledger.Clock
	log      *zap.Logger
}

func NewRunner(store ledger.Store, selector *Selector, agg *concepts.Aggregator, engine *correction.Engine, clock ledger.Clock, log *zap.Logger) *Runner {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		store:    store,
		selector: selector,
		agg:      agg,
		engine:   engine,
		clock:    clock,
		log:      log,
	}
}

type stage struct {
	name   string
	period ledger.Period
	run    func(context.Context) (int, error)
}

// Run executes window → concepts → sublines → corrected → companies
// for the target period. The first failing stage aborts the sequence;
// every attempted stage leaves an audit row.
func (r *Runner) Run(ctx context.Context, target ledger.Period) error {
	if err := target.Validate(); err != nil {
		return err
	}

	ctx, span := trace.StartSpan(ctx, "pipeline.run")
	defer span.End()

	stages := []stage{
		{StageWindow, 0, func(ctx context.Context) (int, error) {
			return r.selector.Build(ctx, 0)
		}},
		{StageConcepts, 0, r.agg.BuildCompanyConcepts},
		{StageSubLines, 0, r.agg.BuildSubLineBase},
		{StageCorrected, target, func(ctx context.Context) (int, error) {
			return r.engine.Run(ctx, target)
		}},
		{StageCompanies, target, func(ctx context.Context) (int, error) {
			return r.engine.RunCompanies(ctx, target)
		}},
	}
	for _, st := range stages {
		if err := r.runStage(ctx, st); err != nil {
			return fmt.Errorf("stage %s: %w", st.name, err)
		}
	}
	return nil
}

func (r *Runner) runStage(ctx context.Context, st stage) error {
	ctx, span := trace.StartSpan(ctx, "pipeline."+st.name)
	defer span.End()

	started := r.clock.Now()
	rows, err := st.run(ctx)
	finished := r.clock.Now()

	rec := ledger.Run{
		ID:         uuid.NewString(),
		Stage:      st.name,
		Period:     st.period,
		Rows:       rows,
		StartedAt:  started,
		FinishedAt: finished,
		Status:     ledger.RunOK,
	}
	log := logging.WithTrace(ctx, r.log)

	if err != nil {
		rec.Status = ledger.RunFailed
		rec.Error = err.Error()
		if recErr := r.store.RecordRun(ctx, rec); recErr != nil {
			log.Error("audit row not recorded", zap.String("stage", st.name), zap.Error(recErr))
		}
		log.Error("stage failed", zap.String("stage", st.name), zap.Error(err))
		return err
	}
	if err := r.store.RecordRun(ctx, rec); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	log.Info("stage complete",
		zap.String("stage", st.name),
		zap.Int("rows", rows),
		zap.Duration("took", finished.Sub(started)),
	)
	return nil
}
