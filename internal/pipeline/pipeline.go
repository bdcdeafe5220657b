// Package pipeline runs the extraction, validation, and self-healing stages
// over a corpus of study PDFs.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/study-extract/internal/agent"
	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/store"
)

// Stage and phase names recorded in the run ledger.
const (
	StageExtract  = "extract"
	StageValidate = "validate"

	PhaseExtract   = "extract"
	PhaseValidate  = "validate"
	PhaseValidate1 = "validate_1"
	PhasePurge     = "purge"
	PhaseReExtract = "re_extract"
	PhaseValidate2 = "validate_2"
	PhaseReport    = "report"
)

// Interactor takes one turn against the remote agent for one document.
// agent.Client and agent.APIClient implement it.
type Interactor interface {
	Interact(ctx context.Context, docPath, prompt string) (agent.Result, error)
}

// Tracker records one command invocation in the run ledger. A nil Tracker,
// or one without a store, runs phases without recording them.
type Tracker struct {
	store  store.Store
	run    *model.Run
	phases []model.PhaseResult
}

// Begin creates a run for command and marks it running.
func Begin(ctx context.Context, st store.Store, command string) (*Tracker, error) {
	run, err := st.CreateRun(ctx, command)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		zap.L().Warn("pipeline: failed to update status", zap.String("run_id", run.ID), zap.Error(err))
	}
	run.Status = model.RunStatusRunning
	return &Tracker{store: st, run: run}, nil
}

// RunID returns the ledger id of the run, or "" when untracked.
func (t *Tracker) RunID() string {
	if t == nil || t.run == nil {
		return ""
	}
	return t.run.ID
}

// Phases returns the phase results recorded so far.
func (t *Tracker) Phases() []model.PhaseResult {
	if t == nil {
		return nil
	}
	return t.phases
}

// Phase runs fn as the named phase. Its metadata and outcome are written to
// the ledger; ledger errors are logged and never fail the phase.
func (t *Tracker) Phase(ctx context.Context, name string, fn func() (map[string]any, error)) error {
	log := zap.L().With(zap.String("stage", name), zap.String("run_id", t.RunID()))

	var phase *model.RunPhase
	if t != nil && t.store != nil && t.run != nil {
		p, err := t.store.CreatePhase(ctx, t.run.ID, name)
		if err != nil {
			log.Warn("pipeline: failed to create phase", zap.Error(err))
		}
		phase = p
	}

	start := time.Now()
	meta, fnErr := fn()
	duration := time.Since(start).Milliseconds()

	result := &model.PhaseResult{Name: name, Duration: duration, Metadata: meta}
	if fnErr != nil {
		result.Status = model.PhaseStatusFailed
		result.Error = fnErr.Error()
		log.Error("pipeline: phase failed", zap.Int64("duration_ms", duration), zap.Error(fnErr))
	} else {
		result.Status = model.PhaseStatusComplete
		log.Info("pipeline: phase complete", zap.Int64("duration_ms", duration))
	}

	if t != nil {
		if phase != nil {
			// The phase context may already be cancelled; the outcome is still recorded.
			if err := t.store.CompletePhase(context.WithoutCancel(ctx), phase.ID, result); err != nil {
				log.Warn("pipeline: failed to complete phase", zap.Error(err))
			}
		}
		t.phases = append(t.phases, *result)
	}
	return fnErr
}

// TurnFailure records a document whose turn produced nothing.
func (t *Tracker) TurnFailure(ctx context.Context, sourceID, stage string, turnErr error) {
	if t == nil || t.store == nil || t.run == nil {
		return
	}
	kind := string(agent.KindOf(turnErr))
	if kind == "" {
		kind = "unknown"
	}
	err := t.store.RecordTurnFailure(context.WithoutCancel(ctx), &model.TurnFailure{
		RunID:    t.run.ID,
		SourceID: sourceID,
		Stage:    stage,
		Kind:     kind,
		Error:    turnErr.Error(),
	})
	if err != nil {
		zap.L().Warn("pipeline: failed to record turn failure",
			zap.String("file", sourceID),
			zap.String("run_id", t.run.ID),
			zap.Error(err),
		)
	}
}

// Finish stores the run summary. A non-nil runErr marks the run failed.
func (t *Tracker) Finish(ctx context.Context, result *model.RunResult, runErr error) {
	if t == nil || t.store == nil || t.run == nil {
		return
	}
	if result == nil {
		result = &model.RunResult{}
	}
	result.Phases = t.phases
	if runErr != nil {
		result.Error = runErr.Error()
	}
	if err := t.store.UpdateRunResult(context.WithoutCancel(ctx), t.run.ID, result); err != nil {
		zap.L().Warn("pipeline: failed to store run result", zap.String("run_id", t.run.ID), zap.Error(err))
	}
}
