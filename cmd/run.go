package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/study-extract/internal/corpus"
	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/pipeline"
)

// newAgent builds the turn backend; tests replace it with a fake.
var newAgent = initAgent

// stageEnv carries everything a stage command needs for one run.
type stageEnv struct {
	schema  *model.Schema
	corpus  *corpus.Corpus
	agent   pipeline.Interactor
	tracker *pipeline.Tracker
}

func (e stageEnv) extractor() *pipeline.Extractor {
	return pipeline.NewExtractor(e.agent, e.corpus, e.schema, cfg.Records.StorePath, e.tracker)
}

func (e stageEnv) validator() *pipeline.Validator {
	return pipeline.NewValidator(e.agent, e.corpus, e.schema, cfg.Records.StorePath, cfg.Records.DiscrepancyLogPath, e.tracker)
}

// runStage opens the ledger, records a run for command, starts the agent,
// and hands the stage body everything it needs. The run summary is stored
// whatever the outcome.
func runStage(ctx context.Context, command string, fn func(ctx context.Context, env stageEnv) (*model.RunResult, error)) error {
	if err := cfg.Validate("agent"); err != nil {
		return err
	}

	schema, err := initSchema()
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	tracker, err := pipeline.Begin(ctx, st, command)
	if err != nil {
		return err
	}
	log := zap.L().With(zap.String("run_id", tracker.RunID()), zap.String("stage", command))

	ai, release, err := newAgent(ctx)
	defer release()
	if err != nil {
		tracker.Finish(ctx, nil, err)
		return err
	}

	result, err := fn(ctx, stageEnv{
		schema:  schema,
		corpus:  corpus.New(cfg.Corpus.Dir),
		agent:   ai,
		tracker: tracker,
	})
	tracker.Finish(ctx, result, err)
	if err != nil {
		return eris.Wrapf(err, "%s", command)
	}

	if result != nil {
		log.Info("run complete",
			zap.Int("processed", result.Processed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
			zap.Int("healed", result.Healed),
		)
	}
	return nil
}
