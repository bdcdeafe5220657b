package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/study-extract/internal/agent"
	"github.com/sells-group/study-extract/internal/corpus"
	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/records"
)

// ExtractOptions selects the documents of one extraction pass. Files takes
// priority over the corpus scan; Limit truncates the scan.
type ExtractOptions struct {
	Files []string
	Limit int
}

// ExtractResult summarizes one extraction pass.
type ExtractResult struct {
	Targets   int      `json:"targets"`
	Resumed   int      `json:"resumed"`
	Missing   []string `json:"missing,omitempty"`
	Extracted []string `json:"extracted,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

// Extractor turns documents into store records, one agent turn each.
type Extractor struct {
	agent     Interactor
	corpus    *corpus.Corpus
	schema    *model.Schema
	storePath string
	tracker   *Tracker
}

// NewExtractor creates an Extractor writing to the store at storePath.
func NewExtractor(ai Interactor, c *corpus.Corpus, schema *model.Schema, storePath string, tracker *Tracker) *Extractor {
	return &Extractor{agent: ai, corpus: c, schema: schema, storePath: storePath, tracker: tracker}
}

// Run extracts every target. Each success is persisted before the next turn,
// so an interrupted pass loses at most the document in flight. Turn failures
// are logged and leave the document eligible for the next pass.
func (e *Extractor) Run(ctx context.Context, opts ExtractOptions) (*ExtractResult, error) {
	st, err := records.OpenOrEmpty(e.storePath, e.schema)
	if err != nil {
		return nil, eris.Wrap(err, "extract: open store")
	}

	res := &ExtractResult{}
	targets, err := e.targets(st, opts, res)
	if err != nil {
		return nil, err
	}
	res.Targets = len(targets)
	zap.L().Info("extract: starting",
		zap.String("stage", StageExtract),
		zap.Int("targets", len(targets)),
		zap.Int("resumed", res.Resumed),
	)

	prompt := ExtractionPrompt(e.schema)
	for i, doc := range targets {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "extract: cancelled")
		}
		log := zap.L().With(
			zap.String("stage", StageExtract),
			zap.String("file", doc.Name),
			zap.String("run_id", e.tracker.RunID()),
		)
		log.Info("extract: processing", zap.Int("index", i+1), zap.Int("of", len(targets)))

		reply, err := e.agent.Interact(ctx, doc.Path, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return res, eris.Wrap(ctx.Err(), "extract: cancelled")
			}
			log.Warn("extract: turn failed, document stays eligible",
				zap.String("kind", string(agent.KindOf(err))),
				zap.Error(err),
			)
			e.tracker.TurnFailure(ctx, doc.Name, StageExtract, err)
			res.Failed = append(res.Failed, doc.Name)
			continue
		}

		st.Append(model.NewRecordFromReply(doc.Name, reply.Data, e.schema))
		if err := st.Save(); err != nil {
			return res, eris.Wrapf(err, "extract: persist %s", doc.Name)
		}
		res.Extracted = append(res.Extracted, doc.Name)
		log.Info("extract: record saved", zap.String("status", "ok"))
	}

	zap.L().Info("extract: complete",
		zap.String("stage", StageExtract),
		zap.Int("extracted", len(res.Extracted)),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (e *Extractor) targets(st *records.Store, opts ExtractOptions, res *ExtractResult) ([]corpus.Document, error) {
	if len(opts.Files) > 0 {
		found, missing := e.corpus.Resolve(opts.Files)
		for _, m := range missing {
			zap.L().Warn("extract: target not found in corpus", zap.String("file", m))
		}
		res.Missing = missing
		return found, nil
	}

	docs, err := e.corpus.List()
	if err != nil {
		return nil, eris.Wrap(err, "extract: list corpus")
	}
	pending := docs[:0]
	for _, d := range docs {
		if st.Covers(d.Name) {
			res.Resumed++
			continue
		}
		pending = append(pending, d)
	}
	if opts.Limit > 0 && len(pending) > opts.Limit {
		pending = pending[:opts.Limit]
	}
	return pending, nil
}
