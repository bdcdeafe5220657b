package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/study-extract/internal/agent"
	"github.com/sells-group/study-extract/internal/corpus"
	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/records"
)

// ValidateOptions selects the records of one validation pass. Files matches
// Source File exactly and takes priority over Limit, which keeps the first N
// rows.
type ValidateOptions struct {
	Files []string
	Limit int
}

// ValidateResult summarizes one validation pass.
type ValidateResult struct {
	Outcomes []model.ValidationOutcome `json:"-"`
	Skipped  []string                  `json:"skipped,omitempty"`
}

// Failed returns the distinct source ids whose final status is FAIL.
func (r *ValidateResult) Failed() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, o := range r.Outcomes {
		if o.Status != model.StatusFail {
			continue
		}
		if _, ok := seen[o.SourceID]; ok {
			continue
		}
		seen[o.SourceID] = struct{}{}
		out = append(out, o.SourceID)
	}
	return out
}

// Counts tallies outcomes by status.
func (r *ValidateResult) Counts() map[string]any {
	counts := map[string]any{}
	for _, o := range r.Outcomes {
		n, _ := counts[string(o.Status)].(int)
		counts[string(o.Status)] = n + 1
	}
	counts["skipped"] = len(r.Skipped)
	return counts
}

// Validator re-checks stored records against their source documents.
type Validator struct {
	agent     Interactor
	corpus    *corpus.Corpus
	schema    *model.Schema
	storePath string
	logPath   string
	matcher   SourceMatcher
	tracker   *Tracker
}

// NewValidator creates a Validator reading the store at storePath and
// writing the discrepancy log at logPath.
func NewValidator(ai Interactor, c *corpus.Corpus, schema *model.Schema, storePath, logPath string, tracker *Tracker) *Validator {
	return &Validator{
		agent:     ai,
		corpus:    c,
		schema:    schema,
		storePath: storePath,
		logPath:   logPath,
		matcher:   NewAuthorYearMatcher(),
		tracker:   tracker,
	}
}

// WithMatcher replaces the matcher used for records without a Source File.
func (v *Validator) WithMatcher(m SourceMatcher) *Validator {
	v.matcher = m
	return v
}

// Run validates the selected records. The discrepancy log is reset at the
// start and rewritten after every outcome, so it always holds exactly the
// outcomes of this pass so far.
func (v *Validator) Run(ctx context.Context, opts ValidateOptions) (*ValidateResult, error) {
	st, err := records.OpenOrEmpty(v.storePath, v.schema)
	if err != nil {
		return nil, eris.Wrap(err, "validate: open store")
	}
	recs := selectRecords(st.Records(), opts)

	res := &ValidateResult{}
	if err := records.WriteDiscrepancyLog(v.logPath, nil); err != nil {
		return nil, eris.Wrap(err, "validate: reset log")
	}
	zap.L().Info("validate: starting", zap.String("stage", StageValidate), zap.Int("records", len(recs)))

	var names []string
	namesLoaded := false

	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "validate: cancelled")
		}

		sourceID := rec.SourceID
		if sourceID == "" {
			if !namesLoaded {
				names, err = v.corpus.Names()
				if err != nil {
					zap.L().Warn("validate: cannot list corpus for matching", zap.Error(err))
				}
				namesLoaded = true
			}
			bound, ok := v.matcher.Match(rec, names)
			if !ok {
				zap.L().Warn("validate: row has no Source File and no matching document, skipping", zap.Int("row", i+1))
				res.Skipped = append(res.Skipped, fmt.Sprintf("row %d", i+1))
				continue
			}
			zap.L().Info("validate: matched row to document", zap.Int("row", i+1), zap.String("file", bound))
			sourceID = bound
		}

		log := zap.L().With(
			zap.String("stage", StageValidate),
			zap.String("file", sourceID),
			zap.String("run_id", v.tracker.RunID()),
		)

		doc, ok := v.corpus.Lookup(sourceID)
		if !ok {
			log.Warn("validate: document not found, skipping")
			res.Skipped = append(res.Skipped, sourceID)
			continue
		}

		outcome, ok := v.validate(ctx, log, doc, sourceID, rec)
		if !ok {
			if ctx.Err() != nil {
				return res, eris.Wrap(ctx.Err(), "validate: cancelled")
			}
			res.Skipped = append(res.Skipped, sourceID)
			continue
		}

		res.Outcomes = append(res.Outcomes, outcome)
		if err := records.WriteDiscrepancyLog(v.logPath, res.Outcomes); err != nil {
			return res, eris.Wrap(err, "validate: write log")
		}
		log.Info("validate: outcome",
			zap.String("status", string(outcome.Status)),
			zap.Int("discrepancies", len(outcome.Discrepancies)),
		)
	}

	zap.L().Info("validate: complete", zap.String("stage", StageValidate), zap.Any("counts", res.Counts()))
	return res, nil
}

// validate produces the outcome for one record. ok is false when the turn
// failed without a reply worth logging.
func (v *Validator) validate(ctx context.Context, log *zap.Logger, doc corpus.Document, sourceID string, rec model.DocumentRecord) (model.ValidationOutcome, bool) {
	if !rec.HasData() {
		log.Info("validate: no data points, logging NO DATA")
		return model.ValidationOutcome{SourceID: sourceID, Status: model.StatusNoData}, true
	}

	reply, err := v.agent.Interact(ctx, doc.Path, VerificationPrompt(rec))
	if err != nil {
		v.tracker.TurnFailure(ctx, sourceID, StageValidate, err)
		if agent.IsMalformedReply(err) {
			log.Warn("validate: reply was not a JSON object", zap.Error(err))
			return model.ValidationOutcome{SourceID: sourceID, Status: model.StatusError, Message: malformedMessage(err)}, true
		}
		log.Warn("validate: turn failed, skipping", zap.String("kind", string(agent.KindOf(err))), zap.Error(err))
		return model.ValidationOutcome{}, false
	}

	outcome, err := DecodeVerdict(sourceID, reply.Data)
	if err != nil {
		log.Warn("validate: reply has the wrong shape", zap.Error(err))
		return model.ValidationOutcome{SourceID: sourceID, Status: model.StatusError, Message: "Unexpected reply shape"}, true
	}
	return outcome, true
}

func malformedMessage(err error) string {
	if agent.IsKind(err, agent.KindNoJSONFound) {
		return "No JSON found"
	}
	return "JSON Parse Error"
}

func selectRecords(recs []model.DocumentRecord, opts ValidateOptions) []model.DocumentRecord {
	if len(opts.Files) > 0 {
		want := make(map[string]struct{}, len(opts.Files))
		for _, f := range opts.Files {
			want[f] = struct{}{}
		}
		var out []model.DocumentRecord
		for _, r := range recs {
			if _, ok := want[r.SourceID]; ok && r.SourceID != "" {
				out = append(out, r)
			}
		}
		return out
	}
	if opts.Limit > 0 && len(recs) > opts.Limit {
		return recs[:opts.Limit]
	}
	return recs
}
