package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/study-extract/internal/config"
	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/records"
)

// HealOptions configures one healing cycle.
type HealOptions struct {
	// RunExtraction runs a full extraction pass before the first validation.
	RunExtraction bool
}

// HealResult summarizes one healing cycle.
type HealResult struct {
	Extract  *ExtractResult  `json:"extract,omitempty"`
	Initial  *ValidateResult `json:"-"`
	Failures []string        `json:"failures,omitempty"`
	Purged   int             `json:"purged"`
	// Targets are the failed ids mapped to their corpus names. Re-extraction
	// records documents under these names.
	Targets   []string                   `json:"targets,omitempty"`
	Reextract *ExtractResult             `json:"reextract,omitempty"`
	Final     *ValidateResult            `json:"-"`
	Report    []model.HealingReportEntry `json:"-"`
	// Healed holds targets whose re-validation passed or had no data.
	// Every other target is Residual.
	Healed   []string `json:"healed,omitempty"`
	Residual []string `json:"residual,omitempty"`
}

// Healer repairs failed records with a single re-extraction round.
type Healer struct {
	extractor *Extractor
	validator *Validator
	schema    *model.Schema
	paths     config.RecordsConfig
	tracker   *Tracker
}

// NewHealer creates a Healer over the given stages.
func NewHealer(ex *Extractor, v *Validator, schema *model.Schema, paths config.RecordsConfig, tracker *Tracker) *Healer {
	return &Healer{extractor: ex, validator: v, schema: schema, paths: paths, tracker: tracker}
}

// Run executes one healing cycle. Failures left after re-validation are
// reported in Residual and not retried.
func (h *Healer) Run(ctx context.Context, opts HealOptions) (*HealResult, error) {
	log := zap.L().With(zap.String("run_id", h.tracker.RunID()))
	res := &HealResult{}

	if err := records.RemoveFile(h.paths.DiscrepancyLogPath); err != nil {
		return nil, eris.Wrap(err, "heal: clear discrepancy log")
	}

	if opts.RunExtraction {
		err := h.tracker.Phase(ctx, PhaseExtract, func() (map[string]any, error) {
			r, err := h.extractor.Run(ctx, ExtractOptions{})
			res.Extract = r
			if r == nil {
				return nil, err
			}
			return map[string]any{"extracted": len(r.Extracted), "failed": len(r.Failed)}, err
		})
		if err != nil {
			return res, err
		}
	}

	err := h.tracker.Phase(ctx, PhaseValidate1, func() (map[string]any, error) {
		r, err := h.validator.Run(ctx, ValidateOptions{})
		res.Initial = r
		if err != nil {
			return nil, err
		}
		rows, err := records.ReadDiscrepancyLog(h.paths.DiscrepancyLogPath)
		if err != nil {
			return nil, err
		}
		res.Failures = records.FailedSources(rows)
		meta := r.Counts()
		meta["failures"] = len(res.Failures)
		return meta, nil
	})
	if err != nil {
		return res, err
	}

	if len(res.Failures) == 0 {
		log.Info("heal: no validation failures, nothing to repair")
		return res, nil
	}
	log.Info("heal: repairing failed records", zap.Strings("files", res.Failures))

	canon := h.canonical(res.Failures)
	res.Targets = distinct(res.Failures, canon)

	pre := make(map[string]model.DocumentRecord, len(res.Failures))
	err = h.tracker.Phase(ctx, PhasePurge, func() (map[string]any, error) {
		st, err := records.OpenOrEmpty(h.paths.StorePath, h.schema)
		if err != nil {
			return nil, err
		}
		snap := st.Snapshot(res.Failures)
		for _, id := range res.Failures {
			if _, done := pre[canon[id]]; done {
				continue
			}
			if rec, ok := snap[id]; ok {
				pre[canon[id]] = rec
			}
		}
		res.Purged = st.Remove(res.Failures...)
		if err := st.Save(); err != nil {
			return nil, err
		}
		return map[string]any{"purged": res.Purged}, nil
	})
	if err != nil {
		return res, err
	}

	err = h.tracker.Phase(ctx, PhaseReExtract, func() (map[string]any, error) {
		r, err := h.extractor.Run(ctx, ExtractOptions{Files: res.Targets})
		res.Reextract = r
		if r == nil {
			return nil, err
		}
		return map[string]any{"extracted": len(r.Extracted), "failed": len(r.Failed)}, err
	})
	if err != nil {
		return res, err
	}

	err = h.tracker.Phase(ctx, PhaseValidate2, func() (map[string]any, error) {
		r, err := h.validator.Run(ctx, ValidateOptions{Files: res.Targets})
		res.Final = r
		if err != nil {
			return nil, err
		}
		res.Healed, res.Residual = settle(res.Targets, r)
		meta := r.Counts()
		meta["residual"] = len(res.Residual)
		return meta, nil
	})
	if err != nil {
		return res, err
	}

	err = h.tracker.Phase(ctx, PhaseReport, func() (map[string]any, error) {
		st, err := records.OpenOrEmpty(h.paths.StorePath, h.schema)
		if err != nil {
			return nil, err
		}
		post := st.Snapshot(res.Targets)
		res.Report = Diff(pre, post, res.Targets)
		if err := records.WriteHealingReport(h.paths.HealingReportPath, res.Report); err != nil {
			return nil, err
		}
		return map[string]any{"changes": len(res.Report)}, nil
	})
	if err != nil {
		return res, err
	}

	if len(res.Residual) > 0 {
		log.Warn("heal: records still failing after repair", zap.Strings("files", res.Residual))
	}
	log.Info("heal: complete",
		zap.Int("repaired", len(res.Healed)),
		zap.Int("changes", len(res.Report)),
	)
	return res, nil
}

// canonical maps each failed id to the corpus name re-extraction will record
// it under. Ids with no matching document keep their own value.
func (h *Healer) canonical(ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = id
		if doc, ok := h.extractor.corpus.Lookup(id); ok {
			out[id] = doc.Name
		}
	}
	return out
}

// distinct returns canon[id] for each id, first occurrence wins.
func distinct(ids []string, canon map[string]string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		v := canon[id]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// settle splits targets by their re-validation outcome. Only PASS and
// NO DATA count as healed; a target that failed, was skipped or never
// reached validation stays residual.
func settle(targets []string, r *ValidateResult) (healed, residual []string) {
	ok := make(map[string]bool, len(r.Outcomes))
	for _, o := range r.Outcomes {
		switch o.Status {
		case model.StatusPass, model.StatusNoData:
			if _, seen := ok[o.SourceID]; !seen {
				ok[o.SourceID] = true
			}
		default:
			ok[o.SourceID] = false
		}
	}
	for _, id := range targets {
		if ok[id] {
			healed = append(healed, id)
			continue
		}
		residual = append(residual, id)
	}
	return healed, residual
}
