package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Re-check stored records against their source documents",
	Long:  "Asks the agent to verify every stored record against its PDF and rewrites the discrepancy log with the outcomes of this pass.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		files, _ := cmd.Flags().GetStringSlice("files")
		limit, _ := cmd.Flags().GetInt("limit")
		opts := pipeline.ValidateOptions{Files: files, Limit: limit}

		return runStage(cmd.Context(), "validate", func(ctx context.Context, env stageEnv) (*model.RunResult, error) {
			var res *pipeline.ValidateResult
			err := env.tracker.Phase(ctx, pipeline.PhaseValidate, func() (map[string]any, error) {
				r, err := env.validator().Run(ctx, opts)
				res = r
				if r == nil {
					return nil, err
				}
				return r.Counts(), err
			})
			return validateSummary(res), err
		})
	},
}

func init() {
	validateCmd.Flags().StringSlice("files", nil, "validate only the records of these documents")
	validateCmd.Flags().Int("limit", 0, "max number of records to validate (0 = all)")
	rootCmd.AddCommand(validateCmd)
}

// validateSummary converts a validation pass into a run result. Only PASS
// counts as success.
func validateSummary(r *pipeline.ValidateResult) *model.RunResult {
	out := &model.RunResult{}
	if r == nil {
		return out
	}
	for _, o := range r.Outcomes {
		out.Processed++
		switch o.Status {
		case model.StatusPass:
			out.Succeeded++
		case model.StatusNoData:
			out.Skipped++
		default:
			out.Failed++
		}
	}
	out.Skipped += len(r.Skipped)
	return out
}
