package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract records from the corpus into the record store",
	Long:  "Runs one agent turn per document not yet in the record store. --files restricts the pass to named documents, which are re-extracted even when already stored.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		files, _ := cmd.Flags().GetStringSlice("files")
		limit, _ := cmd.Flags().GetInt("limit")
		opts := pipeline.ExtractOptions{Files: files, Limit: limit}

		return runStage(cmd.Context(), "extract", func(ctx context.Context, env stageEnv) (*model.RunResult, error) {
			var res *pipeline.ExtractResult
			err := env.tracker.Phase(ctx, pipeline.PhaseExtract, func() (map[string]any, error) {
				r, err := env.extractor().Run(ctx, opts)
				res = r
				if r == nil {
					return nil, err
				}
				return map[string]any{
					"targets":   r.Targets,
					"resumed":   r.Resumed,
					"extracted": len(r.Extracted),
					"failed":    len(r.Failed),
				}, err
			})
			return extractSummary(res), err
		})
	},
}

func init() {
	extractCmd.Flags().StringSlice("files", nil, "extract only these documents (file names in the corpus)")
	extractCmd.Flags().Int("limit", 0, "max number of pending documents to extract (0 = all)")
	rootCmd.AddCommand(extractCmd)
}

// extractSummary converts an extraction pass into a run result.
func extractSummary(r *pipeline.ExtractResult) *model.RunResult {
	if r == nil {
		return &model.RunResult{}
	}
	return &model.RunResult{
		Processed: r.Targets,
		Succeeded: len(r.Extracted),
		Skipped:   r.Resumed + len(r.Missing),
		Failed:    len(r.Failed),
	}
}
