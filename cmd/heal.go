package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/pipeline"
)

var healCmd = &cobra.Command{
	Use:   "heal",
	Short: "Validate, purge failures, re-extract, and re-validate once",
	Long:  "Runs one self-healing cycle: validates the whole store, discards the records that FAIL, re-extracts them, validates them again, and writes the healing report.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		runExtraction, _ := cmd.Flags().GetBool("run-extraction")

		return runStage(cmd.Context(), "heal", func(ctx context.Context, env stageEnv) (*model.RunResult, error) {
			healer := pipeline.NewHealer(env.extractor(), env.validator(), env.schema, cfg.Records, env.tracker)
			res, err := healer.Run(ctx, pipeline.HealOptions{RunExtraction: runExtraction})
			if err == nil {
				printHealSummary(cmd, res)
			}
			return healSummary(res), err
		})
	},
}

func init() {
	healCmd.Flags().Bool("run-extraction", false, "run a full extraction pass before the first validation")
	rootCmd.AddCommand(healCmd)
}

// healSummary converts a healing cycle into a run result. Failed counts the
// records still broken after the cycle: residual FAILs plus failures whose
// re-extraction produced nothing. The rest of the failures are Healed.
func healSummary(r *pipeline.HealResult) *model.RunResult {
	if r == nil {
		return &model.RunResult{}
	}
	out := validateSummary(r.Initial)
	out.Failed = len(r.Residual)
	out.Healed = len(r.Healed)
	return out
}

func printHealSummary(cmd *cobra.Command, r *pipeline.HealResult) {
	out := cmd.OutOrStdout()
	if len(r.Failures) == 0 {
		_, _ = fmt.Fprintln(out, "No validation failures. Nothing to heal.")
		return
	}
	sum := healSummary(r)
	_, _ = fmt.Fprintf(out, "Repaired %d of %d failed records; %d field changes written to %s\n",
		sum.Healed, len(r.Targets), len(r.Report), cfg.Records.HealingReportPath)
	notExtracted := make(map[string]bool)
	if r.Reextract != nil {
		for _, f := range r.Reextract.Failed {
			notExtracted[f] = true
		}
	}
	for _, f := range r.Residual {
		if notExtracted[f] {
			_, _ = fmt.Fprintf(out, "  not re-extracted: %s\n", f)
			continue
		}
		_, _ = fmt.Fprintf(out, "  still failing: %s\n", f)
	}
}
