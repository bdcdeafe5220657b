package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect command run history",
	Long:  "Commands for listing and viewing recorded extract, validate, and heal runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("ledger"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		command, _ := cmd.Flags().GetString("command")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:  model.RunStatus(status),
			Command: command,
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run with its phases and turn failures",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("ledger"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		phases, err := st.ListPhases(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show: phases")
		}
		failures, err := st.ListTurnFailures(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show: turn failures")
		}

		formatRunDetail(cmd.OutOrStdout(), run, phases, failures)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, running, complete, failed)")
	runsListCmd.Flags().String("command", "", "filter by command (extract, validate, heal)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to out.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMMAND\tSTATUS\tPROCESSED\tOK\tFAILED\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t---------\t--\t------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		processed, ok, failed := "-", "-", "-"
		if r.Result != nil {
			processed = fmt.Sprint(r.Result.Processed)
			ok = fmt.Sprint(r.Result.Succeeded + r.Result.Healed)
			failed = fmt.Sprint(r.Result.Failed)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Command,
			r.Status,
			processed,
			ok,
			failed,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunDetail writes one run, its phases, and its turn failures to out.
func formatRunDetail(out io.Writer, run *model.Run, phases []model.RunPhase, failures []model.TurnFailure) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", run.ID)
	_, _ = fmt.Fprintf(w, "Command:\t%s\n", run.Command)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", run.Status)
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", run.CreatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "Updated:\t%s\n", run.UpdatedAt.Format(time.RFC3339))
	if r := run.Result; r != nil {
		_, _ = fmt.Fprintf(w, "Processed:\t%d\n", r.Processed)
		_, _ = fmt.Fprintf(w, "Succeeded:\t%d\n", r.Succeeded)
		_, _ = fmt.Fprintf(w, "Skipped:\t%d\n", r.Skipped)
		_, _ = fmt.Fprintf(w, "Failed:\t%d\n", r.Failed)
		if r.Healed > 0 {
			_, _ = fmt.Fprintf(w, "Healed:\t%d\n", r.Healed)
		}
		if r.Error != "" {
			_, _ = fmt.Fprintf(w, "Error:\t%s\n", r.Error)
		}
	}
	_ = w.Flush()

	if len(phases) > 0 {
		_, _ = fmt.Fprintln(out, "\nPhases:")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "  NAME\tSTATUS\tDURATION\tERROR")
		for _, p := range phases {
			dur, errMsg := "-", ""
			if p.Result != nil {
				dur = (time.Duration(p.Result.Duration) * time.Millisecond).String()
				errMsg = p.Result.Error
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", p.Name, p.Status, dur, errMsg)
		}
		_ = w.Flush()
	}

	if len(failures) > 0 {
		_, _ = fmt.Fprintln(out, "\nTurn failures:")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "  FILE\tSTAGE\tKIND\tERROR")
		for _, f := range failures {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", f.SourceID, f.Stage, f.Kind, f.Error)
		}
		_ = w.Flush()
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
