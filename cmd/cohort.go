package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/curious-learning/funnel-cli/internal/engine"
	"github.com/curious-learning/funnel-cli/internal/export"
	"github.com/curious-learning/funnel-cli/internal/model"
)

var cohortCmdFlags struct {
	cohortFlags
	idsFrom string
	csvOut  string
}

var cohortCmd = &cobra.Command{
	Use:   "cohort",
	Short: "Summarize a filtered cohort's funnel counts and engagement",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		q, err := cohortCmdFlags.query()
		if err != nil {
			return err
		}

		// An exported cohort CSV acts as an id allow-list for re-slicing.
		if cohortCmdFlags.idsFrom != "" {
			prev, err := export.ReadCohortCSV(cohortCmdFlags.idsFrom, q.App.Space())
			if err != nil {
				return err
			}
			q.UserIDs = &model.IDList{Space: prev.Space, IDs: prev.IDs()}
		}

		snap, err := buildSnapshot(ctx)
		if err != nil {
			return err
		}
		cohort, lrCohort, err := funnelCohorts(snap, q)
		if err != nil {
			return err
		}

		formatCohort(os.Stdout, cohort, lrCohort, model.FunnelSteps(q.App))

		if cohortCmdFlags.csvOut != "" {
			path := filepath.Join(cfg.Report.OutDir, cohortCmdFlags.csvOut)
			if err := export.WriteCohortCSV(path, cohort); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	cohortCmdFlags.register(cohortCmd)
	cohortCmd.Flags().StringVar(&cohortCmdFlags.idsFrom, "ids-from", "", "restrict to user ids from a previously exported cohort CSV")
	cohortCmd.Flags().StringVar(&cohortCmdFlags.csvOut, "csv", "", "write the cohort's rows to a CSV file in the report out dir")
	rootCmd.AddCommand(cohortCmd)
}

// formatCohort writes stage counts and the engagement scorecard to w.
func formatCohort(out io.Writer, cohort, lrCohort model.Cohort, steps []model.Stat) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	lr := cohort.Size()
	if !lrCohort.Empty() {
		lr = lrCohort.Size()
	}
	for _, s := range steps {
		n := engine.StageCount(cohort, s)
		if s == model.StatLR {
			n = lr
		} else if n > lr {
			n = lr
		}
		_, _ = fmt.Fprintf(w, "%s:\t%d\n", s, n)
	}

	_, _ = fmt.Fprintln(w)
	summary := engine.CohortSummary(cohort)
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s:\t%.2f\n", k, summary[k])
	}
	_, _ = fmt.Fprintf(w, "Avg Game Percent:\t%.2f\n", engine.GamePercentAvg(cohort))
	_, _ = fmt.Fprintf(w, "Game Completion %%:\t%.2f\n", engine.GameCompletionAvg(cohort))
	_ = w.Flush()
}
