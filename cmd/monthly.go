package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/curious-learning/funnel-cli/internal/engine"
	"github.com/curious-learning/funnel-cli/internal/export"
	"github.com/curious-learning/funnel-cli/internal/model"
)

var monthlyFlags struct {
	cohortFlags
	stat    string
	xlsxOut string
}

var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Per-month acquisition totals with matched campaign spend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		q, err := monthlyFlags.query()
		if err != nil {
			return err
		}
		if q.Dates.IsZero() {
			return eris.New("monthly requires --start and --end")
		}
		stat := model.Stat(monthlyFlags.stat)
		if !model.ValidStat(stat) {
			return eris.Errorf("unknown stat %q", monthlyFlags.stat)
		}

		snap, err := buildSnapshot(ctx)
		if err != nil {
			return err
		}
		cohort, lrCohort, err := funnelCohorts(snap, q)
		if err != nil {
			return err
		}
		// LR for the reader app counts installs, which live on the
		// first-touch table.
		if stat == model.StatLR && !lrCohort.Empty() {
			cohort = lrCohort
		}

		rows := engine.MonthlyTotals(cohort, stat, q.Dates, snap.Campaigns)
		formatMonthly(os.Stdout, stat, rows)

		if monthlyFlags.xlsxOut != "" {
			path := filepath.Join(cfg.Report.OutDir, monthlyFlags.xlsxOut)
			if err := export.WriteMonthlyXLSX(path, stat, rows); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	monthlyFlags.register(monthlyCmd)
	monthlyCmd.Flags().StringVar(&monthlyFlags.stat, "stat", "LA", "stat to total per month")
	monthlyCmd.Flags().StringVar(&monthlyFlags.xlsxOut, "xlsx", "", "also write the table to an XLSX file in the report out dir")
	rootCmd.AddCommand(monthlyCmd)
}

func formatMonthly(out io.Writer, stat model.Stat, rows []engine.MonthRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "MONTH\t%s\tCOST\tCOST/%s\n", stat, stat)
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			r.Month, r.Total, r.Cost.StringFixed(2), costCell(r.CostPer))
	}
	_ = w.Flush()
}
