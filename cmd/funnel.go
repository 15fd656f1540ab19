package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/curious-learning/funnel-cli/internal/engine"
	"github.com/curious-learning/funnel-cli/internal/export"
	"github.com/curious-learning/funnel-cli/internal/model"
)

var funnelFlags struct {
	cohortFlags
	groupBy  string
	sortStat string
	sortPct  bool
	asc      bool
	top      int
	xlsxOut  string
}

var funnelCmd = &cobra.Command{
	Use:   "funnel",
	Short: "Aggregate funnel stages per language or country",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		q, err := funnelFlags.query()
		if err != nil {
			return err
		}
		dim, err := parseDimension(funnelFlags.groupBy)
		if err != nil {
			return err
		}
		sortStat := model.Stat(funnelFlags.sortStat)
		if !model.ValidStat(sortStat) {
			return eris.Errorf("unknown stat %q", funnelFlags.sortStat)
		}

		snap, err := buildSnapshot(ctx)
		if err != nil {
			return err
		}
		cohort, lrCohort, err := funnelCohorts(snap, q)
		if err != nil {
			return err
		}

		steps := model.FunnelSteps(q.App)
		rows := engine.AggregateByGroup(cohort, lrCohort, dim, steps)

		top := funnelFlags.top
		if top == 0 {
			top = cfg.Report.TopN
		}
		rows = engine.TopN(rows, engine.SortKey{Stat: sortStat, Pct: funnelFlags.sortPct}, !funnelFlags.asc, top)

		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "No funnel activity matched the filters.")
			return nil
		}

		formatFunnel(os.Stdout, rows, steps, dim)

		if funnelFlags.xlsxOut != "" {
			path := filepath.Join(cfg.Report.OutDir, funnelFlags.xlsxOut)
			if err := export.WriteFunnelXLSX(path, rows, steps); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	funnelFlags.register(funnelCmd)
	funnelCmd.Flags().StringVar(&funnelFlags.groupBy, "group-by", "language", "grouping dimension: language or country")
	funnelCmd.Flags().StringVar(&funnelFlags.sortStat, "sort", "LR", "stat column to sort by (LR, DC, TS, SL, PC, LA, RA, GC)")
	funnelCmd.Flags().BoolVar(&funnelFlags.sortPct, "sort-pct", false, "sort by the stat's percent-of-LR column instead of the count")
	funnelCmd.Flags().BoolVar(&funnelFlags.asc, "asc", false, "sort ascending (worst performers first)")
	funnelCmd.Flags().IntVar(&funnelFlags.top, "top", 0, "max groups to display (default from config)")
	funnelCmd.Flags().StringVar(&funnelFlags.xlsxOut, "xlsx", "", "also write the table to an XLSX file in the report out dir")
	rootCmd.AddCommand(funnelCmd)
}

func parseDimension(s string) (model.Dimension, error) {
	switch s {
	case "language":
		return model.ByLanguage, nil
	case "country":
		return model.ByCountry, nil
	}
	return "", eris.Errorf("unknown group-by %q (want language or country)", s)
}

var titleCaser = cases.Title(language.Und)

// displayGroup renders a group value for terminal output. Languages are
// stored lowercase in the warehouse; countries already carry their casing.
func displayGroup(dim model.Dimension, v string) string {
	if dim == model.ByLanguage {
		return titleCaser.String(v)
	}
	return v
}

// formatFunnel writes a tabular funnel view to w.
func formatFunnel(out io.Writer, rows []engine.GroupRow, steps []model.Stat, dim model.Dimension) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "GROUP")
	for _, s := range steps {
		_, _ = fmt.Fprintf(w, "\t%s\t%s%%", s, s)
	}
	_, _ = fmt.Fprintln(w)

	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s", displayGroup(dim, r.Group))
		for _, s := range steps {
			_, _ = fmt.Fprintf(w, "\t%d\t%.1f", r.Counts[s], r.Pct[s])
		}
		_, _ = fmt.Fprintln(w)
	}
	_ = w.Flush()
}
