package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/curious-learning/funnel-cli/internal/engine"
	"github.com/curious-learning/funnel-cli/internal/export"
	"github.com/curious-learning/funnel-cli/internal/model"
)

var campaignsFlags struct {
	cohortFlags
	csvOut  string
	xlsxOut string
}

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Inspect marketing campaign spend",
	Long:  "Lists rolled-up campaign spend and joins it against funnel cohorts by the (language, country) encoded in campaign names.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		q, err := campaignsFlags.query()
		if err != nil {
			return err
		}

		snap, err := buildSnapshot(ctx)
		if err != nil {
			return err
		}

		rolled := engine.RollupCampaigns(
			engine.FilterCampaigns(snap.Campaigns, q.Dates, q.Countries, q.Languages),
		)
		if len(rolled) == 0 {
			fmt.Fprintln(os.Stderr, "No compliant campaigns matched the filters.")
			return nil
		}

		formatCampaigns(os.Stdout, rolled)
		fmt.Printf("\nTotal spend: %s\n", engine.TotalCost(rolled).StringFixed(2))
		return nil
	},
}

var campaignCostsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Cost-per-acquisition table by country and language",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		q, err := campaignsFlags.query()
		if err != nil {
			return err
		}

		snap, err := buildSnapshot(ctx)
		if err != nil {
			return err
		}
		cohort, _, err := funnelCohorts(snap, q)
		if err != nil {
			return err
		}

		campaigns := engine.FilterCampaigns(snap.Campaigns, q.Dates, q.Countries, q.Languages)
		rows := engine.BuildCostTable(campaigns, cohort)
		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "No compliant campaigns matched the filters.")
			return nil
		}

		formatCostTable(os.Stdout, rows)

		if campaignsFlags.csvOut != "" {
			path := filepath.Join(cfg.Report.OutDir, campaignsFlags.csvOut)
			if err := export.WriteCostTableCSV(path, rows); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		}
		if campaignsFlags.xlsxOut != "" {
			path := filepath.Join(cfg.Report.OutDir, campaignsFlags.xlsxOut)
			if err := export.WriteCostTableXLSX(path, rows); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	campaignsFlags.register(campaignsCmd)
	campaignCostsCmd.Flags().StringVar(&campaignsFlags.csvOut, "csv", "", "write the cost table to a CSV file in the report out dir")
	campaignCostsCmd.Flags().StringVar(&campaignsFlags.xlsxOut, "xlsx", "", "write the cost table to an XLSX file in the report out dir")
	campaignsCmd.AddCommand(campaignCostsCmd)
	rootCmd.AddCommand(campaignsCmd)
}

// costCell renders an optional cost-per-metric value; nil means the metric
// count was zero.
func costCell(d *decimal.Decimal) string {
	if d == nil {
		return "N/A"
	}
	return d.StringFixed(2)
}

func formatCampaigns(out io.Writer, rows []model.CampaignSpend) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCOUNTRY\tLANGUAGE\tSOURCE\tCOST")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CampaignID, r.CampaignName, r.Country, r.AppLanguage, r.Source,
			r.Cost.StringFixed(2),
		)
	}
	_ = w.Flush()
}

func formatCostTable(out io.Writer, rows []engine.CostRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNTRY\tLANGUAGE\tCOST\tLR\tPC\tLA\tRA\tLRC\tPCC\tLAC\tRAC\tPC/LR%\tLA/LR%\tRA/LR%")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\t%.1f\t%.1f\t%.1f\n",
			r.Country, r.AppLanguage, r.Cost.StringFixed(2),
			r.LR, r.PC, r.LA, r.RA,
			costCell(r.LRC), costCell(r.PCC), costCell(r.LAC), costCell(r.RAC),
			r.PCOverLR, r.LAOverLR, r.RAOverLR,
		)
	}
	_ = w.Flush()
}
