package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/curious-learning/funnel-cli/internal/engine"
	"github.com/curious-learning/funnel-cli/internal/model"
)

var tiersFlags struct {
	bookLanguages []string
}

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Book-reading engagement tier distribution",
	Long:  "Classifies reader-app users into engagement tiers 0-3 from their book-reading activity. Users with no reading activity are tier 0, never dropped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		snap, err := buildSnapshot(ctx)
		if err != nil {
			return err
		}

		eligible, tiers := classifyTiers(snap)
		dist := engine.TierDistribution(eligible, tiers)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "TIER\tUSERS")
		total := 0
		for t := engine.TierMin; t <= engine.TierMax; t++ {
			_, _ = fmt.Fprintf(w, "%d\t%d\n", t, dist[t])
			total += dist[t]
		}
		_, _ = fmt.Fprintf(w, "total\t%d\n", total)
		_ = w.Flush()
		return nil
	},
}

var tiersCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare reader progress across engagement tiers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		snap, err := buildSnapshot(ctx)
		if err != nil {
			return err
		}

		eligible, tiers := classifyTiers(snap)
		stats := engine.CompareTiers(eligible, tiers)
		if len(stats) == 0 {
			fmt.Fprintln(os.Stderr, "No acquired learners in the eligible universe.")
			return nil
		}
		formatTierStats(os.Stdout, stats)
		return nil
	},
}

func init() {
	tiersCmd.PersistentFlags().StringSliceVar(&tiersFlags.bookLanguages, "book-languages", nil, "book language filter (omit for all)")
	tiersCmd.AddCommand(tiersCompareCmd)
	rootCmd.AddCommand(tiersCmd)
}

// classifyTiers derives the eligible universe and each user's tier from the
// snapshot's book activity, honoring the book language selection.
func classifyTiers(snap *engine.Snapshot) ([]model.UserRecord, map[string]int) {
	books := tiersFlags.bookLanguages
	if len(books) == 0 {
		books = engine.BookLanguages(snap.BookActivity)
	}
	mapped := engine.BuildLanguageMap(snap.BookActivity).MappedAppLanguages(books)
	eligible := engine.EligibleUsers(snap.CRUsers, mapped)
	tiers := engine.TiersByUser(snap.BookActivity, books)
	return eligible, tiers
}

func formatTierStats(out io.Writer, stats []engine.TierStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIER\tUSERS\tAVG LVL\tMED LVL\tAVG MIN\tMED MIN\tRA%\t>=2\t>=4\t>=10\t>=25\tLIFT LVL\tLIFT RA")
	for _, s := range stats {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%+.1f\t%+.1f\n",
			s.Tier, s.Users,
			s.AvgLevel, s.MedianLevel,
			s.AvgTimeMinutes, s.MedianTimeMinutes,
			s.PctRA*100,
			s.PctReach2*100, s.PctReach4*100, s.PctReach10*100, s.PctReach25*100,
			s.LiftAvgLevel, s.LiftPctRA*100,
		)
	}
	_ = w.Flush()
}
