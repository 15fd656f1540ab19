package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curious-learning/funnel-cli/internal/warehouse"
)

var pullOut string

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Copy the warehouse tables into a local SQLite extract",
	Long:  "Pulls the raw warehouse tables from Postgres into a local SQLite file so reports can run offline with store.driver=sqlite.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Store.DatabaseURL == "" {
			return eris.New("pull requires store.database_url")
		}

		src, err := warehouse.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer src.Close()

		out := pullOut
		if out == "" {
			out = cfg.Store.SQLitePath
		}
		dst, err := warehouse.NewSQLite(out)
		if err != nil {
			return err
		}
		defer dst.Close()
		if err := dst.Migrate(ctx); err != nil {
			return err
		}

		progress, err := src.UserProgress(ctx)
		if err != nil {
			return err
		}
		if err := dst.InsertUsers(ctx, "all_users_progress", progress); err != nil {
			return err
		}

		firstOpen, err := src.CRFirstOpen(ctx)
		if err != nil {
			return err
		}
		if err := dst.InsertUsers(ctx, "user_first_open_list_cr", firstOpen); err != nil {
			return err
		}

		campaigns, err := src.CampaignSegments(ctx)
		if err != nil {
			return err
		}
		if err := dst.InsertCampaigns(ctx, campaigns); err != nil {
			return err
		}

		books, err := src.BookActivity(ctx)
		if err != nil {
			return err
		}
		if err := dst.InsertBookActivity(ctx, books); err != nil {
			return err
		}

		zap.L().Info("extract pulled",
			zap.String("path", out),
			zap.Int("progress_rows", len(progress)),
			zap.Int("first_open_rows", len(firstOpen)),
			zap.Int("campaign_rows", len(campaigns)),
			zap.Int("book_rows", len(books)),
		)
		fmt.Printf("Pulled %d progress, %d first-open, %d campaign, %d book rows into %s\n",
			len(progress), len(firstOpen), len(campaigns), len(books), out)
		return nil
	},
}

func init() {
	pullCmd.Flags().StringVar(&pullOut, "out", "", "output SQLite path (default from config)")
	rootCmd.AddCommand(pullCmd)
}
