package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curious-learning/funnel-cli/internal/engine"
	"github.com/curious-learning/funnel-cli/internal/model"
	"github.com/curious-learning/funnel-cli/internal/warehouse"
)

// initExtractor opens the snapshot source selected by store.driver.
func initExtractor(ctx context.Context) (warehouse.Extractor, error) {
	if err := cfg.Validate("report"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		ex, err := warehouse.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := ex.Migrate(ctx); err != nil {
			ex.Close()
			return nil, err
		}
		return ex, nil
	default:
		return warehouse.NewPostgres(ctx, cfg.Store.DatabaseURL)
	}
}

// buildSnapshot extracts and resolves all tables, writing the manifest
// alongside.
func buildSnapshot(ctx context.Context) (*engine.Snapshot, error) {
	ex, err := initExtractor(ctx)
	if err != nil {
		return nil, err
	}
	defer ex.Close()

	snap, manifest, err := warehouse.Build(ctx, ex)
	if err != nil {
		return nil, err
	}
	if err := manifest.Write(cfg.Store.ManifestPath); err != nil {
		zap.L().Warn("manifest write failed", zap.Error(err))
	}
	return snap, nil
}

// cohortFlags is the filter flag set shared by the report commands.
type cohortFlags struct {
	apps      []string
	countries []string
	languages []string
	versions  []string
	start     string
	end       string
	offline   string
}

func (f *cohortFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.apps, "app", []string{"CR"}, "app selection: CR, Unity, or *-standalone variants")
	cmd.Flags().StringSliceVar(&f.countries, "countries", nil, "country filter (omit or All for every country)")
	cmd.Flags().StringSliceVar(&f.languages, "languages", nil, "app language filter (omit or All for every language)")
	cmd.Flags().StringSliceVar(&f.versions, "versions", nil, "reader app version filter")
	cmd.Flags().StringVar(&f.start, "start", "", "first_open range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "first_open range end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.offline, "offline", "", "filter by offline-mode start: true or false")
}

// query resolves the raw flag values into a typed engine query.
func (f *cohortFlags) query() (model.Query, error) {
	q := model.Query{
		App:         model.ParseAppSelector(f.apps),
		Countries:   model.ParseStringFilter(f.countries),
		Languages:   model.ParseStringFilter(f.languages),
		AppVersions: model.ParseStringFilter(f.versions),
	}

	dates, err := parseDateRange(f.start, f.end)
	if err != nil {
		return model.Query{}, err
	}
	q.Dates = dates

	switch f.offline {
	case "":
	case "true":
		v := true
		q.Offline = &v
	case "false":
		v := false
		q.Offline = &v
	default:
		return model.Query{}, eris.Errorf("invalid --offline value %q (want true or false)", f.offline)
	}

	return q, nil
}

func parseDateRange(start, end string) (model.DateRange, error) {
	var r model.DateRange
	if start == "" && end == "" {
		return r, nil
	}
	if start == "" || end == "" {
		return r, eris.New("--start and --end must be given together")
	}
	var err error
	r.Start, err = time.Parse("2006-01-02", start)
	if err != nil {
		return model.DateRange{}, eris.Wrapf(err, "parse --start %q", start)
	}
	r.End, err = time.Parse("2006-01-02", end)
	if err != nil {
		return model.DateRange{}, eris.Wrapf(err, "parse --end %q", end)
	}
	if r.End.Before(r.Start) {
		return model.DateRange{}, eris.New("--end precedes --start")
	}
	return r, nil
}

// funnelCohorts filters the progress cohort and, for the reader app, the
// separate first-touch LR cohort. Unity and the standalone variants count LR
// from the progress table itself, so their LR cohort stays empty.
func funnelCohorts(snap *engine.Snapshot, q model.Query) (cohort, lrCohort model.Cohort, err error) {
	cohort, err = engine.Filter(snap, q, model.StatPC)
	if err != nil {
		return model.Cohort{}, model.Cohort{}, err
	}
	if q.App.Kind == model.AppReader {
		lrCohort, err = engine.Filter(snap, q, model.StatLR)
		if err != nil {
			return model.Cohort{}, model.Cohort{}, err
		}
	}
	return cohort, lrCohort, nil
}
