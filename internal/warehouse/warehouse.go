package warehouse

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/curious-learning/funnel-cli/internal/engine"
	"github.com/curious-learning/funnel-cli/internal/model"
)

// Extractor pulls the raw warehouse tables for one refresh cycle. Rows come
// back exactly as stored: unresolved, one row per (user, language, country).
type Extractor interface {
	// UserProgress returns the combined per-product progress export.
	UserProgress(ctx context.Context) ([]model.UserRecord, error)
	// CRFirstOpen returns the reader-app first-touch export.
	CRFirstOpen(ctx context.Context) ([]model.UserRecord, error)
	// CampaignSegments returns daily campaign spend segments.
	CampaignSegments(ctx context.Context) ([]model.CampaignSpend, error)
	// BookActivity returns per-(user, book language) reading aggregates.
	BookActivity(ctx context.Context) ([]model.BookActivity, error)
	Close()
}

// Build extracts all tables concurrently, normalizes languages, splits the
// combined export into products, resolves duplicate user rows, and parses
// campaign names. The returned snapshot is complete and immutable; engine
// calls never touch the warehouse again.
func Build(ctx context.Context, ex Extractor) (*engine.Snapshot, *Manifest, error) {
	log := zap.L().With(zap.String("component", "warehouse"))
	start := time.Now()

	var (
		progress   []model.UserRecord
		firstOpen  []model.UserRecord
		campaigns  []model.CampaignSpend
		bookRows   []model.BookActivity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		progress, err = ex.UserProgress(gctx)
		return eris.Wrap(err, "warehouse: user progress")
	})
	g.Go(func() error {
		var err error
		firstOpen, err = ex.CRFirstOpen(gctx)
		return eris.Wrap(err, "warehouse: cr first open")
	})
	g.Go(func() error {
		var err error
		campaigns, err = ex.CampaignSegments(gctx)
		return eris.Wrap(err, "warehouse: campaign segments")
	})
	g.Go(func() error {
		var err error
		bookRows, err = ex.BookActivity(gctx)
		return eris.Wrap(err, "warehouse: book activity")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	progress = normalizeUsers(progress)
	firstOpen = normalizeUsers(firstOpen)

	unityRaw, readerRaw := splitProducts(progress)
	resolved := engine.Resolve(firstOpen, readerRaw, model.SpaceCRUser)

	snap := &engine.Snapshot{
		UnityUsers:   engine.ResolveTable(unityRaw, model.SpacePseudo),
		CRUsers:      resolved.Progress,
		CRAppLaunch:  resolved.FirstTouch,
		Campaigns:    engine.AnnotateCampaigns(campaigns),
		BookActivity: bookRows,
	}

	m := NewManifest(snap)
	log.Info("snapshot built",
		zap.Int("unity_users", len(snap.UnityUsers)),
		zap.Int("cr_users", len(snap.CRUsers)),
		zap.Int("cr_app_launch", len(snap.CRAppLaunch)),
		zap.Int("campaign_segments", len(snap.Campaigns)),
		zap.Int("book_activity", len(snap.BookActivity)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return snap, m, nil
}
