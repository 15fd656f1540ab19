package warehouse

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/curious-learning/funnel-cli/internal/model"
)

// Querier is the subset of pgxpool.Pool the extractor needs; pgxmock
// satisfies it for tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// PostgresExtractor reads the warehouse mirror tables from Postgres.
type PostgresExtractor struct {
	pool    Querier
	closeFn func()
}

// NewPostgres connects to the warehouse mirror.
func NewPostgres(ctx context.Context, connString string) (*PostgresExtractor, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "warehouse: ping")
	}
	return &PostgresExtractor{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromQuerier wraps an existing connection source. Used by tests.
func NewPostgresFromQuerier(q Querier) *PostgresExtractor {
	return &PostgresExtractor{pool: q, closeFn: func() {}}
}

// Close releases the connection pool.
func (p *PostgresExtractor) Close() { p.closeFn() }

const userProgressQuery = `
SELECT cr_user_id, user_pseudo_id, first_open, country, app_language,
       app, app_id, app_version, furthest_event, max_user_level, gpc,
       engagement_event_count, total_time_minutes, avg_session_length_minutes,
       active_span, days_to_ra, ra_flag, started_in_offline_mode
FROM user_data.all_users_progress
WHERE first_open >= $1`

const crFirstOpenQuery = `
SELECT cr_user_id, user_pseudo_id, first_open, country, app_language,
       app, app_id, app_version, furthest_event, max_user_level, gpc,
       engagement_event_count, total_time_minutes, avg_session_length_minutes,
       active_span, days_to_ra, ra_flag, started_in_offline_mode
FROM user_data.user_first_open_list_cr
WHERE first_open >= $1`

const campaignQuery = `
SELECT campaign_id, campaign_name, segment_date, campaign_start_date,
       cost_micros, source
FROM marketing_data.campaign_segments
WHERE segment_date >= $1`

const bookActivityQuery = `
SELECT cr_user_id, app_language_book, app_language, active_days,
       distinct_books, max_book_active_days, repeat_books, active_day_span
FROM user_data.cr_book_user_cohorts`

// UserProgress implements Extractor.
func (p *PostgresExtractor) UserProgress(ctx context.Context) ([]model.UserRecord, error) {
	return p.queryUsers(ctx, userProgressQuery)
}

// CRFirstOpen implements Extractor.
func (p *PostgresExtractor) CRFirstOpen(ctx context.Context) ([]model.UserRecord, error) {
	return p.queryUsers(ctx, crFirstOpenQuery)
}

func (p *PostgresExtractor) queryUsers(ctx context.Context, q string) ([]model.UserRecord, error) {
	rows, err := p.pool.Query(ctx, q, UserDataStart)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query users")
	}
	defer rows.Close()

	var out []model.UserRecord
	for rows.Next() {
		var (
			u          model.UserRecord
			crID       sql.NullString
			pseudoID   sql.NullString
			country    sql.NullString
			language   sql.NullString
			app        sql.NullString
			appID      sql.NullString
			appVersion sql.NullString
			event      sql.NullString
			maxLevel   sql.NullInt64
			gpc        sql.NullFloat64
			sessions   sql.NullFloat64
			totalTime  sql.NullFloat64
			avgSession sql.NullFloat64
			activeSpan sql.NullFloat64
			daysToRA   sql.NullFloat64
			raFlag     sql.NullBool
			offline    sql.NullBool
		)
		if err := rows.Scan(&crID, &pseudoID, &u.FirstOpen, &country, &language,
			&app, &appID, &appVersion, &event, &maxLevel, &gpc,
			&sessions, &totalTime, &avgSession, &activeSpan, &daysToRA,
			&raFlag, &offline); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan user row")
		}
		u.CRUserID = crID.String
		u.UserPseudoID = pseudoID.String
		u.Country = country.String
		u.AppLanguage = language.String
		u.App = app.String
		u.AppID = appID.String
		u.AppVersion = appVersion.String
		u.FurthestEvent = event.String
		u.MaxUserLevel = int(maxLevel.Int64)
		if gpc.Valid {
			v := gpc.Float64
			u.GPC = &v
		}
		u.EngagementEventCount = sessions.Float64
		u.TotalTimeMinutes = totalTime.Float64
		u.AvgSessionLengthMinutes = avgSession.Float64
		u.ActiveSpan = activeSpan.Float64
		if daysToRA.Valid {
			v := daysToRA.Float64
			u.DaysToRA = &v
		}
		u.RAFlag = raFlag.Bool
		if offline.Valid {
			v := offline.Bool
			u.StartedInOfflineMode = &v
		}
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "warehouse: user rows")
}

// CampaignSegments implements Extractor. Ad-platform cost arrives in micros
// and is converted to currency here.
func (p *PostgresExtractor) CampaignSegments(ctx context.Context) ([]model.CampaignSpend, error) {
	rows, err := p.pool.Query(ctx, campaignQuery, CampaignDataStart)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query campaigns")
	}
	defer rows.Close()

	var out []model.CampaignSpend
	for rows.Next() {
		var (
			c          model.CampaignSpend
			name       sql.NullString
			startDate  sql.NullTime
			costMicros sql.NullInt64
			source     sql.NullString
		)
		if err := rows.Scan(&c.CampaignID, &name, &c.SegmentDate, &startDate,
			&costMicros, &source); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan campaign row")
		}
		c.CampaignName = name.String
		c.StartDate = startDate.Time
		c.Cost = decimal.New(costMicros.Int64, -6).Round(2)
		c.Source = source.String
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "warehouse: campaign rows")
}

// BookActivity implements Extractor.
func (p *PostgresExtractor) BookActivity(ctx context.Context) ([]model.BookActivity, error) {
	rows, err := p.pool.Query(ctx, bookActivityQuery)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: query book activity")
	}
	defer rows.Close()

	var out []model.BookActivity
	for rows.Next() {
		var (
			b        model.BookActivity
			bookLang sql.NullString
			appLang  sql.NullString
		)
		if err := rows.Scan(&b.CRUserID, &bookLang, &appLang, &b.ActiveDays,
			&b.DistinctBooks, &b.MaxBookActiveDays, &b.RepeatBooks,
			&b.ActiveDaySpan); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan book activity row")
		}
		b.AppLanguageBook = bookLang.String
		b.AppLanguage = appLang.String
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "warehouse: book activity rows")
}
