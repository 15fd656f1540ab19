package warehouse

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/curious-learning/funnel-cli/internal/model"
)

// SQLiteExtractor reads a local snapshot extract. Analysts pull one from the
// warehouse once and work offline against it; the schema mirrors the
// Postgres tables without the schema qualifiers.
type SQLiteExtractor struct {
	db *sql.DB
}

// NewSQLite opens a SQLite extract at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteExtractor, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteExtractor{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS all_users_progress (
	cr_user_id                 TEXT,
	user_pseudo_id             TEXT,
	first_open                 DATETIME NOT NULL,
	country                    TEXT,
	app_language               TEXT,
	app                        TEXT,
	app_id                     TEXT,
	app_version                TEXT,
	furthest_event             TEXT,
	max_user_level             INTEGER NOT NULL DEFAULT 0,
	gpc                        REAL,
	engagement_event_count     REAL NOT NULL DEFAULT 0,
	total_time_minutes         REAL NOT NULL DEFAULT 0,
	avg_session_length_minutes REAL NOT NULL DEFAULT 0,
	active_span                REAL NOT NULL DEFAULT 0,
	days_to_ra                 REAL,
	ra_flag                    INTEGER NOT NULL DEFAULT 0,
	started_in_offline_mode    INTEGER
);

CREATE TABLE IF NOT EXISTS user_first_open_list_cr (
	cr_user_id                 TEXT,
	user_pseudo_id             TEXT,
	first_open                 DATETIME NOT NULL,
	country                    TEXT,
	app_language               TEXT,
	app                        TEXT,
	app_id                     TEXT,
	app_version                TEXT,
	furthest_event             TEXT,
	max_user_level             INTEGER NOT NULL DEFAULT 0,
	gpc                        REAL,
	engagement_event_count     REAL NOT NULL DEFAULT 0,
	total_time_minutes         REAL NOT NULL DEFAULT 0,
	avg_session_length_minutes REAL NOT NULL DEFAULT 0,
	active_span                REAL NOT NULL DEFAULT 0,
	days_to_ra                 REAL,
	ra_flag                    INTEGER NOT NULL DEFAULT 0,
	started_in_offline_mode    INTEGER
);

CREATE TABLE IF NOT EXISTS campaign_segments (
	campaign_id         TEXT NOT NULL,
	campaign_name       TEXT,
	segment_date        DATETIME NOT NULL,
	campaign_start_date DATETIME,
	cost_micros         INTEGER NOT NULL DEFAULT 0,
	source              TEXT
);

CREATE TABLE IF NOT EXISTS cr_book_user_cohorts (
	cr_user_id           TEXT NOT NULL,
	app_language_book    TEXT,
	app_language         TEXT,
	active_days          INTEGER NOT NULL DEFAULT 0,
	distinct_books       INTEGER NOT NULL DEFAULT 0,
	max_book_active_days INTEGER NOT NULL DEFAULT 0,
	repeat_books         INTEGER NOT NULL DEFAULT 0,
	active_day_span      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_progress_first_open ON all_users_progress(first_open);
CREATE INDEX IF NOT EXISTS idx_first_open_cr ON user_first_open_list_cr(first_open);
CREATE INDEX IF NOT EXISTS idx_campaign_segment_date ON campaign_segments(segment_date);
CREATE INDEX IF NOT EXISTS idx_book_cohort_user ON cr_book_user_cohorts(cr_user_id);
`

// Migrate creates the extract schema if it does not exist yet.
func (s *SQLiteExtractor) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLiteExtractor) Close() {
	s.db.Close()
}

// InsertUsers seeds rows into one of the two user tables. Used when pulling
// an extract down from the warehouse.
func (s *SQLiteExtractor) InsertUsers(ctx context.Context, table string, rows []model.UserRecord) error {
	if table != "all_users_progress" && table != "user_first_open_list_cr" {
		return eris.Errorf("sqlite: unknown user table %q", table)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (
		cr_user_id, user_pseudo_id, first_open, country, app_language,
		app, app_id, app_version, furthest_event, max_user_level, gpc,
		engagement_event_count, total_time_minutes, avg_session_length_minutes,
		active_span, days_to_ra, ra_flag, started_in_offline_mode
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for _, u := range rows {
		var gpc, daysToRA any
		if u.GPC != nil {
			gpc = *u.GPC
		}
		if u.DaysToRA != nil {
			daysToRA = *u.DaysToRA
		}
		var offline any
		if u.StartedInOfflineMode != nil {
			offline = *u.StartedInOfflineMode
		}
		if _, err := stmt.ExecContext(ctx,
			u.CRUserID, u.UserPseudoID, u.FirstOpen, u.Country, u.AppLanguage,
			u.App, u.AppID, u.AppVersion, u.FurthestEvent, u.MaxUserLevel, gpc,
			u.EngagementEventCount, u.TotalTimeMinutes, u.AvgSessionLengthMinutes,
			u.ActiveSpan, daysToRA, u.RAFlag, offline,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// InsertCampaigns seeds campaign spend segments, converting currency back to
// micros for storage.
func (s *SQLiteExtractor) InsertCampaigns(ctx context.Context, rows []model.CampaignSpend) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	for _, c := range rows {
		micros := c.Cost.Shift(6).IntPart()
		if _, err := tx.ExecContext(ctx, `INSERT INTO campaign_segments (
			campaign_id, campaign_name, segment_date, campaign_start_date,
			cost_micros, source
		) VALUES (?, ?, ?, ?, ?, ?)`,
			c.CampaignID, c.CampaignName, c.SegmentDate, c.StartDate,
			micros, c.Source,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert campaign segment")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// InsertBookActivity seeds per-user book reading aggregates.
func (s *SQLiteExtractor) InsertBookActivity(ctx context.Context, rows []model.BookActivity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	for _, b := range rows {
		if _, err := tx.ExecContext(ctx, `INSERT INTO cr_book_user_cohorts (
			cr_user_id, app_language_book, app_language, active_days,
			distinct_books, max_book_active_days, repeat_books, active_day_span
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.CRUserID, b.AppLanguageBook, b.AppLanguage, b.ActiveDays,
			b.DistinctBooks, b.MaxBookActiveDays, b.RepeatBooks, b.ActiveDaySpan,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert book activity")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// UserProgress implements Extractor.
func (s *SQLiteExtractor) UserProgress(ctx context.Context) ([]model.UserRecord, error) {
	return s.queryUsers(ctx, "all_users_progress")
}

// CRFirstOpen implements Extractor.
func (s *SQLiteExtractor) CRFirstOpen(ctx context.Context) ([]model.UserRecord, error) {
	return s.queryUsers(ctx, "user_first_open_list_cr")
}

func (s *SQLiteExtractor) queryUsers(ctx context.Context, table string) ([]model.UserRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		cr_user_id, user_pseudo_id, first_open, country, app_language,
		app, app_id, app_version, furthest_event, max_user_level, gpc,
		engagement_event_count, total_time_minutes, avg_session_length_minutes,
		active_span, days_to_ra, ra_flag, started_in_offline_mode
	FROM `+table+` WHERE first_open >= ?`, UserDataStart)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query %s", table)
	}
	defer rows.Close()

	var out []model.UserRecord
	for rows.Next() {
		var (
			u        model.UserRecord
			crID     sql.NullString
			pseudoID sql.NullString
			country  sql.NullString
			language sql.NullString
			app      sql.NullString
			appID    sql.NullString
			version  sql.NullString
			event    sql.NullString
			gpc      sql.NullFloat64
			daysToRA sql.NullFloat64
			offline  sql.NullBool
		)
		if err := rows.Scan(&crID, &pseudoID, &u.FirstOpen, &country, &language,
			&app, &appID, &version, &event, &u.MaxUserLevel, &gpc,
			&u.EngagementEventCount, &u.TotalTimeMinutes, &u.AvgSessionLengthMinutes,
			&u.ActiveSpan, &daysToRA, &u.RAFlag, &offline); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s row", table)
		}
		u.CRUserID = crID.String
		u.UserPseudoID = pseudoID.String
		u.Country = country.String
		u.AppLanguage = language.String
		u.App = app.String
		u.AppID = appID.String
		u.AppVersion = version.String
		u.FurthestEvent = event.String
		if gpc.Valid {
			v := gpc.Float64
			u.GPC = &v
		}
		if daysToRA.Valid {
			v := daysToRA.Float64
			u.DaysToRA = &v
		}
		if offline.Valid {
			v := offline.Bool
			u.StartedInOfflineMode = &v
		}
		out = append(out, u)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: %s rows", table)
}

// CampaignSegments implements Extractor.
func (s *SQLiteExtractor) CampaignSegments(ctx context.Context) ([]model.CampaignSpend, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		campaign_id, campaign_name, segment_date, campaign_start_date,
		cost_micros, source
	FROM campaign_segments WHERE segment_date >= ?`, CampaignDataStart)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query campaign segments")
	}
	defer rows.Close()

	var out []model.CampaignSpend
	for rows.Next() {
		var (
			c      model.CampaignSpend
			name   sql.NullString
			start  sql.NullTime
			micros int64
			source sql.NullString
		)
		if err := rows.Scan(&c.CampaignID, &name, &c.SegmentDate, &start,
			&micros, &source); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign row")
		}
		c.CampaignName = name.String
		c.StartDate = start.Time
		c.Cost = decimal.New(micros, -6).Round(2)
		c.Source = source.String
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: campaign rows")
}

// BookActivity implements Extractor.
func (s *SQLiteExtractor) BookActivity(ctx context.Context) ([]model.BookActivity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		cr_user_id, app_language_book, app_language, active_days,
		distinct_books, max_book_active_days, repeat_books, active_day_span
	FROM cr_book_user_cohorts`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query book cohorts")
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
			return nil, eris.Wrap(err, "sqlite: scan book cohort row")
		}
		b.AppLanguageBook = bookLang.String
		b.AppLanguage = appLang.String
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: book cohort rows")
}
