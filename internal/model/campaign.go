package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Campaign ad platforms.
const (
	SourceGoogle   = "Google"
	SourceFacebook = "Facebook"
)

// CampaignSpend is one daily spend segment for a marketing campaign.
// Country and AppLanguage are parsed from the campaign name; they are empty
// when the name does not follow the naming convention, which excludes the
// row from cost-per-metric joins but never fails the load.
type CampaignSpend struct {
	CampaignID   string          `json:"campaign_id" csv:"campaign_id"`
	CampaignName string          `json:"campaign_name" csv:"campaign_name"`
	SegmentDate  time.Time       `json:"segment_date" csv:"segment_date"`
	StartDate    time.Time       `json:"campaign_start_date" csv:"campaign_start_date"`
	Cost         decimal.Decimal `json:"cost" csv:"cost"`
	Source       string          `json:"source" csv:"source"`
	Country      string          `json:"country,omitempty" csv:"country"`
	AppLanguage  string          `json:"app_language,omitempty" csv:"app_language"`
}

// Compliant reports whether the campaign name parsed into both a country and
// a language, making the row eligible for cost-per-metric joins.
func (c CampaignSpend) Compliant() bool {
	return c.Country != "" && c.AppLanguage != ""
}

// BookActivity is one user's book-reading activity aggregate for a book
// language, as extracted from the reading cohort table.
type BookActivity struct {
	CRUserID        string `json:"cr_user_id" csv:"cr_user_id"`
	AppLanguageBook string `json:"app_language_book" csv:"app_language_book"`
	AppLanguage     string `json:"app_language" csv:"app_language"`

	ActiveDays        int `json:"active_days" csv:"active_days"`
	DistinctBooks     int `json:"distinct_books" csv:"distinct_books"`
	MaxBookActiveDays int `json:"max_book_active_days" csv:"max_book_active_days"`
	RepeatBooks       int `json:"repeat_books" csv:"repeat_books"`
	ActiveDaySpan     int `json:"active_day_span" csv:"active_day_span"`
}
