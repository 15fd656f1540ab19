package model

import "time"

// IdentitySpace names the user-id universe a table or cohort draws from.
// Curious Reader rows key on cr_user_id; the Unity game app keys on
// user_pseudo_id. The two spaces are never merged or compared.
type IdentitySpace string

const (
	SpaceCRUser IdentitySpace = "cr_user_id"
	SpacePseudo IdentitySpace = "user_pseudo_id"
)

// UserRecord is one (user, language, country) observation as extracted from
// the warehouse. Before resolution a user id may appear on multiple rows, one
// per language/country the user was ever observed with.
type UserRecord struct {
	CRUserID     string `json:"cr_user_id,omitempty" csv:"cr_user_id"`
	UserPseudoID string `json:"user_pseudo_id,omitempty" csv:"user_pseudo_id"`

	FirstOpen   time.Time `json:"first_open" csv:"first_open"`
	Country     string    `json:"country" csv:"country"`
	AppLanguage string    `json:"app_language" csv:"app_language"`
	App         string    `json:"app,omitempty" csv:"app"`
	AppID       string    `json:"app_id,omitempty" csv:"app_id"`
	AppVersion  string    `json:"app_version,omitempty" csv:"app_version"`

	// FurthestEvent is the highest-ranked funnel event observed for the row.
	// Empty means no progress event was recorded.
	FurthestEvent string   `json:"furthest_event,omitempty" csv:"furthest_event"`
	MaxUserLevel  int      `json:"max_user_level" csv:"max_user_level"`
	GPC           *float64 `json:"gpc,omitempty" csv:"gpc"`

	EngagementEventCount    float64  `json:"engagement_event_count" csv:"engagement_event_count"`
	TotalTimeMinutes        float64  `json:"total_time_minutes" csv:"total_time_minutes"`
	AvgSessionLengthMinutes float64  `json:"avg_session_length_minutes" csv:"avg_session_length_minutes"`
	ActiveSpan              float64  `json:"active_span" csv:"active_span"`
	DaysToRA                *float64 `json:"days_to_ra,omitempty" csv:"days_to_ra"`

	RAFlag bool `json:"ra_flag,omitempty" csv:"ra_flag"`

	// StartedInOfflineMode is tri-state: the warehouse omits the column for
	// rows predating the offline build.
	StartedInOfflineMode *bool `json:"started_in_offline_mode,omitempty" csv:"started_in_offline_mode"`
}

// ID returns the user's identifier in the given space.
func (u UserRecord) ID(space IdentitySpace) string {
	if space == SpacePseudo {
		return u.UserPseudoID
	}
	return u.CRUserID
}

// Cohort is an immutable sub-population of resolved users produced by one
// filter invocation. It carries its identity space so id-list operations
// cannot cross spaces.
type Cohort struct {
	Space IdentitySpace
	Users []UserRecord
}

// Size reports cohort membership.
func (c Cohort) Size() int { return len(c.Users) }

// Empty reports whether the cohort has no members.
func (c Cohort) Empty() bool { return len(c.Users) == 0 }

// IDs returns the member ids in the cohort's own space, skipping blanks.
func (c Cohort) IDs() []string {
	ids := make([]string, 0, len(c.Users))
	for _, u := range c.Users {
		if id := u.ID(c.Space); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
