package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curious-learning/funnel-cli/internal/model"
)

func TestTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		activity model.BookActivity
		want     int
	}{
		{"no activity", model.BookActivity{}, 0},
		{"one day one book", model.BookActivity{ActiveDays: 1, DistinctBooks: 1, MaxBookActiveDays: 1, ActiveDaySpan: 1}, 1},
		{"two active days", model.BookActivity{ActiveDays: 2, DistinctBooks: 1, MaxBookActiveDays: 1, ActiveDaySpan: 2}, 2},
		{"one day two books", model.BookActivity{ActiveDays: 1, DistinctBooks: 2, MaxBookActiveDays: 1, ActiveDaySpan: 1}, 2},
		{"same book twice", model.BookActivity{ActiveDays: 1, DistinctBooks: 1, MaxBookActiveDays: 2, ActiveDaySpan: 1}, 2},
		{"three days three books", model.BookActivity{ActiveDays: 3, DistinctBooks: 3, MaxBookActiveDays: 1, ActiveDaySpan: 2}, 3},
		{"three days two repeat books", model.BookActivity{ActiveDays: 3, DistinctBooks: 2, MaxBookActiveDays: 2, RepeatBooks: 2, ActiveDaySpan: 2}, 3},
		{"three days long span", model.BookActivity{ActiveDays: 3, DistinctBooks: 1, MaxBookActiveDays: 3, ActiveDaySpan: 5}, 3},
		{"three days without tier-3 signal stays tier 2", model.BookActivity{ActiveDays: 3, DistinctBooks: 2, MaxBookActiveDays: 1, RepeatBooks: 1, ActiveDaySpan: 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Tier(tt.activity))
		})
	}
}

func TestClampTier(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, ClampTier(-2))
	assert.Equal(t, 2, ClampTier(2))
	assert.Equal(t, 3, ClampTier(7))
}

func bookRow(user, bookLang, appLang string, activeDays int) model.BookActivity {
	return model.BookActivity{
		CRUserID:        user,
		AppLanguageBook: bookLang,
		AppLanguage:     appLang,
		ActiveDays:      activeDays,
		DistinctBooks:   1,
		ActiveDaySpan:   1,
	}
}

func TestBuildLanguageMap(t *testing.T) {
	t.Parallel()

	activity := []model.BookActivity{
		bookRow("u1", "swahili-books", "swahili", 1),
		bookRow("u2", "swahili-books", "swahili", 1), // duplicate pair
		bookRow("u3", " swahili-books ", "swahili", 1),
		bookRow("u4", "", "swahili", 1),  // blank book language dropped
		bookRow("u5", "hausa-books", "", 1), // blank app language dropped
	}

	m := BuildLanguageMap(activity)
	require.Len(t, m, 1)
	assert.Equal(t, []string{"swahili"}, m["swahili-books"])
	assert.Equal(t, []string{"swahili"}, m.MappedAppLanguages([]string{"swahili-books"}))
	assert.Empty(t, m.MappedAppLanguages([]string{"hausa-books"}))
}

func TestEligibleUsersDedupsAndMatchesLanguage(t *testing.T) {
	t.Parallel()

	users := []model.UserRecord{
		{CRUserID: "u1", AppLanguage: "swahili"},
		{CRUserID: "u1", AppLanguage: "swahili"},
		{CRUserID: "u2", AppLanguage: "french"},
		{CRUserID: "", AppLanguage: "swahili"},
	}

	got := EligibleUsers(users, []string{"swahili"})
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].CRUserID)
}

// A book language selection whose rows carry no app language maps to nothing,
// which means nobody is eligible, not everybody.
func TestEligibleUsersEmptyMapping(t *testing.T) {
	t.Parallel()

	users := []model.UserRecord{
		{CRUserID: "u1", AppLanguage: "swahili"},
		{CRUserID: "u2", AppLanguage: "french"},
	}

	assert.Empty(t, EligibleUsers(users, nil))
	assert.Empty(t, EligibleUsers(users, []string{}))

	activity := []model.BookActivity{bookRow("u1", "hausa-books", "", 2)}
	mapped := BuildLanguageMap(activity).MappedAppLanguages([]string{"hausa-books"})
	assert.Empty(t, EligibleUsers(users, mapped))
}

// Every eligible user gets exactly one tier; users absent from the activity
// table are tier 0, not dropped.
func TestTierDistributionTotality(t *testing.T) {
	t.Parallel()

	eligible := []model.UserRecord{
		{CRUserID: "reader", AppLanguage: "swahili"},
		{CRUserID: "casual", AppLanguage: "swahili"},
		{CRUserID: "absent", AppLanguage: "swahili"},
	}
	activity := []model.BookActivity{
		{CRUserID: "reader", AppLanguageBook: "swahili-books", ActiveDays: 3, DistinctBooks: 3, ActiveDaySpan: 4},
		{CRUserID: "casual", AppLanguageBook: "swahili-books", ActiveDays: 1, DistinctBooks: 1, MaxBookActiveDays: 1, ActiveDaySpan: 1},
		{CRUserID: "stranger", AppLanguageBook: "swahili-books", ActiveDays: 2},
	}

	tiers := TiersByUser(activity, []string{"swahili-books"})
	dist := TierDistribution(eligible, tiers)

	total := 0
	for _, n := range dist {
		total += n
	}
	assert.Equal(t, len(eligible), total)
	assert.Equal(t, 1, dist[0]) // "absent" has no activity row
	assert.Equal(t, 1, dist[1])
	assert.Equal(t, 1, dist[3])
}

func TestTiersByUserFiltersBookLanguage(t *testing.T) {
	t.Parallel()

	activity := []model.BookActivity{
		bookRow("u1", "swahili-books", "swahili", 1),
		bookRow("u2", "hausa-books", "hausa", 1),
	}
	tiers := TiersByUser(activity, []string{"swahili-books"})
	assert.Equal(t, map[string]int{"u1": 1}, tiers)
}

func TestCompareTiersLAOnlyWithLift(t *testing.T) {
	t.Parallel()

	eligible := []model.UserRecord{
		{CRUserID: "t0", AppLanguage: "swahili", MaxUserLevel: 4, TotalTimeMinutes: 10},
		{CRUserID: "t3a", AppLanguage: "swahili", MaxUserLevel: 26, TotalTimeMinutes: 90},
		{CRUserID: "t3b", AppLanguage: "swahili", MaxUserLevel: 10, TotalTimeMinutes: 50},
		{CRUserID: "pre-la", AppLanguage: "swahili", MaxUserLevel: 0},
	}
	tiers := map[string]int{"t3a": 3, "t3b": 3}

	stats := CompareTiers(eligible, tiers)
	require.Len(t, stats, 2)

	base := stats[0]
	assert.Equal(t, 0, base.Tier)
	assert.Equal(t, 1, base.Users)
	assert.InDelta(t, 4.0, base.AvgLevel, 1e-9)
	assert.Zero(t, base.PctRA)
	assert.InDelta(t, 1.0, base.PctReach4, 1e-9)

	top := stats[1]
	assert.Equal(t, 3, top.Tier)
	assert.Equal(t, 2, top.Users)
	assert.InDelta(t, 18.0, top.AvgLevel, 1e-9)
	assert.InDelta(t, 0.5, top.PctRA, 1e-9)
	assert.InDelta(t, 14.0, top.LiftAvgLevel, 1e-9)
	assert.InDelta(t, 0.5, top.LiftPctRA, 1e-9)
}
