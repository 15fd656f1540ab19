package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curious-learning/funnel-cli/internal/model"
)

func bptr(b bool) *bool { return &b }

func testSnapshot() *Snapshot {
	return &Snapshot{
		UnityUsers: []model.UserRecord{
			{UserPseudoID: "p1", FirstOpen: day(1), Country: "Kenya", AppLanguage: "swahili", FurthestEvent: model.EventLevelCompleted, MaxUserLevel: 8},
			{UserPseudoID: "p2", FirstOpen: day(10), Country: "Nigeria", AppLanguage: "hausa"},
		},
		CRUsers: []model.UserRecord{
			{CRUserID: "c1", FirstOpen: day(2), Country: "Kenya", AppLanguage: "swahili", App: "CR", AppVersion: "v1.0.30", FurthestEvent: model.EventPuzzleCompleted},
			{CRUserID: "c2", FirstOpen: day(5), Country: "France", AppLanguage: "french", App: "CR", AppVersion: "v1.0.25", StartedInOfflineMode: bptr(true)},
			{CRUserID: "c3", FirstOpen: day(20), Country: "Kenya", AppLanguage: "swahili", App: "ftm-standalone", AppVersion: "v1.0.26"},
		},
		CRAppLaunch: []model.UserRecord{
			{CRUserID: "c1", FirstOpen: day(2), Country: "Kenya", AppLanguage: "swahili"},
			{CRUserID: "c2", FirstOpen: day(5), Country: "France", AppLanguage: "french"},
			{CRUserID: "c4", FirstOpen: day(6), Country: "Kenya", AppLanguage: "swahili"},
		},
	}
}

func allDates() model.DateRange {
	return model.DateRange{Start: day(1), End: day(28)}
}

func TestFilterDispatch(t *testing.T) {
	t.Parallel()
	snap := testSnapshot()

	tests := []struct {
		name      string
		apps      []string
		stat      model.Stat
		wantIDs   []string
		wantSpace model.IdentitySpace
	}{
		{
			name: "unity draws from the game table",
			apps: []string{"Unity"}, stat: model.StatLR,
			wantIDs: []string{"p1", "p2"}, wantSpace: model.SpacePseudo,
		},
		{
			name: "standalone draws from reader progress filtered by app",
			apps: []string{"ftm-standalone"}, stat: model.StatLR,
			wantIDs: []string{"c3"}, wantSpace: model.SpaceCRUser,
		},
		{
			name: "reader LR draws from first touch",
			apps: []string{"CR"}, stat: model.StatLR,
			wantIDs: []string{"c1", "c2", "c4"}, wantSpace: model.SpaceCRUser,
		},
		{
			name: "reader non-LR draws from progress",
			apps: []string{"CR"}, stat: model.StatPC,
			wantIDs: []string{"c1", "c2", "c3"}, wantSpace: model.SpaceCRUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := model.Query{Dates: allDates(), App: model.ParseAppSelector(tt.apps)}
			c, err := Filter(snap, q, tt.stat)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSpace, c.Space)
			assert.ElementsMatch(t, tt.wantIDs, c.IDs())
		})
	}
}

func TestFilterPredicates(t *testing.T) {
	t.Parallel()
	snap := testSnapshot()

	tests := []struct {
		name    string
		q       model.Query
		stat    model.Stat
		wantIDs []string
	}{
		{
			name: "date range clips first_open inclusively",
			q: model.Query{
				Dates: model.DateRange{Start: day(2), End: day(5)},
				App:   model.ParseAppSelector([]string{"CR"}),
			},
			stat:    model.StatPC,
			wantIDs: []string{"c1", "c2"},
		},
		{
			name: "country filter",
			q: model.Query{
				Dates:     allDates(),
				App:       model.ParseAppSelector([]string{"CR"}),
				Countries: model.ParseStringFilter([]string{"Kenya"}),
			},
			stat:    model.StatPC,
			wantIDs: []string{"c1", "c3"},
		},
		{
			name: "language filter is exact and case-sensitive",
			q: model.Query{
				Dates:     allDates(),
				App:       model.ParseAppSelector([]string{"CR"}),
				Languages: model.ParseStringFilter([]string{"Swahili"}),
			},
			stat:    model.StatPC,
			wantIDs: nil,
		},
		{
			name: "app version applies to reader only",
			q: model.Query{
				Dates:       allDates(),
				App:         model.ParseAppSelector([]string{"CR"}),
				AppVersions: model.ParseStringFilter([]string{"v1.0.30"}),
			},
			stat:    model.StatPC,
			wantIDs: []string{"c1"},
		},
		{
			name: "offline true",
			q: model.Query{
				Dates:   allDates(),
				App:     model.ParseAppSelector([]string{"CR"}),
				Offline: bptr(true),
			},
			stat:    model.StatPC,
			wantIDs: []string{"c2"},
		},
		{
			name: "offline false keeps rows with absent flag",
			q: model.Query{
				Dates:   allDates(),
				App:     model.ParseAppSelector([]string{"CR"}),
				Offline: bptr(false),
			},
			stat:    model.StatPC,
			wantIDs: []string{"c1", "c3"},
		},
		{
			name: "explicit id list restricts membership",
			q: model.Query{
				Dates:   allDates(),
				App:     model.ParseAppSelector([]string{"CR"}),
				UserIDs: &model.IDList{Space: model.SpaceCRUser, IDs: []string{"c1"}},
			},
			stat:    model.StatPC,
			wantIDs: []string{"c1"},
		},
		{
			name: "empty non-nil id list short-circuits to empty",
			q: model.Query{
				Dates:   allDates(),
				App:     model.ParseAppSelector([]string{"CR"}),
				UserIDs: &model.IDList{Space: model.SpaceCRUser},
			},
			stat:    model.StatPC,
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := Filter(snap, tt.q, tt.stat)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantIDs, c.IDs())
		})
	}
}

func TestFilterIdentitySpaceMismatch(t *testing.T) {
	t.Parallel()
	snap := testSnapshot()

	q := model.Query{
		Dates:   allDates(),
		App:     model.ParseAppSelector([]string{"Unity"}),
		UserIDs: &model.IDList{Space: model.SpaceCRUser, IDs: []string{"c1"}},
	}
	_, err := Filter(snap, q, model.StatLR)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id list")
}

// Filtering with no country filter and then narrowing to an explicit set
// must equal filtering directly with that set.
func TestFilterComposability(t *testing.T) {
	t.Parallel()
	snap := testSnapshot()
	app := model.ParseAppSelector([]string{"CR"})

	direct, err := Filter(snap, model.Query{
		Dates:     allDates(),
		App:       app,
		Countries: model.ParseStringFilter([]string{"Kenya"}),
	}, model.StatPC)
	require.NoError(t, err)

	broad, err := Filter(snap, model.Query{
		Dates:     allDates(),
		App:       app,
		Countries: model.ParseStringFilter([]string{model.WildcardAll}),
	}, model.StatPC)
	require.NoError(t, err)
	narrowed := SubCohort(broad, model.NewStringFilter("Kenya"), model.StringFilter{})

	assert.Equal(t, direct.Users, narrowed.Users)
}

// Identical predicates must return equal cohorts; the snapshot is shared and
// never mutated.
func TestFilterDeterministic(t *testing.T) {
	t.Parallel()
	snap := testSnapshot()
	q := model.Query{
		Dates:     allDates(),
		App:       model.ParseAppSelector([]string{"CR"}),
		Countries: model.ParseStringFilter([]string{"Kenya", "France"}),
	}

	a, err := Filter(snap, q, model.StatPC)
	require.NoError(t, err)
	b, err := Filter(snap, q, model.StatPC)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSliceByDate(t *testing.T) {
	t.Parallel()

	c := cohortOf(
		model.UserRecord{CRUserID: "a", FirstOpen: day(1)},
		model.UserRecord{CRUserID: "b", FirstOpen: day(15)},
	)
	got := SliceByDate(c, model.DateRange{Start: day(10), End: day(20)})
	require.Len(t, got.Users, 1)
	assert.Equal(t, "b", got.Users[0].CRUserID)

	// Zero range keeps everything.
	assert.Len(t, SliceByDate(c, model.DateRange{}).Users, 2)
}
