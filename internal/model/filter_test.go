package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringFilter(t *testing.T) {
	t.Parallel()

	assert.True(t, ParseStringFilter(nil).IsAll())
	assert.True(t, ParseStringFilter([]string{"Kenya", WildcardAll}).IsAll())

	f := ParseStringFilter([]string{"Kenya", "India"})
	assert.False(t, f.IsAll())
	assert.True(t, f.Match("Kenya"))
	assert.False(t, f.Match("kenya"), "matching is case sensitive")
	assert.False(t, f.Match(""))
}

func TestDateRangeContains(t *testing.T) {
	t.Parallel()

	r := DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, r.Contains(r.Start), "range is inclusive at both ends")
	assert.True(t, r.Contains(r.End))
	assert.False(t, r.Contains(r.End.AddDate(0, 0, 1)))
	assert.True(t, DateRange{}.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseAppSelector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        []string
		wantKind  AppKind
		wantNames []string
	}{
		{name: "reader by default", in: []string{"CR"}, wantKind: AppReader},
		{name: "unity wins over everything", in: []string{"ftm-hindi-standalone", "Unity"}, wantKind: AppUnity},
		{name: "standalone variants", in: []string{"ftm-hindi-standalone", "ftm-swahili-standalone"},
			wantKind: AppStandalone, wantNames: []string{"ftm-hindi-standalone", "ftm-swahili-standalone"}},
		{name: "wildcard drops variant restriction", in: []string{"ftm-hindi-standalone", WildcardAll},
			wantKind: AppStandalone},
		{name: "empty is reader", in: nil, wantKind: AppReader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseAppSelector(tt.in)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantNames, got.Names)
		})
	}
}

func TestAppSelectorSpace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, SpacePseudo, AppSelector{Kind: AppUnity}.Space())
	assert.Equal(t, SpaceCRUser, AppSelector{Kind: AppReader}.Space())
	assert.Equal(t, SpaceCRUser, AppSelector{Kind: AppStandalone}.Space())
}

func TestAppSelectorMatchApp(t *testing.T) {
	t.Parallel()

	sel := AppSelector{Kind: AppStandalone, Names: []string{"ftm-hindi-standalone"}}
	assert.True(t, sel.MatchApp("ftm-hindi-standalone"))
	assert.False(t, sel.MatchApp("ftm-swahili-standalone"))

	// Unrestricted selections never filter on the app column.
	assert.True(t, AppSelector{Kind: AppReader}.MatchApp("anything"))
	assert.True(t, AppSelector{Kind: AppStandalone}.MatchApp("ftm-swahili-standalone"))
}

func TestEventRankOrdering(t *testing.T) {
	t.Parallel()

	events := []string{
		EventDownloadCompleted,
		EventTappedStart,
		EventSelectedLevel,
		EventPuzzleCompleted,
		EventLevelCompleted,
	}
	for i := 1; i < len(events); i++ {
		assert.Greater(t, EventRank(events[i]), EventRank(events[i-1]))
	}
	assert.Equal(t, -1, EventRank(""))
	assert.Equal(t, -1, EventRank("unknown_event"))
}

func TestCohortIDs(t *testing.T) {
	t.Parallel()

	c := Cohort{Space: SpaceCRUser, Users: []UserRecord{
		{CRUserID: "a", UserPseudoID: "g1"},
		{CRUserID: ""},
		{CRUserID: "b"},
	}}
	assert.Equal(t, []string{"a", "b"}, c.IDs())

	c.Space = SpacePseudo
	assert.Equal(t, []string{"g1"}, c.IDs())
}

func TestFunnelSteps(t *testing.T) {
	t.Parallel()

	require.Equal(t, FullFunnel, FunnelSteps(AppSelector{Kind: AppReader}))
	require.Equal(t, CompactFunnel, FunnelSteps(AppSelector{Kind: AppUnity}))
	require.Equal(t, CompactFunnel, FunnelSteps(AppSelector{Kind: AppStandalone}))
}
