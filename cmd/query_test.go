package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curious-learning/funnel-cli/internal/model"
)

func TestCohortFlagsQuery(t *testing.T) {
	f := cohortFlags{
		apps:      []string{"CR"},
		countries: []string{"Kenya", "India"},
		languages: []string{"All"},
		start:     "2024-01-01",
		end:       "2024-06-30",
		offline:   "false",
	}

	q, err := f.query()
	require.NoError(t, err)

	assert.Equal(t, model.AppReader, q.App.Kind)
	assert.True(t, q.Countries.Match("Kenya"))
	assert.False(t, q.Countries.Match("Brazil"))
	assert.True(t, q.Languages.IsAll(), `a list containing "All" disables the filter`)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), q.Dates.Start)
	require.NotNil(t, q.Offline)
	assert.False(t, *q.Offline)
}

func TestCohortFlagsQueryUnity(t *testing.T) {
	f := cohortFlags{apps: []string{"Unity"}}
	q, err := f.query()
	require.NoError(t, err)
	assert.Equal(t, model.AppUnity, q.App.Kind)
	assert.Equal(t, model.SpacePseudo, q.App.Space())
}

func TestCohortFlagsQueryBadOffline(t *testing.T) {
	f := cohortFlags{apps: []string{"CR"}, offline: "maybe"}
	_, err := f.query()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--offline")
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
	}{
		{name: "both empty is open range", start: "", end: ""},
		{name: "valid range", start: "2024-01-01", end: "2024-12-31"},
		{name: "start only", start: "2024-01-01", wantErr: true},
		{name: "end before start", start: "2024-06-01", end: "2024-01-01", wantErr: true},
		{name: "garbage", start: "yesterday", end: "2024-01-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := parseDateRange(tt.start, tt.end)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.start == "" {
				assert.True(t, r.IsZero())
			}
		})
	}
}

func TestParseDimension(t *testing.T) {
	dim, err := parseDimension("language")
	require.NoError(t, err)
	assert.Equal(t, model.ByLanguage, dim)

	dim, err = parseDimension("country")
	require.NoError(t, err)
	assert.Equal(t, model.ByCountry, dim)

	_, err = parseDimension("planet")
	require.Error(t, err)
}

func TestSplitParam(t *testing.T) {
	assert.Equal(t, []string{"CR"}, splitParam("", "CR"))
	assert.Nil(t, splitParam("", ""))
	assert.Equal(t, []string{"Kenya", "India"}, splitParam("Kenya,India", "CR"))
}

func TestDisplayGroup(t *testing.T) {
	assert.Equal(t, "Swahili", displayGroup(model.ByLanguage, "swahili"))
	assert.Equal(t, "Kenya", displayGroup(model.ByCountry, "Kenya"))
}
