package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/curious-learning/funnel-cli/internal/model"
)

func TestNormalizeLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "passthrough", in: "swahili", want: "swahili"},
		{name: "trims whitespace", in: "  hindi ", want: "hindi"},
		{name: "fixes ukranian", in: "ukranian", want: "ukrainian"},
		{name: "fixes malgache", in: "malgache", want: "malagasy"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeLanguage(tt.in))
		})
	}
}

func TestIsUnityRow(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUnityRow(model.UserRecord{AppID: "org.curiouslearning.FeedTheMonster"}))
	assert.True(t, IsUnityRow(model.UserRecord{AppID: "feedthemonster-dev"}))
	assert.False(t, IsUnityRow(model.UserRecord{AppID: "org.curiouslearning.reader"}))
	assert.False(t, IsUnityRow(model.UserRecord{}))
}

func TestSplitProducts(t *testing.T) {
	t.Parallel()

	unity, reader := splitProducts([]model.UserRecord{
		{UserPseudoID: "g1", AppID: "org.curiouslearning.FeedTheMonster"},
		{CRUserID: "r1", AppID: "org.curiouslearning.reader"},
		{CRUserID: "r2", AppID: "org.curiouslearning.reader"},
	})
	assert.Len(t, unity, 1)
	assert.Len(t, reader, 2)
	assert.Equal(t, "g1", unity[0].UserPseudoID)
}

func TestLanguagesDedupesAcrossTables(t *testing.T) {
	t.Parallel()

	a := []model.UserRecord{{AppLanguage: "swahili"}, {AppLanguage: "ukranian"}}
	b := []model.UserRecord{{AppLanguage: "ukrainian"}, {AppLanguage: ""}}
	assert.Equal(t, []string{"swahili", "ukrainian"}, Languages(a, b))
}

func TestCountries(t *testing.T) {
	t.Parallel()

	rows := []model.UserRecord{{Country: "Kenya"}, {Country: "Brazil"}, {Country: "Kenya"}, {}}
	assert.Equal(t, []string{"Brazil", "Kenya"}, Countries(rows))
}

func TestReaderVersionsFloorsAtMinimum(t *testing.T) {
	t.Parallel()

	rows := []model.UserRecord{
		{AppVersion: "v1.0.24"},
		{AppVersion: "v1.0.25"},
		{AppVersion: "v1.0.31"},
		{AppVersion: ""},
	}
	assert.Equal(t, []string{"v1.0.25", "v1.0.31"}, ReaderVersions(rows))
}

func TestAppsIncludesStandaloneVariants(t *testing.T) {
	t.Parallel()

	rows := []model.UserRecord{
		{App: "CR"},
		{App: "ftm-hindi-standalone"},
		{App: "ftm-swahili-standalone"},
		{App: "ftm-hindi-standalone"},
	}
	got := Apps(rows)
	assert.Equal(t, []string{"CR", "Unity", "ftm-hindi-standalone", "ftm-swahili-standalone"}, got)
}
