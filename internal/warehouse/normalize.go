// Package warehouse materializes the engine's snapshot tables from the
// analytics warehouse: a Postgres mirror of the BigQuery exports in
// production, or a local SQLite extract for offline work. Extraction of
// independent tables runs concurrently; the engine only starts once every
// snapshot is in memory.
package warehouse

import (
	"sort"
	"strings"
	"time"

	"github.com/curious-learning/funnel-cli/internal/model"
)

// Collection floors. User data exists back to 2021; campaign names only
// follow the language/country convention from May 2024 onward, so earlier
// spend segments are never collected.
var (
	UserDataStart     = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	CampaignDataStart = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
)

// MinReaderVersion is the oldest reader app version offered as a filter;
// earlier builds predate reliable event instrumentation.
const MinReaderVersion = "v1.0.25"

// unityAppIDMarker identifies game-app rows in the combined progress
// export, which carries both products.
const unityAppIDMarker = "feedthemonster"

// languageFixes corrects misspellings that shipped in early app builds.
var languageFixes = map[string]string{
	"ukranian": "ukrainian",
	"malgache": "malagasy",
}

// NormalizeLanguage trims a language name and corrects known misspellings.
func NormalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if fixed, ok := languageFixes[lang]; ok {
		return fixed
	}
	return lang
}

func normalizeUsers(rows []model.UserRecord) []model.UserRecord {
	for i := range rows {
		rows[i].AppLanguage = NormalizeLanguage(rows[i].AppLanguage)
	}
	return rows
}

// IsUnityRow reports whether a combined-export row belongs to the Unity
// game app.
func IsUnityRow(u model.UserRecord) bool {
	return strings.Contains(strings.ToLower(u.AppID), unityAppIDMarker)
}

// splitProducts partitions the combined progress export into the Unity and
// reader populations.
func splitProducts(rows []model.UserRecord) (unity, reader []model.UserRecord) {
	for _, u := range rows {
		if IsUnityRow(u) {
			unity = append(unity, u)
		} else {
			reader = append(reader, u)
		}
	}
	return unity, reader
}

// Languages returns the sorted distinct normalized languages across tables.
func Languages(tables ...[]model.UserRecord) []string {
	seen := make(map[string]struct{})
	for _, rows := range tables {
		for _, u := range rows {
			if l := NormalizeLanguage(u.AppLanguage); l != "" {
				seen[l] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

// Countries returns the sorted distinct countries across tables.
func Countries(tables ...[]model.UserRecord) []string {
	seen := make(map[string]struct{})
	for _, rows := range tables {
		for _, u := range rows {
			if u.Country != "" {
				seen[u.Country] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

// ReaderVersions returns the sorted distinct reader app versions at or above
// the minimum supported version.
func ReaderVersions(rows []model.UserRecord) []string {
	seen := make(map[string]struct{})
	for _, u := range rows {
		if u.AppVersion != "" && u.AppVersion >= MinReaderVersion {
			seen[u.AppVersion] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Apps returns the selectable app names: the two products plus dynamically
// discovered standalone variants present in the reader table.
func Apps(readerRows []model.UserRecord) []string {
	out := []string{"CR", "Unity"}
	seen := make(map[string]struct{})
	for _, u := range readerRows {
		if strings.HasSuffix(u.App, model.StandaloneSuffix) {
			seen[u.App] = struct{}{}
		}
	}
	return append(out, sortedKeys(seen)...)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
