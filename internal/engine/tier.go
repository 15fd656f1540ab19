package engine

import (
	"sort"
	"strings"

	"github.com/curious-learning/funnel-cli/internal/model"
)

// Book engagement tier boundaries. Product-defined; the values are fixed.
const (
	// TierMin and TierMax bound the ordinal tier range.
	TierMin = 0
	TierMax = 3

	// tier2MinActiveDays etc. name the multi-clause thresholds below.
	tier2MinActiveDays     = 2
	tier2MinDistinctBooks  = 2
	tier2MinSameBookDays   = 2
	tier3MinActiveDays     = 3
	tier3MinDistinctBooks  = 3
	tier3MinRepeatBooks    = 2
	tier3MinActiveDaySpan  = 3
)

// Tier buckets one user's book-reading activity into an ordinal tier 0-3.
// Pure function of the activity counters:
//
//	0: no qualifying activity
//	1: exactly one active day, nothing else distinguishing
//	2: >=2 active days, or >=2 distinct books, or one book read on >=2 days
//	3: >=3 active days AND (>=3 books, or >=2 books each on >=2 days,
//	   or an active-day span of >=3 days)
func Tier(a model.BookActivity) int {
	if a.ActiveDays <= 0 {
		return 0
	}
	if a.ActiveDays >= tier3MinActiveDays &&
		(a.DistinctBooks >= tier3MinDistinctBooks ||
			a.RepeatBooks >= tier3MinRepeatBooks ||
			a.ActiveDaySpan >= tier3MinActiveDaySpan) {
		return 3
	}
	if a.ActiveDays >= tier2MinActiveDays ||
		a.DistinctBooks >= tier2MinDistinctBooks ||
		a.MaxBookActiveDays >= tier2MinSameBookDays {
		return 2
	}
	return 1
}

// ClampTier forces a stored tier value into the valid range. Warehouse rows
// occasionally carry nulls (mapped to 0 upstream) or out-of-range values.
func ClampTier(t int) int {
	if t < TierMin {
		return TierMin
	}
	if t > TierMax {
		return TierMax
	}
	return t
}

// LanguageMap is the deduplicated book-language -> app-language mapping
// derived from the reading cohort table.
type LanguageMap map[string][]string

// BuildLanguageMap collects the distinct (book language, app language) pairs
// with both sides non-blank.
func BuildLanguageMap(activity []model.BookActivity) LanguageMap {
	m := make(LanguageMap)
	for _, a := range activity {
		book := strings.TrimSpace(a.AppLanguageBook)
		app := strings.TrimSpace(a.AppLanguage)
		if book == "" || app == "" {
			continue
		}
		if !containsString(m[book], app) {
			m[book] = append(m[book], app)
		}
	}
	return m
}

// MappedAppLanguages returns the app languages corresponding to the selected
// book languages, deduplicated.
func (m LanguageMap) MappedAppLanguages(bookLanguages []string) []string {
	var out []string
	for _, bl := range bookLanguages {
		for _, al := range m[strings.TrimSpace(bl)] {
			if !containsString(out, al) {
				out = append(out, al)
			}
		}
	}
	return out
}

// BookLanguages returns the sorted distinct book languages present.
func BookLanguages(activity []model.BookActivity) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, a := range activity {
		l := strings.TrimSpace(a.AppLanguageBook)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

// EligibleUsers returns one row per reader-app user whose app language is in
// the mapped set. This is the tier classifier's total universe: users with
// no reading activity still belong and classify as tier 0. An empty mapped
// set means no app language corresponds to the selected book languages, so
// nobody is eligible.
func EligibleUsers(crUsers []model.UserRecord, mappedLanguages []string) []model.UserRecord {
	if len(mappedLanguages) == 0 {
		return nil
	}
	langs := model.NewStringFilter(mappedLanguages...)
	seen := make(map[string]struct{}, len(crUsers))
	var out []model.UserRecord
	for _, u := range crUsers {
		if u.CRUserID == "" || !langs.Match(strings.TrimSpace(u.AppLanguage)) {
			continue
		}
		if _, ok := seen[u.CRUserID]; ok {
			continue
		}
		seen[u.CRUserID] = struct{}{}
		out = append(out, u)
	}
	return out
}

// TiersByUser computes each user's tier from activity rows whose book
// language is selected. The first row per user wins (the table is already
// one row per (user, book language)).
func TiersByUser(activity []model.BookActivity, bookLanguages []string) map[string]int {
	selected := model.ParseStringFilter(nil)
	if len(bookLanguages) > 0 {
		selected = model.NewStringFilter(bookLanguages...)
	}
	tiers := make(map[string]int)
	for _, a := range activity {
		if a.CRUserID == "" || !selected.Match(strings.TrimSpace(a.AppLanguageBook)) {
			continue
		}
		if _, ok := tiers[a.CRUserID]; ok {
			continue
		}
		tiers[a.CRUserID] = ClampTier(Tier(a))
	}
	return tiers
}

// TierDistribution assigns every eligible user exactly one tier. Users
// absent from the tier map are tier 0, not dropped; the distribution always
// sums to the eligible universe size.
func TierDistribution(eligible []model.UserRecord, tiers map[string]int) map[int]int {
	dist := map[int]int{0: 0, 1: 0, 2: 0, 3: 0}
	for _, u := range eligible {
		dist[ClampTier(tiers[u.CRUserID])]++
	}
	return dist
}

// TierStats aggregates reader progress metrics for one tier of the LA-only
// comparison universe.
type TierStats struct {
	Tier  int
	Users int

	AvgLevel    float64
	MedianLevel float64

	AvgTimeMinutes    float64
	MedianTimeMinutes float64

	PctRA float64

	// Milestone shares, data-informed level thresholds: 2 survived the
	// immediate friction, 4 completed the early block, 10 entered long-tail
	// persistence, 25 is the RA threshold.
	PctReach2  float64
	PctReach4  float64
	PctReach10 float64
	PctReach25 float64

	LiftAvgLevel float64
	LiftPctRA    float64
}

// CompareTiers builds per-tier progress aggregates over the LA-only eligible
// universe, with lift columns relative to the tier-0 (non-book) baseline.
func CompareTiers(eligible []model.UserRecord, tiers map[string]int) []TierStats {
	byTier := make(map[int][]model.UserRecord)
	for _, u := range eligible {
		if u.MaxUserLevel < model.LALevelThreshold {
			continue
		}
		t := ClampTier(tiers[u.CRUserID])
		byTier[t] = append(byTier[t], u)
	}

	var out []TierStats
	for t := TierMin; t <= TierMax; t++ {
		users := byTier[t]
		if len(users) == 0 {
			continue
		}
		levels := make([]float64, len(users))
		times := make([]float64, len(users))
		ra := 0
		var reach2, reach4, reach10, reach25 int
		for i, u := range users {
			levels[i] = float64(u.MaxUserLevel)
			times[i] = u.TotalTimeMinutes
			if u.MaxUserLevel >= model.RALevelThreshold || u.RAFlag {
				ra++
			}
			if u.MaxUserLevel >= 2 {
				reach2++
			}
			if u.MaxUserLevel >= 4 {
				reach4++
			}
			if u.MaxUserLevel >= 10 {
				reach10++
			}
			if u.MaxUserLevel >= model.RALevelThreshold {
				reach25++
			}
		}
		n := float64(len(users))
		out = append(out, TierStats{
			Tier:              t,
			Users:             len(users),
			AvgLevel:          mean(levels),
			MedianLevel:       median(levels),
			AvgTimeMinutes:    mean(times),
			MedianTimeMinutes: median(times),
			PctRA:             float64(ra) / n,
			PctReach2:         float64(reach2) / n,
			PctReach4:         float64(reach4) / n,
			PctReach10:        float64(reach10) / n,
			PctReach25:        float64(reach25) / n,
		})
	}

	// Lift vs the non-book baseline when one exists.
	for i := range out {
		if out[i].Tier == 0 {
			base := out[i]
			for j := range out {
				out[j].LiftAvgLevel = out[j].AvgLevel - base.AvgLevel
				out[j].LiftPctRA = out[j].PctRA - base.PctRA
			}
			break
		}
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
