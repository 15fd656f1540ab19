package engine

import (
	"github.com/rotisserie/eris"

	"github.com/curious-learning/funnel-cli/internal/model"
)

// Filter returns the cohort matching the query's predicates, drawing from
// the table selected by the dispatch contract for (app, stat). The stat only
// influences table dispatch; stage predicates belong to StageCount.
//
// Two calls with equal arguments return equal cohorts: the result is a fresh
// slice and the snapshot is never mutated.
func Filter(snap *Snapshot, q model.Query, stat model.Stat) (model.Cohort, error) {
	space := q.App.Space()
	cohort := model.Cohort{Space: space}

	if q.UserIDs != nil && q.UserIDs.Space != space {
		return model.Cohort{}, eris.Errorf(
			"filter: id list keyed by %s cannot apply to a %s population",
			q.UserIDs.Space, space,
		)
	}

	// An explicit empty allow-list means "these zero users", not "everyone".
	var allow map[string]struct{}
	if q.UserIDs != nil {
		if len(q.UserIDs.IDs) == 0 {
			return cohort, nil
		}
		allow = make(map[string]struct{}, len(q.UserIDs.IDs))
		for _, id := range q.UserIDs.IDs {
			allow[id] = struct{}{}
		}
	}

	applyVersions := q.App.Kind == model.AppReader && !q.AppVersions.IsAll()

	for _, u := range snap.source(q.App, stat) {
		if !q.Dates.Contains(u.FirstOpen) {
			continue
		}
		if applyVersions && !q.AppVersions.Match(u.AppVersion) {
			continue
		}
		if !q.Countries.Match(u.Country) {
			continue
		}
		if !q.Languages.Match(u.AppLanguage) {
			continue
		}
		if !q.App.MatchApp(u.App) {
			continue
		}
		if q.Offline != nil {
			// Treat an absent flag as "not offline" so the false branch
			// keeps legacy rows, matching the warehouse convention.
			offline := u.StartedInOfflineMode != nil && *u.StartedInOfflineMode
			if offline != *q.Offline {
				continue
			}
		}
		if allow != nil {
			if _, ok := allow[u.ID(space)]; !ok {
				continue
			}
		}
		cohort.Users = append(cohort.Users, u)
	}

	return cohort, nil
}

// SubCohort narrows an existing cohort by country and language without going
// back to the snapshot. Filtering a match-all cohort this way is equivalent
// to filtering the snapshot directly with the explicit sets.
func SubCohort(c model.Cohort, countries, languages model.StringFilter) model.Cohort {
	out := model.Cohort{Space: c.Space}
	for _, u := range c.Users {
		if countries.Match(u.Country) && languages.Match(u.AppLanguage) {
			out.Users = append(out.Users, u)
		}
	}
	return out
}

// SliceByDate narrows a cohort to members whose first_open falls inside the
// inclusive range.
func SliceByDate(c model.Cohort, dates model.DateRange) model.Cohort {
	out := model.Cohort{Space: c.Space}
	for _, u := range c.Users {
		if dates.Contains(u.FirstOpen) {
			out.Users = append(out.Users, u)
		}
	}
	return out
}
