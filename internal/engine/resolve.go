package engine

import "github.com/curious-learning/funnel-cli/internal/model"

// Resolution is the output of Resolve: one row per user id in each table.
// FirstTouch keeps every user seen at install time; Progress keeps only
// users present in both tables, so a missing progress row reads as "no
// progress observed" downstream, never as an error.
type Resolution struct {
	FirstTouch []model.UserRecord
	Progress   []model.UserRecord
}

// Resolve collapses multiple rows per physical user into one canonical row
// per table. A user who switched language or country mid-lifetime appears
// once per (language, country) in both the first-touch and progress tables;
// the progress row with the furthest progress wins, and its language/country
// pick which first-touch row is kept.
//
// Resolve is idempotent: running it on its own output is a no-op.
func Resolve(firstTouch, progress []model.UserRecord, space model.IdentitySpace) Resolution {
	// Partition first-touch rows into unique and duplicated user ids,
	// preserving encounter order.
	ftCount := make(map[string]int, len(firstTouch))
	for _, u := range firstTouch {
		ftCount[u.ID(space)]++
	}

	// Pick the winning progress row per user. Users whose best row reached
	// level_completed resolve by max level; everyone else by event rank.
	// Remaining ties keep the first-encountered row.
	winners := resolveProgress(progress, space)

	ftSeen := make(map[string]bool, len(ftCount))
	resolved := Resolution{
		FirstTouch: make([]model.UserRecord, 0, len(ftCount)),
	}
	for _, u := range firstTouch {
		id := u.ID(space)
		if ftCount[id] == 1 {
			resolved.FirstTouch = append(resolved.FirstTouch, u)
			continue
		}
		if ftSeen[id] {
			continue
		}
		// Duplicated id: re-attach the first-touch row agreeing with the
		// progress winner's language and country, so the winner's metadata
		// propagates to both tables. First occurrence wins when no row
		// matches (e.g. no progress observed at all).
		pick, ok := matchWinner(firstTouch, winners, id, space)
		if !ok {
			pick = u
		}
		resolved.FirstTouch = append(resolved.FirstTouch, pick)
		ftSeen[id] = true
	}

	// Progress keeps only users present at first touch, one row each, in
	// progress-table encounter order.
	progSeen := make(map[string]bool, len(winners))
	for _, u := range progress {
		id := u.ID(space)
		if progSeen[id] {
			continue
		}
		progSeen[id] = true
		if ftCount[id] == 0 {
			continue
		}
		resolved.Progress = append(resolved.Progress, winners[id])
	}

	return resolved
}

// ResolveTable collapses a single progress table to one winning row per user
// id, using the same furthest-progress rule as Resolve. Used for the Unity
// table, which has no separate first-touch side.
func ResolveTable(rows []model.UserRecord, space model.IdentitySpace) []model.UserRecord {
	winners := resolveProgress(rows, space)
	seen := make(map[string]bool, len(winners))
	out := make([]model.UserRecord, 0, len(winners))
	for _, u := range rows {
		id := u.ID(space)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, winners[id])
	}
	return out
}

func resolveProgress(progress []model.UserRecord, space model.IdentitySpace) map[string]model.UserRecord {
	winners := make(map[string]model.UserRecord, len(progress))
	for _, u := range progress {
		id := u.ID(space)
		best, ok := winners[id]
		if !ok {
			winners[id] = u
			continue
		}
		if betterProgress(u, best) {
			winners[id] = u
		}
	}
	return winners
}

// betterProgress reports whether candidate strictly beats the incumbent.
// Strict comparison keeps the first-encountered row on ties.
func betterProgress(candidate, incumbent model.UserRecord) bool {
	cr, ir := model.EventRank(candidate.FurthestEvent), model.EventRank(incumbent.FurthestEvent)
	completed := model.EventRank(model.EventLevelCompleted)
	if cr == completed && ir == completed {
		return candidate.MaxUserLevel > incumbent.MaxUserLevel
	}
	return cr > ir
}

func matchWinner(firstTouch []model.UserRecord, winners map[string]model.UserRecord, id string, space model.IdentitySpace) (model.UserRecord, bool) {
	w, ok := winners[id]
	if !ok {
		return model.UserRecord{}, false
	}
	for _, u := range firstTouch {
		if u.ID(space) == id && u.Country == w.Country && u.AppLanguage == w.AppLanguage {
			return u, true
		}
	}
	return model.UserRecord{}, false
}
