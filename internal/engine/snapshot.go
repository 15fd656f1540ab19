// Package engine implements the cohort resolution and funnel aggregation
// core: deduplicating raw user rows, filtering cohorts, classifying funnel
// stages, joining campaign spend, and tiering book engagement. Every entry
// point is a pure function over an immutable Snapshot, so results are safe
// to memoize.
package engine

import "github.com/curious-learning/funnel-cli/internal/model"

// Snapshot holds the resolved tables for one refresh cycle. It is
// constructed once by the warehouse layer after extraction and resolution,
// passed by reference into every engine call, and never mutated.
type Snapshot struct {
	// UnityUsers is the game-app progress table, user_pseudo_id space.
	UnityUsers []model.UserRecord
	// CRUsers is the reader-app progress table (furthest progress per
	// user), cr_user_id space.
	CRUsers []model.UserRecord
	// CRAppLaunch is the reader-app first-touch table (one row per user at
	// install), cr_user_id space. LR for the reader app is defined here
	// because app launch is the earliest event carrying a language.
	CRAppLaunch []model.UserRecord
	// Campaigns holds daily campaign spend segments, un-rolled.
	Campaigns []model.CampaignSpend
	// BookActivity holds per-(user, book language) reading aggregates.
	BookActivity []model.BookActivity
}

// source selects the population table for an app selection and stat, per the
// dispatch contract:
//
//	Unity                     -> game-app progress table
//	any "*-standalone" name   -> reader progress table, filtered to the names
//	reader + stat LR          -> reader first-touch table
//	anything else             -> reader progress table
//
// The reader LR split is load-bearing: first touch is the only table whose
// language attribute exists before any progress event. The selector is
// closed over the three known products, so app names that are neither Unity
// nor a standalone variant are already collapsed into the reader kind by the
// time they reach this dispatch.
func (s *Snapshot) source(app model.AppSelector, stat model.Stat) []model.UserRecord {
	switch app.Kind {
	case model.AppUnity:
		return s.UnityUsers
	case model.AppStandalone:
		return s.CRUsers
	default:
		if stat == model.StatLR {
			return s.CRAppLaunch
		}
		return s.CRUsers
	}
}
