package model

import (
	"strings"
	"time"
)

// WildcardAll is the presentation-layer sentinel meaning "no filtering".
// It is converted to the zero StringFilter at the boundary and never
// compared against inside the engine.
const WildcardAll = "All"

// StringFilter is a tagged filter over a string column: either no filter at
// all, or membership in an explicit set. The zero value matches everything.
type StringFilter struct {
	values map[string]struct{}
}

// NewStringFilter builds a filter matching exactly the given values.
func NewStringFilter(values ...string) StringFilter {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return StringFilter{values: set}
}

// ParseStringFilter converts the selector convention used by the
// presentation layer, where a list containing "All" means no filtering.
func ParseStringFilter(values []string) StringFilter {
	if len(values) == 0 {
		return StringFilter{}
	}
	for _, v := range values {
		if v == WildcardAll {
			return StringFilter{}
		}
	}
	return NewStringFilter(values...)
}

// IsAll reports whether the filter matches everything.
func (f StringFilter) IsAll() bool { return f.values == nil }

// Match reports whether v passes the filter. Case-sensitive exact match.
func (f StringFilter) Match(v string) bool {
	if f.values == nil {
		return true
	}
	_, ok := f.values[v]
	return ok
}

// Values returns the explicit filter values in unspecified order, or nil for
// the match-all filter.
func (f StringFilter) Values() []string {
	if f.values == nil {
		return nil
	}
	out := make([]string, 0, len(f.values))
	for v := range f.values {
		out = append(out, v)
	}
	return out
}

// DateRange is an inclusive calendar-date range over first_open. The zero
// value means "do not filter by date".
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range is unset.
func (r DateRange) IsZero() bool { return r.Start.IsZero() && r.End.IsZero() }

// Contains reports whether t falls inside the inclusive range. An unset
// range contains every date.
func (r DateRange) Contains(t time.Time) bool {
	if r.IsZero() {
		return true
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// AppKind is the closed set of app selections the engine dispatches on.
type AppKind int

const (
	// AppReader selects the Curious Reader population.
	AppReader AppKind = iota
	// AppUnity selects the Unity game population.
	AppUnity
	// AppStandalone selects one or more "*-standalone" Curious Reader
	// variants within the reader progress table.
	AppStandalone
)

// StandaloneSuffix marks dynamically discovered reader variants.
const StandaloneSuffix = "-standalone"

// AppSelector is the resolved form of the app selection. It is built once at
// the boundary from the raw name list so the engine never sniffs strings.
type AppSelector struct {
	Kind AppKind
	// Names holds the selected standalone variant names. Empty for Unity
	// and plain Reader selections.
	Names []string
}

// ParseAppSelector resolves a raw app-name list into a closed selector.
// Unity wins over everything else; any "*-standalone" name selects the
// standalone variants; anything else is the reader app.
func ParseAppSelector(names []string) AppSelector {
	for _, n := range names {
		if n == "Unity" {
			return AppSelector{Kind: AppUnity}
		}
	}
	var standalone []string
	for _, n := range names {
		if strings.HasSuffix(n, StandaloneSuffix) {
			standalone = append(standalone, n)
		}
	}
	if len(standalone) > 0 {
		// The wildcard disables the variant restriction but the rows still
		// come from the reader progress table.
		for _, n := range names {
			if n == WildcardAll {
				return AppSelector{Kind: AppStandalone}
			}
		}
		return AppSelector{Kind: AppStandalone, Names: standalone}
	}
	return AppSelector{Kind: AppReader}
}

// Space returns the identity space the selection keys on.
func (a AppSelector) Space() IdentitySpace {
	if a.Kind == AppUnity {
		return SpacePseudo
	}
	return SpaceCRUser
}

// MatchApp reports whether a row's app column passes the standalone variant
// restriction. Non-standalone selections do not filter on the app column.
func (a AppSelector) MatchApp(app string) bool {
	if a.Kind != AppStandalone || len(a.Names) == 0 {
		return true
	}
	for _, n := range a.Names {
		if n == app {
			return true
		}
	}
	return false
}

// IDList is an explicit user-id allow-list tagged with its identity space.
// A non-nil list with zero ids short-circuits to an empty cohort.
type IDList struct {
	Space IdentitySpace
	IDs   []string
}

// Dimension is a group-by column for funnel aggregation.
type Dimension string

const (
	ByLanguage Dimension = "app_language"
	ByCountry  Dimension = "country"
)

// Value extracts the dimension value from a user row. Unknown dimensions
// return "" so schema drift degrades to an empty grouping instead of a
// failure.
func (d Dimension) Value(u UserRecord) string {
	switch d {
	case ByLanguage:
		return u.AppLanguage
	case ByCountry:
		return u.Country
	}
	return ""
}

// Query carries every cohort predicate in resolved, typed form.
type Query struct {
	Dates       DateRange
	Countries   StringFilter
	Languages   StringFilter
	App         AppSelector
	AppVersions StringFilter // applied to reader-app selections only
	Offline     *bool        // nil = ignore offline mode
	UserIDs     *IDList      // nil = no id restriction
}
