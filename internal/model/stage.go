package model

// Stat is a funnel stage code. Stages are ordered; membership in a stage
// implies membership in every lower stage.
type Stat string

const (
	StatLR Stat = "LR" // Learner Reached
	StatDC Stat = "DC" // Download Completed
	StatTS Stat = "TS" // Tapped Start
	StatSL Stat = "SL" // Selected Level
	StatPC Stat = "PC" // Puzzle Completed
	StatLA Stat = "LA" // Learner Acquired
	StatRA Stat = "RA" // Reader Acquired
	StatGC Stat = "GC" // Game Completed
)

// Funnel stage thresholds. These encode product-defined business rules and
// must not be tuned.
const (
	// LALevelThreshold is the minimum max_user_level for Learner Acquired.
	LALevelThreshold = 1
	// RALevelThreshold is the minimum max_user_level for Reader Acquired.
	RALevelThreshold = 25
	// GCPercentThreshold is the minimum game-progress percent for Game
	// Completed (together with max_user_level >= LALevelThreshold).
	GCPercentThreshold = 90.0
)

// Progress event names as recorded in furthest_event.
const (
	EventDownloadCompleted = "download_completed"
	EventTappedStart       = "tapped_start"
	EventSelectedLevel     = "selected_level"
	EventPuzzleCompleted   = "puzzle_completed"
	EventLevelCompleted    = "level_completed"
)

var eventRanks = map[string]int{
	EventDownloadCompleted: 0,
	EventTappedStart:       1,
	EventSelectedLevel:     2,
	EventPuzzleCompleted:   3,
	EventLevelCompleted:    4,
}

// EventRank returns the position of a progress event in the fixed total
// order. Missing or unknown events rank -1, below every real event.
func EventRank(event string) int {
	if r, ok := eventRanks[event]; ok {
		return r
	}
	return -1
}

// statEvents maps event-defined stats to their furthest_event counterpart.
var statEvents = map[Stat]string{
	StatDC: EventDownloadCompleted,
	StatTS: EventTappedStart,
	StatSL: EventSelectedLevel,
	StatPC: EventPuzzleCompleted,
}

// StatEvent returns the progress event that defines an event-based stat, or
// "" for level-defined stats (LR, LA, RA, GC).
func StatEvent(stat Stat) string { return statEvents[stat] }

// ValidStat reports whether code names a known funnel stat.
func ValidStat(code Stat) bool {
	switch code {
	case StatLR, StatDC, StatTS, StatSL, StatPC, StatLA, StatRA, StatGC:
		return true
	}
	return false
}

// FullFunnel is the Curious Reader stage ladder.
var FullFunnel = []Stat{StatLR, StatDC, StatTS, StatSL, StatPC, StatLA, StatRA, StatGC}

// CompactFunnel is the ladder for Unity and the standalone variants, which
// have no first-touch events between install and puzzle play.
var CompactFunnel = []Stat{StatLR, StatPC, StatLA, StatRA, StatGC}

// FunnelSteps returns the stage ladder for an app selection.
func FunnelSteps(app AppSelector) []Stat {
	if app.Kind == AppReader {
		return FullFunnel
	}
	return CompactFunnel
}
