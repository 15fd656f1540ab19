package engine

import (
	"sort"

	"github.com/curious-learning/funnel-cli/internal/model"
)

// StageCount counts cohort members who reached the given funnel stage.
// Counts are cumulative from below: a user whose furthest event is
// level_completed counts toward DC, TS, SL, and PC as well. An empty cohort
// counts 0 for every stat.
func StageCount(c model.Cohort, stat model.Stat) int {
	if c.Empty() {
		return 0
	}

	switch stat {
	case model.StatLR:
		return c.Size()
	case model.StatLA:
		return countLevel(c, model.LALevelThreshold)
	case model.StatRA:
		return countLevel(c, model.RALevelThreshold)
	case model.StatGC:
		n := 0
		for _, u := range c.Users {
			if u.MaxUserLevel >= model.LALevelThreshold && u.GPC != nil && *u.GPC >= model.GCPercentThreshold {
				n++
			}
		}
		return n
	}

	event := model.StatEvent(stat)
	if event == "" {
		return 0
	}
	rank := model.EventRank(event)
	n := 0
	for _, u := range c.Users {
		if model.EventRank(u.FurthestEvent) >= rank {
			n++
		}
	}
	return n
}

func countLevel(c model.Cohort, threshold int) int {
	n := 0
	for _, u := range c.Users {
		if u.MaxUserLevel >= threshold {
			n++
		}
	}
	return n
}

// GroupRow is one group's funnel counts with percent-of-LR columns. LR's
// percent is 100 by convention.
type GroupRow struct {
	Group  string
	Counts map[model.Stat]int
	Pct    map[model.Stat]float64
}

// AggregateByGroup computes per-group funnel counts for every step, plus
// step_pct = 100*count/LR. lrCohort supplies the LR populations when the
// reader app splits LR onto the first-touch table; pass an empty cohort to
// count LR from cohort itself.
//
// Progress counts exceeding LR (the cross-table data anomaly) are clamped to
// LR. Groups where every post-LR step is zero are dropped; they carry no
// information and would pollute top-N views.
func AggregateByGroup(cohort, lrCohort model.Cohort, dim model.Dimension, steps []model.Stat) []GroupRow {
	split := !lrCohort.Empty()

	groups := make(map[string]struct{})
	for _, u := range cohort.Users {
		if v := dim.Value(u); v != "" {
			groups[v] = struct{}{}
		}
	}
	for _, u := range lrCohort.Users {
		if v := dim.Value(u); v != "" {
			groups[v] = struct{}{}
		}
	}
	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	rows := make([]GroupRow, 0, len(names))
	for _, name := range names {
		sub := groupMembers(cohort, dim, name)
		lr := sub.Size()
		if split {
			lr = groupMembers(lrCohort, dim, name).Size()
		}

		row := GroupRow{
			Group:  name,
			Counts: map[model.Stat]int{model.StatLR: lr},
			Pct:    map[model.Stat]float64{model.StatLR: 100.0},
		}
		nonZero := false
		for _, step := range steps {
			if step == model.StatLR {
				continue
			}
			n := StageCount(sub, step)
			if n > lr {
				n = lr
			}
			row.Counts[step] = n
			if n > 0 {
				nonZero = true
				row.Pct[step] = float64(n) / float64(lr) * 100
			} else {
				row.Pct[step] = 0
			}
		}
		if nonZero {
			rows = append(rows, row)
		}
	}
	return rows
}

func groupMembers(c model.Cohort, dim model.Dimension, group string) model.Cohort {
	out := model.Cohort{Space: c.Space}
	for _, u := range c.Users {
		if dim.Value(u) == group {
			out.Users = append(out.Users, u)
		}
	}
	return out
}

// SortKey picks the column TopN orders by: a stat's raw count, or its
// percent column.
type SortKey struct {
	Stat model.Stat
	Pct  bool
}

func (k SortKey) value(r GroupRow) float64 {
	if k.Pct {
		return r.Pct[k.Stat]
	}
	return float64(r.Counts[k.Stat])
}

// TopN sorts aggregate rows by the key (descending picks best performing,
// ascending worst) and truncates to at most n rows. It is a pure
// post-processing step over AggregateByGroup output: the input slice is not
// modified.
func TopN(rows []GroupRow, key SortKey, descending bool, n int) []GroupRow {
	out := make([]GroupRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return key.value(out[i]) > key.value(out[j])
		}
		return key.value(out[i]) < key.value(out[j])
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
