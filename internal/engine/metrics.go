package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/curious-learning/funnel-cli/internal/model"
)

// Metric names a numeric user column the reducers can average.
type Metric string

const (
	MetricMaxLevel    Metric = "max_user_level"
	MetricSessions    Metric = "engagement_event_count"
	MetricTotalTime   Metric = "total_time_minutes"
	MetricAvgSession  Metric = "avg_session_length_minutes"
	MetricActiveSpan  Metric = "active_span"
	MetricDaysToRA    Metric = "days_to_ra"
)

// AvgMetric averages a numeric column over cohort members at or above the LA
// baseline (max_user_level >= 1). days_to_ra skips null values. An empty or
// fully-filtered cohort averages to 0; unknown metrics also reduce to 0 so
// upstream schema drift degrades instead of failing.
func AvgMetric(c model.Cohort, metric Metric) float64 {
	var sum float64
	var n int
	for _, u := range c.Users {
		if u.MaxUserLevel < model.LALevelThreshold {
			continue
		}
		switch metric {
		case MetricMaxLevel:
			sum += float64(u.MaxUserLevel)
		case MetricSessions:
			sum += u.EngagementEventCount
		case MetricTotalTime:
			sum += u.TotalTimeMinutes
		case MetricAvgSession:
			sum += u.AvgSessionLengthMinutes
		case MetricActiveSpan:
			sum += u.ActiveSpan
		case MetricDaysToRA:
			if u.DaysToRA == nil {
				continue
			}
			sum += *u.DaysToRA
		default:
			return 0
		}
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// CohortSummary is the standard engagement scorecard for a cohort.
func CohortSummary(c model.Cohort) map[string]float64 {
	return map[string]float64{
		"Avg Level Reached":          AvgMetric(c, MetricMaxLevel),
		"Avg # Sessions / User":      AvgMetric(c, MetricSessions),
		"Avg Total Play Time / User": AvgMetric(c, MetricTotalTime),
		"Avg Session Length / User":  AvgMetric(c, MetricAvgSession),
		"Active Span / User":         AvgMetric(c, MetricActiveSpan),
		"Avg Days to RA":             AvgMetric(c, MetricDaysToRA),
	}
}

// GamePercentAvg averages gpc over the cohort's level_completed users,
// counting nulls as 0. Returns 0 when no such users exist.
func GamePercentAvg(c model.Cohort) float64 {
	var sum float64
	var n int
	for _, u := range c.Users {
		if u.FurthestEvent != model.EventLevelCompleted {
			continue
		}
		if u.GPC != nil {
			sum += *u.GPC
		}
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// GameCompletionAvg returns the percentage of level_completed users whose
// gpc reached the completion threshold. Returns 0 when no such users exist.
func GameCompletionAvg(c model.Cohort) float64 {
	var completed, total int
	for _, u := range c.Users {
		if u.FurthestEvent != model.EventLevelCompleted {
			continue
		}
		total++
		if u.GPC != nil && *u.GPC >= model.GCPercentThreshold {
			completed++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// MonthRanges splits an inclusive date range into per-calendar-month
// sub-ranges, clipping the last month to the range end.
func MonthRanges(start, end time.Time) []model.DateRange {
	var out []model.DateRange
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	for !cur.After(end) {
		next := cur.AddDate(0, 1, 0)
		monthEnd := next.AddDate(0, 0, -1)
		if monthEnd.After(end) {
			monthEnd = end
		}
		out = append(out, model.DateRange{Start: cur, End: monthEnd})
		cur = next
	}
	return out
}

// MonthRow is one month's cohort total with matching campaign spend and
// cost-per-metric. CostPer is nil when the total is zero.
type MonthRow struct {
	Month   string
	Total   int
	Cost    decimal.Decimal
	CostPer *decimal.Decimal
}

// MonthlyTotals slices a cohort by first_open month, counts the stat for
// each month, and joins campaign spend filtered to the same month and the
// cohort's own countries and languages.
func MonthlyTotals(c model.Cohort, stat model.Stat, dates model.DateRange, campaigns []model.CampaignSpend) []MonthRow {
	countries := model.ParseStringFilter(nil)
	languages := model.ParseStringFilter(nil)
	if vals := distinctValues(c, model.ByCountry); len(vals) > 0 {
		countries = model.NewStringFilter(vals...)
	}
	if vals := distinctValues(c, model.ByLanguage); len(vals) > 0 {
		languages = model.NewStringFilter(vals...)
	}

	var out []MonthRow
	for _, month := range MonthRanges(dates.Start, dates.End) {
		total := StageCount(SliceByDate(c, month), stat)
		cost := TotalCost(FilterCampaigns(campaigns, month, countries, languages))
		out = append(out, MonthRow{
			Month:   month.Start.Format("January-2006"),
			Total:   total,
			Cost:    cost,
			CostPer: costPer(cost, total),
		})
	}
	return out
}

func distinctValues(c model.Cohort, dim model.Dimension) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, u := range c.Users {
		v := dim.Value(u)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := make([]float64, len(vals))
	copy(s, vals)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
