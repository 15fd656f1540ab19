package engine

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/curious-learning/funnel-cli/internal/model"
)

// Campaign names follow the convention
// "<anything>: <language> - <country>[ Campaign]". Names that don't comply
// parse to empty country/language and are excluded from cost joins.
var (
	campaignCountryRe  = regexp.MustCompile(`-\s*(.*)`)
	campaignLanguageRe = regexp.MustCompile(`:\s*([^-]+?)\s*-`)
	campaignTrailerRe  = regexp.MustCompile(`\s*(.*)Campaign`)
)

// ParseCampaignName extracts (language, country) from a campaign name.
// A trailing "Campaign" word is stripped from the country. Non-compliant
// names return empty strings, never an error.
func ParseCampaignName(name string) (language, country string) {
	if m := campaignCountryRe.FindStringSubmatch(name); m != nil {
		country = strings.TrimSpace(m[1])
		if t := campaignTrailerRe.FindStringSubmatch(country); t != nil {
			country = strings.TrimSpace(t[1])
		}
	}
	if m := campaignLanguageRe.FindStringSubmatch(name); m != nil {
		language = strings.ToLower(strings.TrimSpace(m[1]))
	}
	return language, country
}

// AnnotateCampaigns fills Country and AppLanguage on each spend segment from
// its campaign name.
func AnnotateCampaigns(records []model.CampaignSpend) []model.CampaignSpend {
	out := make([]model.CampaignSpend, len(records))
	for i, r := range records {
		lang, country := ParseCampaignName(r.CampaignName)
		r.AppLanguage = lang
		r.Country = country
		out[i] = r
	}
	return out
}

// RollupCampaigns collapses daily spend segments into one row per campaign,
// summing cost. Campaigns renamed mid-flight keep the newest name: candidate
// names are ordered by segment_date descending and the newest propagates to
// every historical segment before summing (last write wins by date, not an
// arbitrary pick).
func RollupCampaigns(records []model.CampaignSpend) []model.CampaignSpend {
	byID := make(map[string][]model.CampaignSpend)
	var order []string
	for _, r := range records {
		if _, ok := byID[r.CampaignID]; !ok {
			order = append(order, r.CampaignID)
		}
		byID[r.CampaignID] = append(byID[r.CampaignID], r)
	}

	out := make([]model.CampaignSpend, 0, len(order))
	for _, id := range order {
		segs := byID[id]
		newest := segs[0]
		for _, s := range segs[1:] {
			if s.SegmentDate.After(newest.SegmentDate) {
				newest = s
			}
		}
		rolled := segs[0]
		rolled.CampaignName = newest.CampaignName
		rolled.SegmentDate = newest.SegmentDate
		total := decimal.Zero
		for _, s := range segs {
			total = total.Add(s.Cost)
		}
		rolled.Cost = total
		out = append(out, rolled)
	}
	return out
}

// FilterCampaigns keeps naming-convention-compliant spend rows inside the
// date range matching the country and language filters.
func FilterCampaigns(records []model.CampaignSpend, dates model.DateRange, countries, languages model.StringFilter) []model.CampaignSpend {
	var out []model.CampaignSpend
	for _, r := range records {
		if !r.Compliant() {
			continue
		}
		if !dates.Contains(r.SegmentDate) {
			continue
		}
		if !countries.Match(r.Country) || !languages.Match(r.AppLanguage) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TotalCost sums spend over rows.
func TotalCost(records []model.CampaignSpend) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Cost)
	}
	return total
}

// CostRow is the per-(country, language) campaign performance row. The
// cost-per-metric columns are nil when the metric count is zero: "not
// applicable", never a division.
type CostRow struct {
	Country     string
	AppLanguage string
	Cost        decimal.Decimal
	LR, PC      int
	LA, RA      int
	LRC, PCC    *decimal.Decimal
	LAC, RAC    *decimal.Decimal
	PCOverLR    float64
	LAOverLR    float64
	RAOverLR    float64
}

// BuildCostTable joins rolled-up, filtered campaign spend against the cohort
// by (country, app_language): total cost per pair, funnel counts for the
// matching sub-cohort, cost-per-metric, and percent-of-LR conversion rates.
func BuildCostTable(campaigns []model.CampaignSpend, cohort model.Cohort) []CostRow {
	type key struct{ country, language string }
	seen := make(map[key]struct{})
	var keys []key
	for _, c := range campaigns {
		if !c.Compliant() {
			continue
		}
		k := key{c.Country, c.AppLanguage}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].country != keys[j].country {
			return keys[i].country < keys[j].country
		}
		return keys[i].language < keys[j].language
	})

	rows := make([]CostRow, 0, len(keys))
	for _, k := range keys {
		cost := decimal.Zero
		for _, c := range campaigns {
			if c.Country == k.country && c.AppLanguage == k.language {
				cost = cost.Add(c.Cost)
			}
		}

		sub := SubCohort(cohort,
			model.NewStringFilter(k.country),
			model.NewStringFilter(k.language),
		)
		lr := StageCount(sub, model.StatLR)
		pc := StageCount(sub, model.StatPC)
		la := StageCount(sub, model.StatLA)
		ra := StageCount(sub, model.StatRA)

		rows = append(rows, CostRow{
			Country:     k.country,
			AppLanguage: k.language,
			Cost:        cost,
			LR:          lr,
			PC:          pc,
			LA:          la,
			RA:          ra,
			LRC:         costPer(cost, lr),
			PCC:         costPer(cost, pc),
			LAC:         costPer(cost, la),
			RAC:         costPer(cost, ra),
			PCOverLR:    ratioPct(pc, lr),
			LAOverLR:    ratioPct(la, lr),
			RAOverLR:    ratioPct(ra, lr),
		})
	}
	return rows
}

// costPer divides cost by a metric count, rounded to cents. A zero count
// yields nil ("N/A") rather than a division.
func costPer(cost decimal.Decimal, count int) *decimal.Decimal {
	if count == 0 {
		return nil
	}
	d := cost.Div(decimal.NewFromInt(int64(count))).Round(2)
	return &d
}

func ratioPct(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
