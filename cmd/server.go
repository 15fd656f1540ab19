package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/curious-learning/funnel-cli/internal/cache"
	"github.com/curious-learning/funnel-cli/internal/engine"
	"github.com/curious-learning/funnel-cli/internal/model"
)

// reportServer serves report tables over HTTP from an in-memory snapshot.
// The snapshot is immutable; results are memoized per query fingerprint.
type reportServer struct {
	snap *engine.Snapshot
	memo *cache.Cache
	topN int
}

func newReportServer(snap *engine.Snapshot, ttl time.Duration, topN int) *reportServer {
	return &reportServer{
		snap: snap,
		memo: cache.New(ttl),
		topN: topN,
	}
}

func (s *reportServer) router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/funnel", s.handleFunnel)
		r.Get("/campaigns/costs", s.handleCampaignCosts)
		r.Get("/monthly", s.handleMonthly)
		r.Get("/tiers", s.handleTiers)
	})
	return r
}

// requestID tags each request for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		zap.L().Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r)
	})
}

func (s *reportServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// queryFromRequest maps request parameters onto a typed cohort query.
// Multi-valued filters are comma separated.
func queryFromRequest(r *http.Request) (model.Query, error) {
	vals := r.URL.Query()
	q := model.Query{
		App:         model.ParseAppSelector(splitParam(vals.Get("app"), "CR")),
		Countries:   model.ParseStringFilter(splitParam(vals.Get("countries"), "")),
		Languages:   model.ParseStringFilter(splitParam(vals.Get("languages"), "")),
		AppVersions: model.ParseStringFilter(splitParam(vals.Get("versions"), "")),
	}

	dates, err := parseDateRange(vals.Get("start"), vals.Get("end"))
	if err != nil {
		return model.Query{}, err
	}
	q.Dates = dates

	if v := vals.Get("offline"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return model.Query{}, err
		}
		q.Offline = &b
	}
	return q, nil
}

func splitParam(v, fallback string) []string {
	if v == "" {
		if fallback == "" {
			return nil
		}
		return []string{fallback}
	}
	return strings.Split(v, ",")
}

func (s *reportServer) handleFunnel(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dim, err := parseDimension(defaultStr(r.URL.Query().Get("group_by"), "language"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	key := cache.Key("funnel", r.URL.RawQuery)
	if hit, ok := s.memo.Get(key); ok {
		writeJSON(w, http.StatusOK, hit)
		return
	}

	cohort, lrCohort, err := funnelCohorts(s.snap, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	steps := model.FunnelSteps(q.App)
	rows := engine.AggregateByGroup(cohort, lrCohort, dim, steps)

	sortStat := model.Stat(defaultStr(r.URL.Query().Get("sort"), string(model.StatLR)))
	if !model.ValidStat(sortStat) {
		writeError(w, http.StatusBadRequest, errBadStat(string(sortStat)))
		return
	}
	rows = engine.TopN(rows, engine.SortKey{Stat: sortStat}, true, s.topN)

	resp := funnelResponse{Steps: steps, Rows: make([]funnelRow, len(rows))}
	for i, row := range rows {
		resp.Rows[i] = funnelRow{Group: row.Group, Counts: row.Counts, Pct: row.Pct}
	}
	s.memo.Put(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *reportServer) handleCampaignCosts(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	key := cache.Key("campaign-costs", r.URL.RawQuery)
	if hit, ok := s.memo.Get(key); ok {
		writeJSON(w, http.StatusOK, hit)
		return
	}

	cohort, _, err := funnelCohorts(s.snap, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	campaigns := engine.FilterCampaigns(s.snap.Campaigns, q.Dates, q.Countries, q.Languages)
	rows := engine.BuildCostTable(campaigns, cohort)

	resp := make([]costResponse, len(rows))
	for i, row := range rows {
		resp[i] = costResponse{
			Country:  row.Country,
			Language: row.AppLanguage,
			Cost:     row.Cost.StringFixed(2),
			LR:       row.LR, PC: row.PC, LA: row.LA, RA: row.RA,
			LRC: costCell(row.LRC), PCC: costCell(row.PCC),
			LAC: costCell(row.LAC), RAC: costCell(row.RAC),
			PCOverLR: row.PCOverLR, LAOverLR: row.LAOverLR, RAOverLR: row.RAOverLR,
		}
	}
	s.memo.Put(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *reportServer) handleMonthly(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if q.Dates.IsZero() {
		writeError(w, http.StatusBadRequest, errMissingRange)
		return
	}
	stat := model.Stat(defaultStr(r.URL.Query().Get("stat"), string(model.StatLA)))
	if !model.ValidStat(stat) {
		writeError(w, http.StatusBadRequest, errBadStat(string(stat)))
		return
	}

	key := cache.Key("monthly", r.URL.RawQuery)
	if hit, ok := s.memo.Get(key); ok {
		writeJSON(w, http.StatusOK, hit)
		return
	}

	cohort, lrCohort, err := funnelCohorts(s.snap, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if stat == model.StatLR && !lrCohort.Empty() {
		cohort = lrCohort
	}
	rows := engine.MonthlyTotals(cohort, stat, q.Dates, s.snap.Campaigns)

	resp := make([]monthResponse, len(rows))
	for i, row := range rows {
		resp[i] = monthResponse{
			Month:   row.Month,
			Total:   row.Total,
			Cost:    row.Cost.StringFixed(2),
			CostPer: costCell(row.CostPer),
		}
	}
	s.memo.Put(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *reportServer) handleTiers(w http.ResponseWriter, r *http.Request) {
	books := splitParam(r.URL.Query().Get("book_languages"), "")
	if len(books) == 0 {
		books = engine.BookLanguages(s.snap.BookActivity)
	}

	key := cache.Key("tiers", books)
	if hit, ok := s.memo.Get(key); ok {
		writeJSON(w, http.StatusOK, hit)
		return
	}

	mapped := engine.BuildLanguageMap(s.snap.BookActivity).MappedAppLanguages(books)
	eligible := engine.EligibleUsers(s.snap.CRUsers, mapped)
	tiers := engine.TiersByUser(s.snap.BookActivity, books)

	resp := tiersResponse{
		Distribution: engine.TierDistribution(eligible, tiers),
		Comparison:   engine.CompareTiers(eligible, tiers),
	}
	s.memo.Put(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

type funnelResponse struct {
	Steps []model.Stat `json:"steps"`
	Rows  []funnelRow  `json:"rows"`
}

type funnelRow struct {
	Group  string                 `json:"group"`
	Counts map[model.Stat]int     `json:"counts"`
	Pct    map[model.Stat]float64 `json:"pct"`
}

type costResponse struct {
	Country  string  `json:"country"`
	Language string  `json:"app_language"`
	Cost     string  `json:"cost"`
	LR       int     `json:"lr"`
	PC       int     `json:"pc"`
	LA       int     `json:"la"`
	RA       int     `json:"ra"`
	LRC      string  `json:"lrc"`
	PCC      string  `json:"pcc"`
	LAC      string  `json:"lac"`
	RAC      string  `json:"rac"`
	PCOverLR float64 `json:"pc_over_lr"`
	LAOverLR float64 `json:"la_over_lr"`
	RAOverLR float64 `json:"ra_over_lr"`
}

type monthResponse struct {
	Month   string `json:"month"`
	Total   int    `json:"total"`
	Cost    string `json:"cost"`
	CostPer string `json:"cost_per"`
}

type tiersResponse struct {
	Distribution map[int]int        `json:"distribution"`
	Comparison   []engine.TierStats `json:"comparison"`
}

var errMissingRange = eris.New("start and end are required")

func errBadStat(s string) error { return eris.Errorf("unknown stat %q", s) }

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
