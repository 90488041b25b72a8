package http

import (
	"net/http"
	"time"

	"finanz/internal/core"
)

type summaryDTO struct {
	Income       string `json:"income"`
	Expense      string `json:"expense"`
	Balance      string `json:"balance"`
	IncomeTrend  string `json:"income_trend"`
	ExpenseTrend string `json:"expense_trend"`
}

func toSummaryDTO(s core.MonthSummary) summaryDTO {
	return summaryDTO{
		Income:       core.FormatAmount(s.Income),
		Expense:      core.FormatAmount(s.Expense),
		Balance:      core.FormatAmount(s.Balance),
		IncomeTrend:  s.IncomeTrend,
		ExpenseTrend: s.ExpenseTrend,
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	scope, err := s.scopeFromRequest(r, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	year, month := parseYearMonth(r)

	key := summaryCacheKey(scope, year, month)
	if cached, hit := s.summaryCache.Get(key); hit {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, toSummaryDTO(cached))
		return
	}

	ref := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	summary, err := s.ledger.Summary(r.Context(), scope, ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.summaryCache.Set(key, summary)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

type categorySliceDTO struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Color string `json:"color"`
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	scope, err := s.scopeFromRequest(r, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	year, month := parseYearMonth(r)
	ref := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	slices, err := s.ledger.CategoryBreakdown(r.Context(), scope, ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]categorySliceDTO, len(slices))
	for i, slice := range slices {
		out[i] = categorySliceDTO{
			Name:  slice.Name,
			Value: core.FormatAmount(slice.Value),
			Color: slice.Color,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type monthlyFlowDTO struct {
	Label   string `json:"label"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	scope, err := s.scopeFromRequest(r, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	year, month := parseYearMonth(r)
	ref := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	series, err := s.ledger.MonthlySeries(r.Context(), scope, ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]monthlyFlowDTO, len(series))
	for i, flow := range series {
		out[i] = monthlyFlowDTO{
			Label:   flow.Label,
			Income:  core.FormatAmount(flow.Income),
			Expense: core.FormatAmount(flow.Expense),
		}
	}
	writeJSON(w, http.StatusOK, out)
}
