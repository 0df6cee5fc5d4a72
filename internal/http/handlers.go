package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"financas/internal/core"
	"financas/internal/forecast"
	applog "financas/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	m, err := ParseMonthParams(r.URL.Query(), s.api.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, ok := s.summaries.Get(m.String())
	if !ok {
		sum, err = s.api.GetMonthlySummary(r.Context(), m.Year, m.Month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.summaries.Set(m.String(), sum)
	}
	writeJSON(w, http.StatusOK, toSummary(sum))
}

func (s *Server) handlePartitioned(w http.ResponseWriter, r *http.Request) {
	m, err := ParseMonthParams(r.URL.Query(), s.api.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, ok := s.partitioned.Get(m.String())
	if !ok {
		p, err = s.api.GetPartitionedSummary(r.Context(), m.Year, m.Month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.partitioned.Set(m.String(), p)
	}
	writeJSON(w, http.StatusOK, toPartitioned(p))
}

func (s *Server) handleInstallments(w http.ResponseWriter, r *http.Request) {
	list, err := s.api.GetActiveInstallments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"installments": toInstallments(list)})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	m, err := ParseMonthParams(r.URL.Query(), s.api.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.api.GenerateInstallmentTransactions(r.Context(), m.Year, m.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Created > 0 {
		s.invalidate(m)
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Installments generated via API",
		"month", m.String(), "created", res.Created, "skipped", res.Skipped)
	writeJSON(w, http.StatusOK, toExpansion(res))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.api.CancelInstallmentPlan(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Installment plan cancelled via API", "plan_id", id)
	writeJSON(w, http.StatusOK, cancelJSON{ID: id, Status: string(core.PlanCancelled)})
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := ParseCategoryBody(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.api.ReassignCategory(r.Context(), id, category); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateAll()
	writeJSON(w, http.StatusOK, reassignJSON{ID: id, Category: category})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.api.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryList(cats))
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	name := core.NormalizeCategoryName(r.PathValue("name"))
	budget, err := ParseBudgetBody(r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.api.SetCategoryBudget(r.Context(), name, budget); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateAll()
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category budget changed via API",
		"category", name, "budget_cents", budget.Cents)
	writeJSON(w, http.StatusOK, categoryInfoJSON{Name: name, Budget: amount(budget)})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	m, err := ParseMonthParams(r.URL.Query(), s.api.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	alerts, err := s.api.CheckAlerts(r.Context(), m.Year, m.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlerts(m, alerts))
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseTransactionFilter(r.URL.Query(), s.api.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txns, err := s.api.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":        f.Month.String(),
		"transactions": toTransactions(txns),
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	from, to, err := ParseForecastWindow(r.URL.Query(), s.api.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := s.api.CategoryHistory(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := forecastJSON{Status: "ok", From: from.String(), To: to.String()}
	preds, err := forecast.PredictAll(history, from, to)
	switch {
	case errors.Is(err, forecast.ErrInsufficientData):
		out.Status = "insufficient_data"
	case err != nil:
		writeError(w, r, err)
		return
	default:
		out.Predictions = toPredictions(preds)
		out.Trends = toTrends(forecast.Trends(history, from, to))
		out.Anomalies = toAnomalies(forecast.Anomalies(history, from, to, forecast.DefaultAnomalyThreshold))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	from, to, err := ParseForecastWindow(r.URL.Query(), s.api.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	scenario, err := ParseScenario(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := s.api.CategoryHistory(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(history) == 0 {
		writeJSON(w, http.StatusOK, recommendationsJSON{Status: "insufficient_data", From: from.String(), To: to.String()})
		return
	}
	cats, err := s.api.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils := forecast.Utilizations(cats, history, from, to)
	out := toRecommendations(utils, forecast.Reallocations(utils), forecast.Simulate(utils, scenario))
	out.From, out.To = from.String(), to.String()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.tracer.Metrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"requests":         m.TotalRequests,
		"server_errors":    m.ServerErrors,
		"avg_micros":       m.AverageMicros,
		"rate_limited":     s.limiter.Limited(),
		"active_clients":   s.limiter.ActiveClients(),
		"cached_summaries": s.summaries.Size() + s.partitioned.Size(),
	})
}
