package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iwanyu/marketplace/internal/service"
)

// seriesDays параметр days; пусто или 0 - значение по умолчанию сервиса
func seriesDays(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return 0, true
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 0 {
		return 0, false
	}
	return days, true
}

func VendorDashboardHandler(log *slog.Logger, dash service.DashboardServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.VendorDashboardHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		stats, err := dash.VendorStats(r.Context(), p)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, stats)
	}
}

func VendorSalesHandler(log *slog.Logger, dash service.DashboardServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.VendorSalesHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		days, ok := seriesDays(r)
		if !ok {
			writeError(log, w, http.StatusBadRequest, "invalid days")
			return
		}
		series, err := dash.SalesSeries(r.Context(), &vendor.ID, days)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, series)
	}
}

func AdminDashboardHandler(log *slog.Logger, dash service.DashboardServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.AdminDashboardHandler"))

		stats, err := dash.AdminStats(r.Context())
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, stats)
	}
}

// AdminSalesHandler продажи по всей площадке
func AdminSalesHandler(log *slog.Logger, dash service.DashboardServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.AdminSalesHandler"))

		days, ok := seriesDays(r)
		if !ok {
			writeError(log, w, http.StatusBadRequest, "invalid days")
			return
		}
		series, err := dash.SalesSeries(r.Context(), nil, days)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, series)
	}
}
