package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iwanyu/marketplace/internal/service"
)

// MeHandler профиль и роль текущего пользователя
func MeHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.MeHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		writeJSON(log, w, http.StatusOK, p)
	}
}

// RegisterVendorHandler заявка на статус продавца (POST /api/me/vendor)
func RegisterVendorHandler(log *slog.Logger, vendors service.VendorServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.RegisterVendorHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		var req service.VendorInput
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}

		v, err := vendors.Register(r.Context(), p.Profile.ID, req)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusCreated, v)
	}
}

// MyVendorHandler запись продавца текущего профиля (GET /api/me/vendor)
func MyVendorHandler(log *slog.Logger, vendors service.VendorServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.MyVendorHandler"))

		p, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		v, err := vendors.Me(r.Context(), p.Profile.ID)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, v)
	}
}
