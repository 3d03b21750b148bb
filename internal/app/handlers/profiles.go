package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/service"
)

// AdminListProfilesHandler GET /api/admin/profiles?role=
func AdminListProfilesHandler(log *slog.Logger, profiles service.ProfileServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.AdminListProfilesHandler"))

		list, err := profiles.List(r.Context(), models.Role(r.URL.Query().Get("role")))
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

func DeactivateProfileHandler(log *slog.Logger, profiles service.ProfileServiceInterface) http.HandlerFunc {
	return profileActivity(log, "handlers.DeactivateProfileHandler", profiles, false)
}

func ActivateProfileHandler(log *slog.Logger, profiles service.ProfileServiceInterface) http.HandlerFunc {
	return profileActivity(log, "handlers.ActivateProfileHandler", profiles, true)
}

func profileActivity(log *slog.Logger, op string, profiles service.ProfileServiceInterface, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", op))

		admin, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := profiles.SetActive(r.Context(), id, admin.Profile.ID, active)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, p)
	}
}
