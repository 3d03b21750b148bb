package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/service"
)

func ListVendorsHandler(log *slog.Logger, vendors service.VendorServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.ListVendorsHandler"))

		list, err := vendors.List(r.Context(), models.VendorStatus(r.URL.Query().Get("status")))
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

func ApproveVendorHandler(log *slog.Logger, vendors service.VendorServiceInterface) http.HandlerFunc {
	return vendorAction(log, "handlers.ApproveVendorHandler", false,
		func(r *http.Request, id, adminID int64, _ string) (*models.Vendor, error) {
			return vendors.Approve(r.Context(), id, adminID)
		})
}

func RejectVendorHandler(log *slog.Logger, vendors service.VendorServiceInterface) http.HandlerFunc {
	return vendorAction(log, "handlers.RejectVendorHandler", true,
		func(r *http.Request, id, adminID int64, reason string) (*models.Vendor, error) {
			return vendors.Reject(r.Context(), id, adminID, reason)
		})
}

func SuspendVendorHandler(log *slog.Logger, vendors service.VendorServiceInterface) http.HandlerFunc {
	return vendorAction(log, "handlers.SuspendVendorHandler", false,
		func(r *http.Request, id, adminID int64, _ string) (*models.Vendor, error) {
			return vendors.Suspend(r.Context(), id, adminID)
		})
}

// vendorAction переход статуса продавца администратором; withReason требует тело RejectRequest
func vendorAction(
	log *slog.Logger,
	op string,
	withReason bool,
	action func(r *http.Request, id, adminID int64, reason string) (*models.Vendor, error),
) http.HandlerFunc {
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
		var req RejectRequest
		if withReason {
			if err := decodeJSON(r, w, &req); err != nil {
				writeError(log, w, http.StatusBadRequest, err.Error())
				return
			}
		}
		v, err := action(r, id, admin.Profile.ID, req.Reason)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, v)
	}
}
