package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/service"
)

// PayoutDecision комментарий администратора к решению по выплате
type PayoutDecision struct {
	Notes string `json:"notes" validate:"max=500"`
}

// BalanceHandler доступный к выводу остаток продавца
func BalanceHandler(log *slog.Logger, payouts service.PayoutServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.BalanceHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		balance, err := payouts.Balance(r.Context(), vendor.ID)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, balance)
	}
}

func ListOwnPayoutsHandler(log *slog.Logger, payouts service.PayoutServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.ListOwnPayoutsHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		list, err := payouts.ListOwn(r.Context(), vendor, models.PayoutStatus(r.URL.Query().Get("status")))
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

func RequestPayoutHandler(log *slog.Logger, payouts service.PayoutServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.RequestPayoutHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		var req service.PayoutRequest
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := payouts.Request(r.Context(), vendor, req)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusCreated, p)
	}
}

func AdminListPayoutsHandler(log *slog.Logger, payouts service.PayoutServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.AdminListPayoutsHandler"))

		list, err := payouts.List(r.Context(), models.PayoutStatus(r.URL.Query().Get("status")))
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

type payoutActionFunc func(r *http.Request, id, adminID int64, notes string) (*models.Payout, error)

// payoutAction решение администратора по выплате; тело с notes необязательно
func payoutAction(log *slog.Logger, op string, action payoutActionFunc) http.HandlerFunc {
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
		var req PayoutDecision
		if r.ContentLength != 0 {
			if err := decodeJSON(r, w, &req); err != nil {
				writeError(log, w, http.StatusBadRequest, err.Error())
				return
			}
		}
		p, err := action(r, id, admin.Profile.ID, req.Notes)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, p)
	}
}

func ApprovePayoutHandler(log *slog.Logger, payouts service.PayoutServiceInterface) http.HandlerFunc {
	return payoutAction(log, "handlers.ApprovePayoutHandler",
		func(r *http.Request, id, adminID int64, notes string) (*models.Payout, error) {
			return payouts.Approve(r.Context(), id, adminID, notes)
		})
}

func RejectPayoutHandler(log *slog.Logger, payouts service.PayoutServiceInterface) http.HandlerFunc {
	return payoutAction(log, "handlers.RejectPayoutHandler",
		func(r *http.Request, id, adminID int64, notes string) (*models.Payout, error) {
			return payouts.Reject(r.Context(), id, adminID, notes)
		})
}

func CompletePayoutHandler(log *slog.Logger, payouts service.PayoutServiceInterface) http.HandlerFunc {
	return payoutAction(log, "handlers.CompletePayoutHandler",
		func(r *http.Request, id, adminID int64, notes string) (*models.Payout, error) {
			return payouts.Complete(r.Context(), id, adminID, notes)
		})
}
