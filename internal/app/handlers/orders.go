package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/service"
)

type OrderStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

type PaymentStatusRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status" validate:"required,oneof=pending paid failed refunded"`
}

func ListOwnOrdersHandler(log *slog.Logger, orders service.OrderServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.ListOwnOrdersHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		list, err := orders.ListOwn(r.Context(), vendor, models.OrderStatus(r.URL.Query().Get("status")))
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

func GetOwnOrderHandler(log *slog.Logger, orders service.OrderServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.GetOwnOrderHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		order, err := orders.GetOwn(r.Context(), vendor, id)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, order)
	}
}

// UpdateOrderStatusHandler продавец двигает заказ по жизненному циклу
func UpdateOrderStatusHandler(log *slog.Logger, orders service.OrderServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.UpdateOrderStatusHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		var req OrderStatusRequest
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		order, err := orders.UpdateStatus(r.Context(), vendor, id, req.Status)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, order)
	}
}

func AdminListOrdersHandler(log *slog.Logger, orders service.OrderServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.AdminListOrdersHandler"))

		q := r.URL.Query()
		var vendorID *int64
		if v := q.Get("vendor_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				writeError(log, w, http.StatusBadRequest, "invalid vendor_id")
				return
			}
			vendorID = &id
		}
		list, err := orders.List(r.Context(), vendorID, models.OrderStatus(q.Get("status")))
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

func UpdatePaymentStatusHandler(log *slog.Logger, orders service.OrderServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.UpdatePaymentStatusHandler"))

		admin, ok := currentPrincipal(log, w, r)
		if !ok {
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		var req PaymentStatusRequest
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		order, err := orders.UpdatePaymentStatus(r.Context(), id, admin.Profile.ID, req.PaymentStatus)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, order)
	}
}

// ExportOrdersHandler выгрузка заказов в CSV
func ExportOrdersHandler(log *slog.Logger, orders service.OrderServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.ExportOrdersHandler"))

		var buf bytes.Buffer
		if err := orders.ExportCSV(r.Context(), &buf, models.OrderStatus(r.URL.Query().Get("status"))); err != nil {
			handleServiceError(log, w, err)
			return
		}

		filename := fmt.Sprintf("orders-%s.csv", time.Now().UTC().Format("20060102"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			log.Error("failed to write csv", slog.Any("error", err))
		}
	}
}
