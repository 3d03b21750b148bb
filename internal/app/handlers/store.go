package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/service"
)

// productFilter читает status, vendor_id, sort и order из query
func productFilter(r *http.Request) (models.ProductFilter, error) {
	q := r.URL.Query()
	f := models.ProductFilter{
		Status: models.ProductStatus(q.Get("status")),
		SortBy: q.Get("sort"),
		Desc:   q.Get("order") == "desc",
	}
	if v := q.Get("vendor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, service.ErrInvalidInput
		}
		f.VendorID = &id
	}
	switch f.SortBy {
	case "", "created_at", "price", "name":
	default:
		return f, service.ErrInvalidInput
	}
	return f, nil
}

// CatalogHandler публичный каталог одобренных товаров
func CatalogHandler(log *slog.Logger, products service.ProductServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.CatalogHandler"))

		f, err := productFilter(r)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		list, err := products.Catalog(r.Context(), f)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

// CheckoutHandler оформление заказа покупателем без аккаунта
func CheckoutHandler(log *slog.Logger, orders service.OrderServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.CheckoutHandler"))

		var req service.CheckoutInput
		if err := decodeJSON(r, w, &req); err != nil {
			log.Warn("bad request", slog.Any("error", err))
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		order, err := orders.Checkout(r.Context(), req)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusCreated, order)
	}
}
