package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/service"
)

// RejectRequest причина отклонения (товар, продавец)
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func ListOwnProductsHandler(log *slog.Logger, products service.ProductServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.ListOwnProductsHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		f, err := productFilter(r)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		list, err := products.ListOwn(r.Context(), vendor, f)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

func CreateProductHandler(log *slog.Logger, products service.ProductServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.CreateProductHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		var req service.ProductInput
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := products.Create(r.Context(), vendor, req)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusCreated, p)
	}
}

func UpdateProductHandler(log *slog.Logger, products service.ProductServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.UpdateProductHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		var req service.ProductInput
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := products.Update(r.Context(), vendor, id, req)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, p)
	}
}

func DeleteProductHandler(log *slog.Logger, products service.ProductServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.DeleteProductHandler"))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		if err := products.Delete(r.Context(), vendor, id); err != nil {
			handleServiceError(log, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// productAction общий обработчик переходов статуса товара продавцом (submit, archive)
func productAction(
	log *slog.Logger,
	op string,
	action func(r *http.Request, vendor *models.Vendor, id int64) (*models.Product, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", op))

		_, vendor, ok := currentVendor(log, w, r)
		if !ok {
			return
		}
		id, err := idParam(r, "id")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := action(r, vendor, id)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, p)
	}
}

func SubmitProductHandler(log *slog.Logger, products service.ProductServiceInterface) http.HandlerFunc {
	return productAction(log, "handlers.SubmitProductHandler",
		func(r *http.Request, vendor *models.Vendor, id int64) (*models.Product, error) {
			return products.Submit(r.Context(), vendor, id)
		})
}

func ArchiveProductHandler(log *slog.Logger, products service.ProductServiceInterface) http.HandlerFunc {
	return productAction(log, "handlers.ArchiveProductHandler",
		func(r *http.Request, vendor *models.Vendor, id int64) (*models.Product, error) {
			return products.Archive(r.Context(), vendor, id)
		})
}

// AdminListProductsHandler модерация: все товары с фильтром по статусу
func AdminListProductsHandler(log *slog.Logger, products service.ProductServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.AdminListProductsHandler"))

		f, err := productFilter(r)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		list, err := products.List(r.Context(), f)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, list)
	}
}

func ApproveProductHandler(log *slog.Logger, products service.ProductServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.ApproveProductHandler"))

		id, err := idParam(r, "id")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := products.Approve(r.Context(), id)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, p)
	}
}

func RejectProductHandler(log *slog.Logger, products service.ProductServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.RejectProductHandler"))

		id, err := idParam(r, "id")
		if err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		var req RejectRequest
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := products.Reject(r.Context(), id, req.Reason)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, p)
	}
}
