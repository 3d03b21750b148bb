package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/iwanyu/marketplace/internal/access"
	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/filestore"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/service"
	"github.com/iwanyu/marketplace/internal/storage"
)

var validate = validator.New()

// maxBodyBytes ограничение JSON-тела запроса
const maxBodyBytes = 1 << 20

// ErrorResponse единый формат ошибки API
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", logger.Err(err))
	}
}

func writeError(log *slog.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(log, w, status, ErrorResponse{Error: msg})
}

// decodeJSON разбирает тело и проверяет его тегами validate
func decodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

// errorStatuses соответствие ошибок сервисов и хранилища HTTP-статусам.
// Порядок важен: берётся первое совпадение
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrIdentityNotFound, http.StatusUnauthorized},
	{service.ErrProfileInactive, http.StatusForbidden},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrVendorNotApproved, http.StatusForbidden},
	{storage.ErrProfileNotFound, http.StatusNotFound},
	{storage.ErrVendorNotFound, http.StatusNotFound},
	{storage.ErrProductNotFound, http.StatusNotFound},
	{storage.ErrOrderNotFound, http.StatusNotFound},
	{storage.ErrPayoutNotFound, http.StatusNotFound},
	{storage.ErrMessageNotFound, http.StatusNotFound},
	{service.ErrEmailTaken, http.StatusConflict},
	{service.ErrVendorExists, http.StatusConflict},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrInsufficientBalance, http.StatusConflict},
	{service.ErrProductInUse, http.StatusConflict},
	{storage.ErrInsufficientStock, http.StatusConflict},
	{storage.ErrAlreadyExists, http.StatusConflict},
	{storage.ErrLocked, http.StatusConflict},
	{service.ErrInvalidInput, http.StatusBadRequest},
	{models.ErrInvalidPaymentMethod, http.StatusBadRequest},
	{storage.ErrConstraint, http.StatusBadRequest},
	{filestore.ErrUnknownBucket, http.StatusNotFound},
	{filestore.ErrFileNotFound, http.StatusNotFound},
	{filestore.ErrEmptyFile, http.StatusBadRequest},
	{filestore.ErrTooLarge, http.StatusRequestEntityTooLarge},
	{filestore.ErrUnsupportedType, http.StatusUnsupportedMediaType},
}

// statusFor возвращает статус и безопасный для клиента текст ошибки
func statusFor(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// handleServiceError логирует ошибку и отвечает клиенту; 5xx без деталей
func handleServiceError(log *slog.Logger, w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", logger.Err(err))
	} else {
		log.Warn("request rejected", slog.Int("status", status), logger.Err(err))
	}
	writeError(log, w, status, msg)
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// currentPrincipal principal из контекста; Guard гарантирует его наличие на закрытых путях
func currentPrincipal(log *slog.Logger, w http.ResponseWriter, r *http.Request) (*models.Principal, bool) {
	p := access.PrincipalFromContext(r.Context())
	if p == nil || p.Profile == nil {
		writeError(log, w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return p, true
}

// currentVendor запись продавца текущего principal. Роль vendor из профиля
// без записи продавца не даёт доступа к операциям продавца
func currentVendor(log *slog.Logger, w http.ResponseWriter, r *http.Request) (*models.Principal, *models.Vendor, bool) {
	p, ok := currentPrincipal(log, w, r)
	if !ok {
		return nil, nil, false
	}
	if p.Vendor == nil {
		writeError(log, w, http.StatusForbidden, "vendor registration required")
		return nil, nil, false
	}
	return p, p.Vendor, true
}
