package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iwanyu/marketplace/internal/access"
	"github.com/iwanyu/marketplace/internal/jwt-new/jwtmiddleware"
	"github.com/iwanyu/marketplace/internal/service"
)

// SignUpRequest регистрация нового профиля
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=120"`
}

// SignInRequest структура запроса входа с тегами валидации
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// StatusResponse ответ без данных
type StatusResponse struct {
	Status string `json:"status"`
}

func SignUpHandler(log *slog.Logger, auth service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.SignUpHandler"))

		var req SignUpRequest
		if err := decodeJSON(r, w, &req); err != nil {
			log.Warn("bad request", slog.Any("error", err))
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}

		sess, err := auth.SignUp(r.Context(), req.Email, req.Password, req.FullName)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusCreated, sess)
	}
}

// SignInHandler вход по email и паролю, в ответе токен и разрешённая роль
func SignInHandler(log *slog.Logger, auth service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.SignInHandler"))

		var req SignInRequest
		if err := decodeJSON(r, w, &req); err != nil {
			log.Warn("bad request", slog.Any("error", err))
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}

		sess, err := auth.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, sess)
	}
}

func SignOutHandler(log *slog.Logger, auth service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.SignOutHandler"))

		claims, ok := jwtmiddleware.ClaimsFromContext(r.Context())
		if !ok {
			writeError(log, w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := auth.SignOut(r.Context(), claims); err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, StatusResponse{Status: "signed out"})
	}
}

// SessionHandler текущая identity и её роль, заново через AuthService
func SessionHandler(log *slog.Logger, auth service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.SessionHandler"))

		p := access.PrincipalFromContext(r.Context())
		if p == nil {
			writeError(log, w, http.StatusUnauthorized, "unauthorized")
			return
		}
		session, err := auth.GetSession(r.Context(), p.Profile.ID)
		if err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, session)
	}
}

// PasswordResetRequestHandler всегда отвечает 202, даже для неизвестного email
func PasswordResetRequestHandler(log *slog.Logger, auth service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.PasswordResetRequestHandler"))

		var req PasswordResetRequest
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		if err := auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusAccepted, StatusResponse{Status: "if the email is registered, a reset link was sent"})
	}
}

func PasswordResetHandler(log *slog.Logger, auth service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(slog.String("op", "handlers.PasswordResetHandler"))

		var req PasswordResetConfirm
		if err := decodeJSON(r, w, &req); err != nil {
			writeError(log, w, http.StatusBadRequest, err.Error())
			return
		}
		if err := auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
			handleServiceError(log, w, err)
			return
		}
		writeJSON(log, w, http.StatusOK, StatusResponse{Status: "password updated"})
	}
}
