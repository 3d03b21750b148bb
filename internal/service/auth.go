package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/iwanyu/marketplace/internal/domain/models"
	security "github.com/iwanyu/marketplace/internal/jwt-new"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/redisx"
	"github.com/iwanyu/marketplace/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// TokenStore deny-list токенов и одноразовые токены сброса пароля
type TokenStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	SaveResetToken(ctx context.Context, token string, profileID int64) error
	ConsumeResetToken(ctx context.Context, token string) (int64, error)
}

// Mailer отправка писем (сброс пароля)
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, token string) error
}

// Session выданная сессия: токен доступа и разрешённая роль
type Session struct {
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Principal   *models.Principal `json:"principal"`
}

type AuthServiceInterface interface {
	SignUp(ctx context.Context, email, password, fullName string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, claims *security.Claims) error
	GetSession(ctx context.Context, profileID int64) (*models.Principal, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type AuthService struct {
	log      *slog.Logger
	profiles storage.ProfileStorage
	tokens   TokenStore
	resolver RoleResolverInterface
	mailer   Mailer
	bus      EventBus.Bus
	secret   string
	tokenTTL time.Duration
}

func NewAuthService(
	log *slog.Logger,
	profiles storage.ProfileStorage,
	tokens TokenStore,
	resolver RoleResolverInterface,
	mailer Mailer,
	bus EventBus.Bus,
	secret string,
	tokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		log:      log,
		profiles: profiles,
		tokens:   tokens,
		resolver: resolver,
		mailer:   mailer,
		bus:      bus,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp регистрирует профиль с ролью user и сразу открывает сессию.
// Пароль хэшируется через bcrypt (соль добавляется автоматически)
func (a *AuthService) SignUp(ctx context.Context, email, password, fullName string) (*Session, error) {
	const op = "service.AuthService.SignUp"
	email = normalizeEmail(email)
	log := a.log.With(slog.String("op", op), slog.String("email", email))

	if _, err := a.profiles.GetProfileByEmail(ctx, email); err == nil {
		log.Warn("email already registered")
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrProfileNotFound) {
		log.Error("failed to check email", logger.Err(err))
		return nil, fmt.Errorf("%s: failed to check email: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash password", logger.Err(err))
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	profile, err := a.profiles.CreateProfile(ctx, &models.Profile{
		Email:    email,
		FullName: strings.TrimSpace(fullName),
		PassHash: passHash,
		Role:     models.RoleUser,
		Active:   true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		log.Error("failed to create profile", logger.Err(err))
		return nil, fmt.Errorf("%s: failed to create profile: %w", op, err)
	}

	log.Info("profile registered", slog.Int64("profileID", profile.ID))
	return a.issueSession(ctx, op, profile)
}

// SignIn проверяет пароль и выдаёт JWT. Деактивированный профиль войти не может
func (a *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	const op = "service.AuthService.SignIn"
	email = normalizeEmail(email)
	log := a.log.With(slog.String("op", op), slog.String("email", email))

	profile, err := a.profiles.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			log.Warn("unknown email")
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to get profile", logger.Err(err))
		return nil, fmt.Errorf("%s: failed to get profile: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(profile.PassHash, []byte(password)); err != nil {
		log.Warn("invalid password")
		return nil, ErrInvalidCredentials
	}
	if !profile.Active {
		log.Warn("inactive profile tried to sign in")
		return nil, ErrProfileInactive
	}

	return a.issueSession(ctx, op, profile)
}

func (a *AuthService) issueSession(ctx context.Context, op string, profile *models.Profile) (*Session, error) {
	token, claims, err := security.NewToken(profile, a.secret, a.tokenTTL)
	if err != nil {
		a.log.Error("failed to generate token", slog.String("op", op), logger.Err(err))
		return nil, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	publishAuthEvent(a.bus, AuthSignedIn, profile.ID)

	principal, err := a.resolver.Resolve(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve role: %w", op, err)
	}

	a.log.Info("session issued", slog.String("op", op), slog.Int64("profileID", profile.ID), slog.String("role", string(principal.Role)))
	return &Session{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
		Principal:   principal,
	}, nil
}

// SignOut отзывает текущий токен до его истечения
func (a *AuthService) SignOut(ctx context.Context, claims *security.Claims) error {
	const op = "service.AuthService.SignOut"

	if claims == nil || claims.ExpiresAt == nil {
		return fmt.Errorf("%s: %w", op, security.ErrInvalidToken)
	}
	if err := a.tokens.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		a.log.Error("failed to revoke token", slog.String("op", op), logger.Err(err))
		return fmt.Errorf("%s: failed to revoke token: %w", op, err)
	}

	if id, err := claims.ProfileID(); err == nil {
		publishAuthEvent(a.bus, AuthSignedOut, id)
	}
	return nil
}

// GetSession роль и профиль текущей identity
func (a *AuthService) GetSession(ctx context.Context, profileID int64) (*models.Principal, error) {
	const op = "service.AuthService.GetSession"

	p, err := a.resolver.Resolve(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// RequestPasswordReset создаёт одноразовый токен и отправляет его письмом.
// Для неизвестного email ошибки нет, чтобы не раскрывать зарегистрированные адреса
func (a *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "service.AuthService.RequestPasswordReset"
	email = normalizeEmail(email)
	log := a.log.With(slog.String("op", op), slog.String("email", email))

	profile, err := a.profiles.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			log.Info("password reset requested for unknown email")
			return nil
		}
		log.Error("failed to get profile", logger.Err(err))
		return fmt.Errorf("%s: failed to get profile: %w", op, err)
	}

	token := uuid.NewString()
	if err := a.tokens.SaveResetToken(ctx, token, profile.ID); err != nil {
		log.Error("failed to save reset token", logger.Err(err))
		return fmt.Errorf("%s: failed to save reset token: %w", op, err)
	}
	if err := a.mailer.SendPasswordReset(ctx, profile.Email, token); err != nil {
		log.Error("failed to send reset email", logger.Err(err))
		return fmt.Errorf("%s: failed to send reset email: %w", op, err)
	}

	publishAuthEvent(a.bus, AuthPasswordRecovery, profile.ID)
	return nil
}

func (a *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "service.AuthService.ResetPassword"
	log := a.log.With(slog.String("op", op))

	profileID, err := a.tokens.ConsumeResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, redisx.ErrResetTokenNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to consume reset token", logger.Err(err))
		return fmt.Errorf("%s: failed to consume reset token: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}
	if err := a.profiles.UpdatePassword(ctx, profileID, passHash); err != nil {
		log.Error("failed to update password", logger.Err(err))
		return fmt.Errorf("%s: failed to update password: %w", op, err)
	}

	log.Info("password reset", slog.Int64("profileID", profileID))
	publishAuthEvent(a.bus, AuthUserUpdated, profileID)
	return nil
}
