package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asaskevich/EventBus"
	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/storage"
)

// ProfileServiceInterface администрирование учётных записей
type ProfileServiceInterface interface {
	List(ctx context.Context, role models.Role) ([]*models.Profile, error)
	SetActive(ctx context.Context, id, adminID int64, active bool) (*models.Profile, error)
}

type ProfileService struct {
	log      *slog.Logger
	profiles storage.ProfileStorage
	bus      EventBus.Bus
}

func NewProfileService(log *slog.Logger, profiles storage.ProfileStorage, bus EventBus.Bus) *ProfileService {
	return &ProfileService{log: log, profiles: profiles, bus: bus}
}

// List профили с фильтром по роли; пустая роль - все
func (s *ProfileService) List(ctx context.Context, role models.Role) ([]*models.Profile, error) {
	const op = "service.ProfileService.List"

	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("%s: unknown role %q: %w", op, role, ErrInvalidInput)
	}
	list, err := s.profiles.ListProfiles(ctx, role)
	if err != nil {
		s.log.Error("failed to list profiles", slog.String("op", op), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// SetActive блокирует или возвращает доступ профилю. Кэш ролей сбрасывается событием,
// поэтому заблокированный профиль получает 403 уже на следующем запросе
func (s *ProfileService) SetActive(ctx context.Context, id, adminID int64, active bool) (*models.Profile, error) {
	const op = "service.ProfileService.SetActive"
	log := s.log.With(slog.String("op", op), slog.Int64("profileID", id), slog.Bool("active", active))

	if id == adminID && !active {
		return nil, fmt.Errorf("%s: admin cannot deactivate own profile: %w", op, ErrInvalidInput)
	}
	if err := s.profiles.SetActive(ctx, id, active); err != nil {
		log.Warn("failed to change profile activity", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	publishAuthEvent(s.bus, AuthUserUpdated, id)
	log.Info("profile activity changed", slog.Int64("adminID", adminID))

	p, err := s.profiles.GetProfileByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
