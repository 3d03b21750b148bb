package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/storage"
	"golang.org/x/sync/errgroup"
)

// DeriveRole выводит единственную роль identity: наличие записи продавца
// всегда даёт vendor, иначе берётся роль профиля, по умолчанию user
func DeriveRole(profile *models.Profile, vendor *models.Vendor) models.Role {
	if vendor != nil {
		return models.RoleVendor
	}
	if profile != nil && profile.Role.Valid() {
		return profile.Role
	}
	return models.RoleUser
}

type RoleResolverInterface interface {
	Resolve(ctx context.Context, profileID int64) (*models.Principal, error)
}

type cachedPrincipal struct {
	principal *models.Principal
	expires   time.Time
}

// RoleResolver разрешает роль по identity. Результат кэшируется на ttl
// и сбрасывается при каждом событии auth:state для этой identity
type RoleResolver struct {
	log      *slog.Logger
	profiles storage.ProfileStorage
	vendors  storage.VendorStorage
	ttl      time.Duration

	mu    sync.RWMutex
	cache map[int64]cachedPrincipal
	now   func() time.Time
}

func NewRoleResolver(log *slog.Logger, profiles storage.ProfileStorage, vendors storage.VendorStorage, ttl time.Duration) *RoleResolver {
	return &RoleResolver{
		log:      log,
		profiles: profiles,
		vendors:  vendors,
		ttl:      ttl,
		cache:    make(map[int64]cachedPrincipal),
		now:      time.Now,
	}
}

// SubscribeTo подписывает кэш на события смены состояния аутентификации
func (r *RoleResolver) SubscribeTo(bus EventBus.Bus) error {
	return bus.Subscribe(TopicAuthState, r.onAuthEvent)
}

func (r *RoleResolver) onAuthEvent(evt AuthEvent) {
	r.Invalidate(evt.ProfileID)
}

func (r *RoleResolver) Invalidate(profileID int64) {
	r.mu.Lock()
	delete(r.cache, profileID)
	r.mu.Unlock()
}

// Resolve запускает два запроса параллельно (продавец и профиль) и ждёт оба.
// Ошибка любого из них возвращается вызывающему, роль в этом случае не определена
func (r *RoleResolver) Resolve(ctx context.Context, profileID int64) (*models.Principal, error) {
	const op = "service.RoleResolver.Resolve"

	if p, ok := r.cached(profileID); ok {
		return p, nil
	}

	var (
		vendor  *models.Vendor
		profile *models.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := r.vendors.GetVendorByProfileID(gctx, profileID)
		if err != nil {
			if errors.Is(err, storage.ErrVendorNotFound) {
				return nil
			}
			return fmt.Errorf("vendor lookup: %w", err)
		}
		vendor = v
		return nil
	})
	g.Go(func() error {
		p, err := r.profiles.GetProfileByID(gctx, profileID)
		if err != nil {
			if errors.Is(err, storage.ErrProfileNotFound) {
				return ErrIdentityNotFound
			}
			return fmt.Errorf("profile lookup: %w", err)
		}
		profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		r.log.Error("failed to resolve role", slog.String("op", op), slog.Int64("profileID", profileID), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !profile.Active {
		return nil, fmt.Errorf("%s: %w", op, ErrProfileInactive)
	}

	principal := &models.Principal{
		Role:    DeriveRole(profile, vendor),
		Profile: profile,
		Vendor:  vendor,
	}

	if r.ttl > 0 {
		r.mu.Lock()
		r.cache[profileID] = cachedPrincipal{principal: principal, expires: r.now().Add(r.ttl)}
		r.mu.Unlock()
	}

	return principal, nil
}

func (r *RoleResolver) cached(profileID int64) (*models.Principal, bool) {
	if r.ttl <= 0 {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[profileID]
	if !ok || r.now().After(c.expires) {
		return nil, false
	}
	return c.principal, true
}
