package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/service"
	"github.com/iwanyu/marketplace/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfileFixture() *fakeProfileRepo {
	return newFakeProfileRepo(
		&models.Profile{ID: 1, Email: "admin@iwanyu.rw", Role: models.RoleAdmin, Active: true},
		&models.Profile{ID: 2, Email: "shop@iwanyu.rw", Role: models.RoleUser, Active: true},
		&models.Profile{ID: 3, Email: "buyer@iwanyu.rw", Role: models.RoleUser, Active: true},
	)
}

func TestProfileService_List(t *testing.T) {
	svc := service.NewProfileService(logger.NewDiscard(), newProfileFixture(), nil)
	ctx := context.Background()

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	admins, err := svc.List(ctx, models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, int64(1), admins[0].ID)

	_, err = svc.List(ctx, "root")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestProfileService_SetActive(t *testing.T) {
	profiles := newProfileFixture()
	bus := service.NewEventBus()
	var got []service.AuthEvent
	require.NoError(t, bus.Subscribe(service.TopicAuthState, func(evt service.AuthEvent) {
		got = append(got, evt)
	}))
	svc := service.NewProfileService(logger.NewDiscard(), profiles, bus)
	ctx := context.Background()

	p, err := svc.SetActive(ctx, 2, 1, false)
	require.NoError(t, err)
	assert.False(t, p.Active)
	require.Len(t, got, 1)
	assert.Equal(t, service.AuthEvent{Type: service.AuthUserUpdated, ProfileID: 2}, got[0])

	p, err = svc.SetActive(ctx, 2, 1, true)
	require.NoError(t, err)
	assert.True(t, p.Active)
	assert.Len(t, got, 2)

	t.Run("admin cannot deactivate own profile", func(t *testing.T) {
		_, err := svc.SetActive(ctx, 1, 1, false)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
		assert.Len(t, got, 2)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := svc.SetActive(ctx, 99, 1, false)
		assert.ErrorIs(t, err, storage.ErrProfileNotFound)
		assert.Len(t, got, 2)
	})
}

func TestProfileService_DeactivationDropsCachedRole(t *testing.T) {
	profiles := newProfileFixture()
	bus := service.NewEventBus()
	resolver := service.NewRoleResolver(logger.NewDiscard(), profiles, newFakeVendorRepo(), time.Minute)
	require.NoError(t, resolver.SubscribeTo(bus))
	svc := service.NewProfileService(logger.NewDiscard(), profiles, bus)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, 3)
	require.NoError(t, err)

	_, err = svc.SetActive(ctx, 3, 1, false)
	require.NoError(t, err)

	_, err = resolver.Resolve(ctx, 3)
	assert.ErrorIs(t, err, service.ErrProfileInactive)
}
