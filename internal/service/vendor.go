package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/asaskevich/EventBus"
	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/events"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/storage"
)

// VendorInput данные заявки продавца
type VendorInput struct {
	BusinessName    string `json:"business_name" validate:"required,min=2,max=120"`
	BusinessAddress string `json:"business_address" validate:"required,max=255"`
	Phone           string `json:"phone" validate:"required,min=10,max=15"`
}

type VendorServiceInterface interface {
	Register(ctx context.Context, profileID int64, in VendorInput) (*models.Vendor, error)
	Me(ctx context.Context, profileID int64) (*models.Vendor, error)
	List(ctx context.Context, status models.VendorStatus) ([]*models.Vendor, error)
	Approve(ctx context.Context, id, adminID int64) (*models.Vendor, error)
	Reject(ctx context.Context, id, adminID int64, reason string) (*models.Vendor, error)
	Suspend(ctx context.Context, id, adminID int64) (*models.Vendor, error)
}

type VendorService struct {
	log     *slog.Logger
	vendors storage.VendorStorage
	bus     EventBus.Bus
	events  events.Publisher
}

func NewVendorService(log *slog.Logger, vendors storage.VendorStorage, bus EventBus.Bus, pub events.Publisher) *VendorService {
	return &VendorService{log: log, vendors: vendors, bus: bus, events: pub}
}

// Register создаёт заявку продавца в статусе pending.
// У одного профиля может быть только один продавец
func (s *VendorService) Register(ctx context.Context, profileID int64, in VendorInput) (*models.Vendor, error) {
	const op = "service.VendorService.Register"
	log := s.log.With(slog.String("op", op), slog.Int64("profileID", profileID))

	if _, err := s.vendors.GetVendorByProfileID(ctx, profileID); err == nil {
		return nil, ErrVendorExists
	} else if !errors.Is(err, storage.ErrVendorNotFound) {
		log.Error("failed to check vendor", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	vendor, err := s.vendors.CreateVendor(ctx, &models.Vendor{
		ProfileID:       profileID,
		BusinessName:    in.BusinessName,
		BusinessAddress: in.BusinessAddress,
		Phone:           in.Phone,
		Status:          models.VendorPending,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrVendorExists
		}
		log.Error("failed to create vendor", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// запись продавца меняет роль identity
	publishAuthEvent(s.bus, AuthUserUpdated, profileID)
	log.Info("vendor registered", slog.Int64("vendorID", vendor.ID))
	return vendor, nil
}

func (s *VendorService) Me(ctx context.Context, profileID int64) (*models.Vendor, error) {
	const op = "service.VendorService.Me"

	v, err := s.vendors.GetVendorByProfileID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func (s *VendorService) List(ctx context.Context, status models.VendorStatus) ([]*models.Vendor, error) {
	const op = "service.VendorService.List"

	list, err := s.vendors.ListVendors(ctx, status)
	if err != nil {
		s.log.Error("failed to list vendors", slog.String("op", op), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *VendorService) Approve(ctx context.Context, id, adminID int64) (*models.Vendor, error) {
	return s.transition(ctx, id, adminID, models.VendorApproved, "")
}

func (s *VendorService) Reject(ctx context.Context, id, adminID int64, reason string) (*models.Vendor, error) {
	return s.transition(ctx, id, adminID, models.VendorRejected, reason)
}

func (s *VendorService) Suspend(ctx context.Context, id, adminID int64) (*models.Vendor, error) {
	return s.transition(ctx, id, adminID, models.VendorSuspended, "")
}

func (s *VendorService) transition(ctx context.Context, id, adminID int64, to models.VendorStatus, reason string) (*models.Vendor, error) {
	const op = "service.VendorService.transition"
	log := s.log.With(slog.String("op", op), slog.Int64("vendorID", id), slog.String("to", string(to)))

	vendor, err := s.vendors.GetVendorByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	from := vendor.Status
	if !from.CanTransition(to) {
		log.Warn("illegal vendor transition", slog.String("from", string(from)))
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, from, to, ErrInvalidTransition)
	}

	if err := s.vendors.UpdateVendorStatus(ctx, id, from, to, adminID, reason); err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			log.Warn("vendor status changed concurrently", slog.String("from", string(from)))
			return nil, fmt.Errorf("%s: %s -> %s: %w", op, from, to, ErrInvalidTransition)
		}
		log.Error("failed to update vendor status", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	publishAuthEvent(s.bus, AuthUserUpdated, vendor.ProfileID)
	emit(ctx, log, s.events, events.EventVendorStatusChanged, id, events.StatusChangedPayload{
		ID: id, VendorID: id, From: string(from), To: string(to), ActorID: adminID,
	})
	log.Info("vendor status changed", slog.String("from", string(from)))

	return s.vendors.GetVendorByID(ctx, id)
}
