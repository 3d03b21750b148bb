package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/events"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/storage"
)

// PayoutRequest заявка на вывод средств
type PayoutRequest struct {
	Amount int64                `json:"amount" validate:"gt=0"`
	Method models.PaymentMethod `json:"payment_method"`
	Notes  string               `json:"notes" validate:"max=500"`
}

type PayoutServiceInterface interface {
	Balance(ctx context.Context, vendorID int64) (models.Balance, error)
	Request(ctx context.Context, vendor *models.Vendor, req PayoutRequest) (*models.Payout, error)
	ListOwn(ctx context.Context, vendor *models.Vendor, status models.PayoutStatus) ([]*models.Payout, error)
	List(ctx context.Context, status models.PayoutStatus) ([]*models.Payout, error)
	Approve(ctx context.Context, id, adminID int64, notes string) (*models.Payout, error)
	Reject(ctx context.Context, id, adminID int64, notes string) (*models.Payout, error)
	Complete(ctx context.Context, id, adminID int64, notes string) (*models.Payout, error)
}

type PayoutService struct {
	log     *slog.Logger
	db      *sql.DB
	vendors storage.VendorStorage
	orders  storage.OrderStorage
	payouts storage.PayoutStorage
	events  events.Publisher
}

func NewPayoutService(
	log *slog.Logger,
	db *sql.DB,
	vendors storage.VendorStorage,
	orders storage.OrderStorage,
	payouts storage.PayoutStorage,
	pub events.Publisher,
) *PayoutService {
	return &PayoutService{
		log:     log,
		db:      db,
		vendors: vendors,
		orders:  orders,
		payouts: payouts,
		events:  pub,
	}
}

// balanceTx считает баланс продавца внутри транзакции:
// заработок (доставленные и оплаченные заказы) минус ожидающие/одобренные и завершённые выплаты
func (s *PayoutService) balanceTx(ctx context.Context, tx *sql.Tx, vendorID int64) (models.Balance, error) {
	earnings, err := s.orders.SumEarningsTx(ctx, tx, vendorID)
	if err != nil {
		return models.Balance{}, err
	}
	pending, err := s.payouts.SumPayoutsTx(ctx, tx, vendorID, models.PayoutPending, models.PayoutApproved)
	if err != nil {
		return models.Balance{}, err
	}
	completed, err := s.payouts.SumPayoutsTx(ctx, tx, vendorID, models.PayoutCompleted)
	if err != nil {
		return models.Balance{}, err
	}
	return models.NewBalance(earnings, pending, completed), nil
}

func (s *PayoutService) Balance(ctx context.Context, vendorID int64) (models.Balance, error) {
	const op = "service.PayoutService.Balance"
	log := s.log.With(slog.String("op", op), slog.Int64("vendorID", vendorID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", logger.Err(err))
		return models.Balance{}, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() {
		if rbErr := storage.Rollback(tx); rbErr != nil {
			log.Error("transaction rollback failed", logger.Err(rbErr))
		}
	}()

	b, err := s.balanceTx(ctx, tx, vendorID)
	if err != nil {
		log.Error("failed to compute balance", logger.Err(err))
		return models.Balance{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return models.Balance{}, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	return b, nil
}

// Request создаёт заявку на выплату. Строка продавца блокируется, баланс
// пересчитывается в той же транзакции, поэтому параллельные заявки не превысят остаток
func (s *PayoutService) Request(ctx context.Context, vendor *models.Vendor, req PayoutRequest) (*models.Payout, error) {
	const op = "service.PayoutService.Request"
	log := s.log.With(slog.String("op", op), slog.Int64("vendorID", vendor.ID), slog.Int64("amount", req.Amount))

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%s: amount must be positive: %w", op, ErrInvalidInput)
	}
	if err := req.Method.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidInput, err)
	}
	if vendor.Status != models.VendorApproved {
		return nil, ErrVendorNotApproved
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", logger.Err(err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() {
		if rbErr := storage.Rollback(tx); rbErr != nil {
			log.Error("transaction rollback failed", logger.Err(rbErr))
		}
	}()

	if _, err := s.vendors.LockVendorTx(ctx, tx, vendor.ID); err != nil {
		log.Warn("failed to lock vendor", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	balance, err := s.balanceTx(ctx, tx, vendor.ID)
	if err != nil {
		log.Error("failed to compute balance", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if req.Amount > balance.Available {
		log.Warn("insufficient balance", slog.Int64("available", balance.Available))
		return nil, fmt.Errorf("%s: available %d: %w", op, balance.Available, ErrInsufficientBalance)
	}

	payout, err := s.payouts.CreatePayoutTx(ctx, tx, &models.Payout{
		VendorID: vendor.ID,
		Amount:   req.Amount,
		Status:   models.PayoutPending,
		Method:   req.Method,
		Notes:    req.Notes,
	})
	if err != nil {
		log.Error("failed to create payout", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", logger.Err(err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	log.Info("payout requested", slog.Int64("payoutID", payout.ID))
	return payout, nil
}

func (s *PayoutService) ListOwn(ctx context.Context, vendor *models.Vendor, status models.PayoutStatus) ([]*models.Payout, error) {
	return s.list(ctx, &vendor.ID, status)
}

func (s *PayoutService) List(ctx context.Context, status models.PayoutStatus) ([]*models.Payout, error) {
	return s.list(ctx, nil, status)
}

func (s *PayoutService) list(ctx context.Context, vendorID *int64, status models.PayoutStatus) ([]*models.Payout, error) {
	const op = "service.PayoutService.List"

	list, err := s.payouts.ListPayouts(ctx, vendorID, status)
	if err != nil {
		s.log.Error("failed to list payouts", slog.String("op", op), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *PayoutService) Approve(ctx context.Context, id, adminID int64, notes string) (*models.Payout, error) {
	return s.transition(ctx, id, adminID, models.PayoutApproved, notes)
}

func (s *PayoutService) Reject(ctx context.Context, id, adminID int64, notes string) (*models.Payout, error) {
	return s.transition(ctx, id, adminID, models.PayoutRejected, notes)
}

// Complete отмечает одобренную выплату как переведённую
func (s *PayoutService) Complete(ctx context.Context, id, adminID int64, notes string) (*models.Payout, error) {
	return s.transition(ctx, id, adminID, models.PayoutCompleted, notes)
}

func (s *PayoutService) transition(ctx context.Context, id, adminID int64, to models.PayoutStatus, notes string) (*models.Payout, error) {
	const op = "service.PayoutService.transition"
	log := s.log.With(slog.String("op", op), slog.Int64("payoutID", id), slog.String("to", string(to)))

	p, err := s.payouts.GetPayoutByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	from := p.Status
	if !from.CanTransition(to) {
		log.Warn("illegal payout transition", slog.String("from", string(from)))
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, from, to, ErrInvalidTransition)
	}

	if err := s.payouts.UpdatePayoutStatus(ctx, id, from, to, adminID, notes); err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			log.Warn("payout status changed concurrently", slog.String("from", string(from)))
			return nil, fmt.Errorf("%s: %s -> %s: %w", op, from, to, ErrInvalidTransition)
		}
		log.Error("failed to update payout status", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p.Status = to
	p.ProcessedBy = &adminID
	if notes != "" {
		p.Notes = notes
	}
	emit(ctx, log, s.events, events.EventPayoutStatusChanged, id, events.StatusChangedPayload{
		ID: id, VendorID: p.VendorID, From: string(from), To: string(to), ActorID: adminID,
	})
	log.Info("payout status changed", slog.String("from", string(from)))
	return p, nil
}
