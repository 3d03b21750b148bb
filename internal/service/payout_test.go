package service_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/events"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func momo() models.PaymentMethod {
	return models.PaymentMethod{
		Kind:        models.MethodMobileMoney,
		MobileMoney: &models.MobileMoneyDetails{Provider: "mtn", Phone: "0788123456"},
	}
}

// earnings 100000, pending+approved 30000, completed 20000 => available 50000
func payoutFixture(t *testing.T) (*service.PayoutService, sqlmock.Sqlmock, *fakePayoutRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	vendors := newFakeVendorRepo(&models.Vendor{ID: 1, ProfileID: 10, Status: models.VendorApproved})
	orders := newFakeOrderRepo()
	orders.earnings[1] = 100000
	payouts := newFakePayoutRepo(
		&models.Payout{ID: 1, VendorID: 1, Amount: 10000, Status: models.PayoutPending},
		&models.Payout{ID: 2, VendorID: 1, Amount: 20000, Status: models.PayoutApproved},
		&models.Payout{ID: 3, VendorID: 1, Amount: 20000, Status: models.PayoutCompleted},
		&models.Payout{ID: 4, VendorID: 1, Amount: 99999, Status: models.PayoutRejected},
		&models.Payout{ID: 5, VendorID: 2, Amount: 5000, Status: models.PayoutPending},
	)
	svc := service.NewPayoutService(logger.NewDiscard(), db, vendors, orders, payouts, events.Noop{})
	return svc, mock, payouts
}

func TestPayoutService_Balance(t *testing.T) {
	svc, mock, _ := payoutFixture(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	b, err := svc.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.Balance{
		TotalEarnings:    100000,
		PendingPayouts:   30000,
		CompletedPayouts: 20000,
		Available:        50000,
	}, b)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutService_Request(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		wantErr error
	}{
		{"exactly available", 50000, nil},
		{"above available", 50001, service.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock, payouts := payoutFixture(t)
			mock.ExpectBegin()
			if tt.wantErr == nil {
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			p, err := svc.Request(context.Background(), approvedVendor, service.PayoutRequest{Amount: tt.amount, Method: momo()})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, payouts.payouts, 5)
			} else {
				require.NoError(t, err)
				assert.Equal(t, models.PayoutPending, p.Status)
				assert.Equal(t, tt.amount, p.Amount)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPayoutService_Request_Validation(t *testing.T) {
	svc, mock, _ := payoutFixture(t)
	ctx := context.Background()

	_, err := svc.Request(ctx, approvedVendor, service.PayoutRequest{Amount: 0, Method: momo()})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.Request(ctx, approvedVendor, service.PayoutRequest{Amount: 100, Method: models.PaymentMethod{Kind: models.MethodBankTransfer}})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.ErrorIs(t, err, models.ErrInvalidPaymentMethod)

	_, err = svc.Request(ctx, pendingVendor, service.PayoutRequest{Amount: 100, Method: momo()})
	assert.ErrorIs(t, err, service.ErrVendorNotApproved)

	// до транзакции дело не доходит
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutService_Transitions(t *testing.T) {
	svc, _, _ := payoutFixture(t)
	ctx := context.Background()

	p, err := svc.Approve(ctx, 1, 100, "")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutApproved, p.Status)
	require.NotNil(t, p.ProcessedBy)

	p, err = svc.Complete(ctx, 1, 100, "MoMo ref 8812")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutCompleted, p.Status)
	assert.Equal(t, "MoMo ref 8812", p.Notes)

	_, err = svc.Reject(ctx, 1, 100, "too late")
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	_, err = svc.Complete(ctx, 5, 100, "")
	assert.ErrorIs(t, err, service.ErrInvalidTransition, "pending payout must be approved first")
}

func TestPayoutService_ConcurrentTransitionRejected(t *testing.T) {
	svc, _, payouts := payoutFixture(t)
	// другой администратор отклонил заявку между чтением и записью
	payouts.concurrent = models.PayoutRejected

	_, err := svc.Approve(context.Background(), 1, 100, "")
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	p, err := payouts.GetPayoutByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRejected, p.Status)
}

func TestPayoutService_CompleteKeepsApprovalNotes(t *testing.T) {
	svc, _, payouts := payoutFixture(t)
	ctx := context.Background()

	_, err := svc.Approve(ctx, 1, 100, "verified MoMo number")
	require.NoError(t, err)
	p, err := svc.Complete(ctx, 1, 100, "")
	require.NoError(t, err)
	assert.Equal(t, "verified MoMo number", p.Notes)

	stored, err := payouts.GetPayoutByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "verified MoMo number", stored.Notes)
}
