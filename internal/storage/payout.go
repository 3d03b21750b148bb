package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/lib/pq"
)

var ErrPayoutNotFound = errors.New("payout not found")

// PayoutStorage описывает методы для работы с заявками на выплату.
type PayoutStorage interface {
	CreatePayoutTx(ctx context.Context, tx *sql.Tx, p *models.Payout) (*models.Payout, error)
	GetPayoutByID(ctx context.Context, id int64) (*models.Payout, error)
	ListPayouts(ctx context.Context, vendorID *int64, status models.PayoutStatus) ([]*models.Payout, error)
	// UpdatePayoutStatus переводит выплату from -> to; пустые notes не затирают сохранённые.
	// Если статус уже не from, возвращает ErrStatusConflict
	UpdatePayoutStatus(ctx context.Context, id int64, from, to models.PayoutStatus, processedBy int64, notes string) error
	// SumPayoutsTx сумма выплат продавца с указанными статусами
	SumPayoutsTx(ctx context.Context, tx *sql.Tx, vendorID int64, statuses ...models.PayoutStatus) (int64, error)
	// SumAllByStatus сумма выплат по всем продавцам (для админской панели)
	SumAllByStatus(ctx context.Context, status models.PayoutStatus) (int64, error)
}

type payoutRepository struct {
	db *sql.DB
}

func NewPayoutRepository(db *sql.DB) PayoutStorage {
	return &payoutRepository{db: db}
}

const payoutColumns = "id, vendor_id, amount, status, payment_method, processed_by, notes, created_at, updated_at"

func scanPayout(row interface{ Scan(...any) error }) (*models.Payout, error) {
	p := &models.Payout{}
	var method []byte
	var processedBy sql.NullInt64
	if err := row.Scan(&p.ID, &p.VendorID, &p.Amount, &p.Status, &method, &processedBy, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(method) > 0 {
		if err := json.Unmarshal(method, &p.Method); err != nil {
			return nil, fmt.Errorf("failed to decode payment method: %w", err)
		}
	}
	if processedBy.Valid {
		p.ProcessedBy = &processedBy.Int64
	}
	return p, nil
}

func (r *payoutRepository) CreatePayoutTx(ctx context.Context, tx *sql.Tx, p *models.Payout) (*models.Payout, error) {
	method, err := p.Method.Value()
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment method: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO payouts (vendor_id, amount, status, payment_method, notes)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`,
		p.VendorID, p.Amount, p.Status, method, p.Notes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout: %w", translatePgError(err))
	}
	return p, nil
}

func (r *payoutRepository) GetPayoutByID(ctx context.Context, id int64) (*models.Payout, error) {
	p, err := scanPayout(r.db.QueryRowContext(ctx, "SELECT "+payoutColumns+" FROM payouts WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *payoutRepository) ListPayouts(ctx context.Context, vendorID *int64, status models.PayoutStatus) ([]*models.Payout, error) {
	query := "SELECT " + payoutColumns + " FROM payouts WHERE 1=1"
	var args []any
	if vendorID != nil {
		args = append(args, *vendorID)
		query += " AND vendor_id = $" + strconv.Itoa(len(args))
	}
	if status != "" {
		args = append(args, status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*models.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *payoutRepository) UpdatePayoutStatus(ctx context.Context, id int64, from, to models.PayoutStatus, processedBy int64, notes string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payouts SET status = $1, processed_by = $2, notes = COALESCE(NULLIF($3, ''), notes), updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		to, processedBy, notes, id, from)
	if err != nil {
		return translatePgError(err)
	}
	return expectAffected(res, ErrStatusConflict)
}

func (r *payoutRepository) SumPayoutsTx(ctx context.Context, tx *sql.Tx, vendorID int64, statuses ...models.PayoutStatus) (int64, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	var sum int64
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payouts WHERE vendor_id = $1 AND status = ANY($2)",
		vendorID, pq.StringArray(names)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payouts: %w", err)
	}
	return sum, nil
}

func (r *payoutRepository) SumAllByStatus(ctx context.Context, status models.PayoutStatus) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(amount), 0) FROM payouts WHERE status = $1", status).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payouts: %w", err)
	}
	return sum, nil
}
