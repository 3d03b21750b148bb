package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iwanyu/marketplace/internal/domain/models"
)

var ErrVendorNotFound = errors.New("vendor not found")

// VendorStorage описывает методы для работы с продавцами.
type VendorStorage interface {
	GetVendorByID(ctx context.Context, id int64) (*models.Vendor, error)
	// GetVendorByProfileID ищет продавца, привязанного к identity
	GetVendorByProfileID(ctx context.Context, profileID int64) (*models.Vendor, error)
	CreateVendor(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error)
	ListVendors(ctx context.Context, status models.VendorStatus) ([]*models.Vendor, error)
	// UpdateVendorStatus переводит продавца from -> to; если статус уже не from, возвращает ErrStatusConflict
	UpdateVendorStatus(ctx context.Context, id int64, from, to models.VendorStatus, actorID int64, reason string) error
	CountVendorsByStatus(ctx context.Context) (map[models.VendorStatus]int, error)
	// LockVendorTx блокирует строку продавца до конца транзакции (сериализация выплат)
	LockVendorTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Vendor, error)
	// ShareLockVendorTx читает продавца под FOR SHARE: смена статуса ждёт конца транзакции
	ShareLockVendorTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Vendor, error)
}

type vendorRepository struct {
	db *sql.DB
}

func NewVendorRepository(db *sql.DB) VendorStorage {
	return &vendorRepository{db: db}
}

const vendorColumns = "id, profile_id, business_name, business_address, phone, status, approved_by, approved_at, rejection_reason, created_at"

func scanVendor(row interface{ Scan(...any) error }) (*models.Vendor, error) {
	v := &models.Vendor{}
	var approvedBy sql.NullInt64
	var approvedAt sql.NullTime
	if err := row.Scan(&v.ID, &v.ProfileID, &v.BusinessName, &v.BusinessAddress, &v.Phone,
		&v.Status, &approvedBy, &approvedAt, &v.RejectionReason, &v.CreatedAt); err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		v.ApprovedBy = &approvedBy.Int64
	}
	if approvedAt.Valid {
		v.ApprovedAt = &approvedAt.Time
	}
	return v, nil
}

func (r *vendorRepository) getOne(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, query string, arg any) (*models.Vendor, error) {
	v, err := scanVendor(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, translatePgError(err)
	}
	return v, nil
}

func (r *vendorRepository) GetVendorByID(ctx context.Context, id int64) (*models.Vendor, error) {
	return r.getOne(ctx, r.db, "SELECT "+vendorColumns+" FROM vendors WHERE id = $1", id)
}

func (r *vendorRepository) GetVendorByProfileID(ctx context.Context, profileID int64) (*models.Vendor, error) {
	return r.getOne(ctx, r.db, "SELECT "+vendorColumns+" FROM vendors WHERE profile_id = $1", profileID)
}

func (r *vendorRepository) LockVendorTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Vendor, error) {
	return r.getOne(ctx, tx, "SELECT "+vendorColumns+" FROM vendors WHERE id = $1 FOR UPDATE NOWAIT", id)
}

func (r *vendorRepository) ShareLockVendorTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Vendor, error) {
	return r.getOne(ctx, tx, "SELECT "+vendorColumns+" FROM vendors WHERE id = $1 FOR SHARE", id)
}

func (r *vendorRepository) CreateVendor(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO vendors (profile_id, business_name, business_address, phone, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		vendor.ProfileID, vendor.BusinessName, vendor.BusinessAddress, vendor.Phone, vendor.Status,
	).Scan(&vendor.ID, &vendor.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create vendor: %w", translatePgError(err))
	}
	return vendor, nil
}

func (r *vendorRepository) ListVendors(ctx context.Context, status models.VendorStatus) ([]*models.Vendor, error) {
	query := "SELECT " + vendorColumns + " FROM vendors"
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*models.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vendors, nil
}

// UpdateVendorStatus меняет статус; при одобрении фиксируются одобривший и время
func (r *vendorRepository) UpdateVendorStatus(ctx context.Context, id int64, from, to models.VendorStatus, actorID int64, reason string) error {
	var (
		res sql.Result
		err error
	)
	if to == models.VendorApproved {
		res, err = r.db.ExecContext(ctx,
			"UPDATE vendors SET status = $1, approved_by = $2, approved_at = NOW(), rejection_reason = '' WHERE id = $3 AND status = $4",
			to, actorID, id, from)
	} else {
		res, err = r.db.ExecContext(ctx,
			"UPDATE vendors SET status = $1, rejection_reason = $2 WHERE id = $3 AND status = $4",
			to, reason, id, from)
	}
	if err != nil {
		return translatePgError(err)
	}
	return expectAffected(res, ErrStatusConflict)
}

func (r *vendorRepository) CountVendorsByStatus(ctx context.Context) (map[models.VendorStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM vendors GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count vendors: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.VendorStatus]int)
	for rows.Next() {
		var status models.VendorStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
