package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/iwanyu/marketplace/internal/domain/models"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductStorage описывает методы для работы с товарами.
type ProductStorage interface {
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	// UpdateProduct обновляет содержимое товара продавца (без смены владельца)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id, vendorID int64) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	// UpdateProductStatus переводит товар from -> to; если статус уже не from, возвращает ErrStatusConflict
	UpdateProductStatus(ctx context.Context, id int64, from, to models.ProductStatus, reason string) error
	// CountProductsByStatus считает товары по статусам; vendorID == nil - по всем продавцам
	CountProductsByStatus(ctx context.Context, vendorID *int64) (map[models.ProductStatus]int, error)
	// LockProductTx блокирует товар на время оформления заказа
	LockProductTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
	AdjustStockTx(ctx context.Context, tx *sql.Tx, id int64, delta int) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const productColumns = "id, vendor_id, name, description, category, price, stock_quantity, image_url, status, rejection_reason, created_at, updated_at"

// допустимые поля сортировки, пользовательский ввод в ORDER BY не подставляется
var productSortColumns = map[string]string{
	"":           "created_at",
	"created_at": "created_at",
	"price":      "price",
	"name":       "name",
}

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	p := &models.Product{}
	if err := row.Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &p.Category, &p.Price,
		&p.StockQuantity, &p.ImageURL, &p.Status, &p.RejectionReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (vendor_id, name, description, category, price, stock_quantity, image_url, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`,
		p.VendorID, p.Name, p.Description, p.Category, p.Price, p.StockQuantity, p.ImageURL, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", translatePgError(err))
	}
	return p, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = $1, description = $2, category = $3, price = $4, stock_quantity = $5,
		 image_url = $6, status = $7, updated_at = NOW() WHERE id = $8 AND vendor_id = $9`,
		p.Name, p.Description, p.Category, p.Price, p.StockQuantity, p.ImageURL, p.Status, p.ID, p.VendorID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", translatePgError(err))
	}
	return expectAffected(res, ErrProductNotFound)
}

func (r *productRepository) DeleteProduct(ctx context.Context, id, vendorID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1 AND vendor_id = $2", id, vendorID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", translatePgError(err))
	}
	return expectAffected(res, ErrProductNotFound)
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE 1=1"
	var args []any
	if filter.VendorID != nil {
		args = append(args, *filter.VendorID)
		query += " AND vendor_id = $" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if filter.ApprovedVendorsOnly {
		args = append(args, models.VendorApproved)
		query += " AND vendor_id IN (SELECT id FROM vendors WHERE status = $" + strconv.Itoa(len(args)) + ")"
	}
	column, ok := productSortColumns[filter.SortBy]
	if !ok {
		return nil, fmt.Errorf("unsupported sort field %q", filter.SortBy)
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}
	query += " ORDER BY " + column + " " + direction + ", id " + direction

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) UpdateProductStatus(ctx context.Context, id int64, from, to models.ProductStatus, reason string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET status = $1, rejection_reason = $2, updated_at = NOW() WHERE id = $3 AND status = $4",
		to, reason, id, from)
	if err != nil {
		return translatePgError(err)
	}
	return expectAffected(res, ErrStatusConflict)
}

func (r *productRepository) CountProductsByStatus(ctx context.Context, vendorID *int64) (map[models.ProductStatus]int, error) {
	query := "SELECT status, COUNT(*) FROM products"
	var args []any
	if vendorID != nil {
		query += " WHERE vendor_id = $1"
		args = append(args, *vendorID)
	}
	query += " GROUP BY status"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ProductStatus]int)
	for rows.Next() {
		var status models.ProductStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *productRepository) LockProductTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	p, err := scanProduct(tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, translatePgError(err)
	}
	return p, nil
}

// AdjustStockTx меняет остаток на delta; уход в минус отклоняется условием WHERE
func (r *productRepository) AdjustStockTx(ctx context.Context, tx *sql.Tx, id int64, delta int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW() WHERE id = $2 AND stock_quantity + $1 >= 0",
		delta, id)
	if err != nil {
		return translatePgError(err)
	}
	return expectAffected(res, ErrInsufficientStock)
}
