package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/lib/pq"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет заказ вместе с позициями в рамках транзакции.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	// LockOrderTx возвращает заказ с позициями, блокируя строку заказа.
	LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error)
	// ListOrders возвращает заказы с позициями; vendorID == nil - все заказы.
	ListOrders(ctx context.Context, vendorID *int64, status models.OrderStatus) ([]*models.Order, error)
	UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error
	CountOrdersByStatus(ctx context.Context, vendorID *int64) (map[models.OrderStatus]int, error)
	// SumRevenue сумма оплаченных и не отменённых заказов.
	SumRevenue(ctx context.Context, vendorID *int64) (int64, error)
	// SumEarningsTx сумма доставленных и оплаченных заказов продавца - база для выплат.
	SumEarningsTx(ctx context.Context, tx *sql.Tx, vendorID int64) (int64, error)
	DailyRevenue(ctx context.Context, vendorID *int64, since time.Time) ([]models.DailyRevenue, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = `id, vendor_id, customer_name, customer_email, customer_phone, shipping_address,
	subtotal, shipping_fee, total, status, payment_status, created_at, updated_at`

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	o := &models.Order{}
	if err := row.Scan(&o.ID, &o.VendorID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.ShippingAddress,
		&o.Subtotal, &o.ShippingFee, &o.Total, &o.Status, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateOrderTx вставляет новый заказ и его позиции.
func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error) {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (vendor_id, customer_name, customer_email, customer_phone, shipping_address,
		 subtotal, shipping_fee, total, status, payment_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id, created_at, updated_at`,
		order.VendorID, order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.ShippingAddress,
		order.Subtotal, order.ShippingFee, order.Total, order.Status, order.PaymentStatus,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", translatePgError(err))
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			item.OrderID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.LineTotal,
		).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", translatePgError(err))
		}
	}
	return order, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	return r.getOrder(ctx, r.db, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
}

func (r *orderRepository) LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	return r.getOrder(ctx, tx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
}

func (r *orderRepository) getOrder(ctx context.Context, q rowQuerier, query string, id int64) (*models.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, translatePgError(err)
	}
	if err := r.attachItems(ctx, q, []*models.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, vendorID *int64, status models.OrderStatus) ([]*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE 1=1"
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
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems подгружает позиции одним запросом для всех заказов
func (r *orderRepository) attachItems(ctx context.Context, q rowQuerier, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
		o.Items = []models.OrderItem{}
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, product_name, unit_price, quantity, line_total
		 FROM order_items WHERE order_id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.LineTotal); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *orderRepository) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id int64, status models.OrderStatus) error {
	res, err := tx.ExecContext(ctx, "UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return translatePgError(err)
	}
	return expectAffected(res, ErrOrderNotFound)
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return translatePgError(err)
	}
	return expectAffected(res, ErrOrderNotFound)
}

func (r *orderRepository) CountOrdersByStatus(ctx context.Context, vendorID *int64) (map[models.OrderStatus]int, error) {
	query := "SELECT status, COUNT(*) FROM orders"
	var args []any
	if vendorID != nil {
		query += " WHERE vendor_id = $1"
		args = append(args, *vendorID)
	}
	query += " GROUP BY status"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.OrderStatus]int)
	for rows.Next() {
		var status models.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *orderRepository) SumRevenue(ctx context.Context, vendorID *int64) (int64, error) {
	query := "SELECT COALESCE(SUM(total), 0) FROM orders WHERE payment_status = 'paid' AND status <> 'cancelled'"
	var args []any
	if vendorID != nil {
		query += " AND vendor_id = $1"
		args = append(args, *vendorID)
	}
	var sum int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return sum, nil
}

func (r *orderRepository) SumEarningsTx(ctx context.Context, tx *sql.Tx, vendorID int64) (int64, error) {
	var sum int64
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total), 0) FROM orders WHERE vendor_id = $1 AND status = 'delivered' AND payment_status = 'paid'",
		vendorID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum earnings: %w", err)
	}
	return sum, nil
}

// DailyRevenue агрегирует оплаченные заказы по дням начиная с since
func (r *orderRepository) DailyRevenue(ctx context.Context, vendorID *int64, since time.Time) ([]models.DailyRevenue, error) {
	query := `SELECT date_trunc('day', created_at) AS day, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders WHERE created_at >= $1 AND payment_status = 'paid' AND status <> 'cancelled'`
	args := []any{since}
	if vendorID != nil {
		args = append(args, *vendorID)
		query += " AND vendor_id = $2"
	}
	query += " GROUP BY day ORDER BY day"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily revenue: %w", err)
	}
	defer rows.Close()

	var points []models.DailyRevenue
	for rows.Next() {
		var p models.DailyRevenue
		if err := rows.Scan(&p.Day, &p.Orders, &p.Revenue); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
