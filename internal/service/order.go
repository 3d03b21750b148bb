package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/events"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/storage"
)

// CheckoutItem позиция корзины покупателя
type CheckoutItem struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

// CheckoutInput заказ покупателя у одного продавца
type CheckoutInput struct {
	VendorID        int64          `json:"vendor_id" validate:"required"`
	CustomerName    string         `json:"customer_name" validate:"required,max=120"`
	CustomerEmail   string         `json:"customer_email" validate:"required,email"`
	CustomerPhone   string         `json:"customer_phone" validate:"omitempty,min=10,max=15"`
	ShippingAddress string         `json:"shipping_address" validate:"required,max=255"`
	Items           []CheckoutItem `json:"items" validate:"required,min=1,dive"`
}

// OrderCSVRow строка выгрузки заказов
type OrderCSVRow struct {
	ID            int64  `csv:"order_id"`
	VendorID      int64  `csv:"vendor_id"`
	CustomerName  string `csv:"customer_name"`
	CustomerEmail string `csv:"customer_email"`
	Items         int    `csv:"items"`
	Subtotal      int64  `csv:"subtotal_rwf"`
	ShippingFee   int64  `csv:"shipping_fee_rwf"`
	Total         int64  `csv:"total_rwf"`
	Status        string `csv:"status"`
	PaymentStatus string `csv:"payment_status"`
	CreatedAt     string `csv:"created_at"`
}

type OrderServiceInterface interface {
	Checkout(ctx context.Context, in CheckoutInput) (*models.Order, error)
	ListOwn(ctx context.Context, vendor *models.Vendor, status models.OrderStatus) ([]*models.Order, error)
	GetOwn(ctx context.Context, vendor *models.Vendor, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, vendor *models.Vendor, id int64, to models.OrderStatus) (*models.Order, error)
	List(ctx context.Context, vendorID *int64, status models.OrderStatus) ([]*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id, adminID int64, to models.PaymentStatus) (*models.Order, error)
	ExportCSV(ctx context.Context, w io.Writer, status models.OrderStatus) error
}

type OrderService struct {
	log         *slog.Logger
	db          *sql.DB
	orders      storage.OrderStorage
	products    storage.ProductStorage
	vendors     storage.VendorStorage
	events      events.Publisher
	shippingFee int64
}

func NewOrderService(
	log *slog.Logger,
	db *sql.DB,
	orders storage.OrderStorage,
	products storage.ProductStorage,
	vendors storage.VendorStorage,
	pub events.Publisher,
	shippingFee int64,
) *OrderService {
	return &OrderService{
		log:         log,
		db:          db,
		orders:      orders,
		products:    products,
		vendors:     vendors,
		events:      pub,
		shippingFee: shippingFee,
	}
}

// mergeItems схлопывает повторы одного товара и сортирует по id,
// чтобы блокировки строк брались в одном порядке
func mergeItems(items []CheckoutItem) []CheckoutItem {
	qty := make(map[int64]int, len(items))
	for _, it := range items {
		qty[it.ProductID] += it.Quantity
	}
	out := make([]CheckoutItem, 0, len(qty))
	for id, q := range qty {
		out = append(out, CheckoutItem{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Checkout оформляет заказ у одобренного продавца: цены берутся из его одобренных товаров,
// остатки списываются в той же транзакции, что и вставка заказа
func (s *OrderService) Checkout(ctx context.Context, in CheckoutInput) (*models.Order, error) {
	const op = "service.OrderService.Checkout"
	log := s.log.With(slog.String("op", op), slog.Int64("vendorID", in.VendorID))

	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%s: empty cart: %w", op, ErrInvalidInput)
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

	vendor, err := s.vendors.ShareLockVendorTx(ctx, tx, in.VendorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if vendor.Status != models.VendorApproved {
		log.Warn("vendor is not accepting orders", slog.String("status", string(vendor.Status)))
		return nil, fmt.Errorf("%s: %w", op, ErrVendorNotApproved)
	}

	order := &models.Order{
		VendorID:        in.VendorID,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		ShippingAddress: in.ShippingAddress,
		ShippingFee:     s.shippingFee,
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
	}

	for _, it := range mergeItems(in.Items) {
		p, err := s.products.LockProductTx(ctx, tx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%s: product %d: %w", op, it.ProductID, err)
		}
		if p.VendorID != in.VendorID || p.Status != models.ProductApproved {
			log.Warn("product not available", slog.Int64("productID", p.ID), slog.String("status", string(p.Status)))
			return nil, fmt.Errorf("%s: product %d is not available: %w", op, p.ID, ErrInvalidInput)
		}
		if err := s.products.AdjustStockTx(ctx, tx, p.ID, -it.Quantity); err != nil {
			log.Warn("failed to reserve stock", slog.Int64("productID", p.ID), logger.Err(err))
			return nil, fmt.Errorf("%s: product %d: %w", op, p.ID, err)
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    it.Quantity,
		})
	}
	order.ComputeTotals()

	order, err = s.orders.CreateOrderTx(ctx, tx, order)
	if err != nil {
		log.Error("failed to create order", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", logger.Err(err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	emit(ctx, log, s.events, events.EventOrderCreated, order.ID, events.OrderCreatedPayload{
		OrderID: order.ID, VendorID: order.VendorID, Total: order.Total, Items: len(order.Items),
	})
	log.Info("order created", slog.Int64("orderID", order.ID), slog.Int64("total", order.Total))
	return order, nil
}

func (s *OrderService) ListOwn(ctx context.Context, vendor *models.Vendor, status models.OrderStatus) ([]*models.Order, error) {
	return s.List(ctx, &vendor.ID, status)
}

func (s *OrderService) GetOwn(ctx context.Context, vendor *models.Vendor, id int64) (*models.Order, error) {
	const op = "service.OrderService.GetOwn"

	o, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if o.VendorID != vendor.ID {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
	}
	return o, nil
}

// UpdateStatus переводит заказ продавца по допустимой цепочке статусов.
// Отмена возвращает товары на склад
func (s *OrderService) UpdateStatus(ctx context.Context, vendor *models.Vendor, id int64, to models.OrderStatus) (*models.Order, error) {
	const op = "service.OrderService.UpdateStatus"
	log := s.log.With(slog.String("op", op), slog.Int64("orderID", id), slog.String("to", string(to)))

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

	order, err := s.orders.LockOrderTx(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if order.VendorID != vendor.ID {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
	}
	from := order.Status
	if !from.CanTransition(to) {
		log.Warn("illegal order transition", slog.String("from", string(from)))
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, from, to, ErrInvalidTransition)
	}

	if to == models.OrderCancelled {
		for _, it := range order.Items {
			if err := s.products.AdjustStockTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
				log.Error("failed to restore stock", slog.Int64("productID", it.ProductID), logger.Err(err))
				return nil, fmt.Errorf("%s: failed to restore stock: %w", op, err)
			}
		}
	}

	if err := s.orders.UpdateOrderStatusTx(ctx, tx, id, to); err != nil {
		log.Error("failed to update order status", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", logger.Err(err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Status = to
	emit(ctx, log, s.events, events.EventOrderStatusChanged, id, events.StatusChangedPayload{
		ID: id, VendorID: order.VendorID, From: string(from), To: string(to), ActorID: vendor.ProfileID,
	})
	log.Info("order status changed", slog.String("from", string(from)))
	return order, nil
}

func (s *OrderService) List(ctx context.Context, vendorID *int64, status models.OrderStatus) ([]*models.Order, error) {
	const op = "service.OrderService.List"

	list, err := s.orders.ListOrders(ctx, vendorID, status)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id, adminID int64, to models.PaymentStatus) (*models.Order, error) {
	const op = "service.OrderService.UpdatePaymentStatus"
	log := s.log.With(slog.String("op", op), slog.Int64("orderID", id), slog.String("to", string(to)))

	if !to.Valid() {
		return nil, fmt.Errorf("%s: unknown payment status %q: %w", op, to, ErrInvalidInput)
	}
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	from := order.PaymentStatus
	if err := s.orders.UpdatePaymentStatus(ctx, id, to); err != nil {
		log.Error("failed to update payment status", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	order.PaymentStatus = to
	emit(ctx, log, s.events, events.EventPaymentStatusChanged, id, events.StatusChangedPayload{
		ID: id, VendorID: order.VendorID, From: string(from), To: string(to), ActorID: adminID,
	})
	log.Info("payment status changed", slog.String("from", string(from)))
	return order, nil
}

// ExportCSV выгружает заказы (все продавцы) в CSV
func (s *OrderService) ExportCSV(ctx context.Context, w io.Writer, status models.OrderStatus) error {
	const op = "service.OrderService.ExportCSV"

	orders, err := s.List(ctx, nil, status)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows := make([]*OrderCSVRow, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, &OrderCSVRow{
			ID:            o.ID,
			VendorID:      o.VendorID,
			CustomerName:  o.CustomerName,
			CustomerEmail: o.CustomerEmail,
			Items:         len(o.Items),
			Subtotal:      o.Subtotal,
			ShippingFee:   o.ShippingFee,
			Total:         o.Total,
			Status:        string(o.Status),
			PaymentStatus: string(o.PaymentStatus),
			CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("%s: failed to write csv: %w", op, err)
	}
	return nil
}
