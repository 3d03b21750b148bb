package models

import "time"

// OrderStatus статус выполнения заказа
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:    {OrderProcessing: true, OrderCancelled: true},
	OrderProcessing: {OrderShipped: true, OrderCancelled: true},
	OrderShipped:    {OrderDelivered: true},
}

// CanTransition сообщает, допустим ли переход статуса заказа
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return orderTransitions[s][to]
}

// PaymentStatus статус оплаты заказа
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid проверяет статус оплаты
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Order представляет заказ покупателя у конкретного продавца
type Order struct {
	ID              int64         `json:"id"`
	VendorID        int64         `json:"vendor_id"`
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	CustomerPhone   string        `json:"customer_phone"`
	ShippingAddress string        `json:"shipping_address"`
	Items           []OrderItem   `json:"items"`
	Subtotal        int64         `json:"subtotal"`
	ShippingFee     int64         `json:"shipping_fee"`
	Total           int64         `json:"total"`
	Status          OrderStatus   `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// OrderItem позиция заказа; цена фиксируется на момент покупки
type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   int64  `json:"line_total"`
}

// ComputeTotals пересчитывает суммы позиций и заказа
func (o *Order) ComputeTotals() {
	var subtotal int64
	for i := range o.Items {
		o.Items[i].LineTotal = o.Items[i].UnitPrice * int64(o.Items[i].Quantity)
		subtotal += o.Items[i].LineTotal
	}
	o.Subtotal = subtotal
	o.Total = subtotal + o.ShippingFee
}

// DailyRevenue точка графика продаж
type DailyRevenue struct {
	Day     time.Time `json:"day"`
	Orders  int       `json:"orders"`
	Revenue int64     `json:"revenue"`
}
