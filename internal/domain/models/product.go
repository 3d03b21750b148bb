package models

import "time"

// ProductStatus статус товара в процессе модерации
type ProductStatus string

const (
	ProductDraft    ProductStatus = "draft"
	ProductPending  ProductStatus = "pending"
	ProductApproved ProductStatus = "approved"
	ProductRejected ProductStatus = "rejected"
	ProductArchived ProductStatus = "archived"
)

// Valid проверяет статус товара
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductDraft, ProductPending, ProductApproved, ProductRejected, ProductArchived:
		return true
	}
	return false
}

// Product представляет товар продавца. Цена в RWF, без дробной части
type Product struct {
	ID              int64         `json:"id"`
	VendorID        int64         `json:"vendor_id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Category        string        `json:"category"`
	Price           int64         `json:"price"`
	StockQuantity   int           `json:"stock_quantity"`
	ImageURL        string        `json:"image_url,omitempty"`
	Status          ProductStatus `json:"status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ProductFilter параметры выборки списка товаров
type ProductFilter struct {
	VendorID *int64
	Status   ProductStatus
	SortBy   string // created_at | price | name
	Desc     bool

	// ApprovedVendorsOnly отсекает товары продавцов, не находящихся в статусе approved
	ApprovedVendorsOnly bool
}
