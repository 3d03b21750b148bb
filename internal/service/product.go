package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/iwanyu/marketplace/internal/storage"
)

// ErrProductInUse товар уже есть в заказах, удалить нельзя (только архивировать)
var ErrProductInUse = errors.New("product is referenced by orders, archive it instead")

// ProductInput содержимое товара, редактируемое продавцом
type ProductInput struct {
	Name          string `json:"name" validate:"required,min=2,max=200"`
	Description   string `json:"description" validate:"max=5000"`
	Category      string `json:"category" validate:"required,max=80"`
	Price         int64  `json:"price" validate:"gt=0"`
	StockQuantity int    `json:"stock_quantity" validate:"gte=0"`
	ImageURL      string `json:"image_url" validate:"omitempty,max=1024"`
	// Submit сразу отправить товар на модерацию
	Submit bool `json:"submit"`
}

type ProductServiceInterface interface {
	Create(ctx context.Context, vendor *models.Vendor, in ProductInput) (*models.Product, error)
	Update(ctx context.Context, vendor *models.Vendor, id int64, in ProductInput) (*models.Product, error)
	Delete(ctx context.Context, vendor *models.Vendor, id int64) error
	ListOwn(ctx context.Context, vendor *models.Vendor, filter models.ProductFilter) ([]*models.Product, error)
	Submit(ctx context.Context, vendor *models.Vendor, id int64) (*models.Product, error)
	Archive(ctx context.Context, vendor *models.Vendor, id int64) (*models.Product, error)
	Catalog(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	Approve(ctx context.Context, id int64) (*models.Product, error)
	Reject(ctx context.Context, id int64, reason string) (*models.Product, error)
}

type ProductService struct {
	log      *slog.Logger
	products storage.ProductStorage
}

func NewProductService(log *slog.Logger, products storage.ProductStorage) *ProductService {
	return &ProductService{log: log, products: products}
}

func (s *ProductService) Create(ctx context.Context, vendor *models.Vendor, in ProductInput) (*models.Product, error) {
	const op = "service.ProductService.Create"
	log := s.log.With(slog.String("op", op), slog.Int64("vendorID", vendor.ID))

	status := models.ProductDraft
	if in.Submit {
		if vendor.Status != models.VendorApproved {
			return nil, ErrVendorNotApproved
		}
		status = models.ProductPending
	}

	p, err := s.products.CreateProduct(ctx, &models.Product{
		VendorID:      vendor.ID,
		Name:          in.Name,
		Description:   in.Description,
		Category:      in.Category,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		ImageURL:      in.ImageURL,
		Status:        status,
	})
	if err != nil {
		log.Error("failed to create product", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("product created", slog.Int64("productID", p.ID), slog.String("status", string(p.Status)))
	return p, nil
}

// owned возвращает товар продавца; чужой товар выглядит как несуществующий
func (s *ProductService) owned(ctx context.Context, vendor *models.Vendor, id int64) (*models.Product, error) {
	p, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.VendorID != vendor.ID {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

// Update меняет содержимое товара. Одобренный или отклонённый товар
// после правки снова уходит на модерацию
func (s *ProductService) Update(ctx context.Context, vendor *models.Vendor, id int64, in ProductInput) (*models.Product, error) {
	const op = "service.ProductService.Update"
	log := s.log.With(slog.String("op", op), slog.Int64("vendorID", vendor.ID), slog.Int64("productID", id))

	p, err := s.owned(ctx, vendor, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	changed := p.Name != in.Name || p.Description != in.Description || p.Category != in.Category ||
		p.Price != in.Price || p.ImageURL != in.ImageURL
	p.Name = in.Name
	p.Description = in.Description
	p.Category = in.Category
	p.Price = in.Price
	p.StockQuantity = in.StockQuantity
	p.ImageURL = in.ImageURL

	switch {
	case changed && (p.Status == models.ProductApproved || p.Status == models.ProductRejected):
		if vendor.Status == models.VendorApproved {
			p.Status = models.ProductPending
		} else {
			p.Status = models.ProductDraft
		}
		p.RejectionReason = ""
	case in.Submit && p.Status == models.ProductDraft:
		if vendor.Status != models.VendorApproved {
			return nil, ErrVendorNotApproved
		}
		p.Status = models.ProductPending
	}

	if err := s.products.UpdateProduct(ctx, p); err != nil {
		log.Error("failed to update product", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("product updated", slog.String("status", string(p.Status)))
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, vendor *models.Vendor, id int64) error {
	const op = "service.ProductService.Delete"

	if err := s.products.DeleteProduct(ctx, id, vendor.ID); err != nil {
		if errors.Is(err, storage.ErrConstraint) {
			return ErrProductInUse
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("product deleted", slog.String("op", op), slog.Int64("productID", id))
	return nil
}

func (s *ProductService) ListOwn(ctx context.Context, vendor *models.Vendor, filter models.ProductFilter) ([]*models.Product, error) {
	filter.VendorID = &vendor.ID
	return s.List(ctx, filter)
}

// Submit отправляет черновик (или отклонённый товар) на модерацию.
// Доступно только одобренным продавцам
func (s *ProductService) Submit(ctx context.Context, vendor *models.Vendor, id int64) (*models.Product, error) {
	const op = "service.ProductService.Submit"

	if vendor.Status != models.VendorApproved {
		return nil, ErrVendorNotApproved
	}
	p, err := s.owned(ctx, vendor, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.Status != models.ProductDraft && p.Status != models.ProductRejected {
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, p.Status, models.ProductPending, ErrInvalidTransition)
	}
	return s.setStatus(ctx, op, p, models.ProductPending, "")
}

func (s *ProductService) Archive(ctx context.Context, vendor *models.Vendor, id int64) (*models.Product, error) {
	const op = "service.ProductService.Archive"

	p, err := s.owned(ctx, vendor, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.Status == models.ProductArchived {
		return nil, fmt.Errorf("%s: already archived: %w", op, ErrInvalidTransition)
	}
	return s.setStatus(ctx, op, p, models.ProductArchived, "")
}

// Catalog публичная витрина: только одобренные товары одобренных продавцов
func (s *ProductService) Catalog(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	filter.Status = models.ProductApproved
	filter.ApprovedVendorsOnly = true
	return s.List(ctx, filter)
}

func (s *ProductService) List(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	const op = "service.ProductService.List"

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%s: unknown status %q: %w", op, filter.Status, ErrInvalidInput)
	}
	list, err := s.products.ListProducts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *ProductService) Approve(ctx context.Context, id int64) (*models.Product, error) {
	return s.moderate(ctx, id, models.ProductApproved, "")
}

func (s *ProductService) Reject(ctx context.Context, id int64, reason string) (*models.Product, error) {
	return s.moderate(ctx, id, models.ProductRejected, reason)
}

func (s *ProductService) moderate(ctx context.Context, id int64, to models.ProductStatus, reason string) (*models.Product, error) {
	const op = "service.ProductService.moderate"

	p, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.Status != models.ProductPending {
		return nil, fmt.Errorf("%s: %s -> %s: %w", op, p.Status, to, ErrInvalidTransition)
	}
	return s.setStatus(ctx, op, p, to, reason)
}

func (s *ProductService) setStatus(ctx context.Context, op string, p *models.Product, to models.ProductStatus, reason string) (*models.Product, error) {
	log := s.log.With(slog.String("op", op), slog.Int64("productID", p.ID))

	if err := s.products.UpdateProductStatus(ctx, p.ID, p.Status, to, reason); err != nil {
		if errors.Is(err, storage.ErrStatusConflict) {
			log.Warn("product status changed concurrently", slog.String("from", string(p.Status)))
			return nil, fmt.Errorf("%s: %s -> %s: %w", op, p.Status, to, ErrInvalidTransition)
		}
		log.Error("failed to update product status", logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("product status changed", slog.String("from", string(p.Status)), slog.String("to", string(to)))

	p.Status = to
	p.RejectionReason = reason
	return p, nil
}
