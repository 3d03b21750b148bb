package storage_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iwanyu/marketplace/internal/domain/models"
	"github.com/iwanyu/marketplace/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productCols = []string{"id", "vendor_id", "name", "description", "category", "price", "stock_quantity",
	"image_url", "status", "rejection_reason", "created_at", "updated_at"}

func TestListProducts_VendorStatusSorted(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewProductRepository(db)
	now := time.Now()
	vendorID := int64(3)

	rows := sqlmock.NewRows(productCols).
		AddRow(int64(2), vendorID, "Agaseke basket", "", "crafts", int64(25000), 4, "", "approved", "", now, now).
		AddRow(int64(1), vendorID, "Imigongo art", "", "art", int64(15000), 1, "", "approved", "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE 1=1 AND vendor_id = $1 AND status = $2 ORDER BY price DESC, id DESC")).
		WithArgs(vendorID, "approved").WillReturnRows(rows)

	products, err := repo.ListProducts(context.Background(), models.ProductFilter{
		VendorID: &vendorID, Status: models.ProductApproved, SortBy: "price", Desc: true,
	})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(25000), products[0].Price)
	assert.Equal(t, models.ProductApproved, products[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProducts_ApprovedVendorsOnly(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE 1=1 AND status = $1 AND vendor_id IN (SELECT id FROM vendors WHERE status = $2) ORDER BY created_at ASC, id ASC")).
		WithArgs("approved", "approved").WillReturnRows(sqlmock.NewRows(productCols))

	products, err := repo.ListProducts(context.Background(), models.ProductFilter{
		Status: models.ProductApproved, ApprovedVendorsOnly: true,
	})
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProductStatus_ChangedConcurrently(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewProductRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET status = $1, rejection_reason = $2, updated_at = NOW() WHERE id = $3 AND status = $4")).
		WithArgs("approved", "", int64(9), "pending").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProductStatus(context.Background(), 9, models.ProductPending, models.ProductApproved, "")
	assert.ErrorIs(t, err, storage.ErrStatusConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProducts_UnsupportedSort(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewProductRepository(db)

	_, err := repo.ListProducts(context.Background(), models.ProductFilter{SortBy: "price; DROP TABLE products"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProductByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(productCols))

	_, err := repo.GetProductByID(context.Background(), 5)
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProduct_ScopedToVendor(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewProductRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET name = $1")).
		WithArgs("Basket", "", "crafts", int64(1000), 2, "", "pending", int64(9), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProduct(context.Background(), &models.Product{
		ID: 9, VendorID: 3, Name: "Basket", Category: "crafts", Price: 1000, StockQuantity: 2, Status: models.ProductPending,
	})
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProduct_Success(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewProductRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1 AND vendor_id = $2")).
		WithArgs(int64(9), int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.DeleteProduct(context.Background(), 9, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountProductsByStatus_AllVendors(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewProductRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("approved", 7).
		AddRow("pending", 2).
		AddRow("draft", 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM products GROUP BY status")).WillReturnRows(rows)

	counts, err := repo.CountProductsByStatus(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, counts[models.ProductApproved])
	assert.Equal(t, 2, counts[models.ProductPending])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockTx_Insufficient(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewProductRepository(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock_quantity = stock_quantity + $1")).
		WithArgs(-5, int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.AdjustStockTx(context.Background(), tx, 9, -5)
	assert.ErrorIs(t, err, storage.ErrInsufficientStock)

	mock.ExpectRollback()
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
