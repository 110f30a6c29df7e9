package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercaplaza/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ProductRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      ProductRepository
	sellerID  uuid.UUID
	productID uuid.UUID
	context   context.Context
}

func (suite *ProductRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewProductRepo(mock)
	suite.sellerID = uuid.New()
	suite.productID = uuid.New()
	suite.context = context.Background()
}

func (suite *ProductRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestProductRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ProductRepoTestSuite))
}

const decrementStockQuery = `
	UPDATE products
	SET stock = stock - \$1, updated_at = NOW\(\)
	WHERE id = \$2 AND stock >= \$1
`

func (suite *ProductRepoTestSuite) TestDecrementStock_Success() {
	suite.mock.ExpectExec(decrementStockQuery).
		WithArgs(3, suite.productID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.DecrementStock(suite.context, suite.productID, 3)
	assert.NoError(suite.T(), err)
}

// The guard makes overselling a zero-rows-affected outcome rather than a
// negative stock value.
func (suite *ProductRepoTestSuite) TestDecrementStock_InsufficientStock() {
	suite.mock.ExpectExec(decrementStockQuery).
		WithArgs(5, suite.productID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.DecrementStock(suite.context, suite.productID, 5)
	assert.ErrorIs(suite.T(), err, ErrInsufficientStock)
}

func (suite *ProductRepoTestSuite) TestDecrementStock_DatabaseError() {
	suite.mock.ExpectExec(decrementStockQuery).
		WithArgs(1, suite.productID).
		WillReturnError(errors.New("database connection failed"))

	err := suite.repo.DecrementStock(suite.context, suite.productID, 1)
	assert.Error(suite.T(), err)
	assert.NotErrorIs(suite.T(), err, ErrInsufficientStock)
}

func (suite *ProductRepoTestSuite) TestIncrementStock_Success() {
	suite.mock.ExpectExec(`UPDATE products SET stock = stock \+ \$1, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs(4, suite.productID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.IncrementStock(suite.context, suite.productID, 4)
	assert.NoError(suite.T(), err)
}

func (suite *ProductRepoTestSuite) TestIncrementOrderCount_Success() {
	suite.mock.ExpectExec(`UPDATE products SET order_count = order_count \+ 1, updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs(suite.productID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.IncrementOrderCount(suite.context, suite.productID)
	assert.NoError(suite.T(), err)
}

func (suite *ProductRepoTestSuite) TestCreate_Success() {
	product := &models.Product{
		ID:          suite.productID,
		SellerID:    suite.sellerID,
		Name:        "Ceramic mug",
		SKU:         "MUG-001",
		Price:       11900,
		VATCategory: models.VATCategoryGeneral,
		BasePrice:   10000,
		VATAmount:   1900,
		Stock:       25,
		Status:      models.ProductStatusActive,
	}

	suite.mock.ExpectExec(`
		INSERT INTO products \(id, seller_id, name, sku, image_url, price, vat_category, base_price, vat_amount, stock, order_count, status, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12, NOW\(\), NOW\(\)\)
	`).WithArgs(product.ID, product.SellerID, product.Name, product.SKU, product.ImageURL,
		product.Price, product.VATCategory, product.BasePrice, product.VATAmount,
		product.Stock, product.OrderCount, product.Status).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, product)
	assert.NoError(suite.T(), err)
}

func (suite *ProductRepoTestSuite) TestGetByID_Success() {
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "seller_id", "name", "sku", "image_url", "price", "vat_category",
		"base_price", "vat_amount", "stock", "order_count", "status", "created_at", "updated_at"}).
		AddRow(suite.productID, suite.sellerID, "Ceramic mug", "MUG-001", (*string)(nil), 11900.0, models.VATCategoryGeneral,
			10000.0, 1900.0, 25, 3, models.ProductStatusActive, now, now)

	suite.mock.ExpectQuery(`SELECT id, seller_id, name, sku, image_url, price, vat_category, base_price, vat_amount, stock, order_count, status, created_at, updated_at FROM products WHERE id = \$1`).
		WithArgs(suite.productID).
		WillReturnRows(rows)

	product, err := suite.repo.GetByID(suite.context, suite.productID)
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), product)
	assert.Equal(suite.T(), "Ceramic mug", product.Name)
	assert.Equal(suite.T(), 25, product.Stock)
	assert.Equal(suite.T(), 11900.0, product.Price)
}

func (suite *ProductRepoTestSuite) TestGetByID_NotFoundReturnsNil() {
	suite.mock.ExpectQuery(`SELECT id, seller_id, name, sku, image_url, price, vat_category, base_price, vat_amount, stock, order_count, status, created_at, updated_at FROM products WHERE id = \$1`).
		WithArgs(suite.productID).
		WillReturnError(pgx.ErrNoRows)

	product, err := suite.repo.GetByID(suite.context, suite.productID)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), product)
}
