package repositories

import (
	"context"
	"errors"

	"mercaplaza/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrInsufficientStock is returned when a conditional decrement matches no
// row, i.e. the product is missing or its stock is below the requested
// quantity. Callers translate it into a conflict for the buyer.
var ErrInsufficientStock = errors.New("insufficient stock")

type ProductRepository interface {
	WithTx(tx pgx.Tx) ProductRepository
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	List(ctx context.Context, sellerID *uuid.UUID, limit, offset int) ([]*models.Product, error)
	// DecrementStock atomically decrements stock, refusing to go negative.
	// The WHERE guard is what keeps concurrent orders from overselling.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
	// IncrementStock restores stock, used when a pre-shipment order is cancelled.
	IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error
	IncrementOrderCount(ctx context.Context, id uuid.UUID) error
}

type productRepo struct {
	db DB
}

func NewProductRepo(db DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) WithTx(tx pgx.Tx) ProductRepository {
	return &productRepo{db: tx}
}

const productColumns = `id, seller_id, name, sku, image_url, price, vat_category, base_price, vat_amount, stock, order_count, status, created_at, updated_at`

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, seller_id, name, sku, image_url, price, vat_category, base_price, vat_amount, stock, order_count, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, product.ID, product.SellerID, product.Name, product.SKU, product.ImageURL,
		product.Price, product.VATCategory, product.BasePrice, product.VATAmount, product.Stock, product.OrderCount, product.Status)
	return err
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product := &models.Product{}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&product.ID, &product.SellerID, &product.Name, &product.SKU,
		&product.ImageURL, &product.Price, &product.VATCategory, &product.BasePrice, &product.VATAmount,
		&product.Stock, &product.OrderCount, &product.Status, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, sku = $2, image_url = $3, price = $4, vat_category = $5, base_price = $6, vat_amount = $7, stock = $8, status = $9, updated_at = NOW()
		WHERE id = $10
	`
	_, err := r.db.Exec(ctx, query, product.Name, product.SKU, product.ImageURL, product.Price,
		product.VATCategory, product.BasePrice, product.VATAmount, product.Stock, product.Status, product.ID)
	return err
}

func (r *productRepo) List(ctx context.Context, sellerID *uuid.UUID, limit, offset int) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE ($1::uuid IS NULL OR seller_id = $1) ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, sellerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.ID, &product.SellerID, &product.Name, &product.SKU, &product.ImageURL,
			&product.Price, &product.VATCategory, &product.BasePrice, &product.VATAmount, &product.Stock,
			&product.OrderCount, &product.Status, &product.CreatedAt, &product.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (r *productRepo) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
	`
	tag, err := r.db.Exec(ctx, query, quantity, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *productRepo) IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, quantity, id)
	return err
}

func (r *productRepo) IncrementOrderCount(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE products SET order_count = order_count + 1, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
