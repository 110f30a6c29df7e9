package repositories

import (
	"context"

	"mercaplaza/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderItemRepository interface {
	WithTx(tx pgx.Tx) OrderItemRepository
	Create(ctx context.Context, item *models.OrderItem) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.OrderItem, error)
}

type orderItemRepo struct {
	db DB
}

func NewOrderItemRepo(db DB) OrderItemRepository {
	return &orderItemRepo{db: db}
}

func (r *orderItemRepo) WithTx(tx pgx.Tx) OrderItemRepository {
	return &orderItemRepo{db: tx}
}

func (r *orderItemRepo) Create(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, product_name, product_sku, product_image,
			quantity, unit_price, unit_base_price, unit_vat_amount, vat_category,
			line_total, line_base, line_vat, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
	`
	_, err := r.db.Exec(ctx, query, item.ID, item.OrderID, item.ProductID, item.ProductName, item.ProductSKU,
		item.ProductImage, item.Quantity, item.UnitPrice, item.UnitBasePrice, item.UnitVATAmount,
		item.VATCategory, item.LineTotal, item.LineBase, item.LineVAT)
	return err
}

func (r *orderItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, product_sku, product_image,
			quantity, unit_price, unit_base_price, unit_vat_amount, vat_category,
			line_total, line_base, line_vat, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.ProductSKU,
			&item.ProductImage, &item.Quantity, &item.UnitPrice, &item.UnitBasePrice, &item.UnitVATAmount,
			&item.VATCategory, &item.LineTotal, &item.LineBase, &item.LineVAT, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
