package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"mercaplaza/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrStaleOrderStatus is returned when a guarded status update matched no
	// row: the order moved out of the expected status concurrently.
	ErrStaleOrderStatus = errors.New("order status changed concurrently")
	// ErrInvoiceAlreadyLinked is returned when an invoice pointer was already
	// assigned; the pointers are single-assignment.
	ErrInvoiceAlreadyLinked = errors.New("order already has an invoice of this type")
)

// OrderFilter narrows order listings. Nil fields are ignored.
type OrderFilter struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   *string
	Limit    int
	Offset   int
}

// FinancialSummary aggregates settled money over a period, for the auditor's
// daily metrics sweep.
type FinancialSummary struct {
	DeliveredOrders int
	CommissionSum   float64
	PlatformFeeSum  float64
	NetSum          float64
}

type OrderRepository interface {
	WithTx(tx pgx.Tx) OrderRepository
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, filter *OrderFilter) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus, expectedStatus string) error
	// SettleDelivery flips the order to delivered and writes the commission
	// fields in one guarded statement so settlement runs at most once.
	SettleDelivery(ctx context.Context, order *models.Order, expectedStatus string) error
	SetFeeInvoice(ctx context.Context, orderID, invoiceID uuid.UUID) error
	SetCommissionInvoice(ctx context.Context, orderID, invoiceID uuid.UUID) error
	DeliveredBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error)
	MissingCommissionInvoices(ctx context.Context, deliveredAfter time.Time) ([]*models.Order, error)
	StuckSettlements(ctx context.Context, deliveredBefore time.Time) ([]*models.Order, error)
	FinancialSummary(ctx context.Context, from, to time.Time) (*FinancialSummary, error)
}

type orderRepo struct {
	db DB
}

func NewOrderRepo(db DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) WithTx(tx pgx.Tx) OrderRepository {
	return &orderRepo{db: tx}
}

const orderColumns = `id, order_number, buyer_id, seller_id, status,
		subtotal, subtotal_base, total_vat, vat_breakdown,
		shipping_amount, discount_amount, total_amount,
		platform_fee_rate, platform_fee_amount,
		seller_commission_rate, seller_commission_amount, seller_net_amount, commission_status,
		fee_invoice_id, commission_invoice_id,
		shipping_address, billing_address, customer_name, customer_document, notes,
		affiliate_id, stream_id, delivered_at, created_at, updated_at`

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	breakdown, err := json.Marshal(order.VATBreakdown)
	if err != nil {
		return err
	}
	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}
	var billing []byte
	if order.BillingAddress != nil {
		billing, err = json.Marshal(order.BillingAddress)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO orders (id, order_number, buyer_id, seller_id, status,
			subtotal, subtotal_base, total_vat, vat_breakdown,
			shipping_amount, discount_amount, total_amount,
			platform_fee_rate, platform_fee_amount,
			seller_commission_rate, seller_commission_amount, seller_net_amount, commission_status,
			shipping_address, billing_address, customer_name, customer_document, notes,
			affiliate_id, stream_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, order.ID, order.OrderNumber, order.BuyerID, order.SellerID, order.Status,
		order.Subtotal, order.SubtotalBase, order.TotalVAT, breakdown,
		order.ShippingAmount, order.DiscountAmount, order.TotalAmount,
		order.PlatformFeeRate, order.PlatformFeeAmount,
		order.SellerCommissionRate, order.SellerCommissionAmount, order.SellerNetAmount, order.CommissionStatus,
		shipping, billing, order.CustomerName, order.CustomerDoc, order.Notes,
		order.AffiliateID, order.StreamID)
	return err
}

func (r *orderRepo) scanOrder(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}
	var breakdown, shipping []byte
	var billing []byte
	err := row.Scan(&order.ID, &order.OrderNumber, &order.BuyerID, &order.SellerID, &order.Status,
		&order.Subtotal, &order.SubtotalBase, &order.TotalVAT, &breakdown,
		&order.ShippingAmount, &order.DiscountAmount, &order.TotalAmount,
		&order.PlatformFeeRate, &order.PlatformFeeAmount,
		&order.SellerCommissionRate, &order.SellerCommissionAmount, &order.SellerNetAmount, &order.CommissionStatus,
		&order.FeeInvoiceID, &order.CommissionInvoiceID,
		&shipping, &billing, &order.CustomerName, &order.CustomerDoc, &order.Notes,
		&order.AffiliateID, &order.StreamID, &order.DeliveredAt, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &order.VATBreakdown); err != nil {
			return nil, err
		}
	}
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &order.ShippingAddress); err != nil {
			return nil, err
		}
	}
	if len(billing) > 0 {
		order.BillingAddress = &models.Address{}
		if err := json.Unmarshal(billing, order.BillingAddress); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := r.scanOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return order, err
}

func (r *orderRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	order, err := r.scanOrder(r.db.QueryRow(ctx, query, orderNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return order, err
}

func (r *orderRepo) queryOrders(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *orderRepo) List(ctx context.Context, filter *OrderFilter) ([]*models.Order, error) {
	if filter == nil {
		filter = &OrderFilter{Limit: 50}
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::uuid IS NULL OR buyer_id = $1)
		  AND ($2::uuid IS NULL OR seller_id = $2)
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`
	return r.queryOrders(ctx, query, filter.BuyerID, filter.SellerID, filter.Status, filter.Limit, filter.Offset)
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus, expectedStatus string) error {
	query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	tag, err := r.db.Exec(ctx, query, newStatus, id, expectedStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleOrderStatus
	}
	return nil
}

func (r *orderRepo) SettleDelivery(ctx context.Context, order *models.Order, expectedStatus string) error {
	query := `
		UPDATE orders
		SET status = $1, delivered_at = $2,
			seller_commission_amount = $3, seller_net_amount = $4, commission_status = $5,
			updated_at = NOW()
		WHERE id = $6 AND status = $7
	`
	tag, err := r.db.Exec(ctx, query, models.OrderStatusDelivered, order.DeliveredAt,
		order.SellerCommissionAmount, order.SellerNetAmount, order.CommissionStatus,
		order.ID, expectedStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleOrderStatus
	}
	return nil
}

func (r *orderRepo) SetFeeInvoice(ctx context.Context, orderID, invoiceID uuid.UUID) error {
	query := `UPDATE orders SET fee_invoice_id = $1, updated_at = NOW() WHERE id = $2 AND fee_invoice_id IS NULL`
	tag, err := r.db.Exec(ctx, query, invoiceID, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceAlreadyLinked
	}
	return nil
}

func (r *orderRepo) SetCommissionInvoice(ctx context.Context, orderID, invoiceID uuid.UUID) error {
	query := `
		UPDATE orders
		SET commission_invoice_id = $1, commission_status = $2, updated_at = NOW()
		WHERE id = $3 AND commission_invoice_id IS NULL
	`
	tag, err := r.db.Exec(ctx, query, invoiceID, models.CommissionStatusInvoiced, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceAlreadyLinked
	}
	return nil
}

func (r *orderRepo) DeliveredBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status = 'delivered' AND delivered_at >= $1 AND delivered_at < $2
		ORDER BY delivered_at`
	return r.queryOrders(ctx, query, from, to)
}

func (r *orderRepo) MissingCommissionInvoices(ctx context.Context, deliveredAfter time.Time) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status = 'delivered' AND delivered_at >= $1
		  AND commission_status <> 'pending' AND commission_invoice_id IS NULL
		  AND seller_commission_amount > 0
		ORDER BY delivered_at`
	return r.queryOrders(ctx, query, deliveredAfter)
}

func (r *orderRepo) StuckSettlements(ctx context.Context, deliveredBefore time.Time) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE status = 'delivered' AND delivered_at < $1 AND commission_status = 'pending'
		ORDER BY delivered_at`
	return r.queryOrders(ctx, query, deliveredBefore)
}

func (r *orderRepo) FinancialSummary(ctx context.Context, from, to time.Time) (*FinancialSummary, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(seller_commission_amount), 0),
			COALESCE(SUM(platform_fee_amount), 0),
			COALESCE(SUM(seller_net_amount), 0)
		FROM orders
		WHERE status = 'delivered' AND delivered_at >= $1 AND delivered_at < $2
	`
	summary := &FinancialSummary{}
	err := r.db.QueryRow(ctx, query, from, to).Scan(&summary.DeliveredOrders,
		&summary.CommissionSum, &summary.PlatformFeeSum, &summary.NetSum)
	if err != nil {
		return nil, err
	}
	return summary, nil
}
