package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mercaplaza/internal/caching"
	"mercaplaza/internal/common"
	"mercaplaza/internal/models"
	"mercaplaza/internal/pricing"
	"mercaplaza/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/gommon/random"
)

const maxItemQuantity = 10000

// TxBeginner starts database transactions. Satisfied by *pgxpool.Pool and
// pgxmock pools.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SellerNotifier tells a seller about a new sale. Best effort: the order
// stands whether or not the notification goes out.
type SellerNotifier interface {
	NotifySellerOfSale(ctx context.Context, sellerID uuid.UUID, buyerName, productName string, amount float64, orderID uuid.UUID) error
}

// AttributionRecorder credits live-stream sessions and affiliates for a
// sale. Implemented by the live-streaming subsystem; counters join the
// order-creation transaction.
type AttributionRecorder interface {
	IncrementStreamSales(ctx context.Context, tx pgx.Tx, streamID uuid.UUID, amount float64) error
	IncrementAffiliateEarnings(ctx context.Context, tx pgx.Tx, affiliateID uuid.UUID, amount float64) error
}

// NoopAttribution is the default recorder when the live-stream subsystem is
// not wired in.
type NoopAttribution struct{}

func (NoopAttribution) IncrementStreamSales(context.Context, pgx.Tx, uuid.UUID, float64) error {
	return nil
}

func (NoopAttribution) IncrementAffiliateEarnings(context.Context, pgx.Tx, uuid.UUID, float64) error {
	return nil
}

// OrderItemRequest is one requested line of a checkout.
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// CreateOrderRequest is the checkout payload accepted by the ledger.
type CreateOrderRequest struct {
	BuyerID         *uuid.UUID         `json:"buyer_id"`
	Items           []OrderItemRequest `json:"items"`
	ShippingAddress models.Address     `json:"shipping_address"`
	BillingAddress  *models.Address    `json:"billing_address"`
	ShippingAmount  float64            `json:"shipping_amount"`
	DiscountAmount  float64            `json:"discount_amount"`
	Notes           *string            `json:"notes"`
	AffiliateID     *uuid.UUID         `json:"affiliate_id"`
	StreamID        *uuid.UUID         `json:"stream_id"`
}

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error)
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, filter *repositories.OrderFilter) ([]*models.Order, error)
}

type orderService struct {
	db          TxBeginner
	orderRepo   repositories.OrderRepository
	itemRepo    repositories.OrderItemRepository
	productRepo repositories.ProductRepository
	configSvc   ConfigServiceInterface
	cacheSvc    caching.CacheService
	notifier    SellerNotifier
	attribution AttributionRecorder
}

func NewOrderService(db TxBeginner, orderRepo repositories.OrderRepository, itemRepo repositories.OrderItemRepository,
	productRepo repositories.ProductRepository, configSvc ConfigServiceInterface, cacheSvc caching.CacheService,
	notifier SellerNotifier, attribution AttributionRecorder) OrderServiceInterface {
	if attribution == nil {
		attribution = NoopAttribution{}
	}
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		itemRepo:    itemRepo,
		productRepo: productRepo,
		configSvc:   configSvc,
		cacheSvc:    cacheSvc,
		notifier:    notifier,
		attribution: attribution,
	}
}

// generateOrderNumber builds a time-based number with a random suffix. The
// unique index on orders.order_number is authoritative; a collision surfaces
// as an insert error, not as silent reuse.
func generateOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102150405"), random.String(6, random.Uppercase, random.Numeric))
}

func validateCreateOrderRequest(req *CreateOrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return common.NewValidationError("items", "at least one item is required")
	}
	for i, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return common.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if err := common.ValidatePositiveInteger(item.Quantity, fmt.Sprintf("items[%d].quantity", i), maxItemQuantity); err != nil {
			return err
		}
	}
	if err := common.ValidateRequiredString(req.ShippingAddress.Name, "shipping_address.name"); err != nil {
		return err
	}
	if err := common.ValidateRequiredString(req.ShippingAddress.Line1, "shipping_address.line1"); err != nil {
		return err
	}
	if err := common.ValidateNonNegativeFloat(req.ShippingAmount, "shipping_amount", 0); err != nil {
		return err
	}
	if err := common.ValidateNonNegativeFloat(req.DiscountAmount, "discount_amount", 0); err != nil {
		return err
	}
	return nil
}

// CreateOrder prices the requested items against current product snapshots,
// reserves stock, and persists the order with its lines in one transaction.
// Commission settlement is deferred to delivery; only the rate is captured
// here so later config changes cannot reprice an order already placed.
func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	if err := validateCreateOrderRequest(req); err != nil {
		return nil, err
	}

	// Rates are read live from the config store, not cached on this service.
	platformFeeRate, err := s.configSvc.GetRate(ctx, models.ConfigKeyBuyerPlatformFeeRate)
	if err != nil {
		return nil, fmt.Errorf("load platform fee rate: %w", err)
	}
	commissionRate, err := s.configSvc.GetRate(ctx, models.ConfigKeySellerCommissionRate)
	if err != nil {
		return nil, fmt.Errorf("load seller commission rate: %w", err)
	}

	now := time.Now()
	order := &models.Order{
		ID:                   uuid.New(),
		OrderNumber:          generateOrderNumber(now),
		BuyerID:              req.BuyerID,
		Status:               models.OrderStatusPending,
		VATBreakdown:         make(map[string]models.VATLine),
		ShippingAmount:       pricing.Round2(req.ShippingAmount),
		DiscountAmount:       pricing.Round2(req.DiscountAmount),
		PlatformFeeRate:      platformFeeRate,
		SellerCommissionRate: commissionRate,
		CommissionStatus:     models.CommissionStatusPending,
		ShippingAddress:      req.ShippingAddress,
		BillingAddress:       req.BillingAddress,
		CustomerName:         req.ShippingAddress.Name,
		CustomerDoc:          req.ShippingAddress.Document,
		Notes:                req.Notes,
		AffiliateID:          req.AffiliateID,
		StreamID:             req.StreamID,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin order transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productsTx := s.productRepo.WithTx(tx)

	var items []*models.OrderItem
	for _, line := range req.Items {
		product, err := productsTx.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		if product == nil {
			return nil, common.NewValidationError("items", fmt.Sprintf("product %s does not exist", line.ProductID))
		}
		if product.Status != models.ProductStatusActive {
			return nil, common.NewValidationError("items", fmt.Sprintf("product %q is not available", product.Name))
		}
		if product.Stock < line.Quantity {
			return nil, common.NewConflictError("insufficient stock for product %q: %d requested, %d available",
				product.Name, line.Quantity, product.Stock)
		}

		if order.SellerID == uuid.Nil {
			order.SellerID = product.SellerID
		} else if order.SellerID != product.SellerID {
			return nil, common.NewValidationError("items", "all items in an order must belong to the same seller")
		}

		// The conditional decrement is the oversell guard: concurrent orders
		// for the same product serialize on this row update.
		if err := productsTx.DecrementStock(ctx, product.ID, line.Quantity); err != nil {
			if errors.Is(err, repositories.ErrInsufficientStock) {
				return nil, common.NewConflictError("insufficient stock for product %q", product.Name)
			}
			return nil, fmt.Errorf("reserve stock for product %s: %w", product.ID, err)
		}
		if err := productsTx.IncrementOrderCount(ctx, product.ID); err != nil {
			return nil, fmt.Errorf("bump order count for product %s: %w", product.ID, err)
		}

		item := buildOrderItem(order.ID, product, line.Quantity)
		items = append(items, item)

		order.Subtotal += item.LineTotal
		order.SubtotalBase += item.LineBase
		order.TotalVAT += item.LineVAT

		slot := order.VATBreakdown[product.VATCategory]
		slot.Base = pricing.Round2(slot.Base + item.LineBase)
		slot.VAT = pricing.Round2(slot.VAT + item.LineVAT)
		slot.Total = pricing.Round2(slot.Total + item.LineTotal)
		order.VATBreakdown[product.VATCategory] = slot
	}

	order.Subtotal = pricing.Round2(order.Subtotal)
	order.SubtotalBase = pricing.Round2(order.SubtotalBase)
	order.TotalVAT = pricing.Round2(order.TotalVAT)

	if order.DiscountAmount > order.Subtotal {
		return nil, common.NewValidationError("discount_amount", "must not exceed the order subtotal")
	}

	order.PlatformFeeAmount = pricing.Percentage(order.SubtotalAfterDiscount(), order.PlatformFeeRate)
	order.TotalAmount = pricing.Round2(order.Subtotal + order.ShippingAmount - order.DiscountAmount + order.PlatformFeeAmount)

	if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	itemsTx := s.itemRepo.WithTx(tx)
	for _, item := range items {
		if err := itemsTx.Create(ctx, item); err != nil {
			return nil, fmt.Errorf("persist order item: %w", err)
		}
	}

	if order.StreamID != nil {
		if err := s.attribution.IncrementStreamSales(ctx, tx, *order.StreamID, order.TotalAmount); err != nil {
			return nil, fmt.Errorf("attribute stream sale: %w", err)
		}
	}
	if order.AffiliateID != nil {
		if err := s.attribution.IncrementAffiliateEarnings(ctx, tx, *order.AffiliateID, order.TotalAmount); err != nil {
			return nil, fmt.Errorf("attribute affiliate earnings: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order transaction: %w", err)
	}
	order.Items = items

	s.afterCreate(ctx, order, items)

	return order, nil
}

// afterCreate runs the best-effort side effects once the order is durable.
// Nothing here may fail the order.
func (s *orderService) afterCreate(ctx context.Context, order *models.Order, items []*models.OrderItem) {
	if s.cacheSvc != nil {
		for _, item := range items {
			if err := s.cacheSvc.DeleteProduct(ctx, item.ProductID); err != nil {
				log.Printf("order %s: evict product cache %s: %v", order.OrderNumber, item.ProductID, err)
			}
		}
	}
	if s.notifier != nil && len(items) > 0 {
		err := s.notifier.NotifySellerOfSale(ctx, order.SellerID, order.CustomerName, items[0].ProductName, order.TotalAmount, order.ID)
		if err != nil {
			log.Printf("order %s: seller notification failed: %v", order.OrderNumber, err)
		}
	}
}

func buildOrderItem(orderID uuid.UUID, product *models.Product, quantity int) *models.OrderItem {
	lineTotal := pricing.Round2(product.Price * float64(quantity))
	lineBase := pricing.Round2(product.BasePrice * float64(quantity))
	return &models.OrderItem{
		ID:            uuid.New(),
		OrderID:       orderID,
		ProductID:     product.ID,
		ProductName:   product.Name,
		ProductSKU:    product.SKU,
		ProductImage:  product.ImageURL,
		Quantity:      quantity,
		UnitPrice:     product.Price,
		UnitBasePrice: product.BasePrice,
		UnitVATAmount: product.VATAmount,
		VATCategory:   product.VATCategory,
		LineTotal:     lineTotal,
		LineBase:      lineBase,
		LineVAT:       pricing.Round2(lineTotal - lineBase),
	}
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, common.NewNotFoundError("order")
	}
	items, err := s.itemRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items %s: %w", orderID, err)
	}
	order.Items = items
	return order, nil
}

func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("load order %q: %w", orderNumber, err)
	}
	if order == nil {
		return nil, common.NewNotFoundError("order")
	}
	items, err := s.itemRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load order items %q: %w", orderNumber, err)
	}
	order.Items = items
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter *repositories.OrderFilter) ([]*models.Order, error) {
	return s.orderRepo.List(ctx, filter)
}
