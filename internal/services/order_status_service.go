package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mercaplaza/internal/common"
	"mercaplaza/internal/events"
	"mercaplaza/internal/models"
	"mercaplaza/internal/pricing"
	"mercaplaza/internal/repositories"

	"github.com/google/uuid"
)

// orderTransitions is the full status graph. A transition not listed here is
// illegal, including re-entering the current status: a second delivery
// attempt is rejected rather than absorbed so callers notice the bug.
var orderTransitions = map[string][]string{
	models.OrderStatusPending:         {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:       {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing:      {models.OrderStatusInTransit, models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusInTransit:       {models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusShipped:         {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered:       {models.OrderStatusReturnRequested},
	models.OrderStatusReturnRequested: {models.OrderStatusRefunded},
	models.OrderStatusCancelled:       {},
	models.OrderStatusRefunded:        {},
}

// restockOnCancel lists the statuses whose cancellation returns reserved
// stock to the shelf. Once the parcel left the warehouse the restock is a
// manual returns process, not an automatic one.
var restockOnCancel = map[string]bool{
	models.OrderStatusPending:    true,
	models.OrderStatusConfirmed:  true,
	models.OrderStatusProcessing: true,
}

type OrderStatusServiceInterface interface {
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (*models.Order, error)
}

type orderStatusService struct {
	db          TxBeginner
	orderRepo   repositories.OrderRepository
	itemRepo    repositories.OrderItemRepository
	productRepo repositories.ProductRepository
	bus         *events.Bus
}

func NewOrderStatusService(db TxBeginner, orderRepo repositories.OrderRepository, itemRepo repositories.OrderItemRepository,
	productRepo repositories.ProductRepository, bus *events.Bus) OrderStatusServiceInterface {
	return &orderStatusService{
		db:          db,
		orderRepo:   orderRepo,
		itemRepo:    itemRepo,
		productRepo: productRepo,
		bus:         bus,
	}
}

// CanTransition reports whether from -> to is a legal order transition.
func CanTransition(from, to string) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether status names a known order status.
func ValidOrderStatus(status string) bool {
	_, ok := orderTransitions[status]
	return ok
}

// UpdateStatus advances an order through the status graph. Delivery computes
// and persists the commission settlement in the same guarded update;
// cancellation restores stock for orders that never shipped. Domain events
// are published only after the database write succeeded.
func (s *orderStatusService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (*models.Order, error) {
	if !ValidOrderStatus(newStatus) {
		return nil, common.NewValidationError("status", fmt.Sprintf("unknown status %q", newStatus))
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, common.NewNotFoundError("order")
	}

	if !CanTransition(order.Status, newStatus) {
		return nil, common.NewConflictError("cannot transition order %s from %s to %s",
			order.OrderNumber, order.Status, newStatus)
	}

	switch newStatus {
	case models.OrderStatusDelivered:
		return s.deliver(ctx, order)
	case models.OrderStatusCancelled:
		return s.cancel(ctx, order)
	default:
		if err := s.orderRepo.UpdateStatus(ctx, orderID, newStatus, order.Status); err != nil {
			if errors.Is(err, repositories.ErrStaleOrderStatus) {
				return nil, common.NewConflictError("order %s changed status concurrently", order.OrderNumber)
			}
			return nil, fmt.Errorf("update order %s status: %w", order.OrderNumber, err)
		}
		order.Status = newStatus
		return order, nil
	}
}

// deliver settles the seller commission using the rate snapshotted at order
// creation. The flip to delivered and the commission fields land in one
// guarded update; a concurrent duplicate delivery loses the guard and is
// reported as a conflict with commission fields untouched.
func (s *orderStatusService) deliver(ctx context.Context, order *models.Order) (*models.Order, error) {
	previous := order.Status
	now := time.Now()

	taxable := order.SubtotalAfterDiscount()
	commission := pricing.Percentage(taxable, order.SellerCommissionRate)
	net := pricing.Round2(taxable - commission)
	// A fully discounted order settles to exactly zero on both sides.
	if commission <= 0 {
		commission = 0
	}
	if net <= 0 {
		net = 0
	}

	order.Status = models.OrderStatusDelivered
	order.DeliveredAt = &now
	order.SellerCommissionAmount = commission
	order.SellerNetAmount = net
	order.CommissionStatus = models.CommissionStatusCalculated

	if err := s.orderRepo.SettleDelivery(ctx, order, previous); err != nil {
		if errors.Is(err, repositories.ErrStaleOrderStatus) {
			return nil, common.NewConflictError("order %s is no longer in status %s", order.OrderNumber, previous)
		}
		return nil, fmt.Errorf("settle delivery for order %s: %w", order.OrderNumber, err)
	}

	s.bus.Publish(ctx, events.TopicOrderDelivered, order)
	return order, nil
}

// cancel flips the order to cancelled and, for orders that never left the
// warehouse, returns the reserved stock in the same transaction.
func (s *orderStatusService) cancel(ctx context.Context, order *models.Order) (*models.Order, error) {
	previous := order.Status

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancellation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.orderRepo.WithTx(tx).UpdateStatus(ctx, order.ID, models.OrderStatusCancelled, previous); err != nil {
		if errors.Is(err, repositories.ErrStaleOrderStatus) {
			return nil, common.NewConflictError("order %s changed status concurrently", order.OrderNumber)
		}
		return nil, fmt.Errorf("cancel order %s: %w", order.OrderNumber, err)
	}

	if restockOnCancel[previous] {
		items, err := s.itemRepo.ListByOrder(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("load items for cancelled order %s: %w", order.OrderNumber, err)
		}
		productsTx := s.productRepo.WithTx(tx)
		for _, item := range items {
			if err := productsTx.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return nil, fmt.Errorf("restore stock for product %s: %w", item.ProductID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancellation for order %s: %w", order.OrderNumber, err)
	}

	order.Status = models.OrderStatusCancelled
	s.bus.Publish(ctx, events.TopicOrderCancelled, order)
	return order, nil
}
