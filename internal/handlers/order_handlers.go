package handlers

import (
	"net/http"
	"strconv"

	"mercaplaza/internal/common"
	"mercaplaza/internal/middleware"
	"mercaplaza/internal/repositories"
	"mercaplaza/internal/services"

	"github.com/labstack/echo/v4"
)

// OrderHandlers handles HTTP requests for orders
type OrderHandlers struct {
	orderService  services.OrderServiceInterface
	statusService services.OrderStatusServiceInterface
}

// NewOrderHandlers creates a new order handlers instance
func NewOrderHandlers(orderService services.OrderServiceInterface, statusService services.OrderStatusServiceInterface) *OrderHandlers {
	return &OrderHandlers{
		orderService:  orderService,
		statusService: statusService,
	}
}

// CreateOrder handles POST /orders
func (h *OrderHandlers) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req services.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	// An authenticated buyer owns the order; anonymous checkout keeps the
	// buyer_id from the payload, if any.
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		req.BuyerID = &userID
	}

	order, err := h.orderService.CreateOrder(ctx, &req)
	if err != nil {
		middleware.RecordOrderOperation("create", false)
		return common.SendDomainError(c, err)
	}

	middleware.RecordOrderOperation("create", true)
	return c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandlers) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.orderService.GetOrderByID(ctx, orderID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, order)
}

// GetOrderByNumber handles GET /orders/number/:orderNumber
func (h *OrderHandlers) GetOrderByNumber(c echo.Context) error {
	ctx := c.Request().Context()

	orderNumber := c.Param("orderNumber")
	if orderNumber == "" {
		return common.SendValidationError(c, "order_number", "is required")
	}

	order, err := h.orderService.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /orders
func (h *OrderHandlers) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	filter := &repositories.OrderFilter{}

	if buyerStr := c.QueryParam("buyer_id"); buyerStr != "" {
		buyerID, err := common.ValidateUUID(buyerStr, "buyer_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter.BuyerID = &buyerID
	}
	if sellerStr := c.QueryParam("seller_id"); sellerStr != "" {
		sellerID, err := common.ValidateUUID(sellerStr, "seller_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter.SellerID = &sellerID
	}
	if status := c.QueryParam("status"); status != "" {
		if !services.ValidOrderStatus(status) {
			return common.SendValidationError(c, "status", "unknown order status")
		}
		filter.Status = &status
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	filter.Limit = limit
	filter.Offset = offset

	// Non-admin callers only see their own orders.
	if role, ok := common.GetRoleFromContext(ctx); ok && role != common.RoleAdmin {
		userID, ok := common.GetUserIDFromContext(ctx)
		if !ok {
			return common.SendUnauthorizedError(c)
		}
		switch role {
		case common.RoleSeller:
			filter.SellerID = &userID
			filter.BuyerID = nil
		default:
			filter.BuyerID = &userID
			filter.SellerID = nil
		}
	}

	orders, err := h.orderService.ListOrders(ctx, filter)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"limit":  limit,
		"offset": offset,
	})
}

// UpdateOrderStatus handles PATCH /orders/:id/status
func (h *OrderHandlers) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if req.Status == "" {
		return common.SendValidationError(c, "status", "is required")
	}

	order, err := h.statusService.UpdateStatus(ctx, orderID, req.Status)
	if err != nil {
		middleware.RecordOrderOperation("status_update", false)
		return common.SendDomainError(c, err)
	}

	middleware.RecordOrderOperation("status_update", true)
	return c.JSON(http.StatusOK, order)
}
