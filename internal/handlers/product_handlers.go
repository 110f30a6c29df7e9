package handlers

import (
	"net/http"

	"mercaplaza/internal/common"
	"mercaplaza/internal/models"
	"mercaplaza/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ProductHandlers exposes the slice of the catalog this engine owns: the
// cached read used by checkout clients, plus listing create/update, which
// re-derive the VAT split whenever price or category changes.
type ProductHandlers struct {
	productService services.ProductServiceInterface
}

func NewProductHandlers(productService services.ProductServiceInterface) *ProductHandlers {
	return &ProductHandlers{productService: productService}
}

type productRequest struct {
	SellerID    *uuid.UUID `json:"seller_id"`
	Name        string     `json:"name"`
	SKU         string     `json:"sku"`
	ImageURL    *string    `json:"image_url"`
	Price       float64    `json:"price"`
	VATCategory string     `json:"vat_category"`
	Stock       int        `json:"stock"`
	Status      string     `json:"status"`
}

// GetProduct handles GET /products/:id
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	product, err := h.productService.GetByID(ctx, productID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, product)
}

// CreateProduct handles POST /products
func (h *ProductHandlers) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	product := &models.Product{
		Name:        req.Name,
		SKU:         req.SKU,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		VATCategory: req.VATCategory,
		Stock:       req.Stock,
		Status:      req.Status,
	}
	if req.SellerID != nil {
		product.SellerID = *req.SellerID
	}

	// Sellers list under their own account; only admins set seller_id freely.
	if role, ok := common.GetRoleFromContext(ctx); ok && role != common.RoleAdmin {
		userID, ok := common.GetUserIDFromContext(ctx)
		if !ok {
			return common.SendUnauthorizedError(c)
		}
		product.SellerID = userID
	}

	if err := h.productService.Create(ctx, product); err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /products/:id
func (h *ProductHandlers) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	product, err := h.productService.GetByID(ctx, productID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	// Sellers only touch their own listings.
	if role, ok := common.GetRoleFromContext(ctx); ok && role != common.RoleAdmin {
		userID, ok := common.GetUserIDFromContext(ctx)
		if !ok || product.SellerID != userID {
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	product.Name = req.Name
	product.SKU = req.SKU
	product.ImageURL = req.ImageURL
	product.Price = req.Price
	product.VATCategory = req.VATCategory
	product.Stock = req.Stock
	if req.Status != "" {
		product.Status = req.Status
	}

	if err := h.productService.Update(ctx, product); err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, product)
}
