package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"mercaplaza/internal/common"
	"mercaplaza/internal/middleware"
	"mercaplaza/internal/models"
	"mercaplaza/internal/services"

	"github.com/labstack/echo/v4"
)

// InvoiceHandlers handles HTTP requests for platform invoices
type InvoiceHandlers struct {
	invoiceService services.InvoiceServiceInterface
}

// NewInvoiceHandlers creates a new invoice handlers instance
func NewInvoiceHandlers(invoiceService services.InvoiceServiceInterface) *InvoiceHandlers {
	return &InvoiceHandlers{
		invoiceService: invoiceService,
	}
}

// GetInvoice handles GET /invoicing/:id
func (h *InvoiceHandlers) GetInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, invoice)
}

// ListInvoices handles GET /invoicing
func (h *InvoiceHandlers) ListInvoices(c echo.Context) error {
	ctx := c.Request().Context()

	var invoiceType *string
	if t := c.QueryParam("type"); t != "" {
		if t != models.InvoiceTypeBuyerFee && t != models.InvoiceTypeSellerCommission {
			return common.SendValidationError(c, "type", "unknown invoice type")
		}
		invoiceType = &t
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoices, err := h.invoiceService.ListInvoices(ctx, invoiceType, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetInvoicePDF handles GET /invoicing/:id/pdf
func (h *InvoiceHandlers) GetInvoicePDF(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	pdfBytes, err := h.invoiceService.GenerateInvoicePDF(ctx, invoiceID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, invoiceID))
	return c.Blob(http.StatusOK, "application/pdf", pdfBytes)
}

// MarkInvoicePaid handles PUT /invoicing/:id/mark-paid
func (h *InvoiceHandlers) MarkInvoicePaid(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.MarkPaid(ctx, invoiceID)
	if err != nil {
		middleware.RecordInvoiceOperation("mark_paid", false)
		return common.SendDomainError(c, err)
	}

	middleware.RecordInvoiceOperation("mark_paid", true)
	return c.JSON(http.StatusOK, invoice)
}

// CancelInvoice handles PUT /invoicing/:id/cancel
func (h *InvoiceHandlers) CancelInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.Cancel(ctx, invoiceID)
	if err != nil {
		middleware.RecordInvoiceOperation("cancel", false)
		return common.SendDomainError(c, err)
	}

	middleware.RecordInvoiceOperation("cancel", true)
	return c.JSON(http.StatusOK, invoice)
}
