package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"mercaplaza/internal/caching"
	"mercaplaza/internal/common"
	"mercaplaza/internal/models"
	"mercaplaza/internal/pricing"
	"mercaplaza/internal/repositories"

	"github.com/google/uuid"
)

const invoiceCacheTTL = 5 * time.Minute

// buyerFeeVATCategory: the platform's checkout fee is a general-rate service
// to the buyer; the commission invoice is a B2B service fee outside VAT.
const buyerFeeVATCategory = models.VATCategoryGeneral

// PartyDirectory resolves seller/buyer identities for invoice snapshots. It
// belongs to the accounts subsystem; a nil directory degrades to minimal
// parties built from the order itself.
type PartyDirectory interface {
	SellerParty(ctx context.Context, sellerID uuid.UUID) (models.Party, error)
}

type InvoiceServiceInterface interface {
	OnOrderDelivered(ctx context.Context, payload interface{}) error
	OnOrderCancelled(ctx context.Context, payload interface{}) error
	GetInvoiceByID(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, invoiceType *string, limit, offset int) ([]*models.Invoice, error)
	MarkPaid(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	Cancel(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	GenerateInvoicePDF(ctx context.Context, invoiceID uuid.UUID) ([]byte, error)
}

type invoiceService struct {
	db          TxBeginner
	invoiceRepo repositories.InvoiceRepository
	orderRepo   repositories.OrderRepository
	configSvc   ConfigServiceInterface
	cacheSvc    caching.CacheService
	directory   PartyDirectory
	archiver    DocumentArchiver
	platform    models.Party
}

func NewInvoiceService(db TxBeginner, invoiceRepo repositories.InvoiceRepository, orderRepo repositories.OrderRepository,
	configSvc ConfigServiceInterface, cacheSvc caching.CacheService, directory PartyDirectory,
	archiver DocumentArchiver, platform models.Party) InvoiceServiceInterface {
	return &invoiceService{
		db:          db,
		invoiceRepo: invoiceRepo,
		orderRepo:   orderRepo,
		configSvc:   configSvc,
		cacheSvc:    cacheSvc,
		directory:   directory,
		archiver:    archiver,
		platform:    platform,
	}
}

// OnOrderDelivered issues the buyer-fee and seller-commission invoices for a
// freshly settled order. The two issuances are independent: a failure in one
// is logged with the order number and does not block the other, and neither
// failure reaches the caller who marked the order delivered.
func (s *invoiceService) OnOrderDelivered(ctx context.Context, payload interface{}) error {
	order, ok := payload.(*models.Order)
	if !ok {
		return fmt.Errorf("unexpected order.delivered payload %T", payload)
	}

	if _, err := s.issueFeeInvoice(ctx, order); err != nil {
		log.Printf("order %s: fee invoice issuance failed: %v", order.OrderNumber, err)
	}
	if _, err := s.issueCommissionInvoice(ctx, order); err != nil {
		log.Printf("order %s: commission invoice issuance failed: %v", order.OrderNumber, err)
	}
	return nil
}

func invoiceTypeCode(invoiceType string) string {
	if invoiceType == models.InvoiceTypeBuyerFee {
		return "FEE"
	}
	return "COM"
}

// nextInvoiceNumber renders `{prefix}-{FEE|COM}-{zero-padded sequence}` from
// the per-type numbering stream. Prefix, padding and the drawn number come
// from one atomic draw, so a concurrent prefix change cannot leak into a
// number minted under the old prefix.
func (s *invoiceService) nextInvoiceNumber(ctx context.Context, invoiceType string) (string, error) {
	seq, err := s.configSvc.NextInvoiceSequenceNumber(ctx, invoiceType)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%0*d", seq.Prefix, invoiceTypeCode(invoiceType), seq.Padding, seq.Current), nil
}

func buyerPartyFromOrder(order *models.Order) models.Party {
	addr := order.ShippingAddress
	parts := []string{addr.Line1}
	if addr.Line2 != "" {
		parts = append(parts, addr.Line2)
	}
	parts = append(parts, addr.City)
	if addr.Country != "" {
		parts = append(parts, addr.Country)
	}
	return models.Party{
		Name:     order.CustomerName,
		Document: order.CustomerDoc,
		Address:  strings.Join(parts, ", "),
		Email:    addr.Email,
	}
}

func (s *invoiceService) sellerParty(ctx context.Context, sellerID uuid.UUID) models.Party {
	if s.directory != nil {
		party, err := s.directory.SellerParty(ctx, sellerID)
		if err == nil {
			return party
		}
		log.Printf("seller %s: identity lookup failed, using fallback: %v", sellerID, err)
	}
	return models.Party{Name: fmt.Sprintf("Seller %s", sellerID)}
}

// issueFeeInvoice issues the platform->buyer checkout-fee invoice. The
// order's fee_invoice_id pointer is the at-most-once guard: it is assigned
// inside the same transaction as the invoice insert, and a second issuance
// attempt loses on the IS NULL condition.
func (s *invoiceService) issueFeeInvoice(ctx context.Context, order *models.Order) (*models.Invoice, error) {
	if order.PlatformFeeAmount <= 0 {
		return nil, nil
	}
	if order.FeeInvoiceID != nil {
		return nil, common.NewConflictError("order %s already has fee invoice %s", order.OrderNumber, order.FeeInvoiceID)
	}

	number, err := s.nextInvoiceNumber(ctx, models.InvoiceTypeBuyerFee)
	if err != nil {
		return nil, err
	}

	vatRate, err := pricing.RateFor(buyerFeeVATCategory)
	if err != nil {
		return nil, err
	}
	subtotal := order.PlatformFeeAmount
	vat := pricing.Percentage(subtotal, vatRate)

	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		InvoiceType:   models.InvoiceTypeBuyerFee,
		OrderID:       &order.ID,
		SellerID:      &order.SellerID,
		BuyerID:       order.BuyerID,
		Issuer:        s.platform,
		Recipient:     buyerPartyFromOrder(order),
		Concept:       fmt.Sprintf("Platform service fee for order %s", order.OrderNumber),
		Subtotal:      subtotal,
		VATAmount:     vat,
		TotalAmount:   pricing.Round2(subtotal + vat),
		Status:        models.InvoiceStatusIssued,
		IssuedAt:      time.Now(),
	}

	if err := s.persistInvoice(ctx, invoice, func(ctx context.Context, repo repositories.OrderRepository) error {
		return repo.SetFeeInvoice(ctx, order.ID, invoice.ID)
	}); err != nil {
		return nil, err
	}
	order.FeeInvoiceID = &invoice.ID

	s.archivePDF(ctx, invoice)
	return invoice, nil
}

// issueCommissionInvoice issues the platform->seller commission invoice.
// Commissions are B2B service fees outside VAT, so the invoice carries a
// zero VAT amount. Setting the pointer also flips commission_status to
// invoiced.
func (s *invoiceService) issueCommissionInvoice(ctx context.Context, order *models.Order) (*models.Invoice, error) {
	if order.SellerCommissionAmount <= 0 {
		return nil, nil
	}
	if order.CommissionInvoiceID != nil {
		return nil, common.NewConflictError("order %s already has commission invoice %s", order.OrderNumber, order.CommissionInvoiceID)
	}

	number, err := s.nextInvoiceNumber(ctx, models.InvoiceTypeSellerCommission)
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		InvoiceType:   models.InvoiceTypeSellerCommission,
		OrderID:       &order.ID,
		SellerID:      &order.SellerID,
		BuyerID:       order.BuyerID,
		Issuer:        s.platform,
		Recipient:     s.sellerParty(ctx, order.SellerID),
		Concept:       fmt.Sprintf("Sales commission for order %s", order.OrderNumber),
		Subtotal:      order.SellerCommissionAmount,
		VATAmount:     0,
		TotalAmount:   order.SellerCommissionAmount,
		Status:        models.InvoiceStatusIssued,
		IssuedAt:      time.Now(),
	}

	if err := s.persistInvoice(ctx, invoice, func(ctx context.Context, repo repositories.OrderRepository) error {
		return repo.SetCommissionInvoice(ctx, order.ID, invoice.ID)
	}); err != nil {
		return nil, err
	}
	order.CommissionInvoiceID = &invoice.ID
	order.CommissionStatus = models.CommissionStatusInvoiced

	s.archivePDF(ctx, invoice)
	return invoice, nil
}

// persistInvoice inserts the invoice and assigns the order's pointer in one
// transaction, so an invoice row never exists without its pointer or vice
// versa.
func (s *invoiceService) persistInvoice(ctx context.Context, invoice *models.Invoice,
	link func(ctx context.Context, repo repositories.OrderRepository) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin invoice transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.invoiceRepo.WithTx(tx).Create(ctx, invoice); err != nil {
		return fmt.Errorf("persist invoice %s: %w", invoice.InvoiceNumber, err)
	}
	if err := link(ctx, s.orderRepo.WithTx(tx)); err != nil {
		if errors.Is(err, repositories.ErrInvoiceAlreadyLinked) {
			return common.NewConflictError("invoice of type %s already linked", invoice.InvoiceType)
		}
		return fmt.Errorf("link invoice %s to order: %w", invoice.InvoiceNumber, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit invoice %s: %w", invoice.InvoiceNumber, err)
	}
	return nil
}

// archivePDF renders and stores the PDF representation. Rendering or upload
// failures are logged and swallowed: the invoice itself is already durable.
func (s *invoiceService) archivePDF(ctx context.Context, invoice *models.Invoice) {
	if s.archiver == nil {
		return
	}
	data, err := renderInvoicePDF(invoice)
	if err != nil {
		log.Printf("invoice %s: PDF render failed: %v", invoice.InvoiceNumber, err)
		return
	}
	objectKey := fmt.Sprintf("invoices/%s.pdf", invoice.InvoiceNumber)
	if err := s.archiver.StoreDocument(ctx, objectKey, data); err != nil {
		log.Printf("invoice %s: PDF upload failed: %v", invoice.InvoiceNumber, err)
		return
	}
	if err := s.invoiceRepo.SetPDFObjectKey(ctx, invoice.ID, objectKey); err != nil {
		log.Printf("invoice %s: recording PDF object key failed: %v", invoice.InvoiceNumber, err)
		return
	}
	invoice.PDFObjectKey = &objectKey
}

// OnOrderCancelled voids the order's invoices unless they were already paid.
// Cancelling a paid invoice is a business-rule violation and is surfaced as
// a handler error rather than silently skipped.
func (s *invoiceService) OnOrderCancelled(ctx context.Context, payload interface{}) error {
	order, ok := payload.(*models.Order)
	if !ok {
		return fmt.Errorf("unexpected order.cancelled payload %T", payload)
	}

	var errs []error
	for _, id := range []*uuid.UUID{order.FeeInvoiceID, order.CommissionInvoiceID} {
		if id == nil {
			continue
		}
		if _, err := s.Cancel(ctx, *id); err != nil {
			errs = append(errs, fmt.Errorf("order %s: cancel invoice %s: %w", order.OrderNumber, id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *invoiceService) GetInvoiceByID(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	if s.cacheSvc != nil {
		if cached, err := s.cacheSvc.GetInvoice(ctx, invoiceID); err == nil && cached != nil {
			return cached, nil
		}
	}
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice %s: %w", invoiceID, err)
	}
	if invoice == nil {
		return nil, common.NewNotFoundError("invoice")
	}
	if s.cacheSvc != nil {
		if err := s.cacheSvc.SetInvoice(ctx, invoice, invoiceCacheTTL); err != nil {
			log.Printf("invoice %s: cache set failed: %v", invoiceID, err)
		}
	}
	return invoice, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, invoiceType *string, limit, offset int) ([]*models.Invoice, error) {
	return s.invoiceRepo.List(ctx, invoiceType, limit, offset)
}

// MarkPaid transitions issued -> paid. Paid is terminal.
func (s *invoiceService) MarkPaid(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	return s.transition(ctx, invoiceID, models.InvoiceStatusPaid)
}

// Cancel transitions issued -> cancelled. A paid invoice cannot be
// cancelled.
func (s *invoiceService) Cancel(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	return s.transition(ctx, invoiceID, models.InvoiceStatusCancelled)
}

func (s *invoiceService) transition(ctx context.Context, invoiceID uuid.UUID, newStatus string) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice %s: %w", invoiceID, err)
	}
	if invoice == nil {
		return nil, common.NewNotFoundError("invoice")
	}
	if invoice.Status != models.InvoiceStatusIssued {
		return nil, common.NewConflictError("invoice %s is %s and cannot become %s",
			invoice.InvoiceNumber, invoice.Status, newStatus)
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, invoiceID, newStatus, models.InvoiceStatusIssued); err != nil {
		if errors.Is(err, repositories.ErrStaleInvoiceStatus) {
			return nil, common.NewConflictError("invoice %s changed status concurrently", invoice.InvoiceNumber)
		}
		return nil, fmt.Errorf("update invoice %s status: %w", invoice.InvoiceNumber, err)
	}
	invoice.Status = newStatus

	if s.cacheSvc != nil {
		if err := s.cacheSvc.DeleteInvoice(ctx, invoiceID); err != nil {
			log.Printf("invoice %s: cache eviction failed: %v", invoice.InvoiceNumber, err)
		}
	}
	return invoice, nil
}

// GenerateInvoicePDF serves the archived PDF when one was stored at issuance,
// and falls back to rendering from the invoice row otherwise. Every monetary
// field rendered equals the persisted field exactly.
func (s *invoiceService) GenerateInvoicePDF(ctx context.Context, invoiceID uuid.UUID) ([]byte, error) {
	invoice, err := s.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.PDFObjectKey != nil && s.archiver != nil {
		data, err := s.archiver.FetchDocument(ctx, *invoice.PDFObjectKey)
		if err == nil {
			return data, nil
		}
		log.Printf("invoice %s: archived PDF fetch failed, re-rendering: %v", invoice.InvoiceNumber, err)
	}
	return renderInvoicePDF(invoice)
}
