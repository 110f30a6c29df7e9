package services

import (
	"context"
	"testing"

	"mercaplaza/internal/common"
	"mercaplaza/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func platformParty() models.Party {
	return models.Party{
		Name:     "MercaPlaza S.A.S.",
		Document: "900123456-7",
		Address:  "Carrera 7 #71-21, Bogota, CO",
	}
}

func deliveredOrder() *models.Order {
	buyerID := uuid.New()
	return &models.Order{
		ID:                     uuid.New(),
		OrderNumber:            "ORD-20260115093000-A1B2C3",
		BuyerID:                &buyerID,
		SellerID:               uuid.New(),
		Status:                 models.OrderStatusDelivered,
		Subtotal:               100000.00,
		DiscountAmount:         10000.00,
		PlatformFeeRate:        3,
		PlatformFeeAmount:      2549.99,
		SellerCommissionRate:   7,
		SellerCommissionAmount: 6300.00,
		SellerNetAmount:        83700.00,
		CommissionStatus:       models.CommissionStatusCalculated,
		ShippingAddress: models.Address{
			Name:    "Laura Ramirez",
			Line1:   "Calle 10 #4-21",
			City:    "Bogota",
			Country: "CO",
			Email:   "laura@example.com",
		},
		CustomerName: "Laura Ramirez",
	}
}

func feeSequence() *models.InvoiceSequence {
	return &models.InvoiceSequence{Prefix: "MP", Current: 12, Padding: 6}
}

func TestIssueFeeInvoice(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	order := deliveredOrder()

	invoiceRepo := new(MockInvoiceRepository)
	orderRepo := new(MockOrderRepository)
	configSvc := new(MockConfigService)

	configSvc.On("NextInvoiceSequenceNumber", mock.Anything, models.InvoiceTypeBuyerFee).Return(feeSequence(), nil)

	db.ExpectBegin()
	invoiceRepo.On("WithTx", mock.Anything).Return()
	invoiceRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Invoice")).Return(nil)
	orderRepo.On("WithTx", mock.Anything).Return()
	orderRepo.On("SetFeeInvoice", mock.Anything, order.ID, mock.Anything).Return(nil)
	db.ExpectCommit()

	svc := NewInvoiceService(db, invoiceRepo, orderRepo, configSvc, nil, nil, nil, platformParty()).(*invoiceService)

	invoice, err := svc.issueFeeInvoice(context.Background(), order)
	require.NoError(t, err)
	require.NotNil(t, invoice)

	assert.Equal(t, "MP-FEE-000012", invoice.InvoiceNumber)
	assert.Equal(t, models.InvoiceTypeBuyerFee, invoice.InvoiceType)
	assert.Equal(t, models.InvoiceStatusIssued, invoice.Status)

	// The fee is a general-rate taxable service: 2549.99 + 19% VAT.
	assert.InDelta(t, 2549.99, invoice.Subtotal, 0.001)
	assert.InDelta(t, 484.50, invoice.VATAmount, 0.001)
	assert.InDelta(t, 3034.49, invoice.TotalAmount, 0.001)

	assert.Equal(t, platformParty().Name, invoice.Issuer.Name)
	assert.Equal(t, "Laura Ramirez", invoice.Recipient.Name)
	require.NotNil(t, order.FeeInvoiceID)
	assert.Equal(t, invoice.ID, *order.FeeInvoiceID)

	invoiceRepo.AssertExpectations(t)
	orderRepo.AssertExpectations(t)
	require.NoError(t, db.ExpectationsWereMet())
}

func TestIssueCommissionInvoice(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	order := deliveredOrder()

	invoiceRepo := new(MockInvoiceRepository)
	orderRepo := new(MockOrderRepository)
	configSvc := new(MockConfigService)

	configSvc.On("NextInvoiceSequenceNumber", mock.Anything, models.InvoiceTypeSellerCommission).
		Return(&models.InvoiceSequence{Prefix: "MP", Current: 43, Padding: 6}, nil)

	db.ExpectBegin()
	invoiceRepo.On("WithTx", mock.Anything).Return()
	invoiceRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Invoice")).Return(nil)
	orderRepo.On("WithTx", mock.Anything).Return()
	orderRepo.On("SetCommissionInvoice", mock.Anything, order.ID, mock.Anything).Return(nil)
	db.ExpectCommit()

	svc := NewInvoiceService(db, invoiceRepo, orderRepo, configSvc, nil, nil, nil, platformParty()).(*invoiceService)

	invoice, err := svc.issueCommissionInvoice(context.Background(), order)
	require.NoError(t, err)
	require.NotNil(t, invoice)

	assert.Equal(t, "MP-COM-000043", invoice.InvoiceNumber)
	assert.Equal(t, models.InvoiceTypeSellerCommission, invoice.InvoiceType)

	// Commission invoices are B2B service fees outside VAT.
	assert.InDelta(t, 6300.00, invoice.Subtotal, 0.001)
	assert.Zero(t, invoice.VATAmount)
	assert.InDelta(t, 6300.00, invoice.TotalAmount, 0.001)

	// No directory wired: the recipient degrades to a minimal seller party.
	assert.Contains(t, invoice.Recipient.Name, order.SellerID.String())
	assert.Equal(t, models.CommissionStatusInvoiced, order.CommissionStatus)
	require.NotNil(t, order.CommissionInvoiceID)

	require.NoError(t, db.ExpectationsWereMet())
}

func TestIssueFeeInvoice_SkipsZeroFee(t *testing.T) {
	order := deliveredOrder()
	order.PlatformFeeAmount = 0

	svc := NewInvoiceService(nil, nil, nil, nil, nil, nil, nil, platformParty()).(*invoiceService)

	invoice, err := svc.issueFeeInvoice(context.Background(), order)
	require.NoError(t, err)
	assert.Nil(t, invoice)
	assert.Nil(t, order.FeeInvoiceID)
}

func TestIssueFeeInvoice_AlreadyLinked(t *testing.T) {
	order := deliveredOrder()
	existing := uuid.New()
	order.FeeInvoiceID = &existing

	svc := NewInvoiceService(nil, nil, nil, nil, nil, nil, nil, platformParty()).(*invoiceService)

	_, err := svc.issueFeeInvoice(context.Background(), order)
	require.Error(t, err)

	var conflict *common.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestIssueCommissionInvoice_AlreadyLinked(t *testing.T) {
	order := deliveredOrder()
	existing := uuid.New()
	order.CommissionInvoiceID = &existing

	svc := NewInvoiceService(nil, nil, nil, nil, nil, nil, nil, platformParty()).(*invoiceService)

	_, err := svc.issueCommissionInvoice(context.Background(), order)
	require.Error(t, err)

	var conflict *common.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

// A handler failure must never surface to the caller that settled the order.
func TestOnOrderDelivered_SwallowsIssuanceFailures(t *testing.T) {
	order := deliveredOrder()

	configSvc := new(MockConfigService)
	configSvc.On("NextInvoiceSequenceNumber", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	svc := NewInvoiceService(nil, nil, nil, configSvc, nil, nil, nil, platformParty())

	err := svc.OnOrderDelivered(context.Background(), order)
	assert.NoError(t, err)
}

func TestOnOrderDelivered_RejectsForeignPayload(t *testing.T) {
	svc := NewInvoiceService(nil, nil, nil, nil, nil, nil, nil, platformParty())

	err := svc.OnOrderDelivered(context.Background(), "not an order")
	assert.Error(t, err)
}

func TestMarkPaid(t *testing.T) {
	invoiceID := uuid.New()
	invoice := &models.Invoice{
		ID:            invoiceID,
		InvoiceNumber: "MP-FEE-000012",
		Status:        models.InvoiceStatusIssued,
	}

	invoiceRepo := new(MockInvoiceRepository)
	invoiceRepo.On("GetByID", mock.Anything, invoiceID).Return(invoice, nil)
	invoiceRepo.On("UpdateStatus", mock.Anything, invoiceID, models.InvoiceStatusPaid, models.InvoiceStatusIssued).Return(nil)

	svc := NewInvoiceService(nil, invoiceRepo, nil, nil, nil, nil, nil, platformParty())

	updated, err := svc.MarkPaid(context.Background(), invoiceID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, updated.Status)

	invoiceRepo.AssertExpectations(t)
}

func TestCancel_PaidInvoiceRejected(t *testing.T) {
	invoiceID := uuid.New()
	invoice := &models.Invoice{
		ID:            invoiceID,
		InvoiceNumber: "MP-FEE-000012",
		Status:        models.InvoiceStatusPaid,
	}

	invoiceRepo := new(MockInvoiceRepository)
	invoiceRepo.On("GetByID", mock.Anything, invoiceID).Return(invoice, nil)

	svc := NewInvoiceService(nil, invoiceRepo, nil, nil, nil, nil, nil, platformParty())

	_, err := svc.Cancel(context.Background(), invoiceID)
	require.Error(t, err)

	var conflict *common.ConflictError
	assert.ErrorAs(t, err, &conflict)
	invoiceRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkPaid_CancelledInvoiceRejected(t *testing.T) {
	invoiceID := uuid.New()
	invoice := &models.Invoice{
		ID:            invoiceID,
		InvoiceNumber: "MP-COM-000008",
		Status:        models.InvoiceStatusCancelled,
	}

	invoiceRepo := new(MockInvoiceRepository)
	invoiceRepo.On("GetByID", mock.Anything, invoiceID).Return(invoice, nil)

	svc := NewInvoiceService(nil, invoiceRepo, nil, nil, nil, nil, nil, platformParty())

	_, err := svc.MarkPaid(context.Background(), invoiceID)
	require.Error(t, err)

	var conflict *common.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestGenerateInvoicePDF(t *testing.T) {
	invoiceID := uuid.New()
	orderID := uuid.New()
	invoice := &models.Invoice{
		ID:            invoiceID,
		InvoiceNumber: "MP-FEE-000012",
		InvoiceType:   models.InvoiceTypeBuyerFee,
		OrderID:       &orderID,
		Issuer:        platformParty(),
		Recipient:     models.Party{Name: "Laura Ramirez"},
		Concept:       "Platform service fee for order ORD-20260115093000-A1B2C3",
		Subtotal:      2549.99,
		VATAmount:     484.50,
		TotalAmount:   3034.49,
		Status:        models.InvoiceStatusIssued,
	}

	invoiceRepo := new(MockInvoiceRepository)
	invoiceRepo.On("GetByID", mock.Anything, invoiceID).Return(invoice, nil)

	svc := NewInvoiceService(nil, invoiceRepo, nil, nil, nil, nil, nil, platformParty())

	data, err := svc.GenerateInvoicePDF(context.Background(), invoiceID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

// An invoice archived at issuance is served from the archive, not re-rendered.
func TestGenerateInvoicePDF_ServesArchivedDocument(t *testing.T) {
	invoiceID := uuid.New()
	objectKey := "invoices/MP-FEE-000012.pdf"
	invoice := &models.Invoice{
		ID:            invoiceID,
		InvoiceNumber: "MP-FEE-000012",
		InvoiceType:   models.InvoiceTypeBuyerFee,
		Status:        models.InvoiceStatusIssued,
		PDFObjectKey:  &objectKey,
	}
	archived := []byte("%PDF-1.4 archived")

	invoiceRepo := new(MockInvoiceRepository)
	invoiceRepo.On("GetByID", mock.Anything, invoiceID).Return(invoice, nil)
	archiver := new(MockDocumentArchiver)
	archiver.On("FetchDocument", mock.Anything, objectKey).Return(archived, nil)

	svc := NewInvoiceService(nil, invoiceRepo, nil, nil, nil, nil, archiver, platformParty())

	data, err := svc.GenerateInvoicePDF(context.Background(), invoiceID)
	require.NoError(t, err)
	assert.Equal(t, archived, data)
	archiver.AssertExpectations(t)
}

// A failed archive fetch degrades to rendering from the invoice row.
func TestGenerateInvoicePDF_FallsBackWhenArchiveUnavailable(t *testing.T) {
	invoiceID := uuid.New()
	objectKey := "invoices/MP-COM-000043.pdf"
	invoice := &models.Invoice{
		ID:            invoiceID,
		InvoiceNumber: "MP-COM-000043",
		InvoiceType:   models.InvoiceTypeSellerCommission,
		Issuer:        platformParty(),
		Recipient:     models.Party{Name: "Vendedora Andina SAS"},
		Concept:       "Sales commission for order ORD-20260115093000-A1B2C3",
		Subtotal:      6300.00,
		TotalAmount:   6300.00,
		Status:        models.InvoiceStatusIssued,
		PDFObjectKey:  &objectKey,
	}

	invoiceRepo := new(MockInvoiceRepository)
	invoiceRepo.On("GetByID", mock.Anything, invoiceID).Return(invoice, nil)
	archiver := new(MockDocumentArchiver)
	archiver.On("FetchDocument", mock.Anything, objectKey).Return(nil, assert.AnError)

	svc := NewInvoiceService(nil, invoiceRepo, nil, nil, nil, nil, archiver, platformParty())

	data, err := svc.GenerateInvoicePDF(context.Background(), invoiceID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}
