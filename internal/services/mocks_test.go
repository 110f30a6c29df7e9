package services

import (
	"context"
	"encoding/json"
	"time"

	"mercaplaza/internal/models"
	"mercaplaza/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// Mock repositories and collaborators

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) WithTx(tx pgx.Tx) repositories.ProductRepository {
	m.Called(tx)
	return m
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) List(ctx context.Context, sellerID *uuid.UUID, limit, offset int) ([]*models.Product, error) {
	args := m.Called(ctx, sellerID, limit, offset)
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	args := m.Called(ctx, id, quantity)
	return args.Error(0)
}

func (m *MockProductRepository) IncrementStock(ctx context.Context, id uuid.UUID, quantity int) error {
	args := m.Called(ctx, id, quantity)
	return args.Error(0)
}

func (m *MockProductRepository) IncrementOrderCount(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) WithTx(tx pgx.Tx) repositories.OrderRepository {
	m.Called(tx)
	return m
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter *repositories.OrderFilter) ([]*models.Order, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus, expectedStatus string) error {
	args := m.Called(ctx, id, newStatus, expectedStatus)
	return args.Error(0)
}

func (m *MockOrderRepository) SettleDelivery(ctx context.Context, order *models.Order, expectedStatus string) error {
	args := m.Called(ctx, order, expectedStatus)
	return args.Error(0)
}

func (m *MockOrderRepository) SetFeeInvoice(ctx context.Context, orderID, invoiceID uuid.UUID) error {
	args := m.Called(ctx, orderID, invoiceID)
	return args.Error(0)
}

func (m *MockOrderRepository) SetCommissionInvoice(ctx context.Context, orderID, invoiceID uuid.UUID) error {
	args := m.Called(ctx, orderID, invoiceID)
	return args.Error(0)
}

func (m *MockOrderRepository) DeliveredBetween(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockOrderRepository) MissingCommissionInvoices(ctx context.Context, deliveredAfter time.Time) ([]*models.Order, error) {
	args := m.Called(ctx, deliveredAfter)
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockOrderRepository) StuckSettlements(ctx context.Context, deliveredBefore time.Time) ([]*models.Order, error) {
	args := m.Called(ctx, deliveredBefore)
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockOrderRepository) FinancialSummary(ctx context.Context, from, to time.Time) (*repositories.FinancialSummary, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.FinancialSummary), args.Error(1)
}

type MockOrderItemRepository struct {
	mock.Mock
}

func (m *MockOrderItemRepository) WithTx(tx pgx.Tx) repositories.OrderItemRepository {
	m.Called(tx)
	return m
}

func (m *MockOrderItemRepository) Create(ctx context.Context, item *models.OrderItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockOrderItemRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.OrderItem, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]*models.OrderItem), args.Error(1)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) WithTx(tx pgx.Tx) repositories.InvoiceRepository {
	m.Called(tx)
	return m
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) List(ctx context.Context, invoiceType *string, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, invoiceType, limit, offset)
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Invoice, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus, expectedStatus string) error {
	args := m.Called(ctx, id, newStatus, expectedStatus)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SetPDFObjectKey(ctx context.Context, id uuid.UUID, objectKey string) error {
	args := m.Called(ctx, id, objectKey)
	return args.Error(0)
}

func (m *MockInvoiceRepository) CountIssuedBetween(ctx context.Context, from, to time.Time) (int, float64, error) {
	args := m.Called(ctx, from, to)
	return args.Int(0), args.Get(1).(float64), args.Error(2)
}

type MockPlatformConfigRepository struct {
	mock.Mock
}

func (m *MockPlatformConfigRepository) Get(ctx context.Context, key string) (*models.PlatformConfig, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformConfig), args.Error(1)
}

func (m *MockPlatformConfigRepository) List(ctx context.Context, category *string) ([]*models.PlatformConfig, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]*models.PlatformConfig), args.Error(1)
}

func (m *MockPlatformConfigRepository) Create(ctx context.Context, config *models.PlatformConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) Update(ctx context.Context, config *models.PlatformConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockPlatformConfigRepository) NextSequenceNumber(ctx context.Context, key string) (*models.InvoiceSequence, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceSequence), args.Error(1)
}

type MockConfigService struct {
	mock.Mock
}

func (m *MockConfigService) Get(ctx context.Context, key string) (*models.PlatformConfig, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformConfig), args.Error(1)
}

func (m *MockConfigService) List(ctx context.Context, category *string) ([]*models.PlatformConfig, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]*models.PlatformConfig), args.Error(1)
}

func (m *MockConfigService) GetRate(ctx context.Context, key string) (float64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockConfigService) NextInvoiceSequenceNumber(ctx context.Context, invoiceType string) (*models.InvoiceSequence, error) {
	args := m.Called(ctx, invoiceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceSequence), args.Error(1)
}

func (m *MockConfigService) Create(ctx context.Context, key string, value json.RawMessage, category string, actor *uuid.UUID) (*models.PlatformConfig, error) {
	args := m.Called(ctx, key, value, category, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformConfig), args.Error(1)
}

func (m *MockConfigService) Update(ctx context.Context, key string, value json.RawMessage, actor *uuid.UUID) (*models.PlatformConfig, error) {
	args := m.Called(ctx, key, value, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformConfig), args.Error(1)
}

func (m *MockConfigService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockConfigService) ClearCache(keys ...string) {
	m.Called(keys)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCacheService) SetProduct(ctx context.Context, product *models.Product, ttl time.Duration) error {
	args := m.Called(ctx, product, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *MockCacheService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockCacheService) SetInvoice(ctx context.Context, invoice *models.Invoice, ttl time.Duration) error {
	args := m.Called(ctx, invoice, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockDocumentArchiver struct {
	mock.Mock
}

func (m *MockDocumentArchiver) StoreDocument(ctx context.Context, objectName string, data []byte) error {
	args := m.Called(ctx, objectName, data)
	return args.Error(0)
}

func (m *MockDocumentArchiver) FetchDocument(ctx context.Context, objectName string) ([]byte, error) {
	args := m.Called(ctx, objectName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDocumentArchiver) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
