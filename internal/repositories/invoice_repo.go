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

// ErrStaleInvoiceStatus is returned when a guarded status update matched no
// row: the invoice is no longer in the expected status.
var ErrStaleInvoiceStatus = errors.New("invoice status changed concurrently")

type InvoiceRepository interface {
	WithTx(tx pgx.Tx) InvoiceRepository
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, invoiceType *string, limit, offset int) ([]*models.Invoice, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Invoice, error)
	// UpdateStatus only succeeds when the invoice is still in expectedStatus;
	// the issued->paid XOR issued->cancelled rule is enforced by the caller.
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus, expectedStatus string) error
	SetPDFObjectKey(ctx context.Context, id uuid.UUID, objectKey string) error
	CountIssuedBetween(ctx context.Context, from, to time.Time) (int, float64, error)
}

type invoiceRepo struct {
	db DB
}

func NewInvoiceRepo(db DB) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) WithTx(tx pgx.Tx) InvoiceRepository {
	return &invoiceRepo{db: tx}
}

const invoiceColumns = `id, invoice_number, invoice_type, order_id, seller_id, buyer_id,
		issuer, recipient, concept, subtotal, vat_amount, total_amount,
		status, pdf_object_key, issued_at, created_at, updated_at`

func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	issuer, err := json.Marshal(invoice.Issuer)
	if err != nil {
		return err
	}
	recipient, err := json.Marshal(invoice.Recipient)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO invoices (id, invoice_number, invoice_type, order_id, seller_id, buyer_id,
			issuer, recipient, concept, subtotal, vat_amount, total_amount,
			status, issued_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	`
	_, err = r.db.Exec(ctx, query, invoice.ID, invoice.InvoiceNumber, invoice.InvoiceType,
		invoice.OrderID, invoice.SellerID, invoice.BuyerID, issuer, recipient, invoice.Concept,
		invoice.Subtotal, invoice.VATAmount, invoice.TotalAmount, invoice.Status, invoice.IssuedAt)
	return err
}

func (r *invoiceRepo) scanInvoice(row pgx.Row) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	var issuer, recipient []byte
	err := row.Scan(&invoice.ID, &invoice.InvoiceNumber, &invoice.InvoiceType, &invoice.OrderID,
		&invoice.SellerID, &invoice.BuyerID, &issuer, &recipient, &invoice.Concept,
		&invoice.Subtotal, &invoice.VATAmount, &invoice.TotalAmount,
		&invoice.Status, &invoice.PDFObjectKey, &invoice.IssuedAt, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(issuer) > 0 {
		if err := json.Unmarshal(issuer, &invoice.Issuer); err != nil {
			return nil, err
		}
	}
	if len(recipient) > 0 {
		if err := json.Unmarshal(recipient, &invoice.Recipient); err != nil {
			return nil, err
		}
	}
	return invoice, nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	invoice, err := r.scanInvoice(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return invoice, err
}

func (r *invoiceRepo) List(ctx context.Context, invoiceType *string, limit, offset int) ([]*models.Invoice, error) {
	if limit == 0 {
		limit = 50
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE ($1::text IS NULL OR invoice_type = $1)
		ORDER BY issued_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, invoiceType, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := r.scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE order_id = $1 ORDER BY issued_at`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := r.scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus, expectedStatus string) error {
	query := `UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	tag, err := r.db.Exec(ctx, query, newStatus, id, expectedStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleInvoiceStatus
	}
	return nil
}

func (r *invoiceRepo) SetPDFObjectKey(ctx context.Context, id uuid.UUID, objectKey string) error {
	query := `UPDATE invoices SET pdf_object_key = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, objectKey, id)
	return err
}

func (r *invoiceRepo) CountIssuedBetween(ctx context.Context, from, to time.Time) (int, float64, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(total_amount), 0) FROM invoices WHERE issued_at >= $1 AND issued_at < $2`
	var count int
	var total float64
	if err := r.db.QueryRow(ctx, query, from, to).Scan(&count, &total); err != nil {
		return 0, 0, err
	}
	return count, total, nil
}
