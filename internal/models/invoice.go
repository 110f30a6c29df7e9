package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvoiceTypeBuyerFee         = "platform_to_buyer_fee"
	InvoiceTypeSellerCommission = "platform_to_seller_commission"
)

const (
	InvoiceStatusIssued    = "issued"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
	InvoiceStatusVoided    = "voided"
)

// Party is an identity snapshot frozen into the invoice at issuance.
type Party struct {
	Name     string `json:"name"`
	Document string `json:"document,omitempty"`
	Address  string `json:"address,omitempty"`
	Email    string `json:"email,omitempty"`
}

type Invoice struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	InvoiceNumber string     `json:"invoice_number" db:"invoice_number"`
	InvoiceType   string     `json:"invoice_type" db:"invoice_type"`
	OrderID       *uuid.UUID `json:"order_id" db:"order_id"`
	SellerID      *uuid.UUID `json:"seller_id" db:"seller_id"`
	BuyerID       *uuid.UUID `json:"buyer_id" db:"buyer_id"`

	Issuer    Party `json:"issuer" db:"issuer"`
	Recipient Party `json:"recipient" db:"recipient"`

	Concept     string  `json:"concept" db:"concept"`
	Subtotal    float64 `json:"subtotal" db:"subtotal"`
	VATAmount   float64 `json:"vat_amount" db:"vat_amount"`
	TotalAmount float64 `json:"total_amount" db:"total_amount"`

	Status       string    `json:"status" db:"status"`
	PDFObjectKey *string   `json:"pdf_object_key" db:"pdf_object_key"`
	IssuedAt     time.Time `json:"issued_at" db:"issued_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
