package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses. The state machine in services owns the legal transitions;
// delivered is the settlement-triggering state.
const (
	OrderStatusPending         = "pending"
	OrderStatusConfirmed       = "confirmed"
	OrderStatusProcessing      = "processing"
	OrderStatusInTransit       = "in_transit"
	OrderStatusShipped         = "shipped"
	OrderStatusDelivered       = "delivered"
	OrderStatusCancelled       = "cancelled"
	OrderStatusReturnRequested = "return_requested"
	OrderStatusRefunded        = "refunded"
)

const (
	CommissionStatusPending    = "pending"
	CommissionStatusCalculated = "calculated"
	CommissionStatusInvoiced   = "invoiced"
)

// VATLine is one slice of the per-category VAT breakdown on an order.
type VATLine struct {
	Base  float64 `json:"base"`
	VAT   float64 `json:"vat"`
	Total float64 `json:"total"`
}

// Address is stored as a JSON snapshot on the order; it is never resolved
// against a live address book after creation.
type Address struct {
	Name       string `json:"name"`
	Document   string `json:"document,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

type Order struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	OrderNumber string     `json:"order_number" db:"order_number"`
	BuyerID     *uuid.UUID `json:"buyer_id" db:"buyer_id"`
	SellerID    uuid.UUID  `json:"seller_id" db:"seller_id"`
	Status      string     `json:"status" db:"status"`

	Subtotal     float64            `json:"subtotal" db:"subtotal"`
	SubtotalBase float64            `json:"subtotal_base" db:"subtotal_base"`
	TotalVAT     float64            `json:"total_vat" db:"total_vat"`
	VATBreakdown map[string]VATLine `json:"vat_breakdown" db:"vat_breakdown"`

	ShippingAmount float64 `json:"shipping_amount" db:"shipping_amount"`
	DiscountAmount float64 `json:"discount_amount" db:"discount_amount"`
	TotalAmount    float64 `json:"total_amount" db:"total_amount"`

	PlatformFeeRate   float64 `json:"platform_fee_rate" db:"platform_fee_rate"`
	PlatformFeeAmount float64 `json:"platform_fee_amount" db:"platform_fee_amount"`

	// SellerCommissionRate is snapshotted at creation time and is the only
	// rate ever applied at settlement. A later config change does not
	// retouch orders already placed.
	SellerCommissionRate   float64 `json:"seller_commission_rate" db:"seller_commission_rate"`
	SellerCommissionAmount float64 `json:"seller_commission_amount" db:"seller_commission_amount"`
	SellerNetAmount        float64 `json:"seller_net_amount" db:"seller_net_amount"`
	CommissionStatus       string  `json:"commission_status" db:"commission_status"`

	FeeInvoiceID        *uuid.UUID `json:"fee_invoice_id" db:"fee_invoice_id"`
	CommissionInvoiceID *uuid.UUID `json:"commission_invoice_id" db:"commission_invoice_id"`

	ShippingAddress Address  `json:"shipping_address" db:"shipping_address"`
	BillingAddress  *Address `json:"billing_address" db:"billing_address"`
	CustomerName    string   `json:"customer_name" db:"customer_name"`
	CustomerDoc     string   `json:"customer_document" db:"customer_document"`
	Notes           *string  `json:"notes" db:"notes"`

	AffiliateID *uuid.UUID `json:"affiliate_id" db:"affiliate_id"`
	StreamID    *uuid.UUID `json:"stream_id" db:"stream_id"`

	DeliveredAt *time.Time `json:"delivered_at" db:"delivered_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	Items []*OrderItem `json:"items,omitempty" db:"-"`
}

// SubtotalAfterDiscount is the taxable base used for platform fee at
// creation and commission settlement at delivery.
func (o *Order) SubtotalAfterDiscount() float64 {
	return o.Subtotal - o.DiscountAmount
}
