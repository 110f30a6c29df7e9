package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a price/VAT snapshot taken at order time. Product price or
// VAT category changes after the order is placed never alter these rows.
type OrderItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`

	ProductName  string  `json:"product_name" db:"product_name"`
	ProductSKU   string  `json:"product_sku" db:"product_sku"`
	ProductImage *string `json:"product_image" db:"product_image"`

	Quantity      int     `json:"quantity" db:"quantity"`
	UnitPrice     float64 `json:"unit_price" db:"unit_price"`
	UnitBasePrice float64 `json:"unit_base_price" db:"unit_base_price"`
	UnitVATAmount float64 `json:"unit_vat_amount" db:"unit_vat_amount"`
	VATCategory   string  `json:"vat_category" db:"vat_category"`

	LineTotal float64 `json:"line_total" db:"line_total"`
	LineBase  float64 `json:"line_base" db:"line_base"`
	LineVAT   float64 `json:"line_vat" db:"line_vat"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
