package models

import (
	"time"

	"github.com/google/uuid"
)

// VAT categories map to the fixed statutory rates applied on top of the
// base price. Prices are stored VAT-inclusive; BasePrice and VATAmount are
// derived whenever Price or VATCategory changes.
const (
	VATCategoryExcluded = "excluded"
	VATCategoryExempt   = "exempt"
	VATCategoryReduced  = "reduced"
	VATCategoryGeneral  = "general"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SellerID    uuid.UUID `json:"seller_id" db:"seller_id"`
	Name        string    `json:"name" db:"name"`
	SKU         string    `json:"sku" db:"sku"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	Price       float64   `json:"price" db:"price"`
	VATCategory string    `json:"vat_category" db:"vat_category"`
	BasePrice   float64   `json:"base_price" db:"base_price"`
	VATAmount   float64   `json:"vat_amount" db:"vat_amount"`
	Stock       int       `json:"stock" db:"stock"`
	OrderCount  int       `json:"order_count" db:"order_count"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
