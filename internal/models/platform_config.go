package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Well-known platform config keys. Rate keys hold {"rate": <percent>};
// numbering keys hold an InvoiceSequence. Unknown keys are free-form JSON
// objects.
const (
	ConfigKeySellerCommissionRate = "seller_commission_rate"
	ConfigKeyBuyerPlatformFeeRate = "buyer_platform_fee_rate"
	ConfigKeyInvoiceNumberingFee  = "invoice_numbering_fee"
	ConfigKeyInvoiceNumberingCom  = "invoice_numbering_com"
)

const (
	ConfigCategoryCommission = "commission"
	ConfigCategoryInvoicing  = "invoicing"
	ConfigCategoryGeneral    = "general"
)

type PlatformConfig struct {
	Key       string          `json:"key" db:"key"`
	Value     json.RawMessage `json:"value" db:"value"`
	Category  string          `json:"category" db:"category"`
	UpdatedBy *uuid.UUID      `json:"updated_by" db:"updated_by"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// InvoiceSequence is the numbering state for one invoice stream. Current is
// only ever advanced through the atomic repository increment.
type InvoiceSequence struct {
	Prefix  string `json:"prefix"`
	Current int    `json:"current"`
	Padding int    `json:"padding"`
}

// RateValue is the shape of a rate-type config value, a percentage in [0,50].
type RateValue struct {
	Rate float64 `json:"rate"`
}
