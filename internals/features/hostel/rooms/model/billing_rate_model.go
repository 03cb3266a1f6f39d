package model

import (
	"time"

	"github.com/google/uuid"
)

/* ==============================================
   MODEL — billing_rates

   Versioned per-unit electricity rate. Bill
   creation reads the row effective at creation
   time; an admin rate change inserts a new row
   instead of mutating process state, so bills
   being computed concurrently keep the rate they
   started with.
============================================== */

type BillingRate struct {
	BillingRateID uuid.UUID `gorm:"column:billing_rate_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"billing_rate_id"`

	BillingRatePerUnit float64 `gorm:"column:billing_rate_per_unit;type:numeric(10,2);not null;check:billing_rate_per_unit > 0" json:"billing_rate_per_unit"`

	BillingRateEffectiveFrom time.Time  `gorm:"column:billing_rate_effective_from;type:timestamptz;not null;index" json:"billing_rate_effective_from"`
	BillingRateCreatedBy     *uuid.UUID `gorm:"column:billing_rate_created_by;type:uuid" json:"billing_rate_created_by,omitempty"`

	BillingRateCreatedAt time.Time `gorm:"column:billing_rate_created_at;type:timestamptz;not null;default:now()" json:"billing_rate_created_at"`
}

func (BillingRate) TableName() string { return "billing_rates" }
