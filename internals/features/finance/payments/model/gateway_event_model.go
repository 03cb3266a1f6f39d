package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/* ==============================================
   MODEL — payment_gateway_events (webhook audit)

   Every inbound callback is recorded verbatim,
   including ones that end as idempotent no-ops.
   Unique (order id, external ref) dedupes exact
   redeliveries without blocking processing.
============================================== */

const (
	GatewayEventReceived  = "received"
	GatewayEventProcessed = "processed"
	GatewayEventIgnored   = "ignored"
	GatewayEventFailed    = "failed"
)

type PaymentGatewayEvent struct {
	PaymentGatewayEventID uuid.UUID `gorm:"column:payment_gateway_event_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"payment_gateway_event_id"`

	PaymentGatewayEventOrderID     string  `gorm:"column:payment_gateway_event_order_id;type:varchar(64);not null;index" json:"payment_gateway_event_order_id"`
	PaymentGatewayEventExternalRef *string `gorm:"column:payment_gateway_event_external_ref;type:varchar(128)" json:"payment_gateway_event_external_ref,omitempty"`
	PaymentGatewayEventStatusCode  string  `gorm:"column:payment_gateway_event_status_code;type:varchar(24);not null" json:"payment_gateway_event_status_code"`

	PaymentGatewayEventHeaders datatypes.JSON `gorm:"column:payment_gateway_event_headers;type:jsonb" json:"payment_gateway_event_headers,omitempty"`
	PaymentGatewayEventPayload datatypes.JSON `gorm:"column:payment_gateway_event_payload;type:jsonb" json:"payment_gateway_event_payload,omitempty"`

	PaymentGatewayEventStatus string  `gorm:"column:payment_gateway_event_status;type:varchar(16);not null;default:'received'" json:"payment_gateway_event_status"`
	PaymentGatewayEventError  *string `gorm:"column:payment_gateway_event_error;type:text" json:"payment_gateway_event_error,omitempty"`

	PaymentGatewayEventCreatedAt   time.Time  `gorm:"column:payment_gateway_event_created_at;type:timestamptz;not null;default:now();index" json:"payment_gateway_event_created_at"`
	PaymentGatewayEventProcessedAt *time.Time `gorm:"column:payment_gateway_event_processed_at;type:timestamptz" json:"payment_gateway_event_processed_at,omitempty"`
}

func (PaymentGatewayEvent) TableName() string { return "payment_gateway_events" }

func (m *PaymentGatewayEvent) BeforeCreate(tx *gorm.DB) error {
	if m.PaymentGatewayEventStatus == "" {
		m.PaymentGatewayEventStatus = GatewayEventReceived
	}
	return nil
}
