package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ==============================================
   MODEL — pending_intents

   Dedicated store for not-yet-ledgered gateway
   orders, keyed by order id. The composite unique
   index (student, target) enforces single-slot
   semantics at the storage layer: an intent is
   deleted on every terminal outcome, so a second
   insert for the same target collides.
============================================== */

type PendingIntent struct {
	PendingIntentID uuid.UUID `gorm:"column:pending_intent_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"pending_intent_id"`

	// Gateway correlation key (not a DB PK)
	PendingIntentOrderID string `gorm:"column:pending_intent_order_id;type:varchar(64);not null;uniqueIndex:uq_pending_intent_order_id" json:"pending_intent_order_id"`

	PendingIntentStudentID uuid.UUID    `gorm:"column:pending_intent_student_id;type:uuid;not null;uniqueIndex:uq_pending_intent_slot,priority:1" json:"pending_intent_student_id"`
	PendingIntentDomain    LedgerDomain `gorm:"column:pending_intent_domain;type:ledger_entry_domain;not null" json:"pending_intent_domain"`

	// Target key: bill id (electricity) or academic year (hostel fee)
	PendingIntentTargetKey string `gorm:"column:pending_intent_target_key;type:varchar(64);not null;uniqueIndex:uq_pending_intent_slot,priority:2" json:"pending_intent_target_key"`

	PendingIntentAmountINR int `gorm:"column:pending_intent_amount_inr;not null;check:pending_intent_amount_inr > 0" json:"pending_intent_amount_inr"`

	PendingIntentStatus      LedgerStatus `gorm:"column:pending_intent_status;type:ledger_entry_status;not null;default:'pending'" json:"pending_intent_status"`
	PendingIntentInitiatedAt time.Time    `gorm:"column:pending_intent_initiated_at;type:timestamptz;not null;default:now();index" json:"pending_intent_initiated_at"`
}

func (PendingIntent) TableName() string { return "pending_intents" }

func (m *PendingIntent) BeforeCreate(tx *gorm.DB) error {
	if m.PendingIntentStatus == "" {
		m.PendingIntentStatus = LedgerStatusPending
	}
	if m.PendingIntentInitiatedAt.IsZero() {
		m.PendingIntentInitiatedAt = time.Now()
	}
	return nil
}

// OlderThan reports whether the intent has outlived the sweeper timeout.
func (m *PendingIntent) OlderThan(ttl time.Duration, now time.Time) bool {
	return now.Sub(m.PendingIntentInitiatedAt) > ttl
}
