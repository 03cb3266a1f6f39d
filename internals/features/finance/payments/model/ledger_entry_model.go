package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/* ==============================================
   MODEL — ledger_entries (system of record)
============================================== */

type LedgerEntry struct {
	// PK
	LedgerEntryID uuid.UUID `gorm:"column:ledger_entry_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"ledger_entry_id"`

	// Correlation with the gateway (sparse unique: cash entries carry neither)
	LedgerEntryOrderID        *string `gorm:"column:ledger_entry_order_id;type:varchar(64);uniqueIndex:uq_ledger_order_id,where:ledger_entry_order_id IS NOT NULL" json:"ledger_entry_order_id,omitempty"`
	LedgerEntryGatewayTxnRef  *string `gorm:"column:ledger_entry_gateway_txn_ref;type:varchar(128);uniqueIndex:uq_ledger_gateway_txn_ref,where:ledger_entry_gateway_txn_ref IS NOT NULL" json:"ledger_entry_gateway_txn_ref,omitempty"`
	LedgerEntrySettlementRef  *string `gorm:"column:ledger_entry_settlement_ref;type:varchar(128)" json:"ledger_entry_settlement_ref,omitempty"`

	// Domain & money
	LedgerEntryDomain    LedgerDomain `gorm:"column:ledger_entry_domain;type:ledger_entry_domain;not null;index" json:"ledger_entry_domain"`
	LedgerEntryAmountINR int          `gorm:"column:ledger_entry_amount_inr;not null;check:ledger_entry_amount_inr >= 0" json:"ledger_entry_amount_inr"`
	LedgerEntryCurrency  string       `gorm:"column:ledger_entry_currency;type:varchar(8);not null;default:INR" json:"ledger_entry_currency"`

	// Status
	LedgerEntryStatus LedgerStatus `gorm:"column:ledger_entry_status;type:ledger_entry_status;not null;default:'pending';index" json:"ledger_entry_status"`

	// Payer
	LedgerEntryStudentID uuid.UUID `gorm:"column:ledger_entry_student_id;type:uuid;not null;index" json:"ledger_entry_student_id"`

	// Electricity target (+ denormalized consumption/rate snapshot for audit)
	LedgerEntryBillID       *uuid.UUID     `gorm:"column:ledger_entry_bill_id;type:uuid;index" json:"ledger_entry_bill_id,omitempty"`
	LedgerEntryRoomID       *uuid.UUID     `gorm:"column:ledger_entry_room_id;type:uuid;index" json:"ledger_entry_room_id,omitempty"`
	LedgerEntryBillingMonth *string        `gorm:"column:ledger_entry_billing_month;type:varchar(7)" json:"ledger_entry_billing_month,omitempty"`
	LedgerEntryBillSnapshot datatypes.JSON `gorm:"column:ledger_entry_bill_snapshot;type:jsonb" json:"ledger_entry_bill_snapshot,omitempty"`

	// Hostel-fee target
	LedgerEntryTerm          *FeeTerm `gorm:"column:ledger_entry_term;type:varchar(8);index" json:"ledger_entry_term,omitempty"`
	LedgerEntryAcademicYear  *string  `gorm:"column:ledger_entry_academic_year;type:varchar(10);index" json:"ledger_entry_academic_year,omitempty"`
	LedgerEntryReceiptNo     *string  `gorm:"column:ledger_entry_receipt_no;type:varchar(40);uniqueIndex:uq_ledger_receipt_no,where:ledger_entry_receipt_no IS NOT NULL" json:"ledger_entry_receipt_no,omitempty"`
	LedgerEntryTransactionID *string  `gorm:"column:ledger_entry_transaction_id;type:varchar(64);uniqueIndex:uq_ledger_transaction_id,where:ledger_entry_transaction_id IS NOT NULL" json:"ledger_entry_transaction_id,omitempty"`

	// Collector metadata
	LedgerEntryCollectedBy  *uuid.UUID  `gorm:"column:ledger_entry_collected_by;type:uuid" json:"ledger_entry_collected_by,omitempty"`
	LedgerEntryCollectMode  CollectMode `gorm:"column:ledger_entry_collect_mode;type:varchar(8);not null;default:'self'" json:"ledger_entry_collect_mode"`
	LedgerEntryNote         *string     `gorm:"column:ledger_entry_note;type:text" json:"ledger_entry_note,omitempty"`

	// Timestamps
	LedgerEntryCreatedAt time.Time      `gorm:"column:ledger_entry_created_at;type:timestamptz;not null;default:now();index" json:"ledger_entry_created_at"`
	LedgerEntryPaidAt    *time.Time     `gorm:"column:ledger_entry_paid_at;type:timestamptz" json:"ledger_entry_paid_at,omitempty"`
	LedgerEntryDeletedAt gorm.DeletedAt `gorm:"column:ledger_entry_deleted_at;type:timestamptz;index" json:"-"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

func (m *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if m.LedgerEntryCurrency == "" {
		m.LedgerEntryCurrency = CurrencyINR
	}
	if m.LedgerEntryCreatedAt.IsZero() {
		m.LedgerEntryCreatedAt = time.Now()
	}
	return nil
}

/* ===================== Helpers ===================== */

func (m *LedgerEntry) IsElectricity() bool { return m.LedgerEntryDomain == LedgerDomainElectricity }
func (m *LedgerEntry) IsHostelFee() bool   { return m.LedgerEntryDomain == LedgerDomainHostelFee }

func (m *LedgerEntry) IsOpen() bool { return m.LedgerEntryStatus == LedgerStatusPending }
