package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ==============================
   ENUM — bill payment status
============================== */

type BillPaymentStatus string

const (
	BillStatusUnpaid  BillPaymentStatus = "unpaid"
	BillStatusPending BillPaymentStatus = "pending"
	BillStatusPaid    BillPaymentStatus = "paid"
)

/* ==============================================
   MODEL — room_bills (one row per billing month)

   payment_status here is a denormalized read model;
   the ledger is the source of truth. Legacy bills
   created before per-student splitting have no
   share rows and are paid as a whole.
============================================== */

type RoomBill struct {
	RoomBillID uuid.UUID `gorm:"column:room_bill_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"room_bill_id"`

	RoomBillRoomID uuid.UUID `gorm:"column:room_bill_room_id;type:uuid;not null;index;uniqueIndex:uq_room_bill_month,priority:1" json:"room_bill_room_id"`

	// "YYYY-MM"
	RoomBillMonth string `gorm:"column:room_bill_month;type:varchar(7);not null;uniqueIndex:uq_room_bill_month,priority:2" json:"room_bill_month"`

	RoomBillConsumptionUnits float64 `gorm:"column:room_bill_consumption_units;type:numeric(10,2);not null" json:"room_bill_consumption_units"`
	RoomBillRatePerUnit      float64 `gorm:"column:room_bill_rate_per_unit;type:numeric(10,2);not null" json:"room_bill_rate_per_unit"`
	RoomBillTotalINR         int     `gorm:"column:room_bill_total_inr;not null;check:room_bill_total_inr >= 0" json:"room_bill_total_inr"`

	RoomBillPaymentStatus BillPaymentStatus `gorm:"column:room_bill_payment_status;type:varchar(10);not null;default:'unpaid';index" json:"room_bill_payment_status"`
	RoomBillOrderID       *string           `gorm:"column:room_bill_order_id;type:varchar(64);index" json:"room_bill_order_id,omitempty"`
	RoomBillPaidAt        *time.Time        `gorm:"column:room_bill_paid_at;type:timestamptz" json:"room_bill_paid_at,omitempty"`

	RoomBillCreatedAt time.Time      `gorm:"column:room_bill_created_at;type:timestamptz;not null;default:now();index" json:"room_bill_created_at"`
	RoomBillUpdatedAt time.Time      `gorm:"column:room_bill_updated_at;type:timestamptz;not null;default:now()" json:"room_bill_updated_at"`
	RoomBillDeletedAt gorm.DeletedAt `gorm:"column:room_bill_deleted_at;type:timestamptz;index" json:"-"`

	RoomBillShares []RoomBillShare `gorm:"foreignKey:RoomBillShareBillID;references:RoomBillID" json:"room_bill_shares,omitempty"`
}

func (RoomBill) TableName() string { return "room_bills" }

func (m *RoomBill) BeforeUpdate(tx *gorm.DB) error {
	m.RoomBillUpdatedAt = time.Now()
	return nil
}

// IsSplit reports whether the bill was created with per-student shares.
func (m *RoomBill) IsSplit() bool { return len(m.RoomBillShares) > 0 }

/* ==============================================
   MODEL — room_bill_shares (per-student sub-bill)
============================================== */

type RoomBillShare struct {
	RoomBillShareID uuid.UUID `gorm:"column:room_bill_share_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"room_bill_share_id"`

	RoomBillShareBillID    uuid.UUID `gorm:"column:room_bill_share_bill_id;type:uuid;not null;index;uniqueIndex:uq_bill_share_student,priority:1" json:"room_bill_share_bill_id"`
	RoomBillShareStudentID uuid.UUID `gorm:"column:room_bill_share_student_id;type:uuid;not null;index;uniqueIndex:uq_bill_share_student,priority:2" json:"room_bill_share_student_id"`

	RoomBillShareAmountINR int `gorm:"column:room_bill_share_amount_inr;not null;check:room_bill_share_amount_inr >= 0" json:"room_bill_share_amount_inr"`

	RoomBillSharePaymentStatus BillPaymentStatus `gorm:"column:room_bill_share_payment_status;type:varchar(10);not null;default:'unpaid';index" json:"room_bill_share_payment_status"`
	RoomBillShareOrderID       *string           `gorm:"column:room_bill_share_order_id;type:varchar(64);index" json:"room_bill_share_order_id,omitempty"`
	RoomBillSharePaidAt        *time.Time        `gorm:"column:room_bill_share_paid_at;type:timestamptz" json:"room_bill_share_paid_at,omitempty"`

	RoomBillShareCreatedAt time.Time `gorm:"column:room_bill_share_created_at;type:timestamptz;not null;default:now()" json:"room_bill_share_created_at"`
	RoomBillShareUpdatedAt time.Time `gorm:"column:room_bill_share_updated_at;type:timestamptz;not null;default:now()" json:"room_bill_share_updated_at"`
}

func (RoomBillShare) TableName() string { return "room_bill_shares" }

func (m *RoomBillShare) BeforeUpdate(tx *gorm.DB) error {
	m.RoomBillShareUpdatedAt = time.Now()
	return nil
}
