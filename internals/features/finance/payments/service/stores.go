package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	roomModel "hostelku_backend/internals/features/hostel/rooms/model"
	studentModel "hostelku_backend/internals/features/hostel/students/model"

	"hostelku_backend/internals/features/finance/payments/model"
)

/* =========================================================
   Store interfaces

   The allocator and the notification processor only talk
   to these; GORM bindings live below and tests substitute
   in-memory fakes.
========================================================= */

type IntentStore interface {
	FindByOrderID(ctx context.Context, orderID string) (*model.PendingIntent, error)
	FindOpenSlot(ctx context.Context, studentID uuid.UUID, targetKey string) (*model.PendingIntent, error)
	Create(ctx context.Context, intent *model.PendingIntent) error
	DeleteByOrderID(ctx context.Context, orderID string) error
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]model.PendingIntent, error)
}

type LedgerStore interface {
	Create(ctx context.Context, entry *model.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error)
	FindByOrderID(ctx context.Context, orderID string) (*model.LedgerEntry, error)
	SuccessTotalsByTerm(ctx context.Context, studentID uuid.UUID, academicYear string) (map[model.FeeTerm]int, error)
	HasElectricitySuccess(ctx context.Context, studentID, billID uuid.UUID) (bool, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]model.LedgerEntry, int64, error)
	ListByBill(ctx context.Context, billID uuid.UUID) ([]model.LedgerEntry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.LedgerStatus, paidAt *time.Time) error
	DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

type BillStore interface {
	FindBill(ctx context.Context, billID uuid.UUID) (*roomModel.RoomBill, error)
	FindShare(ctx context.Context, billID, studentID uuid.UUID) (*roomModel.RoomBillShare, error)
	SetBillStatus(ctx context.Context, billID uuid.UUID, status roomModel.BillPaymentStatus, orderID *string, paidAt *time.Time) error
	SetShareStatus(ctx context.Context, shareID uuid.UUID, status roomModel.BillPaymentStatus, orderID *string, paidAt *time.Time) error
	UnpaidShareCount(ctx context.Context, billID uuid.UUID) (int64, error)
	ResetByOrderID(ctx context.Context, orderID string) error
}

type EventStore interface {
	Record(ctx context.Context, ev *model.PaymentGatewayEvent) error
	MarkOutcome(ctx context.Context, id uuid.UUID, status string, errMsg string) error
}

type StudentDirectory interface {
	FindStudent(ctx context.Context, id uuid.UUID) (*studentModel.Student, error)
	CountActiveInRoom(ctx context.Context, roomID uuid.UUID) (int, error)
}

// Stores bundles everything a single allocation touches so the
// whole thing can run on one transaction handle.
type Stores struct {
	Intents IntentStore
	Ledger  LedgerStore
	Bills   BillStore
	Events  EventStore
}

type UnitOfWork interface {
	InTx(ctx context.Context, fn func(s Stores) error) error
}

/* =========================================================
   GORM bindings
========================================================= */

func NewGormStores(db *gorm.DB) Stores {
	return Stores{
		Intents: &gormIntentStore{db: db},
		Ledger:  &gormLedgerStore{db: db},
		Bills:   &gormBillStore{db: db},
		Events:  &gormEventStore{db: db},
	}
}

type GormUnitOfWork struct {
	DB *gorm.DB
}

func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork { return &GormUnitOfWork{DB: db} }

func (u *GormUnitOfWork) InTx(ctx context.Context, fn func(s Stores) error) error {
	return u.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStores(tx))
	})
}

// The pgx and pq drivers surface unique violations differently;
// match the typed error first, then the SQLSTATE text.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	lc := strings.ToLower(err.Error())
	return strings.Contains(lc, "duplicate key") || strings.Contains(lc, "23505")
}

/* ---------------- pending_intents ---------------- */

type gormIntentStore struct{ db *gorm.DB }

func (s *gormIntentStore) FindByOrderID(ctx context.Context, orderID string) (*model.PendingIntent, error) {
	var it model.PendingIntent
	err := s.db.WithContext(ctx).
		Where("pending_intent_order_id = ?", orderID).
		Take(&it).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (s *gormIntentStore) FindOpenSlot(ctx context.Context, studentID uuid.UUID, targetKey string) (*model.PendingIntent, error) {
	var it model.PendingIntent
	err := s.db.WithContext(ctx).
		Where("pending_intent_student_id = ? AND pending_intent_target_key = ?", studentID, targetKey).
		Take(&it).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func (s *gormIntentStore) Create(ctx context.Context, intent *model.PendingIntent) error {
	if err := s.db.WithContext(ctx).Create(intent).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateInFlight
		}
		return err
	}
	return nil
}

func (s *gormIntentStore) DeleteByOrderID(ctx context.Context, orderID string) error {
	return s.db.WithContext(ctx).
		Where("pending_intent_order_id = ?", orderID).
		Delete(&model.PendingIntent{}).Error
}

func (s *gormIntentStore) ListOlderThan(ctx context.Context, cutoff time.Time) ([]model.PendingIntent, error) {
	var out []model.PendingIntent
	err := s.db.WithContext(ctx).
		Where("pending_intent_initiated_at < ?", cutoff).
		Find(&out).Error
	return out, err
}

/* ---------------- ledger_entries ---------------- */

type gormLedgerStore struct{ db *gorm.DB }

func (s *gormLedgerStore) Create(ctx context.Context, entry *model.LedgerEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			// order id / txn ref already ledgered: at-most-one row per attempt
			return ErrDuplicateInFlight
		}
		return err
	}
	return nil
}

func (s *gormLedgerStore) FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("ledger_entry_id = ?", id).
		Take(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *gormLedgerStore) FindByOrderID(ctx context.Context, orderID string) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("ledger_entry_order_id = ?", orderID).
		Take(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *gormLedgerStore) SuccessTotalsByTerm(ctx context.Context, studentID uuid.UUID, academicYear string) (map[model.FeeTerm]int, error) {
	type row struct {
		Term  model.FeeTerm `gorm:"column:ledger_entry_term"`
		Total int           `gorm:"column:total"`
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Select("ledger_entry_term, COALESCE(SUM(ledger_entry_amount_inr),0) AS total").
		Where(
			"ledger_entry_student_id = ? AND ledger_entry_academic_year = ? AND ledger_entry_domain = ? AND ledger_entry_status = ?",
			studentID, academicYear, model.LedgerDomainHostelFee, model.LedgerStatusSuccess,
		).
		Group("ledger_entry_term").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.FeeTerm]int, len(rows))
	for _, r := range rows {
		out[r.Term] = r.Total
	}
	return out, nil
}

func (s *gormLedgerStore) HasElectricitySuccess(ctx context.Context, studentID, billID uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where(
			"ledger_entry_student_id = ? AND ledger_entry_bill_id = ? AND ledger_entry_domain = ? AND ledger_entry_status = ?",
			studentID, billID, model.LedgerDomainElectricity, model.LedgerStatusSuccess,
		).
		Count(&n).Error
	return n > 0, err
}

func (s *gormLedgerStore) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]model.LedgerEntry, int64, error) {
	q := s.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("ledger_entry_student_id = ?", studentID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []model.LedgerEntry
	err := q.Order("ledger_entry_created_at DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	return out, total, err
}

func (s *gormLedgerStore) ListByBill(ctx context.Context, billID uuid.UUID) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("ledger_entry_bill_id = ?", billID).
		Order("ledger_entry_created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *gormLedgerStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.LedgerStatus, paidAt *time.Time) error {
	updates := map[string]any{"ledger_entry_status": status}
	if paidAt != nil {
		updates["ledger_entry_paid_at"] = *paidAt
	}
	return s.db.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("ledger_entry_id = ?", id).
		Updates(updates).Error
}

func (s *gormLedgerStore) DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("ledger_entry_status = ? AND ledger_entry_created_at < ?", model.LedgerStatusPending, cutoff).
		Delete(&model.LedgerEntry{})
	return res.RowsAffected, res.Error
}

/* ---------------- room bills ---------------- */

type gormBillStore struct{ db *gorm.DB }

func (s *gormBillStore) FindBill(ctx context.Context, billID uuid.UUID) (*roomModel.RoomBill, error) {
	var b roomModel.RoomBill
	err := s.db.WithContext(ctx).
		Preload("RoomBillShares").
		Where("room_bill_id = ?", billID).
		Take(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *gormBillStore) FindShare(ctx context.Context, billID, studentID uuid.UUID) (*roomModel.RoomBillShare, error) {
	var sh roomModel.RoomBillShare
	err := s.db.WithContext(ctx).
		Where("room_bill_share_bill_id = ? AND room_bill_share_student_id = ?", billID, studentID).
		Take(&sh).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sh, nil
}

func (s *gormBillStore) SetBillStatus(ctx context.Context, billID uuid.UUID, status roomModel.BillPaymentStatus, orderID *string, paidAt *time.Time) error {
	updates := map[string]any{
		"room_bill_payment_status": status,
		"room_bill_updated_at":     time.Now(),
	}
	if orderID != nil {
		updates["room_bill_order_id"] = *orderID
	}
	if paidAt != nil {
		updates["room_bill_paid_at"] = *paidAt
	}
	return s.db.WithContext(ctx).
		Model(&roomModel.RoomBill{}).
		Where("room_bill_id = ?", billID).
		Updates(updates).Error
}

func (s *gormBillStore) SetShareStatus(ctx context.Context, shareID uuid.UUID, status roomModel.BillPaymentStatus, orderID *string, paidAt *time.Time) error {
	updates := map[string]any{
		"room_bill_share_payment_status": status,
		"room_bill_share_updated_at":     time.Now(),
	}
	if orderID != nil {
		updates["room_bill_share_order_id"] = *orderID
	}
	if paidAt != nil {
		updates["room_bill_share_paid_at"] = *paidAt
	}
	return s.db.WithContext(ctx).
		Model(&roomModel.RoomBillShare{}).
		Where("room_bill_share_id = ?", shareID).
		Updates(updates).Error
}

func (s *gormBillStore) UnpaidShareCount(ctx context.Context, billID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&roomModel.RoomBillShare{}).
		Where("room_bill_share_bill_id = ? AND room_bill_share_payment_status <> ?", billID, roomModel.BillStatusPaid).
		Count(&n).Error
	return n, err
}

// ResetByOrderID puts any bill/share still pointing at a dead order
// back to unpaid. Used on failed/cancelled callbacks and by the sweeper.
func (s *gormBillStore) ResetByOrderID(ctx context.Context, orderID string) error {
	if err := s.db.WithContext(ctx).
		Model(&roomModel.RoomBillShare{}).
		Where("room_bill_share_order_id = ? AND room_bill_share_payment_status = ?", orderID, roomModel.BillStatusPending).
		Updates(map[string]any{
			"room_bill_share_payment_status": roomModel.BillStatusUnpaid,
			"room_bill_share_order_id":       nil,
			"room_bill_share_updated_at":     time.Now(),
		}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&roomModel.RoomBill{}).
		Where("room_bill_order_id = ? AND room_bill_payment_status = ?", orderID, roomModel.BillStatusPending).
		Updates(map[string]any{
			"room_bill_payment_status": roomModel.BillStatusUnpaid,
			"room_bill_order_id":       nil,
			"room_bill_updated_at":     time.Now(),
		}).Error
}

/* ---------------- gateway events ---------------- */

type gormEventStore struct{ db *gorm.DB }

func (s *gormEventStore) Record(ctx context.Context, ev *model.PaymentGatewayEvent) error {
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		if isUniqueViolation(err) {
			// exact redelivery; the caller proceeds to the idempotent path
			return nil
		}
		return err
	}
	return nil
}

func (s *gormEventStore) MarkOutcome(ctx context.Context, id uuid.UUID, status string, errMsg string) error {
	now := time.Now()
	updates := map[string]any{
		"payment_gateway_event_status":       status,
		"payment_gateway_event_processed_at": now,
	}
	if errMsg != "" {
		updates["payment_gateway_event_error"] = errMsg
	}
	return s.db.WithContext(ctx).
		Model(&model.PaymentGatewayEvent{}).
		Where("payment_gateway_event_id = ?", id).
		Updates(updates).Error
}

/* ---------------- student directory ---------------- */

type GormStudentDirectory struct {
	DB *gorm.DB
}

func NewGormStudentDirectory(db *gorm.DB) *GormStudentDirectory {
	return &GormStudentDirectory{DB: db}
}

func (d *GormStudentDirectory) FindStudent(ctx context.Context, id uuid.UUID) (*studentModel.Student, error) {
	var st studentModel.Student
	err := d.DB.WithContext(ctx).
		Where("student_id = ?", id).
		Take(&st).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (d *GormStudentDirectory) CountActiveInRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int64
	err := d.DB.WithContext(ctx).
		Model(&studentModel.Student{}).
		Where("student_room_id = ? AND student_is_active = TRUE", roomID).
		Count(&n).Error
	return int(n), err
}
