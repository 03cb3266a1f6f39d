package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	feesvc "hostelku_backend/internals/features/finance/fees/service"
	"hostelku_backend/internals/features/finance/payments/model"
	roomModel "hostelku_backend/internals/features/hostel/rooms/model"
	studentModel "hostelku_backend/internals/features/hostel/students/model"
)

/* =========================================================
   In-memory fakes

   One memDB holds all state; per-interface wrappers around
   it satisfy the store interfaces so a Stores bundle and a
   UnitOfWork share state the way a transaction handle does.
========================================================= */

type memDB struct {
	mu sync.Mutex

	intents map[string]*model.PendingIntent // keyed by order id
	ledger  []*model.LedgerEntry
	bills   map[uuid.UUID]*roomModel.RoomBill
	shares  map[uuid.UUID]*roomModel.RoomBillShare
	events  []*model.PaymentGatewayEvent

	students map[uuid.UUID]*studentModel.Student
}

func newMemDB() *memDB {
	return &memDB{
		intents:  map[string]*model.PendingIntent{},
		bills:    map[uuid.UUID]*roomModel.RoomBill{},
		shares:   map[uuid.UUID]*roomModel.RoomBillShare{},
		students: map[uuid.UUID]*studentModel.Student{},
	}
}

func (m *memDB) stores() Stores {
	return Stores{
		Intents: &memIntents{db: m},
		Ledger:  &memLedger{db: m},
		Bills:   &memBills{db: m},
		Events:  &memEvents{db: m},
	}
}

func (m *memDB) directory() StudentDirectory { return &memDirectory{db: m} }

type memUow struct{ db *memDB }

func (u memUow) InTx(ctx context.Context, fn func(s Stores) error) error {
	return fn(u.db.stores())
}

/* ---------------- IntentStore ---------------- */

type memIntents struct{ db *memDB }

func (s *memIntents) FindByOrderID(ctx context.Context, orderID string) (*model.PendingIntent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if it, ok := s.db.intents[orderID]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memIntents) FindOpenSlot(ctx context.Context, studentID uuid.UUID, targetKey string) (*model.PendingIntent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, it := range s.db.intents {
		if it.PendingIntentStudentID == studentID && it.PendingIntentTargetKey == targetKey {
			cp := *it
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memIntents) Create(ctx context.Context, intent *model.PendingIntent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.intents[intent.PendingIntentOrderID]; ok {
		return ErrDuplicateInFlight
	}
	for _, it := range s.db.intents {
		if it.PendingIntentStudentID == intent.PendingIntentStudentID &&
			it.PendingIntentTargetKey == intent.PendingIntentTargetKey {
			return ErrDuplicateInFlight
		}
	}
	if intent.PendingIntentID == uuid.Nil {
		intent.PendingIntentID = uuid.New()
	}
	if intent.PendingIntentInitiatedAt.IsZero() {
		intent.PendingIntentInitiatedAt = time.Now()
	}
	cp := *intent
	s.db.intents[intent.PendingIntentOrderID] = &cp
	return nil
}

func (s *memIntents) DeleteByOrderID(ctx context.Context, orderID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.intents, orderID)
	return nil
}

func (s *memIntents) ListOlderThan(ctx context.Context, cutoff time.Time) ([]model.PendingIntent, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.PendingIntent
	for _, it := range s.db.intents {
		if it.PendingIntentInitiatedAt.Before(cutoff) {
			out = append(out, *it)
		}
	}
	return out, nil
}

/* ---------------- LedgerStore ---------------- */

type memLedger struct{ db *memDB }

func (s *memLedger) Create(ctx context.Context, entry *model.LedgerEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if entry.LedgerEntryOrderID != nil {
		for _, e := range s.db.ledger {
			if e.LedgerEntryOrderID != nil && *e.LedgerEntryOrderID == *entry.LedgerEntryOrderID {
				return fmt.Errorf("duplicate key value violates unique constraint \"uq_ledger_entry_order_id\"")
			}
		}
	}
	if entry.LedgerEntryID == uuid.Nil {
		entry.LedgerEntryID = uuid.New()
	}
	if entry.LedgerEntryCreatedAt.IsZero() {
		entry.LedgerEntryCreatedAt = time.Now()
	}
	cp := *entry
	s.db.ledger = append(s.db.ledger, &cp)
	return nil
}

func (s *memLedger) FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, e := range s.db.ledger {
		if e.LedgerEntryID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memLedger) FindByOrderID(ctx context.Context, orderID string) (*model.LedgerEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, e := range s.db.ledger {
		if e.LedgerEntryOrderID != nil && *e.LedgerEntryOrderID == orderID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memLedger) SuccessTotalsByTerm(ctx context.Context, studentID uuid.UUID, academicYear string) (map[model.FeeTerm]int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[model.FeeTerm]int{}
	for _, e := range s.db.ledger {
		if e.LedgerEntryDomain != model.LedgerDomainHostelFee ||
			e.LedgerEntryStatus != model.LedgerStatusSuccess ||
			e.LedgerEntryStudentID != studentID {
			continue
		}
		if e.LedgerEntryAcademicYear == nil || *e.LedgerEntryAcademicYear != academicYear || e.LedgerEntryTerm == nil {
			continue
		}
		out[*e.LedgerEntryTerm] += e.LedgerEntryAmountINR
	}
	return out, nil
}

func (s *memLedger) HasElectricitySuccess(ctx context.Context, studentID, billID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, e := range s.db.ledger {
		if e.LedgerEntryDomain == model.LedgerDomainElectricity &&
			e.LedgerEntryStatus == model.LedgerStatusSuccess &&
			e.LedgerEntryStudentID == studentID &&
			e.LedgerEntryBillID != nil && *e.LedgerEntryBillID == billID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memLedger) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]model.LedgerEntry, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.LedgerEntry
	for _, e := range s.db.ledger {
		if e.LedgerEntryStudentID == studentID {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func (s *memLedger) ListByBill(ctx context.Context, billID uuid.UUID) ([]model.LedgerEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []model.LedgerEntry
	for _, e := range s.db.ledger {
		if e.LedgerEntryBillID != nil && *e.LedgerEntryBillID == billID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memLedger) UpdateStatus(ctx context.Context, id uuid.UUID, status model.LedgerStatus, paidAt *time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, e := range s.db.ledger {
		if e.LedgerEntryID == id {
			e.LedgerEntryStatus = status
			if paidAt != nil {
				e.LedgerEntryPaidAt = paidAt
			}
			return nil
		}
	}
	return ErrNotFound
}

func (s *memLedger) DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var kept []*model.LedgerEntry
	var removed int64
	for _, e := range s.db.ledger {
		if e.LedgerEntryStatus == model.LedgerStatusPending && e.LedgerEntryCreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.db.ledger = kept
	return removed, nil
}

/* ---------------- BillStore ---------------- */

type memBills struct{ db *memDB }

func (s *memBills) FindBill(ctx context.Context, billID uuid.UUID) (*roomModel.RoomBill, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	bill, ok := s.db.bills[billID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *bill
	cp.RoomBillShares = nil
	for _, sh := range s.db.shares {
		if sh.RoomBillShareBillID == billID {
			cp.RoomBillShares = append(cp.RoomBillShares, *sh)
		}
	}
	return &cp, nil
}

func (s *memBills) FindShare(ctx context.Context, billID, studentID uuid.UUID) (*roomModel.RoomBillShare, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, sh := range s.db.shares {
		if sh.RoomBillShareBillID == billID && sh.RoomBillShareStudentID == studentID {
			cp := *sh
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memBills) SetBillStatus(ctx context.Context, billID uuid.UUID, status roomModel.BillPaymentStatus, orderID *string, paidAt *time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	bill, ok := s.db.bills[billID]
	if !ok {
		return ErrNotFound
	}
	bill.RoomBillPaymentStatus = status
	if orderID != nil {
		bill.RoomBillOrderID = orderID
	}
	if paidAt != nil {
		bill.RoomBillPaidAt = paidAt
	}
	return nil
}

func (s *memBills) SetShareStatus(ctx context.Context, shareID uuid.UUID, status roomModel.BillPaymentStatus, orderID *string, paidAt *time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	sh, ok := s.db.shares[shareID]
	if !ok {
		return ErrNotFound
	}
	sh.RoomBillSharePaymentStatus = status
	if orderID != nil {
		sh.RoomBillShareOrderID = orderID
	}
	if paidAt != nil {
		sh.RoomBillSharePaidAt = paidAt
	}
	return nil
}

func (s *memBills) UnpaidShareCount(ctx context.Context, billID uuid.UUID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for _, sh := range s.db.shares {
		if sh.RoomBillShareBillID == billID && sh.RoomBillSharePaymentStatus != roomModel.BillStatusPaid {
			n++
		}
	}
	return n, nil
}

func (s *memBills) ResetByOrderID(ctx context.Context, orderID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, bill := range s.db.bills {
		if bill.RoomBillOrderID != nil && *bill.RoomBillOrderID == orderID &&
			bill.RoomBillPaymentStatus == roomModel.BillStatusPending {
			bill.RoomBillPaymentStatus = roomModel.BillStatusUnpaid
			bill.RoomBillOrderID = nil
		}
	}
	for _, sh := range s.db.shares {
		if sh.RoomBillShareOrderID != nil && *sh.RoomBillShareOrderID == orderID &&
			sh.RoomBillSharePaymentStatus == roomModel.BillStatusPending {
			sh.RoomBillSharePaymentStatus = roomModel.BillStatusUnpaid
			sh.RoomBillShareOrderID = nil
		}
	}
	return nil
}

/* ---------------- EventStore ---------------- */

type memEvents struct{ db *memDB }

func (s *memEvents) Record(ctx context.Context, ev *model.PaymentGatewayEvent) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *ev
	s.db.events = append(s.db.events, &cp)
	return nil
}

func (s *memEvents) MarkOutcome(ctx context.Context, id uuid.UUID, status string, errMsg string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, ev := range s.db.events {
		if ev.PaymentGatewayEventID == id {
			ev.PaymentGatewayEventStatus = status
			if errMsg != "" {
				msg := errMsg
				ev.PaymentGatewayEventError = &msg
			}
			return nil
		}
	}
	return nil
}

/* ---------------- StudentDirectory ---------------- */

type memDirectory struct{ db *memDB }

func (s *memDirectory) FindStudent(ctx context.Context, id uuid.UUID) (*studentModel.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	st, ok := s.db.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *memDirectory) CountActiveInRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n := 0
	for _, st := range s.db.students {
		if st.StudentIsActive && st.StudentRoomID != nil && *st.StudentRoomID == roomID {
			n++
		}
	}
	return n, nil
}

/* ---------------- seeding helpers ---------------- */

func (m *memDB) seedStudent(roomID *uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.students[id] = &studentModel.Student{
		StudentID:          id,
		StudentName:        "Test Student",
		StudentRollNo:      "R-" + id.String()[:8],
		StudentRoomID:      roomID,
		StudentCourse:      "BTECH",
		StudentYearOfStudy: 2,
		StudentCategory:    "general",
		StudentIsActive:    true,
	}
	return id
}

func (m *memDB) seedBill(roomID uuid.UUID, month string, totalINR int) uuid.UUID {
	id := uuid.New()
	m.bills[id] = &roomModel.RoomBill{
		RoomBillID:            id,
		RoomBillRoomID:        roomID,
		RoomBillMonth:         month,
		RoomBillTotalINR:      totalINR,
		RoomBillPaymentStatus: roomModel.BillStatusUnpaid,
	}
	return id
}

func (m *memDB) seedShare(billID, studentID uuid.UUID, amountINR int) uuid.UUID {
	id := uuid.New()
	m.shares[id] = &roomModel.RoomBillShare{
		RoomBillShareID:            id,
		RoomBillShareBillID:        billID,
		RoomBillShareStudentID:     studentID,
		RoomBillShareAmountINR:     amountINR,
		RoomBillSharePaymentStatus: roomModel.BillStatusUnpaid,
	}
	return id
}

/* ---------------- gateway / notifier / fees fakes ---------------- */

type fakeGateway struct {
	mu         sync.Mutex
	failCreate error
	created    []CreateOrderRequest
	statusByID map[string]OrderStatus
	fetchErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statusByID: map[string]OrderStatus{}}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate != nil {
		return nil, g.failCreate
	}
	g.created = append(g.created, req)
	return &CreateOrderResponse{
		OrderID:     req.OrderID,
		PaymentURL:  "https://pay.example/checkout",
		OrderStatus: "CREATED",
	}, nil
}

func (g *fakeGateway) FetchOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	st, ok := g.statusByID[orderID]
	if !ok {
		st = OrderStatus{OrderID: orderID, StatusCode: "CREATED"}
	}
	return &st, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []SuccessNotification
}

func (n *recordingNotifier) NotifyPaymentSuccess(ctx context.Context, sn SuccessNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sn)
}

type fakeFees struct {
	fees feesvc.TermFees
	err  error
}

func (f fakeFees) TermFees(ctx context.Context, key feesvc.ScheduleKey) (feesvc.TermFees, error) {
	if f.err != nil {
		return feesvc.TermFees{}, f.err
	}
	return f.fees, nil
}
