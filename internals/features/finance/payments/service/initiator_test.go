package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"hostelku_backend/internals/features/finance/payments/model"
	roomModel "hostelku_backend/internals/features/hostel/rooms/model"
)

func newInitEnv() (*memDB, *fakeGateway, *Initiator) {
	db := newMemDB()
	gw := newFakeGateway()
	alloc := testAllocator(db)
	init := NewInitiator(memUow{db: db}, db.stores(), db.directory(), alloc, gw)
	return db, gw, init
}

func TestInitiateElectricityPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the student's share amount and pins the share to the order", func(t *testing.T) {
		db, gw, init := newInitEnv()
		roomID := uuid.New()
		studentID := db.seedStudent(&roomID)
		billID := db.seedBill(roomID, "2026-07", 900)
		shareID := db.seedShare(billID, studentID, 300)

		res, err := init.InitiateElectricityPayment(ctx, studentID, billID)
		if err != nil {
			t.Fatalf("InitiateElectricityPayment: %v", err)
		}
		if res.AmountINR != 300 {
			t.Errorf("amount = %d, want the share amount 300", res.AmountINR)
		}
		if res.PaymentURL == "" {
			t.Errorf("payment url missing")
		}
		if len(gw.created) != 1 || gw.created[0].AmountINR != 300 {
			t.Errorf("gateway order not created with share amount")
		}
		if _, ok := db.intents[res.OrderID]; !ok {
			t.Errorf("no pending intent recorded")
		}
		sh := db.shares[shareID]
		if sh.RoomBillSharePaymentStatus != roomModel.BillStatusPending {
			t.Errorf("share status = %s, want pending", sh.RoomBillSharePaymentStatus)
		}
		if sh.RoomBillShareOrderID == nil || *sh.RoomBillShareOrderID != res.OrderID {
			t.Errorf("share not pinned to order id")
		}
	})

	t.Run("legacy unsplit bill splits across active occupants", func(t *testing.T) {
		db, _, init := newInitEnv()
		roomID := uuid.New()
		studentID := db.seedStudent(&roomID)
		db.seedStudent(&roomID)
		db.seedStudent(&roomID)
		billID := db.seedBill(roomID, "2026-06", 1000) // no shares

		res, err := init.InitiateElectricityPayment(ctx, studentID, billID)
		if err != nil {
			t.Fatalf("InitiateElectricityPayment: %v", err)
		}
		if res.AmountINR != 333 {
			t.Errorf("amount = %d, want 333 (1000 over 3 occupants)", res.AmountINR)
		}
		if db.bills[billID].RoomBillPaymentStatus != roomModel.BillStatusPending {
			t.Errorf("legacy bill not marked pending")
		}
	})

	t.Run("already paid share rejects", func(t *testing.T) {
		db, _, init := newInitEnv()
		roomID := uuid.New()
		studentID := db.seedStudent(&roomID)
		billID := db.seedBill(roomID, "2026-07", 300)
		shareID := db.seedShare(billID, studentID, 300)
		db.shares[shareID].RoomBillSharePaymentStatus = roomModel.BillStatusPaid

		_, err := init.InitiateElectricityPayment(ctx, studentID, billID)
		if !errors.Is(err, ErrAlreadyPaid) {
			t.Fatalf("err = %v, want ErrAlreadyPaid", err)
		}
	})

	t.Run("second initiation within the cooldown rejects", func(t *testing.T) {
		db, _, init := newInitEnv()
		roomID := uuid.New()
		studentID := db.seedStudent(&roomID)
		billID := db.seedBill(roomID, "2026-07", 300)
		db.seedShare(billID, studentID, 300)

		if _, err := init.InitiateElectricityPayment(ctx, studentID, billID); err != nil {
			t.Fatalf("first initiation: %v", err)
		}
		_, err := init.InitiateElectricityPayment(ctx, studentID, billID)
		if !errors.Is(err, ErrDuplicateInFlight) {
			t.Fatalf("err = %v, want ErrDuplicateInFlight", err)
		}
	})

	t.Run("stale slot is reclaimed instead of locking the student out", func(t *testing.T) {
		db, _, init := newInitEnv()
		roomID := uuid.New()
		studentID := db.seedStudent(&roomID)
		billID := db.seedBill(roomID, "2026-07", 300)
		db.seedShare(billID, studentID, 300)

		res, err := init.InitiateElectricityPayment(ctx, studentID, billID)
		if err != nil {
			t.Fatalf("first initiation: %v", err)
		}
		db.intents[res.OrderID].PendingIntentInitiatedAt = time.Now().Add(-10 * time.Minute)

		res2, err := init.InitiateElectricityPayment(ctx, studentID, billID)
		if err != nil {
			t.Fatalf("reclaim initiation: %v", err)
		}
		if _, ok := db.intents[res.OrderID]; ok {
			t.Errorf("stale intent not reclaimed")
		}
		if _, ok := db.intents[res2.OrderID]; !ok {
			t.Errorf("new intent missing")
		}
	})

	t.Run("gateway failure leaves no local state", func(t *testing.T) {
		db, gw, init := newInitEnv()
		gw.failCreate = ErrGatewayUnavailable
		roomID := uuid.New()
		studentID := db.seedStudent(&roomID)
		billID := db.seedBill(roomID, "2026-07", 300)
		shareID := db.seedShare(billID, studentID, 300)

		_, err := init.InitiateElectricityPayment(ctx, studentID, billID)
		if !errors.Is(err, ErrGatewayUnavailable) {
			t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
		}
		if len(db.intents) != 0 {
			t.Errorf("intent written despite gateway failure")
		}
		if db.shares[shareID].RoomBillSharePaymentStatus != roomModel.BillStatusUnpaid {
			t.Errorf("share touched despite gateway failure")
		}
	})
}

func TestInitiateHostelFeePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts a partial amount within the outstanding total", func(t *testing.T) {
		db, gw, init := newInitEnv()
		studentID := db.seedStudent(nil)

		res, err := init.InitiateHostelFeePayment(ctx, studentID, 400, testYear)
		if err != nil {
			t.Fatalf("InitiateHostelFeePayment: %v", err)
		}
		if res.AmountINR != 400 {
			t.Errorf("amount = %d, want 400", res.AmountINR)
		}
		if len(gw.created) != 1 {
			t.Fatalf("gateway orders = %d, want 1", len(gw.created))
		}
		it, ok := db.intents[res.OrderID]
		if !ok {
			t.Fatalf("no pending intent recorded")
		}
		if it.PendingIntentDomain != model.LedgerDomainHostelFee || it.PendingIntentTargetKey != testYear {
			t.Errorf("intent = %+v, want hostel_fee/%s", it, testYear)
		}
	})

	t.Run("amount above the outstanding total rejects", func(t *testing.T) {
		db, _, init := newInitEnv()
		studentID := db.seedStudent(nil)

		_, err := init.InitiateHostelFeePayment(ctx, studentID, 1200, testYear) // due is 1000
		if !errors.Is(err, ErrAmountExceedsDue) {
			t.Fatalf("err = %v, want ErrAmountExceedsDue", err)
		}
	})

	t.Run("fully paid year rejects", func(t *testing.T) {
		db, _, init := newInitEnv()
		studentID := db.seedStudent(nil)
		year := testYear
		term1, term2, term3 := model.FeeTerm1, model.FeeTerm2, model.FeeTerm3
		for _, tc := range []struct {
			term   model.FeeTerm
			amount int
		}{{term1, 300}, {term2, 500}, {term3, 200}} {
			term := tc.term
			if err := db.stores().Ledger.Create(ctx, &model.LedgerEntry{
				LedgerEntryDomain:       model.LedgerDomainHostelFee,
				LedgerEntryAmountINR:    tc.amount,
				LedgerEntryStatus:       model.LedgerStatusSuccess,
				LedgerEntryStudentID:    studentID,
				LedgerEntryTerm:         &term,
				LedgerEntryAcademicYear: &year,
			}); err != nil {
				t.Fatalf("seed ledger: %v", err)
			}
		}

		_, err := init.InitiateHostelFeePayment(ctx, studentID, 100, testYear)
		if !errors.Is(err, ErrAlreadyPaid) {
			t.Fatalf("err = %v, want ErrAlreadyPaid", err)
		}
	})

	t.Run("non-positive amount rejects", func(t *testing.T) {
		db, _, init := newInitEnv()
		studentID := db.seedStudent(nil)
		if _, err := init.InitiateHostelFeePayment(ctx, studentID, 0, testYear); err == nil {
			t.Fatalf("zero amount must be rejected")
		}
	})
}
