package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"hostelku_backend/internals/features/finance/payments/model"
	roomModel "hostelku_backend/internals/features/hostel/rooms/model"
)

func TestMapGatewayStatus(t *testing.T) {
	cases := []struct {
		code    string
		outcome CallbackOutcome
	}{
		{"PAID", OutcomeSuccess},
		{"SUCCESS", OutcomeSuccess},
		{"EXPIRED", OutcomeCancelled},
		{"FAILED", OutcomeFailed},
		{"CANCELLED", OutcomeCancelled},
		{"PROCESSING", OutcomePending},
		{"", OutcomePending},
		{"whatever", OutcomePending},
	}
	for _, c := range cases {
		if got, _ := MapGatewayStatus(c.code); got != c.outcome {
			t.Errorf("MapGatewayStatus(%q) = %s, want %s", c.code, got, c.outcome)
		}
	}
}

type procEnv struct {
	db        *memDB
	processor *Processor
	notifier  *recordingNotifier
}

func newProcEnv() *procEnv {
	db := newMemDB()
	notifier := &recordingNotifier{}
	proc := NewProcessor(memUow{db: db}, db.stores(), testAllocator(db), notifier)
	return &procEnv{db: db, processor: proc, notifier: notifier}
}

func (e *procEnv) seedElectricityIntent(t *testing.T, orderID string, amount int) (studentID, billID uuid.UUID) {
	t.Helper()
	roomID := uuid.New()
	studentID = e.db.seedStudent(&roomID)
	billID = e.db.seedBill(roomID, "2026-07", amount)
	shareID := e.db.seedShare(billID, studentID, amount)
	e.db.shares[shareID].RoomBillSharePaymentStatus = roomModel.BillStatusPending
	e.db.shares[shareID].RoomBillShareOrderID = &orderID
	if err := e.db.stores().Intents.Create(context.Background(), &model.PendingIntent{
		PendingIntentOrderID:   orderID,
		PendingIntentStudentID: studentID,
		PendingIntentDomain:    model.LedgerDomainElectricity,
		PendingIntentTargetKey: billID.String(),
		PendingIntentAmountINR: amount,
	}); err != nil {
		t.Fatalf("seed intent: %v", err)
	}
	return studentID, billID
}

func TestProcessCallback_Success(t *testing.T) {
	ctx := context.Background()

	t.Run("terminal success ledgers the payment and consumes the intent", func(t *testing.T) {
		env := newProcEnv()
		studentID, billID := env.seedElectricityIntent(t, "ELEC-ORD-1", 300)

		decision, err := env.processor.ProcessCallback(ctx, GatewayCallback{
			OrderID:       "ELEC-ORD-1",
			StatusCode:    "PAID",
			TransactionID: "txn-1",
			AmountINR:     300,
		})
		if err != nil {
			t.Fatalf("ProcessCallback: %v", err)
		}
		if decision != DecisionProcessed {
			t.Fatalf("decision = %s, want processed", decision)
		}
		if _, ok := env.db.intents["ELEC-ORD-1"]; ok {
			t.Errorf("intent not consumed")
		}
		ok, _ := env.db.stores().Ledger.HasElectricitySuccess(ctx, studentID, billID)
		if !ok {
			t.Errorf("no success ledger row written")
		}
		if len(env.notifier.sent) != 1 {
			t.Errorf("notifications = %d, want 1", len(env.notifier.sent))
		}
	})

	t.Run("redelivered success is an acknowledged no-op", func(t *testing.T) {
		env := newProcEnv()
		env.seedElectricityIntent(t, "ELEC-ORD-2", 300)

		cb := GatewayCallback{OrderID: "ELEC-ORD-2", StatusCode: "PAID", AmountINR: 300}
		if _, err := env.processor.ProcessCallback(ctx, cb); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		decision, err := env.processor.ProcessCallback(ctx, cb)
		if err != nil {
			t.Fatalf("redelivery must not error: %v", err)
		}
		if decision != DecisionIgnored {
			t.Fatalf("decision = %s, want ignored", decision)
		}
		if len(env.db.ledger) != 1 {
			t.Fatalf("ledger rows = %d, want exactly 1 after redelivery", len(env.db.ledger))
		}
		if len(env.notifier.sent) != 1 {
			t.Errorf("notifications = %d, want 1", len(env.notifier.sent))
		}
	})

	t.Run("success for a hostel fee intent runs the waterfall", func(t *testing.T) {
		env := newProcEnv()
		studentID := env.db.seedStudent(nil)
		orderID := "HFEE-ORD-1"
		if err := env.db.stores().Intents.Create(ctx, &model.PendingIntent{
			PendingIntentOrderID:   orderID,
			PendingIntentStudentID: studentID,
			PendingIntentDomain:    model.LedgerDomainHostelFee,
			PendingIntentTargetKey: testYear,
			PendingIntentAmountINR: 700,
		}); err != nil {
			t.Fatalf("seed intent: %v", err)
		}

		if _, err := env.processor.ProcessCallback(ctx, GatewayCallback{
			OrderID: orderID, StatusCode: "SUCCESS", AmountINR: 700,
		}); err != nil {
			t.Fatalf("ProcessCallback: %v", err)
		}
		totals, _ := env.db.stores().Ledger.SuccessTotalsByTerm(ctx, studentID, testYear)
		if totals[model.FeeTerm1] != 300 || totals[model.FeeTerm2] != 400 {
			t.Errorf("term totals = %v, want term1=300 term2=400", totals)
		}
	})
}

func TestProcessCallback_Unsuccessful(t *testing.T) {
	ctx := context.Background()

	t.Run("failed clears the intent and resets the share, no ledger row", func(t *testing.T) {
		env := newProcEnv()
		env.seedElectricityIntent(t, "ELEC-ORD-3", 300)

		decision, err := env.processor.ProcessCallback(ctx, GatewayCallback{
			OrderID: "ELEC-ORD-3", StatusCode: "FAILED",
		})
		if err != nil {
			t.Fatalf("ProcessCallback: %v", err)
		}
		if decision != DecisionProcessed {
			t.Fatalf("decision = %s, want processed", decision)
		}
		if _, ok := env.db.intents["ELEC-ORD-3"]; ok {
			t.Errorf("intent not cleared")
		}
		if len(env.db.ledger) != 0 {
			t.Errorf("ledger rows = %d, want 0 for failed attempt", len(env.db.ledger))
		}
		for _, sh := range env.db.shares {
			if sh.RoomBillSharePaymentStatus != roomModel.BillStatusUnpaid {
				t.Errorf("share status = %s, want unpaid after failure", sh.RoomBillSharePaymentStatus)
			}
		}
	})

	t.Run("expired maps to cancelled and retries stay possible", func(t *testing.T) {
		env := newProcEnv()
		studentID, billID := env.seedElectricityIntent(t, "ELEC-ORD-4", 300)

		if _, err := env.processor.ProcessCallback(ctx, GatewayCallback{
			OrderID: "ELEC-ORD-4", StatusCode: "EXPIRED",
		}); err != nil {
			t.Fatalf("ProcessCallback: %v", err)
		}
		// the slot is free again
		if _, err := env.db.stores().Intents.FindOpenSlot(ctx, studentID, billID.String()); err == nil {
			t.Errorf("slot should be free after expiry")
		}
	})
}

func TestProcessCallback_Edges(t *testing.T) {
	ctx := context.Background()

	t.Run("non-terminal status does nothing", func(t *testing.T) {
		env := newProcEnv()
		env.seedElectricityIntent(t, "ELEC-ORD-5", 300)

		decision, err := env.processor.ProcessCallback(ctx, GatewayCallback{
			OrderID: "ELEC-ORD-5", StatusCode: "PROCESSING",
		})
		if err != nil {
			t.Fatalf("ProcessCallback: %v", err)
		}
		if decision != DecisionPending {
			t.Fatalf("decision = %s, want pending", decision)
		}
		if _, ok := env.db.intents["ELEC-ORD-5"]; !ok {
			t.Errorf("intent must survive a non-terminal callback")
		}
	})

	t.Run("unknown order id is acknowledged as no-op", func(t *testing.T) {
		env := newProcEnv()
		decision, err := env.processor.ProcessCallback(ctx, GatewayCallback{
			OrderID: "NOPE-1", StatusCode: "PAID",
		})
		if err != nil {
			t.Fatalf("ProcessCallback: %v", err)
		}
		if decision != DecisionIgnored {
			t.Fatalf("decision = %s, want ignored", decision)
		}
	})

	t.Run("every callback is recorded in the event audit", func(t *testing.T) {
		env := newProcEnv()
		_, _ = env.processor.ProcessCallback(ctx, GatewayCallback{OrderID: "NOPE-2", StatusCode: "PAID"})
		_, _ = env.processor.ProcessCallback(ctx, GatewayCallback{OrderID: "NOPE-2", StatusCode: "PROCESSING"})
		if len(env.db.events) != 2 {
			t.Fatalf("events = %d, want 2", len(env.db.events))
		}
		if env.db.events[0].PaymentGatewayEventStatus != model.GatewayEventIgnored {
			t.Errorf("first event status = %s, want ignored", env.db.events[0].PaymentGatewayEventStatus)
		}
	})
}
