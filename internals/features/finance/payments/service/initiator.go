package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"hostelku_backend/internals/features/finance/payments/model"
	roomModel "hostelku_backend/internals/features/hostel/rooms/model"
)

/* =========================================================
   Order Initiator

   Computes what a student must pay right now, rejects
   already-paid and in-flight targets, then creates the
   remote order. Local state (intent + bill pending flag)
   is written only after the gateway accepts the order;
   a gateway failure leaves nothing behind.
========================================================= */

// Cooldown for the friendly duplicate check; the unique index on
// (student, target) is the hard guard behind it.
const initiationCooldown = 5 * time.Minute

type Initiator struct {
	Uow       UnitOfWork
	Stores    Stores
	Directory StudentDirectory
	Allocator *Allocator
	Gateway   GatewayAPI
}

func NewInitiator(uow UnitOfWork, stores Stores, dir StudentDirectory, alloc *Allocator, gw GatewayAPI) *Initiator {
	return &Initiator{Uow: uow, Stores: stores, Directory: dir, Allocator: alloc, Gateway: gw}
}

type InitiationResult struct {
	OrderID     string `json:"order_id"`
	AmountINR   int    `json:"amount_inr"`
	PaymentURL  string `json:"payment_url"`
	OrderStatus string `json:"order_status"`
}

func (i *Initiator) InitiateElectricityPayment(ctx context.Context, studentID, billID uuid.UUID) (*InitiationResult, error) {
	student, err := i.Directory.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	bill, err := i.Stores.Bills.FindBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	// 1) target not already settled
	paid, err := i.Stores.Ledger.HasElectricitySuccess(ctx, studentID, billID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, ErrAlreadyPaid
	}

	var shareID *uuid.UUID
	amount := 0
	if bill.IsSplit() {
		share, err := i.Stores.Bills.FindShare(ctx, billID, studentID)
		if err != nil {
			return nil, fmt.Errorf("%w: student %s has no share on bill %s", ErrNotFound, studentID, billID)
		}
		if share.RoomBillSharePaymentStatus == roomModel.BillStatusPaid {
			return nil, ErrAlreadyPaid
		}
		amount = share.RoomBillShareAmountINR
		shareID = &share.RoomBillShareID
	} else {
		if bill.RoomBillPaymentStatus == roomModel.BillStatusPaid {
			return nil, ErrAlreadyPaid
		}
		occupants, err := i.Directory.CountActiveInRoom(ctx, bill.RoomBillRoomID)
		if err != nil {
			return nil, err
		}
		amount = SplitEqually(bill.RoomBillTotalINR, occupants)
	}

	// 2) duplicate in flight
	if err := i.checkCooldown(ctx, studentID, billID.String()); err != nil {
		return nil, err
	}

	// 3) remote order, then local state
	orderID := NewOrderID(model.LedgerDomainElectricity)
	order, err := i.Gateway.CreateOrder(ctx, CreateOrderRequest{
		OrderID:     orderID,
		AmountINR:   amount,
		Currency:    model.CurrencyINR,
		StudentRef:  student.StudentRollNo,
		Description: fmt.Sprintf("Electricity %s room bill", bill.RoomBillMonth),
	})
	if err != nil {
		return nil, err
	}

	err = i.Uow.InTx(ctx, func(s Stores) error {
		if err := s.Intents.Create(ctx, &model.PendingIntent{
			PendingIntentOrderID:   orderID,
			PendingIntentStudentID: studentID,
			PendingIntentDomain:    model.LedgerDomainElectricity,
			PendingIntentTargetKey: billID.String(),
			PendingIntentAmountINR: amount,
		}); err != nil {
			return err
		}
		if shareID != nil {
			return s.Bills.SetShareStatus(ctx, *shareID, roomModel.BillStatusPending, &orderID, nil)
		}
		return s.Bills.SetBillStatus(ctx, billID, roomModel.BillStatusPending, &orderID, nil)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[PAYMENT] electricity order %s created (student=%s bill=%s amount=%d)", orderID, studentID, billID, amount)
	return &InitiationResult{
		OrderID:     orderID,
		AmountINR:   amount,
		PaymentURL:  order.PaymentURL,
		OrderStatus: order.OrderStatus,
	}, nil
}

func (i *Initiator) InitiateHostelFeePayment(ctx context.Context, studentID uuid.UUID, amountINR int, academicYear string) (*InitiationResult, error) {
	if amountINR <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrAmountExceedsDue)
	}
	student, err := i.Directory.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	// 1) anything still due?
	balances, err := i.Allocator.TermBalancesFor(ctx, i.Stores.Ledger, studentID, academicYear)
	if err != nil {
		return nil, err
	}
	due := balances.PositiveSum()
	if due <= 0 {
		return nil, ErrAlreadyPaid
	}
	if amountINR > due {
		return nil, fmt.Errorf("%w: due %d, requested %d", ErrAmountExceedsDue, due, amountINR)
	}

	// 2) duplicate in flight
	if err := i.checkCooldown(ctx, studentID, academicYear); err != nil {
		return nil, err
	}

	// 3) remote order, then local state
	orderID := NewOrderID(model.LedgerDomainHostelFee)
	order, err := i.Gateway.CreateOrder(ctx, CreateOrderRequest{
		OrderID:     orderID,
		AmountINR:   amountINR,
		Currency:    model.CurrencyINR,
		StudentRef:  student.StudentRollNo,
		Description: fmt.Sprintf("Hostel fee %s", academicYear),
	})
	if err != nil {
		return nil, err
	}

	err = i.Uow.InTx(ctx, func(s Stores) error {
		return s.Intents.Create(ctx, &model.PendingIntent{
			PendingIntentOrderID:   orderID,
			PendingIntentStudentID: studentID,
			PendingIntentDomain:    model.LedgerDomainHostelFee,
			PendingIntentTargetKey: academicYear,
			PendingIntentAmountINR: amountINR,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[PAYMENT] hostel fee order %s created (student=%s year=%s amount=%d)", orderID, studentID, academicYear, amountINR)
	return &InitiationResult{
		OrderID:     orderID,
		AmountINR:   amountINR,
		PaymentURL:  order.PaymentURL,
		OrderStatus: order.OrderStatus,
	}, nil
}

// checkCooldown rejects a second initiation for the same slot within
// the window. A stale slot (sweeper hasn't run yet) is reclaimed here
// so the student isn't locked out.
func (i *Initiator) checkCooldown(ctx context.Context, studentID uuid.UUID, targetKey string) error {
	open, err := i.Stores.Intents.FindOpenSlot(ctx, studentID, targetKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if time.Since(open.PendingIntentInitiatedAt) < initiationCooldown {
		return ErrDuplicateInFlight
	}
	log.Printf("[PAYMENT] reclaiming stale intent %s (order=%s)", open.PendingIntentID, open.PendingIntentOrderID)
	return i.Uow.InTx(ctx, func(s Stores) error {
		if err := s.Intents.DeleteByOrderID(ctx, open.PendingIntentOrderID); err != nil {
			return err
		}
		return s.Bills.ResetByOrderID(ctx, open.PendingIntentOrderID)
	})
}
