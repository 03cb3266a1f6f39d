package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"hostelku_backend/internals/features/finance/payments/model"
)

/* =========================================================
   Notification State Machine

   Entry point for asynchronous gateway callbacks. The
   contract is idempotency at the order-id level, not
   ordering: once a terminal state consumed the intent, any
   redelivery finds no intent and is acknowledged as a
   no-op.
========================================================= */

type CallbackOutcome string

const (
	OutcomeSuccess   CallbackOutcome = "success"
	OutcomeFailed    CallbackOutcome = "failed"
	OutcomeCancelled CallbackOutcome = "cancelled"
	OutcomePending   CallbackOutcome = "pending"
)

// MapGatewayStatus classifies the gateway's status code. Unknown codes
// are non-terminal and deliberately do nothing.
func MapGatewayStatus(code string) (CallbackOutcome, string) {
	switch code {
	case "PAID", "SUCCESS":
		return OutcomeSuccess, ""
	case "EXPIRED":
		return OutcomeCancelled, "expired"
	case "FAILED":
		return OutcomeFailed, ""
	case "CANCELLED":
		return OutcomeCancelled, ""
	default:
		return OutcomePending, ""
	}
}

type GatewayCallback struct {
	OrderID       string `json:"order_id"`
	StatusCode    string `json:"status"`
	TransactionID string `json:"transaction_id"`
	SettlementRef string `json:"settlement_ref"`
	AmountINR     int    `json:"amount"`

	Headers map[string]string `json:"-"`
	RawBody []byte            `json:"-"`
}

type Decision string

const (
	DecisionProcessed Decision = "processed"
	DecisionIgnored   Decision = "ignored" // idempotent no-op
	DecisionPending   Decision = "pending" // non-terminal, nothing to do
)

type Processor struct {
	Uow       UnitOfWork
	Stores    Stores
	Allocator *Allocator
	Notifier  SuccessNotifier
}

func NewProcessor(uow UnitOfWork, stores Stores, alloc *Allocator, notifier SuccessNotifier) *Processor {
	return &Processor{Uow: uow, Stores: stores, Allocator: alloc, Notifier: notifier}
}

// ProcessCallback assumes the signature was already verified. It
// records the event, classifies the status and dispatches. Errors here
// mean the decision could NOT be persisted; everything else, including
// duplicates and unknown orders, is an acknowledged no-op.
func (p *Processor) ProcessCallback(ctx context.Context, cb GatewayCallback) (Decision, error) {
	eventID := p.recordEvent(ctx, cb)

	outcome, reason := MapGatewayStatus(cb.StatusCode)
	if outcome == OutcomePending {
		log.Printf("[WEBHOOK] non-terminal status %q for order %s, no-op", cb.StatusCode, cb.OrderID)
		p.markEvent(ctx, eventID, model.GatewayEventIgnored, "")
		return DecisionPending, nil
	}

	intent, err := p.Stores.Intents.FindByOrderID(ctx, cb.OrderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// already consumed by an earlier callback, or never ours
			log.Printf("[WEBHOOK] no pending intent for order %s, acknowledged as no-op", cb.OrderID)
			p.markEvent(ctx, eventID, model.GatewayEventIgnored, "")
			return DecisionIgnored, nil
		}
		p.markEvent(ctx, eventID, model.GatewayEventFailed, err.Error())
		return "", err
	}

	switch outcome {
	case OutcomeSuccess:
		if err := p.handleSuccess(ctx, intent, cb); err != nil {
			p.markEvent(ctx, eventID, model.GatewayEventFailed, err.Error())
			return "", err
		}
	case OutcomeFailed, OutcomeCancelled:
		if err := p.handleUnsuccessful(ctx, intent, outcome, reason); err != nil {
			p.markEvent(ctx, eventID, model.GatewayEventFailed, err.Error())
			return "", err
		}
	}

	p.markEvent(ctx, eventID, model.GatewayEventProcessed, "")
	return DecisionProcessed, nil
}

func (p *Processor) handleSuccess(ctx context.Context, intent *model.PendingIntent, cb GatewayCallback) error {
	// The gateway's settled amount wins; fall back to the intent.
	amount := cb.AmountINR
	if amount <= 0 {
		amount = intent.PendingIntentAmountINR
	}
	orderID := intent.PendingIntentOrderID
	txnRef := strOrNil(cb.TransactionID)
	settleRef := strOrNil(cb.SettlementRef)

	err := p.Uow.InTx(ctx, func(s Stores) error {
		switch intent.PendingIntentDomain {
		case model.LedgerDomainElectricity:
			billID, err := uuid.Parse(intent.PendingIntentTargetKey)
			if err != nil {
				return fmt.Errorf("%w: bad target key %q", ErrAllocation, intent.PendingIntentTargetKey)
			}
			if _, err := p.Allocator.AllocateElectricity(ctx, s, ElectricityAllocation{
				StudentID:     intent.PendingIntentStudentID,
				BillID:        billID,
				AmountINR:     amount,
				OrderID:       &orderID,
				GatewayTxnRef: txnRef,
				SettlementRef: settleRef,
				CollectMode:   model.CollectModeSelf,
			}); err != nil {
				return err
			}
		case model.LedgerDomainHostelFee:
			if _, err := p.Allocator.AllocateHostelFee(ctx, s, HostelFeeAllocation{
				StudentID:     intent.PendingIntentStudentID,
				AcademicYear:  intent.PendingIntentTargetKey,
				AmountINR:     amount,
				OrderID:       &orderID,
				GatewayTxnRef: txnRef,
				SettlementRef: settleRef,
				CollectMode:   model.CollectModeSelf,
			}); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unsupported domain %q", ErrAllocation, intent.PendingIntentDomain)
		}
		return s.Intents.DeleteByOrderID(ctx, orderID)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyPaid) || errors.Is(err, ErrDuplicateInFlight) {
			// ledger already holds this attempt; just consume the intent
			log.Printf("[WEBHOOK] order %s already ledgered, consuming intent", orderID)
			return p.Stores.Intents.DeleteByOrderID(ctx, orderID)
		}
		if errors.Is(err, ErrAllocation) {
			// abandoned allocation must not leave the intent dangling
			log.Printf("[WEBHOOK] allocation for order %s abandoned: %v", orderID, err)
			_ = p.Stores.Intents.DeleteByOrderID(ctx, orderID)
			_ = p.Stores.Bills.ResetByOrderID(ctx, orderID)
			return err
		}
		return err
	}

	log.Printf("[WEBHOOK] order %s settled, %d INR ledgered (student=%s domain=%s)",
		orderID, amount, intent.PendingIntentStudentID, intent.PendingIntentDomain)
	if p.Notifier != nil {
		p.Notifier.NotifyPaymentSuccess(ctx, SuccessNotification{
			StudentID: intent.PendingIntentStudentID,
			Domain:    intent.PendingIntentDomain,
			AmountINR: amount,
			OrderID:   orderID,
		})
	}
	return nil
}

func (p *Processor) handleUnsuccessful(ctx context.Context, intent *model.PendingIntent, outcome CallbackOutcome, reason string) error {
	orderID := intent.PendingIntentOrderID
	err := p.Uow.InTx(ctx, func(s Stores) error {
		if err := s.Intents.DeleteByOrderID(ctx, orderID); err != nil {
			return err
		}
		// no ledger row for unsuccessful gateway attempts
		return s.Bills.ResetByOrderID(ctx, orderID)
	})
	if err != nil {
		return err
	}
	if reason != "" {
		log.Printf("[WEBHOOK] order %s %s (%s), intent cleared", orderID, outcome, reason)
	} else {
		log.Printf("[WEBHOOK] order %s %s, intent cleared", orderID, outcome)
	}
	return nil
}

/* ---------------- event audit ---------------- */

func (p *Processor) recordEvent(ctx context.Context, cb GatewayCallback) uuid.UUID {
	id := uuid.New()
	headers, _ := json.Marshal(cb.Headers)
	payload := cb.RawBody
	if len(payload) == 0 {
		payload, _ = json.Marshal(cb)
	}
	ev := model.PaymentGatewayEvent{
		PaymentGatewayEventID:          id,
		PaymentGatewayEventOrderID:     cb.OrderID,
		PaymentGatewayEventExternalRef: strOrNil(cb.TransactionID),
		PaymentGatewayEventStatusCode:  cb.StatusCode,
		PaymentGatewayEventHeaders:     datatypes.JSON(headers),
		PaymentGatewayEventPayload:     datatypes.JSON(payload),
		PaymentGatewayEventStatus:      model.GatewayEventReceived,
		PaymentGatewayEventCreatedAt:   time.Now(),
	}
	if err := p.Stores.Events.Record(ctx, &ev); err != nil {
		// audit must never block reconciliation
		log.Printf("[WEBHOOK] event audit write failed for order %s: %v", cb.OrderID, err)
	}
	return id
}

func (p *Processor) markEvent(ctx context.Context, id uuid.UUID, status, errMsg string) {
	if err := p.Stores.Events.MarkOutcome(ctx, id, status, errMsg); err != nil {
		log.Printf("[WEBHOOK] event audit update failed: %v", err)
	}
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
