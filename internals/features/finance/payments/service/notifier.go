package service

import (
	"context"
	"log"

	"github.com/google/uuid"

	"hostelku_backend/internals/features/finance/payments/model"
)

/* =========================================================
   Success notification collaborator

   Delivery (push/email/SMS) lives outside this core; the
   processor only invokes the interface after an allocation
   has committed.
========================================================= */

type SuccessNotification struct {
	StudentID uuid.UUID
	Domain    model.LedgerDomain
	AmountINR int
	OrderID   string
}

type SuccessNotifier interface {
	NotifyPaymentSuccess(ctx context.Context, n SuccessNotification)
}

// LogNotifier is the default sink when no delivery service is wired.
type LogNotifier struct{}

func (LogNotifier) NotifyPaymentSuccess(ctx context.Context, n SuccessNotification) {
	log.Printf("[NOTIFY] payment success: student=%s domain=%s amount=%d order=%s",
		n.StudentID, n.Domain, n.AmountINR, n.OrderID)
}
