package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
)

/* =========================================================
   Reconciliation / Verification

   On-demand repair for a missed callback: re-query the
   gateway for the order's current status and push the
   answer through the exact same state machine the webhook
   uses.
========================================================= */

type Verifier struct {
	Gateway   GatewayAPI
	Processor *Processor
	Stores    Stores
}

func NewVerifier(gw GatewayAPI, proc *Processor, stores Stores) *Verifier {
	return &Verifier{Gateway: gw, Processor: proc, Stores: stores}
}

type VerifyResult struct {
	OrderID       string   `json:"order_id"`
	GatewayStatus string   `json:"gateway_status"`
	Decision      Decision `json:"decision"`
}

// VerifyOrder accepts a gateway order id taken from a ledger row, a
// pending intent, or a bill.
func (v *Verifier) VerifyOrder(ctx context.Context, orderID string) (*VerifyResult, error) {
	status, err := v.Gateway.FetchOrderStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}

	decision, err := v.Processor.ProcessCallback(ctx, GatewayCallback{
		OrderID:       status.OrderID,
		StatusCode:    status.StatusCode,
		TransactionID: status.TransactionID,
		SettlementRef: status.SettlementRef,
		AmountINR:     status.AmountINR,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[VERIFY] order %s re-queried: gateway=%s decision=%s", orderID, status.StatusCode, decision)
	return &VerifyResult{
		OrderID:       orderID,
		GatewayStatus: status.StatusCode,
		Decision:      decision,
	}, nil
}

// OrderIDForLedger resolves the order id behind a ledger row so admins
// can verify by ledger id.
func (v *Verifier) OrderIDForLedger(ctx context.Context, ledgerID string) (string, error) {
	id, err := parseUUID(ledgerID)
	if err != nil {
		return "", err
	}
	entry, err := v.Stores.Ledger.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if entry.LedgerEntryOrderID == nil {
		return "", errors.New("ledger entry has no gateway order id")
	}
	return *entry.LedgerEntryOrderID, nil
}

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", ErrNotFound, s)
	}
	return id, nil
}
