package service

import "errors"

/* =========================================================
   Error taxonomy

   Controllers map these to HTTP codes; services never
   swallow them. The only intentional non-error is the
   idempotent webhook no-op (DecisionIgnored).
========================================================= */

var (
	// Target already settled; no order is created.
	ErrAlreadyPaid = errors.New("target already paid")

	// An open pending intent exists for the same (student, target).
	ErrDuplicateInFlight = errors.New("a payment for this target is already in flight")

	// Webhook signature missing/invalid; callback rejected before any processing.
	ErrSignatureInvalid = errors.New("invalid gateway signature")

	// Outbound gateway call failed; no local state was changed.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// Requested hostel-fee amount exceeds the sum of positive term balances.
	ErrAmountExceedsDue = errors.New("amount exceeds outstanding balance")

	// Fee schedule missing or balances inconsistent; allocation abandoned.
	ErrAllocation = errors.New("allocation failed")

	// Lookup miss (ledger row, bill, intent, student).
	ErrNotFound = errors.New("record not found")
)
