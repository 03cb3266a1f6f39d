package model

/* ===================== Enums (string) ===================== */
/* Match the ENUMs in PostgreSQL:
   ledger_entry_domain, ledger_entry_status, ledger_entry_collect_mode
*/

type LedgerDomain string

const (
	LedgerDomainElectricity    LedgerDomain = "electricity"
	LedgerDomainHostelFee      LedgerDomain = "hostel_fee"
	LedgerDomainCautionDeposit LedgerDomain = "caution_deposit"
	LedgerDomainAdditionalFee  LedgerDomain = "additional_fee"
)

type LedgerStatus string

const (
	LedgerStatusPending   LedgerStatus = "pending"
	LedgerStatusSuccess   LedgerStatus = "success"
	LedgerStatusFailed    LedgerStatus = "failed"
	LedgerStatusCancelled LedgerStatus = "cancelled"
)

// Terminal: immutable once reached.
func (s LedgerStatus) IsTerminal() bool {
	switch s {
	case LedgerStatusSuccess, LedgerStatusFailed, LedgerStatusCancelled:
		return true
	default:
		return false
	}
}

type CollectMode string

const (
	CollectModeSelf  CollectMode = "self"  // student via gateway
	CollectModeAdmin CollectMode = "admin" // recorded by an administrator
)

type FeeTerm string

const (
	FeeTerm1 FeeTerm = "term1"
	FeeTerm2 FeeTerm = "term2"
	FeeTerm3 FeeTerm = "term3"
)

// OrderedTerms is the waterfall order; allocation always fills term1 first.
var OrderedTerms = []FeeTerm{FeeTerm1, FeeTerm2, FeeTerm3}

const CurrencyINR = "INR"
