package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	feesvc "hostelku_backend/internals/features/finance/fees/service"
	"hostelku_backend/internals/features/finance/payments/model"
	roomModel "hostelku_backend/internals/features/hostel/rooms/model"
)

/* =========================================================
   Waterfall planning (pure)
========================================================= */

type TermBalances struct {
	Term1 int
	Term2 int
	Term3 int
}

func (b TermBalances) amount(t model.FeeTerm) int {
	switch t {
	case model.FeeTerm1:
		return b.Term1
	case model.FeeTerm2:
		return b.Term2
	case model.FeeTerm3:
		return b.Term3
	default:
		return 0
	}
}

// PositiveSum is the most a payment can legally allocate.
func (b TermBalances) PositiveSum() int {
	sum := 0
	for _, t := range model.OrderedTerms {
		if v := b.amount(t); v > 0 {
			sum += v
		}
	}
	return sum
}

type TermAllocation struct {
	Term      model.FeeTerm
	AmountINR int
}

// PlanWaterfall fills term1 → term2 → term3 strictly in order.
// Terms with non-positive balance are skipped; no term ever receives
// more than its balance. The second return is the unallocated
// remainder (overpayment past term3).
func PlanWaterfall(amountINR int, balances TermBalances) ([]TermAllocation, int) {
	remaining := amountINR
	var allocs []TermAllocation
	for _, term := range model.OrderedTerms {
		if remaining <= 0 {
			break
		}
		balance := balances.amount(term)
		if balance <= 0 {
			continue
		}
		allocated := remaining
		if balance < allocated {
			allocated = balance
		}
		allocs = append(allocs, TermAllocation{Term: term, AmountINR: allocated})
		remaining -= allocated
	}
	if remaining < 0 {
		remaining = 0
	}
	return allocs, remaining
}

// SplitEqually is the legacy whole-bill share: round(total / occupants),
// half away from zero.
func SplitEqually(totalINR, occupants int) int {
	if occupants <= 0 {
		return totalINR
	}
	return (totalINR + occupants/2) / occupants
}

/* =========================================================
   Allocator

   Writes one ledger row per funded bucket inside the
   caller's transaction. Shared verbatim by the webhook
   path and the admin cash path.
========================================================= */

type Allocator struct {
	Fees      feesvc.ScheduleProvider
	Directory StudentDirectory
}

func NewAllocator(fees feesvc.ScheduleProvider, dir StudentDirectory) *Allocator {
	return &Allocator{Fees: fees, Directory: dir}
}

type HostelFeeAllocation struct {
	StudentID    uuid.UUID
	AcademicYear string
	AmountINR    int

	// Gateway correlation; nil for cash entries.
	OrderID       *string
	GatewayTxnRef *string
	SettlementRef *string

	CollectedBy *uuid.UUID
	CollectMode model.CollectMode
	Note        *string
}

type ElectricityAllocation struct {
	StudentID uuid.UUID
	BillID    uuid.UUID
	AmountINR int

	OrderID       *string
	GatewayTxnRef *string
	SettlementRef *string

	CollectedBy *uuid.UUID
	CollectMode model.CollectMode
	Note        *string
}

// TermBalancesFor recomputes balances on demand: configured fee minus
// the sum of success ledger rows per term. Never persisted.
func (a *Allocator) TermBalancesFor(ctx context.Context, ledger LedgerStore, studentID uuid.UUID, academicYear string) (TermBalances, error) {
	student, err := a.Directory.FindStudent(ctx, studentID)
	if err != nil {
		return TermBalances{}, err
	}
	fees, err := a.Fees.TermFees(ctx, feesvc.ScheduleKey{
		AcademicYear: academicYear,
		Course:       student.StudentCourse,
		YearOfStudy:  student.StudentYearOfStudy,
		Category:     student.StudentCategory,
	})
	if err != nil {
		return TermBalances{}, fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	paid, err := ledger.SuccessTotalsByTerm(ctx, studentID, academicYear)
	if err != nil {
		return TermBalances{}, err
	}
	return TermBalances{
		Term1: fees.Term1 - paid[model.FeeTerm1],
		Term2: fees.Term2 - paid[model.FeeTerm2],
		Term3: fees.Term3 - paid[model.FeeTerm3],
	}, nil
}

// AllocateHostelFee runs the waterfall and writes one success entry per
// funded term, each with its own receipt number and transaction id.
// The gateway correlation keys (unique columns) go on the first row
// only; any remainder past term3 is logged and not attributed.
func (a *Allocator) AllocateHostelFee(ctx context.Context, s Stores, in HostelFeeAllocation) ([]model.LedgerEntry, error) {
	if in.AmountINR <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount", ErrAllocation)
	}
	balances, err := a.TermBalancesFor(ctx, s.Ledger, in.StudentID, in.AcademicYear)
	if err != nil {
		return nil, err
	}
	allocs, remainder := PlanWaterfall(in.AmountINR, balances)
	if remainder > 0 {
		orderID := ""
		if in.OrderID != nil {
			orderID = *in.OrderID
		}
		log.Printf("[ALLOC] overpayment of %d INR past term3 (student=%s year=%s order=%s) left unattributed",
			remainder, in.StudentID, in.AcademicYear, orderID)
	}
	if len(allocs) == 0 {
		return nil, ErrAlreadyPaid
	}

	now := time.Now()
	year := in.AcademicYear
	entries := make([]model.LedgerEntry, 0, len(allocs))
	for i, alloc := range allocs {
		term := alloc.Term
		receipt := newReceiptNo(year)
		txnID := uuid.NewString()

		entry := model.LedgerEntry{
			LedgerEntryDomain:        model.LedgerDomainHostelFee,
			LedgerEntryAmountINR:     alloc.AmountINR,
			LedgerEntryCurrency:      model.CurrencyINR,
			LedgerEntryStatus:        model.LedgerStatusSuccess,
			LedgerEntryStudentID:     in.StudentID,
			LedgerEntryTerm:          &term,
			LedgerEntryAcademicYear:  &year,
			LedgerEntryReceiptNo:     &receipt,
			LedgerEntryTransactionID: &txnID,
			LedgerEntrySettlementRef: in.SettlementRef,
			LedgerEntryCollectedBy:   in.CollectedBy,
			LedgerEntryCollectMode:   in.CollectMode,
			LedgerEntryNote:          in.Note,
			LedgerEntryCreatedAt:     now,
			LedgerEntryPaidAt:        &now,
		}
		if i == 0 {
			entry.LedgerEntryOrderID = in.OrderID
			entry.LedgerEntryGatewayTxnRef = in.GatewayTxnRef
		}
		if err := s.Ledger.Create(ctx, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// AllocateElectricity writes a single success entry for the full paid
// amount, bound to the student's share (or the whole bill for legacy
// unsplit rooms), and denormalizes paid status upward.
func (a *Allocator) AllocateElectricity(ctx context.Context, s Stores, in ElectricityAllocation) (*model.LedgerEntry, error) {
	if in.AmountINR <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount", ErrAllocation)
	}
	bill, err := s.Bills.FindBill(ctx, in.BillID)
	if err != nil {
		return nil, err
	}

	already, err := s.Ledger.HasElectricitySuccess(ctx, in.StudentID, in.BillID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrAlreadyPaid
	}

	now := time.Now()
	snapshot, err := billSnapshot(bill)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}

	entry := model.LedgerEntry{
		LedgerEntryDomain:        model.LedgerDomainElectricity,
		LedgerEntryAmountINR:     in.AmountINR,
		LedgerEntryCurrency:      model.CurrencyINR,
		LedgerEntryStatus:        model.LedgerStatusSuccess,
		LedgerEntryStudentID:     in.StudentID,
		LedgerEntryBillID:        &bill.RoomBillID,
		LedgerEntryRoomID:        &bill.RoomBillRoomID,
		LedgerEntryBillingMonth:  &bill.RoomBillMonth,
		LedgerEntryBillSnapshot:  snapshot,
		LedgerEntryOrderID:       in.OrderID,
		LedgerEntryGatewayTxnRef: in.GatewayTxnRef,
		LedgerEntrySettlementRef: in.SettlementRef,
		LedgerEntryCollectedBy:   in.CollectedBy,
		LedgerEntryCollectMode:   in.CollectMode,
		LedgerEntryNote:          in.Note,
		LedgerEntryCreatedAt:     now,
		LedgerEntryPaidAt:        &now,
	}
	if err := s.Ledger.Create(ctx, &entry); err != nil {
		return nil, err
	}

	if bill.IsSplit() {
		share, err := s.Bills.FindShare(ctx, bill.RoomBillID, in.StudentID)
		if err != nil {
			return nil, fmt.Errorf("%w: no share for student %s on bill %s", ErrAllocation, in.StudentID, bill.RoomBillID)
		}
		if err := s.Bills.SetShareStatus(ctx, share.RoomBillShareID, roomModel.BillStatusPaid, in.OrderID, &now); err != nil {
			return nil, err
		}
		unpaid, err := s.Bills.UnpaidShareCount(ctx, bill.RoomBillID)
		if err != nil {
			return nil, err
		}
		if unpaid == 0 {
			if err := s.Bills.SetBillStatus(ctx, bill.RoomBillID, roomModel.BillStatusPaid, nil, &now); err != nil {
				return nil, err
			}
		}
	} else {
		// legacy pre-split bill: paid as a whole
		if err := s.Bills.SetBillStatus(ctx, bill.RoomBillID, roomModel.BillStatusPaid, in.OrderID, &now); err != nil {
			return nil, err
		}
	}

	return &entry, nil
}

/* =========================================================
   Helpers
========================================================= */

func newReceiptNo(academicYear string) string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	yr := strings.ReplaceAll(academicYear, "-", "")
	return fmt.Sprintf("RCPT-%s-%d%s", yr, time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}

func billSnapshot(bill *roomModel.RoomBill) (datatypes.JSON, error) {
	raw, err := json.Marshal(map[string]any{
		"month":             bill.RoomBillMonth,
		"consumption_units": bill.RoomBillConsumptionUnits,
		"rate_per_unit":     bill.RoomBillRatePerUnit,
		"total_inr":         bill.RoomBillTotalINR,
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
