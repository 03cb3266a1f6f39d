package dto

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

/* =========================================================
   Requests
========================================================= */

// InitiatePaymentRequest targets exactly one of:
//   - electricity: bill_id (+ room_id for sanity)
//   - hostel fee:  amount_inr + academic_year
type InitiatePaymentRequest struct {
	BillID *uuid.UUID `json:"bill_id" validate:"omitempty"`
	RoomID *uuid.UUID `json:"room_id" validate:"omitempty"`

	AmountINR    *int    `json:"amount_inr" validate:"omitempty,gt=0"`
	AcademicYear *string `json:"academic_year" validate:"omitempty,len=7"`
}

func (r *InitiatePaymentRequest) IsElectricity() bool { return r.BillID != nil }

// Validate enforces the XOR between the two target shapes.
func (r *InitiatePaymentRequest) Validate() error {
	elec := r.BillID != nil
	fee := r.AmountINR != nil || r.AcademicYear != nil
	if elec == fee {
		return errors.New("provide either bill_id or amount_inr + academic_year")
	}
	if fee && (r.AmountINR == nil || r.AcademicYear == nil) {
		return errors.New("hostel fee payment needs both amount_inr and academic_year")
	}
	if fee && strings.TrimSpace(*r.AcademicYear) == "" {
		return errors.New("academic_year must not be empty")
	}
	return nil
}

// ManualPaymentRequest is the administrator cash/manual entry. It goes
// through the same allocator as the gateway path.
type ManualPaymentRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`

	BillID *uuid.UUID `json:"bill_id" validate:"omitempty"`

	AmountINR    int     `json:"amount_inr" validate:"required,gt=0"`
	AcademicYear *string `json:"academic_year" validate:"omitempty,len=7"`

	Note *string `json:"note" validate:"omitempty,max=500"`
}

func (r *ManualPaymentRequest) Validate() error {
	elec := r.BillID != nil
	fee := r.AcademicYear != nil
	if elec == fee {
		return errors.New("provide either bill_id or academic_year")
	}
	return nil
}
