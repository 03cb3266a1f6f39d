package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"hostelku_backend/internals/features/finance/fees/model"
)

/* =========================================================
   Fee Schedule Provider

   Leaf collaborator of the payment core: given the fee key
   of a student, returns the amount owed per term. The core
   never writes here.
========================================================= */

var ErrScheduleNotFound = errors.New("fee structure not found for key")

type ScheduleKey struct {
	AcademicYear string
	Course       string
	YearOfStudy  int
	Category     string
}

type TermFees struct {
	Term1 int
	Term2 int
	Term3 int
}

// Amount returns the configured fee for "term1" | "term2" | "term3".
func (f TermFees) Amount(term string) int {
	switch term {
	case "term1":
		return f.Term1
	case "term2":
		return f.Term2
	case "term3":
		return f.Term3
	default:
		return 0
	}
}

func (f TermFees) Total() int { return f.Term1 + f.Term2 + f.Term3 }

type ScheduleProvider interface {
	TermFees(ctx context.Context, key ScheduleKey) (TermFees, error)
}

/* =========================================================
   GORM implementation
========================================================= */

type GormScheduleProvider struct {
	DB *gorm.DB
}

func NewGormScheduleProvider(db *gorm.DB) *GormScheduleProvider {
	return &GormScheduleProvider{DB: db}
}

func (p *GormScheduleProvider) TermFees(ctx context.Context, key ScheduleKey) (TermFees, error) {
	var fs model.FeeStructure
	err := p.DB.WithContext(ctx).
		Where(
			"fee_structure_academic_year = ? AND fee_structure_course = ? AND fee_structure_year_of_study = ? AND fee_structure_category = ?",
			key.AcademicYear, key.Course, key.YearOfStudy, key.Category,
		).
		Take(&fs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TermFees{}, ErrScheduleNotFound
		}
		return TermFees{}, err
	}
	return TermFees{
		Term1: fs.FeeStructureTerm1INR,
		Term2: fs.FeeStructureTerm2INR,
		Term3: fs.FeeStructureTerm3INR,
	}, nil
}
