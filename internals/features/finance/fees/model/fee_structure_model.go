package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ==============================================
   MODEL — fee_structures

   One row per (academic year, course, year of
   study, category) with the three term amounts.
   Read-only for the payment core.
============================================== */

type FeeStructure struct {
	FeeStructureID uuid.UUID `gorm:"column:fee_structure_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"fee_structure_id"`

	FeeStructureAcademicYear string `gorm:"column:fee_structure_academic_year;type:varchar(10);not null;uniqueIndex:uq_fee_structure_key,priority:1" json:"fee_structure_academic_year"`
	FeeStructureCourse       string `gorm:"column:fee_structure_course;type:varchar(40);not null;uniqueIndex:uq_fee_structure_key,priority:2" json:"fee_structure_course"`
	FeeStructureYearOfStudy  int    `gorm:"column:fee_structure_year_of_study;not null;uniqueIndex:uq_fee_structure_key,priority:3" json:"fee_structure_year_of_study"`
	FeeStructureCategory     string `gorm:"column:fee_structure_category;type:varchar(24);not null;uniqueIndex:uq_fee_structure_key,priority:4" json:"fee_structure_category"`

	FeeStructureTerm1INR int `gorm:"column:fee_structure_term1_inr;not null;check:fee_structure_term1_inr >= 0" json:"fee_structure_term1_inr"`
	FeeStructureTerm2INR int `gorm:"column:fee_structure_term2_inr;not null;check:fee_structure_term2_inr >= 0" json:"fee_structure_term2_inr"`
	FeeStructureTerm3INR int `gorm:"column:fee_structure_term3_inr;not null;check:fee_structure_term3_inr >= 0" json:"fee_structure_term3_inr"`

	FeeStructureCreatedAt time.Time      `gorm:"column:fee_structure_created_at;type:timestamptz;not null;default:now()" json:"fee_structure_created_at"`
	FeeStructureUpdatedAt time.Time      `gorm:"column:fee_structure_updated_at;type:timestamptz;not null;default:now()" json:"fee_structure_updated_at"`
	FeeStructureDeletedAt gorm.DeletedAt `gorm:"column:fee_structure_deleted_at;type:timestamptz;index" json:"-"`
}

func (FeeStructure) TableName() string { return "fee_structures" }

func (m *FeeStructure) BeforeUpdate(tx *gorm.DB) error {
	m.FeeStructureUpdatedAt = time.Now()
	return nil
}

// TermAmount returns the configured amount for a term name
// ("term1" | "term2" | "term3"); unknown terms return 0.
func (m *FeeStructure) TermAmount(term string) int {
	switch term {
	case "term1":
		return m.FeeStructureTerm1INR
	case "term2":
		return m.FeeStructureTerm2INR
	case "term3":
		return m.FeeStructureTerm3INR
	default:
		return 0
	}
}
