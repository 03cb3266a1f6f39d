package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ==============================================
   MODEL — hostel_students (directory)

   The payment core only reads this table: room
   occupancy for bill splitting and the fee-key
   attributes (course, year, category) for the
   fee-schedule lookup. CRUD lives elsewhere.
============================================== */

type Student struct {
	StudentID uuid.UUID `gorm:"column:student_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`

	StudentName   string `gorm:"column:student_name;type:varchar(120);not null" json:"student_name"`
	StudentRollNo string `gorm:"column:student_roll_no;type:varchar(24);not null;uniqueIndex:uq_student_roll_no" json:"student_roll_no"`

	StudentRoomID *uuid.UUID `gorm:"column:student_room_id;type:uuid;index" json:"student_room_id,omitempty"`

	// Fee-schedule key
	StudentCourse      string `gorm:"column:student_course;type:varchar(40);not null" json:"student_course"`
	StudentYearOfStudy int    `gorm:"column:student_year_of_study;not null" json:"student_year_of_study"`
	StudentCategory    string `gorm:"column:student_category;type:varchar(24);not null" json:"student_category"`

	StudentIsActive bool `gorm:"column:student_is_active;not null;default:true;index" json:"student_is_active"`

	StudentCreatedAt time.Time      `gorm:"column:student_created_at;type:timestamptz;not null;default:now()" json:"student_created_at"`
	StudentUpdatedAt time.Time      `gorm:"column:student_updated_at;type:timestamptz;not null;default:now()" json:"student_updated_at"`
	StudentDeletedAt gorm.DeletedAt `gorm:"column:student_deleted_at;type:timestamptz;index" json:"-"`
}

func (Student) TableName() string { return "hostel_students" }

func (m *Student) BeforeUpdate(tx *gorm.DB) error {
	m.StudentUpdatedAt = time.Now()
	return nil
}
