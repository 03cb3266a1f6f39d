package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ==============================================
   MODEL — hostel_rooms
============================================== */

type Room struct {
	RoomID uuid.UUID `gorm:"column:room_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`

	RoomNumber   string `gorm:"column:room_number;type:varchar(16);not null;uniqueIndex:uq_room_block_number,priority:2" json:"room_number"`
	RoomBlock    string `gorm:"column:room_block;type:varchar(16);not null;uniqueIndex:uq_room_block_number,priority:1" json:"room_block"`
	RoomCapacity int    `gorm:"column:room_capacity;not null;default:3" json:"room_capacity"`

	RoomIsActive bool `gorm:"column:room_is_active;not null;default:true;index" json:"room_is_active"`

	RoomCreatedAt time.Time      `gorm:"column:room_created_at;type:timestamptz;not null;default:now()" json:"room_created_at"`
	RoomUpdatedAt time.Time      `gorm:"column:room_updated_at;type:timestamptz;not null;default:now()" json:"room_updated_at"`
	RoomDeletedAt gorm.DeletedAt `gorm:"column:room_deleted_at;type:timestamptz;index" json:"-"`
}

func (Room) TableName() string { return "hostel_rooms" }

func (m *Room) BeforeUpdate(tx *gorm.DB) error {
	m.RoomUpdatedAt = time.Now()
	return nil
}
