package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	paymentService "hostelku_backend/internals/features/finance/payments/service"
	"hostelku_backend/internals/features/hostel/rooms/model"
	studentModel "hostelku_backend/internals/features/hostel/students/model"
)

var (
	ErrRateNotConfigured = errors.New("no billing rate configured")
	ErrBillExists        = errors.New("bill already exists for this room and month")
	ErrNoOccupants       = errors.New("room has no active occupants")
	ErrBadMonth          = errors.New("month must be formatted YYYY-MM")
)

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

/* =======================================================================
   BillingService — monthly electricity bills and the versioned rate
======================================================================= */

type BillingService struct {
	DB *gorm.DB
}

func NewBillingService(db *gorm.DB) *BillingService {
	return &BillingService{DB: db}
}

// EffectiveRate returns the rate row in force at the given instant.
func (s *BillingService) EffectiveRate(ctx context.Context, at time.Time) (*model.BillingRate, error) {
	var rate model.BillingRate
	err := s.DB.WithContext(ctx).
		Where("billing_rate_effective_from <= ?", at).
		Order("billing_rate_effective_from DESC").
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRateNotConfigured
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// SetRate inserts a new rate version. Existing bills keep the rate they
// were computed with.
func (s *BillingService) SetRate(ctx context.Context, perUnit float64, effectiveFrom time.Time, createdBy *uuid.UUID) (*model.BillingRate, error) {
	if perUnit <= 0 {
		return nil, fmt.Errorf("rate per unit must be positive")
	}
	if effectiveFrom.IsZero() {
		effectiveFrom = time.Now()
	}
	rate := model.BillingRate{
		BillingRatePerUnit:       perUnit,
		BillingRateEffectiveFrom: effectiveFrom,
		BillingRateCreatedBy:     createdBy,
	}
	if err := s.DB.WithContext(ctx).Create(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

type CreateBillInput struct {
	RoomID           uuid.UUID
	Month            string // "YYYY-MM"
	ConsumptionUnits float64
}

// CreateMonthlyBill computes the total at the current effective rate and
// splits it equally across the room's active occupants.
func (s *BillingService) CreateMonthlyBill(ctx context.Context, in CreateBillInput) (*model.RoomBill, error) {
	if !monthRe.MatchString(in.Month) {
		return nil, ErrBadMonth
	}
	if in.ConsumptionUnits < 0 {
		return nil, fmt.Errorf("consumption units must not be negative")
	}

	rate, err := s.EffectiveRate(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	totalINR := int(math.Round(in.ConsumptionUnits * rate.BillingRatePerUnit))

	var bill model.RoomBill
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room model.Room
		if err := tx.First(&room, "room_id = ?", in.RoomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return paymentService.ErrNotFound
			}
			return err
		}

		var occupants []studentModel.Student
		if err := tx.
			Where("student_room_id = ? AND student_is_active = TRUE", in.RoomID).
			Find(&occupants).Error; err != nil {
			return err
		}
		if len(occupants) == 0 {
			return ErrNoOccupants
		}

		bill = model.RoomBill{
			RoomBillRoomID:           in.RoomID,
			RoomBillMonth:            in.Month,
			RoomBillConsumptionUnits: in.ConsumptionUnits,
			RoomBillRatePerUnit:      rate.BillingRatePerUnit,
			RoomBillTotalINR:         totalINR,
			RoomBillPaymentStatus:    model.BillStatusUnpaid,
		}
		if err := tx.Create(&bill).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrBillExists
			}
			return err
		}

		shareINR := paymentService.SplitEqually(totalINR, len(occupants))
		shares := make([]model.RoomBillShare, 0, len(occupants))
		for _, st := range occupants {
			shares = append(shares, model.RoomBillShare{
				RoomBillShareBillID:        bill.RoomBillID,
				RoomBillShareStudentID:     st.StudentID,
				RoomBillShareAmountINR:     shareINR,
				RoomBillSharePaymentStatus: model.BillStatusUnpaid,
			})
		}
		if err := tx.Create(&shares).Error; err != nil {
			return err
		}
		bill.RoomBillShares = shares
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (s *BillingService) ListBills(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]model.RoomBill, int64, error) {
	var total int64
	q := s.DB.WithContext(ctx).Model(&model.RoomBill{}).Where("room_bill_room_id = ?", roomID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var bills []model.RoomBill
	err := s.DB.WithContext(ctx).
		Preload("RoomBillShares").
		Where("room_bill_room_id = ?", roomID).
		Order("room_bill_month DESC").
		Limit(limit).Offset(offset).
		Find(&bills).Error
	return bills, total, err
}
