package controller

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	paymentService "hostelku_backend/internals/features/finance/payments/service"
	"hostelku_backend/internals/features/hostel/rooms/dto"
	"hostelku_backend/internals/features/hostel/rooms/service"
	helper "hostelku_backend/internals/helpers"
	helperAuth "hostelku_backend/internals/helpers/auth"
)

type RoomBillController struct {
	Validator *validator.Validate
	Billing   *service.BillingService
}

func NewRoomBillController(billing *service.BillingService) *RoomBillController {
	return &RoomBillController{
		Validator: validator.New(),
		Billing:   billing,
	}
}

// POST /rooms/:id/bills
func (h *RoomBillController) CreateBill(c *fiber.Ctx) error {
	roomID, err := helperAuth.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid room id")
	}

	var req dto.CreateRoomBillRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	bill, err := h.Billing.CreateMonthlyBill(c.UserContext(), service.CreateBillInput{
		RoomID:           roomID,
		Month:            req.Month,
		ConsumptionUnits: req.ConsumptionUnits,
	})
	if err != nil {
		return billingError(c, err)
	}
	return helper.JsonCreated(c, "bill created", bill)
}

// GET /rooms/:id/bills
func (h *RoomBillController) ListBills(c *fiber.Ctx) error {
	roomID, err := helperAuth.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid room id")
	}
	paging := helper.ResolvePaging(c, 12, 60)

	bills, total, err := h.Billing.ListBills(c.UserContext(), roomID, paging.Limit, paging.Offset)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.JsonList(c, "room bills", bills, helper.BuildPagination(paging, total))
}

// POST /rooms/rates
func (h *RoomBillController) SetRate(c *fiber.Ctx) error {
	adminID := helperAuth.GetUserUUID(c)

	var req dto.SetBillingRateRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	effectiveFrom := time.Time{}
	if req.EffectiveFrom != nil {
		effectiveFrom = *req.EffectiveFrom
	}
	rate, err := h.Billing.SetRate(c.UserContext(), req.RatePerUnit, effectiveFrom, &adminID)
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}
	return helper.JsonCreated(c, "rate updated", rate)
}

// GET /rooms/rates/current
func (h *RoomBillController) CurrentRate(c *fiber.Ctx) error {
	rate, err := h.Billing.EffectiveRate(c.UserContext(), time.Now())
	if err != nil {
		return billingError(c, err)
	}
	return helper.JsonOK(c, "current rate", rate)
}

func billingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrBillExists):
		return helper.JsonError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrBadMonth),
		errors.Is(err, service.ErrNoOccupants),
		errors.Is(err, service.ErrRateNotConfigured):
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, paymentService.ErrNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, err.Error())
	default:
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
}
