package controller

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"hostelku_backend/internals/features/finance/payments/dto"
	"hostelku_backend/internals/features/finance/payments/model"
	"hostelku_backend/internals/features/finance/payments/service"
	helper "hostelku_backend/internals/helpers"
	helperAuth "hostelku_backend/internals/helpers/auth"
)

/* =======================================================================
   Admin controller — manual collections

   Cash / bank-transfer payments recorded at the hostel office go
   straight to the ledger in success status, through the same
   allocator as the webhook so term filling behaves identically.
======================================================================= */

type AdminPaymentController struct {
	Validator *validator.Validate
	Uow       service.UnitOfWork
	Allocator *service.Allocator
	Notifier  service.SuccessNotifier
}

func NewAdminPaymentController(uow service.UnitOfWork, alloc *service.Allocator, notifier service.SuccessNotifier) *AdminPaymentController {
	return &AdminPaymentController{
		Validator: validator.New(),
		Uow:       uow,
		Allocator: alloc,
		Notifier:  notifier,
	}
}

// POST /payments/manual
func (h *AdminPaymentController) ManualPayment(c *fiber.Ctx) error {
	adminID := helperAuth.GetUserUUID(c)
	if adminID == uuid.Nil {
		return helper.JsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req dto.ManualPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	var entries []model.LedgerEntry

	err := h.Uow.InTx(ctx, func(s service.Stores) error {
		if req.BillID != nil {
			entry, err := h.Allocator.AllocateElectricity(ctx, s, service.ElectricityAllocation{
				StudentID:   req.StudentID,
				BillID:      *req.BillID,
				AmountINR:   req.AmountINR,
				CollectedBy: &adminID,
				CollectMode: model.CollectModeAdmin,
				Note:        req.Note,
			})
			if err != nil {
				return err
			}
			entries = []model.LedgerEntry{*entry}
			return nil
		}
		out, err := h.Allocator.AllocateHostelFee(ctx, s, service.HostelFeeAllocation{
			StudentID:    req.StudentID,
			AcademicYear: *req.AcademicYear,
			AmountINR:    req.AmountINR,
			CollectedBy:  &adminID,
			CollectMode:  model.CollectModeAdmin,
			Note:         req.Note,
		})
		if err != nil {
			return err
		}
		entries = out
		return nil
	})
	if err != nil {
		return jsonServiceError(c, err)
	}

	if h.Notifier != nil {
		domain := model.LedgerDomainHostelFee
		if req.BillID != nil {
			domain = model.LedgerDomainElectricity
		}
		h.Notifier.NotifyPaymentSuccess(ctx, service.SuccessNotification{
			StudentID: req.StudentID,
			Domain:    domain,
			AmountINR: req.AmountINR,
		})
	}
	return helper.JsonCreated(c, "payment recorded", entries)
}
