package controller

import (
	"errors"

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
   Controller (student-facing payment flow)
======================================================================= */

type PaymentController struct {
	Validator *validator.Validate
	Initiator *service.Initiator
	Verifier  *service.Verifier
	Sweeper   *service.Sweeper
	Stores    service.Stores
	Uow       service.UnitOfWork
}

func NewPaymentController(init *service.Initiator, verifier *service.Verifier, sweeper *service.Sweeper, stores service.Stores, uow service.UnitOfWork) *PaymentController {
	return &PaymentController{
		Validator: validator.New(),
		Initiator: init,
		Verifier:  verifier,
		Sweeper:   sweeper,
		Stores:    stores,
		Uow:       uow,
	}
}

// POST /payments/initiate
func (h *PaymentController) InitiatePayment(c *fiber.Ctx) error {
	studentID := helperAuth.GetUserUUID(c)
	if studentID == uuid.Nil {
		return helper.JsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req dto.InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	var (
		res *service.InitiationResult
		err error
	)
	if req.IsElectricity() {
		res, err = h.Initiator.InitiateElectricityPayment(c.UserContext(), studentID, *req.BillID)
	} else {
		res, err = h.Initiator.InitiateHostelFeePayment(c.UserContext(), studentID, *req.AmountINR, *req.AcademicYear)
	}
	if err != nil {
		return jsonServiceError(c, err)
	}
	return helper.JsonCreated(c, "order created", res)
}

// GET /payments/history
func (h *PaymentController) PaymentHistory(c *fiber.Ctx) error {
	studentID := helperAuth.GetUserUUID(c)
	if studentID == uuid.Nil {
		return helper.JsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	paging := helper.ResolvePaging(c, 20, 100)

	entries, total, err := h.Stores.Ledger.ListByStudent(c.UserContext(), studentID, paging.Limit, paging.Offset)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.JsonList(c, "payment history", entries, helper.BuildPagination(paging, total))
}

// GET /payments/status/:billId
func (h *PaymentController) PaymentStatusByBill(c *fiber.Ctx) error {
	billID, err := uuid.Parse(c.Params("billId"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid bill id")
	}
	bill, err := h.Stores.Bills.FindBill(c.UserContext(), billID)
	if err != nil {
		return jsonServiceError(c, err)
	}
	entries, err := h.Stores.Ledger.ListByBill(c.UserContext(), billID)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.JsonOK(c, "bill payment status", fiber.Map{
		"bill":           bill,
		"ledger_entries": entries,
	})
}

// POST /payments/verify/:id — id is a ledger entry id or a raw order id
func (h *PaymentController) VerifyPayment(c *fiber.Ctx) error {
	param := c.Params("id")

	orderID := param
	if id, err := uuid.Parse(param); err == nil {
		resolved, err := h.Verifier.OrderIDForLedger(c.UserContext(), id.String())
		if err != nil {
			return jsonServiceError(c, err)
		}
		orderID = resolved
	}

	res, err := h.Verifier.VerifyOrder(c.UserContext(), orderID)
	if err != nil {
		return jsonServiceError(c, err)
	}
	return helper.JsonOK(c, "verified against gateway", res)
}

// DELETE /payments/cancel/:id — cancels a still-pending entry/intent
func (h *PaymentController) CancelPayment(c *fiber.Ctx) error {
	param := c.Params("id")
	ctx := c.UserContext()

	// ledger id path (legacy pending rows)
	if id, err := uuid.Parse(param); err == nil {
		entry, err := h.Stores.Ledger.FindByID(ctx, id)
		if err != nil {
			return jsonServiceError(c, err)
		}
		if entry.LedgerEntryStatus.IsTerminal() {
			return helper.JsonError(c, fiber.StatusConflict, "entry is already terminal")
		}
		err = h.Uow.InTx(ctx, func(s service.Stores) error {
			if err := s.Ledger.UpdateStatus(ctx, entry.LedgerEntryID, model.LedgerStatusCancelled, nil); err != nil {
				return err
			}
			if entry.LedgerEntryOrderID != nil {
				if err := s.Intents.DeleteByOrderID(ctx, *entry.LedgerEntryOrderID); err != nil {
					return err
				}
				return s.Bills.ResetByOrderID(ctx, *entry.LedgerEntryOrderID)
			}
			return nil
		})
		if err != nil {
			return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
		}
		return helper.JsonDeleted(c, "payment cancelled", fiber.Map{"ledger_entry_id": entry.LedgerEntryID})
	}

	// order id path (open intent)
	if _, err := h.Stores.Intents.FindByOrderID(ctx, param); err != nil {
		return jsonServiceError(c, err)
	}
	err := h.Uow.InTx(ctx, func(s service.Stores) error {
		if err := s.Intents.DeleteByOrderID(ctx, param); err != nil {
			return err
		}
		return s.Bills.ResetByOrderID(ctx, param)
	})
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.JsonDeleted(c, "payment cancelled", fiber.Map{"order_id": param})
}

// POST /payments/cleanup-expired
func (h *PaymentController) CleanupExpired(c *fiber.Ctx) error {
	report, err := h.Sweeper.SweepExpired(c.UserContext())
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.JsonOK(c, "sweep complete", report)
}

/* =======================================================================
   Error mapping
======================================================================= */

func jsonServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrAlreadyPaid):
		return helper.JsonError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrDuplicateInFlight):
		return helper.JsonError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAmountExceedsDue):
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrGatewayUnavailable):
		return helper.JsonError(c, fiber.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrAllocation):
		return helper.JsonError(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
}
