package controller

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"hostelku_backend/internals/features/finance/payments/service"
	helper "hostelku_backend/internals/helpers"
)

/* =======================================================================
   Webhook

   Signature verification is the only authentication on this path and
   it fails closed: a missing, stale or wrong signature returns 401
   before anything is read from or written to the database.
======================================================================= */

type WebhookController struct {
	Processor *service.Processor
	Secret    string
}

func NewWebhookController(proc *service.Processor, secret string) *WebhookController {
	return &WebhookController{Processor: proc, Secret: secret}
}

// POST /payments/webhook
func (h *WebhookController) GatewayWebhook(c *fiber.Ctx) error {
	raw := c.Body()
	ts := c.Get(service.HeaderTimestamp)
	sig := c.Get(service.HeaderSignature)

	if err := service.VerifyCallback(h.Secret, raw, ts, sig, time.Now()); err != nil {
		log.Printf("[WEBHOOK] rejected callback: %v", err)
		return helper.JsonError(c, fiber.StatusUnauthorized, "invalid signature")
	}

	var cb service.GatewayCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid payload: "+err.Error())
	}
	if cb.OrderID == "" || cb.StatusCode == "" {
		return helper.JsonError(c, fiber.StatusBadRequest, "order_id and status are required")
	}

	headers := map[string]string{}
	for k, v := range c.GetReqHeaders() {
		headers[k] = joinHeader(v)
	}
	cb.Headers = headers
	cb.RawBody = append([]byte(nil), raw...)

	decision, err := h.Processor.ProcessCallback(c.UserContext(), cb)
	if err != nil {
		// decision not persisted: let the gateway redeliver
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	// 200 once a decision is recorded, duplicates included, so the
	// gateway stops redelivering
	return helper.JsonOK(c, "ok", fiber.Map{
		"order_id": cb.OrderID,
		"decision": decision,
	})
}

func joinHeader(v []string) string {
	switch len(v) {
	case 0:
		return ""
	case 1:
		return v[0]
	default:
		out := v[0]
		for _, s := range v[1:] {
			out += "," + s
		}
		return out
	}
}
