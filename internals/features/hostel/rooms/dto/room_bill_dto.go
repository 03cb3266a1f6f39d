package dto

import "time"

type CreateRoomBillRequest struct {
	Month            string  `json:"month" validate:"required,len=7"`
	ConsumptionUnits float64 `json:"consumption_units" validate:"gte=0"`
}

type SetBillingRateRequest struct {
	RatePerUnit   float64    `json:"rate_per_unit" validate:"required,gt=0"`
	EffectiveFrom *time.Time `json:"effective_from" validate:"omitempty"`
}
