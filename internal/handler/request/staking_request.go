package request

import "github.com/shopspring/decimal"

type OpenStakeRequest struct {
	PlanID string          `json:"plan_id" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}
