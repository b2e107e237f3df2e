package request

import "github.com/shopspring/decimal"

type AdjustCreditsRequest struct {
	AccountID uint64          `json:"account_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reason    string          `json:"reason" binding:"required"`
}
