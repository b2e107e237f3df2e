package handler

import (
	"github.com/gin-gonic/gin"

	"stake-ledger/internal/handler/response"
	"stake-ledger/internal/service"
)

type ReferralHandler struct {
	referral *service.ReferralService
}

func NewReferralHandler(referral *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referral: referral}
}

// Code returns the caller's referral code, generating one on first use.
func (h *ReferralHandler) Code(c *gin.Context) {
	code, earnings, err := h.referral.Code(c.Request.Context(), AccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"referral_code":     code,
		"referral_earnings": earnings,
	})
}

// Stats returns referral counters for the caller.
func (h *ReferralHandler) Stats(c *gin.Context) {
	stats, err := h.referral.Stats(c.Request.Context(), AccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
