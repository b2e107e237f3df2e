package handler

import (
	"github.com/gin-gonic/gin"

	"stake-ledger/internal/handler/request"
	"stake-ledger/internal/handler/response"
	"stake-ledger/internal/service"
	"stake-ledger/pkg/errno"
)

type StakingHandler struct {
	staking *service.StakingService
}

func NewStakingHandler(staking *service.StakingService) *StakingHandler {
	return &StakingHandler{staking: staking}
}

// Plans lists the static staking plan catalog.
func (h *StakingHandler) Plans(c *gin.Context) {
	response.Success(c, gin.H{"plans": service.StakingPlans})
}

// OpenStake locks credits into a fixed-term plan.
func (h *StakingHandler) OpenStake(c *gin.Context) {
	var req request.OpenStakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	stake, err := h.staking.OpenStake(c.Request.Context(), AccountID(c), req.PlanID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"stake": stake})
}

// Status returns credits plus all stakes for the account.
func (h *StakingHandler) Status(c *gin.Context) {
	credits, stakes, err := h.staking.Status(c.Request.Context(), AccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"credits": credits,
		"stakes":  stakes,
	})
}
