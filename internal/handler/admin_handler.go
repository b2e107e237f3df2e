package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stake-ledger/internal/handler/request"
	"stake-ledger/internal/handler/response"
	"stake-ledger/internal/service"
	"stake-ledger/pkg/errno"
)

type AdminHandler struct {
	admin      *service.AdminService
	settlement *service.SettlementService
	sweep      *service.SweepService
}

func NewAdminHandler(admin *service.AdminService, settlement *service.SettlementService, sweep *service.SweepService) *AdminHandler {
	return &AdminHandler{admin: admin, settlement: settlement, sweep: sweep}
}

// AdjustCredits applies a signed manual adjustment to an account.
func (h *AdminHandler) AdjustCredits(c *gin.Context) {
	var req request.AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	if err := h.admin.AdjustCredits(c.Request.Context(), req.AccountID, req.Amount, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"adjusted": true})
}

// ApproveKYC marks an account as KYC-verified.
func (h *AdminHandler) ApproveKYC(c *gin.Context) {
	accountID, err := strconv.ParseUint(c.Param("account_id"), 10, 64)
	if err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	if err := h.admin.ApproveKYC(c.Request.Context(), accountID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"approved": true})
}

// RunSettlement triggers a settlement pass immediately. Safe to call at any
// time: settlement is watermark-idempotent.
func (h *AdminHandler) RunSettlement(c *gin.Context) {
	h.settlement.Run(c.Request.Context(), time.Now())
	response.Success(c, gin.H{"triggered": true})
}

// RunSweep triggers a deposit sweep pass immediately. If a sweep is already
// in flight the trigger is dropped by the service's single-flight guard.
func (h *AdminHandler) RunSweep(c *gin.Context) {
	h.sweep.Run(c.Request.Context())
	response.Success(c, gin.H{"triggered": true})
}
