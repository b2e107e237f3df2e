package handler

import (
	"github.com/gin-gonic/gin"

	"stake-ledger/internal/handler/request"
	"stake-ledger/internal/handler/response"
	"stake-ledger/internal/service"
	"stake-ledger/pkg/errno"
)

type WithdrawHandler struct {
	withdraw *service.WithdrawService
}

func NewWithdrawHandler(withdraw *service.WithdrawService) *WithdrawHandler {
	return &WithdrawHandler{withdraw: withdraw}
}

// Balance reports the withdrawable balance.
func (h *WithdrawHandler) Balance(c *gin.Context) {
	report, err := h.withdraw.Balance(c.Request.Context(), AccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// Request accepts a withdrawal request. The debit is immediate; settlement
// happens out of band.
func (h *WithdrawHandler) Request(c *gin.Context) {
	var req request.CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}

	withdrawal, err := h.withdraw.RequestWithdrawal(c.Request.Context(), AccountID(c), req.Amount, req.ToAddress)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"withdrawal": withdrawal})
}

// History lists the account's withdrawal requests, newest first.
func (h *WithdrawHandler) History(c *gin.Context) {
	withdrawals, err := h.withdraw.History(c.Request.Context(), AccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"withdrawals": withdrawals})
}
