package handler

import (
	"github.com/gin-gonic/gin"

	"stake-ledger/internal/handler/response"
	"stake-ledger/internal/service"
)

type HistoryHandler struct {
	history *service.HistoryService
}

func NewHistoryHandler(history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// Entries lists the caller's credit entries, newest first.
func (h *HistoryHandler) Entries(c *gin.Context) {
	entries, err := h.history.Entries(c.Request.Context(), AccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"entries": entries})
}
