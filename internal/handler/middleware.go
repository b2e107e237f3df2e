package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stake-ledger/internal/handler/response"
	"stake-ledger/internal/ledger"
	"stake-ledger/pkg/errno"
)

const ctxAccountID = "account_id"

// Identity resolves the authenticated account id. Credential verification is
// owned by the upstream gateway; this trusts the identity header it injects.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Account-ID")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid identity"})
			return
		}
		c.Set(ctxAccountID, id)
		c.Next()
	}
}

// AccountID returns the authenticated account id set by Identity.
func AccountID(c *gin.Context) uint64 {
	return c.GetUint64(ctxAccountID)
}

// AdminOnly rejects non-admin accounts.
func AdminOnly(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := store.Load(c.Request.Context(), AccountID(c))
		if err != nil {
			response.Error(c, errno.ErrAccountNotFound)
			c.Abort()
			return
		}
		if !account.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}
