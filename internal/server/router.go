package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stake-ledger/internal/handler"
	"stake-ledger/internal/ledger"
	"stake-ledger/pkg/monitor"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health   *handler.HealthHandler
	Staking  *handler.StakingHandler
	Withdraw *handler.WithdrawHandler
	History  *handler.HistoryHandler
	Referral *handler.ReferralHandler
	Admin    *handler.AdminHandler
	Store    *ledger.Store
}

// NewHTTPRouter builds the Gin engine with all routes registered.
func NewHTTPRouter(h Handlers) *gin.Engine {
	// Engine with default middleware (Logger, Recovery).
	r := gin.Default()

	r.Use(monitor.PrometheusMiddleware())

	r.GET("/health", h.Health.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(handler.Identity())
	{
		staking := api.Group("/staking")
		{
			staking.GET("/plans", h.Staking.Plans)
			staking.POST("/stakes", h.Staking.OpenStake)
			staking.GET("/status", h.Staking.Status)
		}

		withdraw := api.Group("/withdrawals")
		{
			withdraw.GET("/balance", h.Withdraw.Balance)
			withdraw.POST("", h.Withdraw.Request)
			withdraw.GET("", h.Withdraw.History)
		}

		api.GET("/history", h.History.Entries)

		referral := api.Group("/referral")
		{
			referral.GET("/code", h.Referral.Code)
			referral.GET("/stats", h.Referral.Stats)
		}

		admin := api.Group("/admin")
		admin.Use(handler.AdminOnly(h.Store))
		{
			admin.POST("/credits/adjust", h.Admin.AdjustCredits)
			admin.POST("/kyc/:account_id/approve", h.Admin.ApproveKYC)
			admin.POST("/settlement/run", h.Admin.RunSettlement)
			admin.POST("/sweep/run", h.Admin.RunSweep)
		}
	}

	return r
}
