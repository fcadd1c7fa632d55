package wallet

import (
	"net/http"

	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/errutil"
	"creatorpay-platform/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type balancesResponse struct {
	TotalBalance        int64 `json:"total_balance"`
	WithdrawableBalance int64 `json:"withdrawable_balance"`
	PendingBalance      int64 `json:"pending_balance"`
	TotalEarnings       int64 `json:"total_earnings"`
	TotalCharges        int64 `json:"total_charges"`
	TotalWithdrawn      int64 `json:"total_withdrawn"`
}

func registerRoutes(engine *gin.Engine, cfg *config.Config, svc *Service) {
	authed := engine.Group("/wallet", middleware.Authenticate(cfg))
	authed.GET("", func(c *gin.Context) {
		caller, ok := middleware.CallerFrom(c)
		if !ok {
			c.Error(errutil.Unauthorized("missing caller identity"))
			return
		}

		w, err := svc.GetBySeller(c.Request.Context(), caller.UserID)
		if err != nil {
			c.Error(errutil.Internal("failed to load wallet", errutil.WithErr(err)))
			return
		}

		// A seller without a wallet simply has zero balances.
		resp := balancesResponse{}
		if w != nil {
			resp = balancesResponse{
				TotalBalance:        w.TotalBalance,
				WithdrawableBalance: w.WithdrawableBalance,
				PendingBalance:      w.PendingBalance,
				TotalEarnings:       w.TotalEarnings,
				TotalCharges:        w.TotalCharges,
				TotalWithdrawn:      w.TotalWithdrawn,
			}
		}

		c.JSON(http.StatusOK, resp)
	})
}
