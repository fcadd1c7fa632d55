package withdrawal

import (
	"net/http"

	"creatorpay-platform/pkg/auth"
	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/errutil"
	"creatorpay-platform/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type createRequest struct {
	Amount          int64  `json:"amount" binding:"required"`
	PaymentMethodID string `json:"payment_method_id"`
}

type reviewRequest struct {
	Notes          string `json:"notes"`
	GatewayDetails string `json:"gateway_details"`
}

func registerRoutes(engine *gin.Engine, cfg *config.Config, svc *Service) {
	authed := engine.Group("/wallet", middleware.Authenticate(cfg))

	authed.POST("/withdraw", func(c *gin.Context) {
		caller, ok := middleware.CallerFrom(c)
		if !ok {
			c.Error(errutil.Unauthorized("missing caller identity"))
			return
		}

		var input createRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.Error(errutil.BadRequest("invalid withdrawal payload", errutil.WithErr(err)))
			return
		}

		record, err := svc.Create(c.Request.Context(), caller.UserID, input.Amount, input.PaymentMethodID)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, record)
	})

	authed.GET("/withdrawals", func(c *gin.Context) {
		caller, ok := middleware.CallerFrom(c)
		if !ok {
			c.Error(errutil.Unauthorized("missing caller identity"))
			return
		}

		records, err := svc.List(c.Request.Context(), caller.UserID)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": records})
	})

	authed.POST("/withdrawals/:id/cancel", func(c *gin.Context) {
		caller, ok := middleware.CallerFrom(c)
		if !ok {
			c.Error(errutil.Unauthorized("missing caller identity"))
			return
		}

		record, err := svc.Cancel(c.Request.Context(), c.Param("id"), caller)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, record)
	})

	admin := engine.Group("/admin/withdrawals",
		middleware.Authenticate(cfg),
		middleware.RequireRole(auth.RoleAdmin),
	)

	admin.GET("", func(c *gin.Context) {
		records, err := svc.ListAll(c.Request.Context())
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": records})
	})

	admin.POST("/:id/approve", func(c *gin.Context) {
		caller, _ := middleware.CallerFrom(c)

		// Body is optional for approvals.
		var input reviewRequest
		_ = c.ShouldBindJSON(&input)

		record, err := svc.Approve(c.Request.Context(), c.Param("id"), caller.UserID, input.GatewayDetails)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, record)
	})

	admin.POST("/:id/reject", func(c *gin.Context) {
		caller, _ := middleware.CallerFrom(c)

		var input reviewRequest
		_ = c.ShouldBindJSON(&input)

		record, err := svc.Reject(c.Request.Context(), c.Param("id"), caller.UserID, input.Notes)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, record)
	})
}
