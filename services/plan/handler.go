package plan

import (
	"net/http"
	"time"

	"creatorpay-platform/pkg/auth"
	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/errutil"
	"creatorpay-platform/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func registerRoutes(engine *gin.Engine, cfg *config.Config, svc *Service) {
	admin := engine.Group("/admin/plans",
		middleware.Authenticate(cfg),
		middleware.RequireRole(auth.RoleAdmin),
	)

	admin.POST("", func(c *gin.Context) {
		var input CreatePlanInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.Error(errutil.BadRequest("invalid plan payload", errutil.WithErr(err)))
			return
		}

		record, err := svc.CreatePlan(c.Request.Context(), input)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, record)
	})

	admin.PATCH("/:id", func(c *gin.Context) {
		var input UpdatePlanInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.Error(errutil.BadRequest("invalid plan payload", errutil.WithErr(err)))
			return
		}

		record, err := svc.UpdatePlan(c.Request.Context(), c.Param("id"), input)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, record)
	})

	admin.POST("/:id/default", func(c *gin.Context) {
		if err := svc.SetDefault(c.Request.Context(), c.Param("id")); err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	admin.POST("/sellers/:sellerId/subscriptions", func(c *gin.Context) {
		var input SubscribeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.Error(errutil.BadRequest("invalid subscription payload", errutil.WithErr(err)))
			return
		}

		endsAt, err := time.Parse(time.RFC3339, input.EndsAt)
		if err != nil {
			c.Error(errutil.ValidationFailed("ends_at must be RFC3339", errutil.WithErr(err)))
			return
		}

		sub, err := svc.Subscribe(c.Request.Context(), c.Param("sellerId"), input.PlanID, endsAt, input.FeeOverride)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, sub)
	})
}
