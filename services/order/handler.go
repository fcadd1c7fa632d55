package order

import (
	"errors"
	"net/http"

	"creatorpay-platform/pkg/config"
	"creatorpay-platform/pkg/errutil"
	"creatorpay-platform/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func registerRoutes(engine *gin.Engine, cfg *config.Config, svc *Service) {
	authed := engine.Group("/orders", middleware.Authenticate(cfg))
	authed.POST("", func(c *gin.Context) {
		caller, ok := middleware.CallerFrom(c)
		if !ok {
			c.Error(errutil.Unauthorized("missing caller identity"))
			return
		}

		var input CreateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.Error(errutil.BadRequest("invalid order payload", errutil.WithErr(err)))
			return
		}

		result, err := svc.Create(c.Request.Context(), caller.UserID, input)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, result)
	})

	// The gateway redirects the buyer's browser here; there is no caller
	// identity to authenticate. The handler re-verifies the payment with the
	// gateway instead of trusting anything in the query string.
	engine.GET("/orders/payment-callback", func(c *gin.Context) {
		orderID := c.Query("orderId")
		if orderID == "" {
			c.Error(errutil.BadRequest("orderId is required"))
			return
		}

		result, err := svc.HandleCallback(c.Request.Context(), orderID)
		if err != nil {
			var be errutil.BaseError
			if errors.As(err, &be) && be.Code == errutil.StatusNotFound && cfg.Gateway.FailureURL != "" {
				c.Redirect(http.StatusFound, cfg.Gateway.FailureURL+"?"+be.URL())
				return
			}
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, result)
	})
}
