package middleware

import (
	"errors"
	"net/http"

	"creatorpay-platform/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders errors recorded on the gin context as structured JSON.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if errors.As(err.Err, &be) {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		internal := errutil.Internal("unexpected error").(errutil.BaseError)
		c.JSON(http.StatusInternalServerError, internal.JSON())
	}
}
