package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
)

// Gate сообщает, доступна ли база.
type Gate interface {
	Connected() bool
}

// RequireDatabase отвечает 503, не обращаясь к базе, пока gate закрыт.
func RequireDatabase(gate Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !gate.Connected() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "service temporarily unavailable",
				"message": errs.ErrDatabaseUnavailable.Error(),
			})
			return
		}
		c.Next()
	}
}
