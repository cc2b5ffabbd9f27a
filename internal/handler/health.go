package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/database"
)

const serviceName = "helpdesk-service"

// Gate сообщает, доступна ли база.
type Gate interface {
	Connected() bool
}

// SchemaDescriber отдаёт справочное число строк для APIHealth.
type SchemaDescriber interface {
	DescribeSchema(ctx context.Context) *database.SchemaStats
}

type HealthHandler struct {
	gate   Gate
	schema SchemaDescriber
}

func NewHealthHandler(gate Gate, schema SchemaDescriber) *HealthHandler {
	return &HealthHandler{gate: gate, schema: schema}
}

// APIHealth всегда отвечает 200 и сообщает состояние gate.
func (h *HealthHandler) APIHealth(c *gin.Context) {
	connected := h.gate.Connected()
	body := gin.H{
		"status":         "OK",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"database":       databaseState(connected),
		"databaseStatus": connected,
	}
	if connected && h.schema != nil {
		if st := h.schema.DescribeSchema(c.Request.Context()); st != nil {
			body["schema"] = st
		}
	}
	c.JSON(http.StatusOK, body)
}

// Health: liveness-проверка.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"time":    time.Now().Unix(),
	})
}

// Ready отвечает 503, пока gate базы закрыт.
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.gate.Connected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "database": databaseState(false)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func databaseState(connected bool) string {
	if connected {
		return "connected"
	}
	return "disconnected"
}
