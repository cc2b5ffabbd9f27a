package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

const eventTimeout = 5 * time.Second

type TicketHandler struct {
	svc    service.TicketServicer
	events kafka.TicketEventProducer
	log    *slog.Logger
}

func NewTicketHandler(svc service.TicketServicer, events kafka.TicketEventProducer, log *slog.Logger) *TicketHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TicketHandler{svc: svc, events: events, log: log.With("component", "tickets")}
}

// maxTicketIDBits: id хранится в SERIAL (int4), больший id заведомо не существует.
const maxTicketIDBits = 31

// createTicketRequest: priority и requester декодируются как RawMessage, чтобы
// нестроковое значение не ломало разбор тела.
type createTicketRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Requester   json.RawMessage `json:"requester"`
	Priority    json.RawMessage `json:"priority"`
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "title and description are required")
		return
	}
	title, description := strings.TrimSpace(req.Title), strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		badRequest(c, "title and description are required")
		return
	}
	requester, ok := optionalString(req.Requester)
	if !ok {
		badRequest(c, "requester must be a string")
		return
	}

	t := &model.Ticket{
		Title:       title,
		Description: description,
		Requester:   requester,
		Priority:    priorityOrDefault(req.Priority),
	}
	if err := h.svc.Create(c.Request.Context(), t); err != nil {
		h.internalError(c, "create ticket", err)
		return
	}
	h.publish(kafka.EventTicketCreated, t.ID, map[string]any{
		"title":    t.Title,
		"priority": string(t.Priority),
		"status":   string(t.Status),
	})
	c.JSON(http.StatusCreated, gin.H{"id": t.ID, "message": "ticket created"})
}

func (h *TicketHandler) List(c *gin.Context) {
	var filter service.ListFilter
	if v := c.Query("status"); v != "" {
		st, ok := model.ParseStatus(v)
		if !ok {
			badRequest(c, errs.ErrInvalidStatus.Error())
			return
		}
		filter.Status = st
	}
	if v := c.Query("priority"); v != "" {
		p, ok := model.ParsePriority(v)
		if !ok {
			badRequest(c, errs.ErrInvalidPriority.Error())
			return
		}
		filter.Priority = p
	}

	items, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, "list tickets", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, "get ticket", err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type addLogRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *TicketHandler) AddLog(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req addLogRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		badRequest(c, "message is required")
		return
	}
	l, err := h.svc.AddLog(c.Request.Context(), id, strings.TrimSpace(req.Message))
	if err != nil {
		h.storeError(c, "add log", err)
		return
	}
	h.publish(kafka.EventTicketLogAdded, id, map[string]any{"log_id": l.ID, "message": l.Message})
	c.JSON(http.StatusOK, gin.H{"id": l.ID, "message": "log added"})
}

func (h *TicketHandler) ListLogs(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	logs, err := h.svc.ListLogs(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, "list logs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	status, valid := model.ParseStatus(req.Status)
	if !valid {
		badRequest(c, errs.ErrInvalidStatus.Error())
		return
	}
	updated, err := h.svc.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		h.storeError(c, "update status", err)
		return
	}
	h.publish(kafka.EventTicketStatusChanged, id, map[string]any{"status": string(status)})
	c.JSON(http.StatusOK, gin.H{"updated": updated, "message": model.StatusChangedMessage(status)})
}

func (h *TicketHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.storeError(c, "delete ticket", err)
		return
	}
	h.publish(kafka.EventTicketDeleted, id, nil)
	c.JSON(http.StatusOK, gin.H{"message": "ticket deleted"})
}

func (h *TicketHandler) publish(event string, ticketID uint64, payload map[string]any) {
	if h.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	h.events.ProduceTicketEvent(ctx, event, ticketID, payload)
}

// storeError: не найдено -> 404, всё остальное -> общий 500.
func (h *TicketHandler) storeError(c *gin.Context, op string, err error) {
	if errors.Is(err, errs.ErrTicketNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrTicketNotFound.Error()})
		return
	}
	h.internalError(c, op, err)
}

func (h *TicketHandler) internalError(c *gin.Context, op string, err error) {
	h.log.Error(op+" failed", "error", err, "path", c.Request.URL.Path)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// parseID отвечает 400 на не-число и 404 на число вне диапазона колонки id,
// не обращаясь к базе.
func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, maxTicketIDBits)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			c.JSON(http.StatusNotFound, gin.H{"error": errs.ErrTicketNotFound.Error()})
			return 0, false
		}
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// priorityOrDefault приводит всё, что не является известной строкой, к medium.
func priorityOrDefault(raw json.RawMessage) model.TicketPriority {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return model.TicketPriorityMedium
	}
	return model.PriorityOrDefault(s)
}

// optionalString: отсутствие, null и пустая строка дают nil. false, если значение не строка.
func optionalString(raw json.RawMessage) (*string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	if s = strings.TrimSpace(s); s == "" {
		return nil, true
	}
	return &s, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
