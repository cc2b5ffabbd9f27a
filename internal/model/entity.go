package model

import (
	"strings"
	"time"
)

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Значения старого фронтенда принимаются на входе и сохраняются в каноническом виде.
var statusAliases = map[string]TicketStatus{
	"open":         TicketStatusOpen,
	"in_progress":  TicketStatusInProgress,
	"resolved":     TicketStatusResolved,
	"closed":       TicketStatusClosed,
	"aberto":       TicketStatusOpen,
	"em_andamento": TicketStatusInProgress,
	"resolvido":    TicketStatusResolved,
	"fechado":      TicketStatusClosed,
}

var priorityAliases = map[string]TicketPriority{
	"low":     TicketPriorityLow,
	"medium":  TicketPriorityMedium,
	"high":    TicketPriorityHigh,
	"urgent":  TicketPriorityUrgent,
	"baixa":   TicketPriorityLow,
	"media":   TicketPriorityMedium,
	"alta":    TicketPriorityHigh,
	"urgente": TicketPriorityUrgent,
}

// ParseStatus возвращает канонический статус для s или false, если статус
// неизвестен.
func ParseStatus(s string) (TicketStatus, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

func ParsePriority(s string) (TicketPriority, bool) {
	p, ok := priorityAliases[strings.ToLower(strings.TrimSpace(s))]
	return p, ok
}

// PriorityOrDefault приводит неизвестное или пустое значение к medium.
func PriorityOrDefault(s string) TicketPriority {
	if p, ok := ParsePriority(s); ok {
		return p
	}
	return TicketPriorityMedium
}

type Ticket struct {
	ID          uint64         `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Requester   *string        `gorm:"type:varchar(255)" json:"requester"`
	Priority    TicketPriority `gorm:"type:varchar(20);index;default:medium" json:"priority"`
	Status      TicketStatus   `gorm:"type:varchar(20);index;default:open" json:"status"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (Ticket) TableName() string { return "tickets" }

// Log: запись в истории тикета. Создаётся системой при создании и смене
// статуса или пользователем как комментарий. Только добавление.
type Log struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	TicketID  uint64    `gorm:"index;not null" json:"ticket_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (Log) TableName() string { return "logs" }

const LogMessageTicketCreated = "ticket created"

func StatusChangedMessage(s TicketStatus) string {
	return "status changed to " + string(s)
}
