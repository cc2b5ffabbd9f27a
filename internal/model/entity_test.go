package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want TicketStatus
		ok   bool
	}{
		{"open", TicketStatusOpen, true},
		{"IN_PROGRESS", TicketStatusInProgress, true},
		{" resolved ", TicketStatusResolved, true},
		{"closed", TicketStatusClosed, true},
		{"aberto", TicketStatusOpen, true},
		{"em_andamento", TicketStatusInProgress, true},
		{"resolvido", TicketStatusResolved, true},
		{"fechado", TicketStatusClosed, true},
		{"reopened", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestPriorityOrDefault(t *testing.T) {
	assert.Equal(t, TicketPriorityUrgent, PriorityOrDefault("urgent"))
	assert.Equal(t, TicketPriorityHigh, PriorityOrDefault("alta"))
	assert.Equal(t, TicketPriorityLow, PriorityOrDefault("Baixa"))
	assert.Equal(t, TicketPriorityMedium, PriorityOrDefault(""))
	assert.Equal(t, TicketPriorityMedium, PriorityOrDefault("critical"))
}

func TestStatusChangedMessage(t *testing.T) {
	assert.Equal(t, "status changed to resolved", StatusChangedMessage(TicketStatusResolved))
}
