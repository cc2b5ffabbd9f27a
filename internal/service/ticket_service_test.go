package service

import (
	"context"
	"testing"

	"github.com/psds-microservice/helpdesk-service/internal/database/dbtest"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *TicketService {
	t.Helper()
	return NewTicketService(dbtest.New(t))
}

func createTicket(t *testing.T, svc *TicketService, title string, priority model.TicketPriority) *model.Ticket {
	t.Helper()
	tk := &model.Ticket{Title: title, Description: "details for " + title, Priority: priority}
	require.NoError(t, svc.Create(context.Background(), tk))
	return tk
}

func TestTicketService_CreateDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tk := createTicket(t, svc, "Printer down", "")

	got, err := svc.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Printer down", got.Title)
	assert.Equal(t, model.TicketPriorityMedium, got.Priority)
	assert.Equal(t, model.TicketStatusOpen, got.Status)
	assert.Nil(t, got.Requester)
	assert.False(t, got.CreatedAt.IsZero())

	logs, err := svc.ListLogs(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.LogMessageTicketCreated, logs[0].Message)
}

func TestTicketService_CreateCoercesPriority(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t, model.TicketPriorityMedium, createTicket(t, svc, "a", "critical").Priority)
	assert.Equal(t, model.TicketPriorityUrgent, createTicket(t, svc, "b", "urgente").Priority)
	assert.Equal(t, model.TicketPriorityLow, createTicket(t, svc, "c", model.TicketPriorityLow).Priority)
}

func TestTicketService_CreateAssignsIncreasingIDs(t *testing.T) {
	svc := newTestService(t)

	var last uint64
	for i := 0; i < 5; i++ {
		tk := createTicket(t, svc, "ticket", "")
		assert.Greater(t, tk.ID, last)
		last = tk.ID
	}
}

func TestTicketService_ListNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := createTicket(t, svc, "first", model.TicketPriorityHigh)
	second := createTicket(t, svc, "second", model.TicketPriorityLow)
	third := createTicket(t, svc, "third", model.TicketPriorityHigh)

	items, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []uint64{third.ID, second.ID, first.ID}, []uint64{items[0].ID, items[1].ID, items[2].ID})

	high, err := svc.List(ctx, ListFilter{Priority: model.TicketPriorityHigh})
	require.NoError(t, err)
	require.Len(t, high, 2)
	assert.Equal(t, third.ID, high[0].ID)

	_, err = svc.UpdateStatus(ctx, second.ID, model.TicketStatusClosed)
	require.NoError(t, err)
	closed, err := svc.List(ctx, ListFilter{Status: model.TicketStatusClosed})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, second.ID, closed[0].ID)
}

func TestTicketService_ListEmpty(t *testing.T) {
	svc := newTestService(t)

	items, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestTicketService_UpdateStatusAppendsLog(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tk := createTicket(t, svc, "Printer down", "")

	updated, err := svc.UpdateStatus(ctx, tk.ID, model.TicketStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	got, err := svc.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusResolved, got.Status)

	logs, err := svc.ListLogs(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.LogMessageTicketCreated, logs[0].Message)
	assert.Equal(t, "status changed to resolved", logs[1].Message)
}

func TestTicketService_UpdateStatusSameValueStillLogs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tk := createTicket(t, svc, "t", "")

	updated, err := svc.UpdateStatus(ctx, tk.ID, model.TicketStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	logs, err := svc.ListLogs(ctx, tk.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestTicketService_MissingTicket(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	const missing = 4242

	_, err := svc.GetByID(ctx, missing)
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)

	_, err = svc.UpdateStatus(ctx, missing, model.TicketStatusClosed)
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)

	_, err = svc.AddLog(ctx, missing, "hello")
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)

	_, err = svc.ListLogs(ctx, missing)
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, missing), errs.ErrTicketNotFound)
}

func TestTicketService_AddLogOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tk := createTicket(t, svc, "t", "")

	for _, msg := range []string{"called the user", "replaced toner", "confirmed fix"} {
		l, err := svc.AddLog(ctx, tk.ID, msg)
		require.NoError(t, err)
		assert.NotZero(t, l.ID)
		assert.Equal(t, tk.ID, l.TicketID)
	}

	logs, err := svc.ListLogs(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, logs, 4)
	messages := make([]string, len(logs))
	for i, l := range logs {
		messages[i] = l.Message
	}
	assert.Equal(t, []string{model.LogMessageTicketCreated, "called the user", "replaced toner", "confirmed fix"}, messages)
}

func TestTicketService_DeleteCascadesLogs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tk := createTicket(t, svc, "t", "")
	other := createTicket(t, svc, "other", "")
	_, err := svc.AddLog(ctx, tk.ID, "note")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, tk.ID))

	_, err = svc.GetByID(ctx, tk.ID)
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
	_, err = svc.ListLogs(ctx, tk.ID)
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)

	var orphans int64
	require.NoError(t, svc.gw.DB().Model(&model.Log{}).Where("ticket_id = ?", tk.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)

	logs, err := svc.ListLogs(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
