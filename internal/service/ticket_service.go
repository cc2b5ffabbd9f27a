package service

import (
	"context"
	"errors"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"gorm.io/gorm"
)

// TicketServicer: интерфейс сервиса тикетов для HTTP-слоя (для подмены в тестах).
type TicketServicer interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	List(ctx context.Context, filter ListFilter) ([]model.Ticket, error)
	UpdateStatus(ctx context.Context, id uint64, status model.TicketStatus) (int64, error)
	Delete(ctx context.Context, id uint64) error
	AddLog(ctx context.Context, ticketID uint64, message string) (*model.Log, error)
	ListLogs(ctx context.Context, ticketID uint64) ([]model.Log, error)
}

// ListFilter сужает List. Пустые поля не фильтруют.
type ListFilter struct {
	Status   model.TicketStatus
	Priority model.TicketPriority
}

type TicketService struct {
	gw *database.Gateway
}

func NewTicketService(gw *database.Gateway) *TicketService {
	return &TicketService{gw: gw}
}

// Create сохраняет тикет и его лог "ticket created" в одной транзакции.
// Неизвестный приоритет становится medium, статус начинается с open.
func (s *TicketService) Create(ctx context.Context, t *model.Ticket) error {
	t.Priority = model.PriorityOrDefault(string(t.Priority))
	if t.Status == "" {
		t.Status = model.TicketStatusOpen
	}
	return s.gw.Tx(ctx, func(tx *gorm.DB) error {
		// откаченная попытка могла их заполнить
		t.ID = 0
		t.CreatedAt = time.Time{}
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		return tx.Create(&model.Log{TicketID: t.ID, Message: model.LogMessageTicketCreated}).Error
	})
}

func (s *TicketService) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	err := s.gw.Query(ctx, func(db *gorm.DB) error {
		return db.First(&t, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List возвращает тикеты, новые первыми.
func (s *TicketService) List(ctx context.Context, filter ListFilter) ([]model.Ticket, error) {
	var items []model.Ticket
	err := s.gw.Query(ctx, func(db *gorm.DB) error {
		items = make([]model.Ticket, 0)
		tx := db.Model(&model.Ticket{})
		if filter.Status != "" {
			tx = tx.Where("status = ?", filter.Status)
		}
		if filter.Priority != "" {
			tx = tx.Where("priority = ?", filter.Priority)
		}
		return tx.Order("created_at DESC").Order("id DESC").Find(&items).Error
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus меняет статус и добавляет лог об этом в одной транзакции.
// Возвращает число обновлённых тикетов.
func (s *TicketService) UpdateStatus(ctx context.Context, id uint64, status model.TicketStatus) (int64, error) {
	var updated int64
	err := s.gw.Tx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&model.Ticket{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.ErrTicketNotFound
		}
		updated = res.RowsAffected
		return tx.Create(&model.Log{TicketID: id, Message: model.StatusChangedMessage(status)}).Error
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Delete удаляет тикет, его логи удаляются через ON DELETE CASCADE.
func (s *TicketService) Delete(ctx context.Context, id uint64) error {
	return s.gw.Query(ctx, func(db *gorm.DB) error {
		res := db.Delete(&model.Ticket{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.ErrTicketNotFound
		}
		return nil
	})
}

func (s *TicketService) AddLog(ctx context.Context, ticketID uint64, message string) (*model.Log, error) {
	var l model.Log
	err := s.gw.Tx(ctx, func(tx *gorm.DB) error {
		if err := ticketExists(tx, ticketID); err != nil {
			return err
		}
		l = model.Log{TicketID: ticketID, Message: message}
		return tx.Create(&l).Error
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLogs возвращает логи тикета, старые первыми.
func (s *TicketService) ListLogs(ctx context.Context, ticketID uint64) ([]model.Log, error) {
	var logs []model.Log
	err := s.gw.Query(ctx, func(db *gorm.DB) error {
		if err := ticketExists(db, ticketID); err != nil {
			return err
		}
		logs = make([]model.Log, 0)
		return db.Where("ticket_id = ?", ticketID).Order("created_at ASC").Order("id ASC").Find(&logs).Error
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func ticketExists(db *gorm.DB, id uint64) error {
	var n int64
	if err := db.Model(&model.Ticket{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrTicketNotFound
	}
	return nil
}
