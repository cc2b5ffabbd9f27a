package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventTicketCreated       = "ticket.created"
	EventTicketStatusChanged = "ticket.status_changed"
	EventTicketLogAdded      = "ticket.log_added"
	EventTicketDeleted       = "ticket.deleted"
)

// TicketEventProducer: интерфейс отправки событий тикета в Kafka
// (для подмены моком в тестах).
type TicketEventProducer interface {
	ProduceTicketEvent(ctx context.Context, event string, ticketID uint64, payload map[string]any)
}

// Producer пишет события тикетов в топик Kafka. Best-effort: writer
// асинхронный, ошибки только пишутся в лог.
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    *slog.Logger
}

// NewProducer создаёт продюсер. Если brokers или topic пустые, методы no-op.
func NewProducer(brokers []string, topic string, log *slog.Logger) *Producer {
	if log == nil {
		log = slog.Default()
	}
	p := &Producer{topic: topic, log: log.With("component", "kafka", "topic", topic)}
	if len(brokers) == 0 || topic == "" {
		return p
	}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				p.log.Warn("ticket events not delivered", "count", len(messages), "error", err)
			}
		},
	}
	return p
}

func (p *Producer) Enabled() bool { return p.writer != nil }

// ProduceTicketEvent ставит событие в очередь с ключом id тикета, чтобы
// события одного тикета шли по порядку в партиции.
func (p *Producer) ProduceTicketEvent(ctx context.Context, event string, ticketID uint64, payload map[string]any) {
	if p.writer == nil {
		return
	}
	msg, err := encodeEvent(event, ticketID, payload, time.Now())
	if err != nil {
		p.log.Error("marshal ticket event", "event", event, "ticket_id", ticketID, "error", err)
		return
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("write ticket event", "event", event, "ticket_id", ticketID, "error", err)
	}
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encodeEvent(event string, ticketID uint64, payload map[string]any, at time.Time) (kafka.Message, error) {
	body := map[string]any{
		"event":       event,
		"ticket_id":   ticketID,
		"occurred_at": at.UTC().Format(time.RFC3339),
	}
	for k, v := range payload {
		body[k] = v
	}
	value, err := json.Marshal(body)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:     []byte(strconv.FormatUint(ticketID, 10)),
		Value:   value,
		Headers: []kafka.Header{{Key: "event", Value: []byte(event)}},
	}, nil
}
