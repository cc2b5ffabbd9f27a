package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/service"
	"github.com/spf13/cobra"
)

var republishCmd = &cobra.Command{
	Use:   "republish",
	Short: "Publish a ticket.created event for every stored ticket (rebuilds downstream consumers)",
	RunE:  runRepublish,
}

func runRepublish(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopicTicket == "" {
		return errors.New("republish: KAFKA_BROKERS and KAFKA_TOPIC_TICKET must be set")
	}
	gw, err := database.Open(database.OptionsFromConfig(cfg, log, nil))
	if err != nil {
		return err
	}
	defer gw.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	tickets, err := service.NewTicketService(gw).List(ctx, service.ListFilter{})
	if err != nil {
		return fmt.Errorf("republish: list tickets: %w", err)
	}
	log.Info("republish: found tickets", "count", len(tickets))

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket, log)
	defer producer.Close()
	for i := len(tickets) - 1; i >= 0; i-- {
		t := &tickets[i]
		producer.ProduceTicketEvent(ctx, kafka.EventTicketCreated, t.ID, map[string]any{
			"title":    t.Title,
			"priority": string(t.Priority),
			"status":   string(t.Status),
			"replay":   true,
		})
		if sent := len(tickets) - i; sent%50 == 0 || i == 0 {
			log.Info("republish: progress", "sent", sent, "total", len(tickets))
		}
	}
	log.Info("republish: done", "count", len(tickets))
	return nil
}
