package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dakshkarigar/marketplace-api/internal/config"
	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

// Publisher delivers order lifecycle events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
	Close() error
}

// New builds the publisher selected by cfg.Driver.
func New(cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	switch cfg.Driver {
	case config.EventsDriverNATS:
		return NewNATSPublisher(cfg.NATSURL, cfg.SubjectPrefix, logger)
	case config.EventsDriverKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	case config.EventsDriverLog, "":
		return NewLogPublisher(logger), nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

func encode(event domain.OrderEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// LogPublisher writes events to the structured log. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	p.logger.InfoContext(ctx, "order event",
		"event", event.Type,
		"order_id", event.OrderID,
		"partner_id", event.PartnerID,
		"previous_partner_id", event.PreviousPartnerID,
		"status", event.Status,
		"occurred_at", event.OccurredAt,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
