package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dakshkarigar/marketplace-api/internal/domain"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events with NATS core pub/sub on <prefix>.<event name>,
// for example marketplace.orders.reassigned.
type NATSPublisher struct {
	nc     natsConn
	prefix string
	logger *slog.Logger
}

func NewNATSPublisher(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("marketplace-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return newNATSPublisher(nc, prefix, logger), nil
}

func newNATSPublisher(nc natsConn, prefix string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: strings.TrimSuffix(prefix, "."), logger: logger}
}

// Subject returns the subject an event type is published on.
func Subject(prefix string, t domain.OrderEventType) string {
	name := strings.TrimPrefix(string(t), "order.")
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func (p *NATSPublisher) Publish(_ context.Context, event domain.OrderEvent) error {
	data, err := encode(event)
	if err != nil {
		return err
	}
	subject := Subject(p.prefix, event.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish order event", "error", err, "subject", subject, "order_id", event.OrderID)
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
