package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const streamName = "GOVDOCS_EVENTS"

// NATSPublisher publishes transitions to a JetStream stream.
type NATSPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

func NewNATSPublisher(url string, log *logrus.Logger) (*NATSPublisher, error) {
	entry := log.WithField("component", "events.publisher")

	opts := []nats.Option{
		nats.Name("govdocs"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:        streamName,
		Description: "Application and error request workflow transitions",
		Subjects:    []string{"govdocs.>"},
		Storage:     nats.FileStorage,
		Retention:   nats.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Discard:     nats.DiscardOld,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		entry.WithError(err).Warn("Could not create stream (may already exist)")
	}

	entry.WithField("url", url).Info("NATS events publisher initialized")
	return &NATSPublisher{conn: conn, js: js, logger: entry}, nil
}

func (p *NATSPublisher) Observe(ctx context.Context, t Transition) {
	data, err := json.Marshal(t)
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal transition")
		return
	}
	ack, err := p.js.Publish(t.Subject(), data, nats.Context(ctx))
	if err != nil {
		p.logger.WithError(err).WithField("subject", t.Subject()).Warn("Failed to publish transition")
		return
	}
	p.logger.WithFields(logrus.Fields{"subject": t.Subject(), "seq": ack.Sequence}).Debug("Published transition")
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}
