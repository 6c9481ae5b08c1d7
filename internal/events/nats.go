package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"newsmill/internal/config"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes run events to a NATS subject
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to NATS. It returns nil without error when no URL
// is configured.
func NewNATSPublisher(cfg config.NATS) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("newsmill"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("🔄 Reconnected to NATS at %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("⚠️ NATS connection lost: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	subject := cfg.Subject
	if subject == "" {
		subject = "newsmill.pipeline.runs"
	}
	log.Printf("✅ Publishing run events to NATS subject %s", subject)
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

// Name implements Publisher
func (p *NATSPublisher) Name() string {
	return "nats"
}

// Subject returns the subject events are published on
func (p *NATSPublisher) Subject() string {
	return p.subject
}

// Publish implements Publisher
func (p *NATSPublisher) Publish(ctx context.Context, event RunEvent) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close drains and closes the connection
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}
