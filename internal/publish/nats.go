// Package publish fans finished sessions out to a message bus so other
// services (stats, achievements) can react without polling storage.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/wordbattles/internal/model"
)

// DefaultSubject carries one JSON SessionSummary per finished session
const DefaultSubject = "wordbattles.sessions.ended"

// publisher is the subset of *nats.Conn used here
type publisher interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes session summaries on a NATS subject
type NATSPublisher struct {
	conn    publisher
	nc      *nats.Conn // nil when built around a fake connection
	subject string
	logger  *slog.Logger
}

// Connect dials the NATS server at url
func Connect(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	logger = logger.With(slog.String("component", "nats"))
	nc, err := nats.Connect(url,
		nats.Name("wordbattles"),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}

	p := newPublisher(nc, subject, logger)
	p.nc = nc
	return p, nil
}

func newPublisher(conn publisher, subject string, logger *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}
}

// Name identifies the sink in logs
func (p *NATSPublisher) Name() string { return "nats" }

// Subject returns the subject summaries are published on
func (p *NATSPublisher) Subject() string { return p.subject }

// PublishSession sends the summary as JSON
func (p *NATSPublisher) PublishSession(ctx context.Context, summary model.SessionSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode session summary: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	p.logger.Debug("session published",
		slog.String("subject", p.subject),
		slog.String("session_id", string(summary.SessionID)),
	)
	return nil
}

// Close drains and closes the underlying connection
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
