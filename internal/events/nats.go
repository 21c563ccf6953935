package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/retry"
)

// StreamName is the JetStream stream capturing every sitegen subject.
const StreamName = "SITEGEN"

// NATSPublisher publishes events to NATS JetStream.
type NATSPublisher struct {
	conn  *nats.Conn
	js    jetstream.JetStream
	retry retry.Policy
}

// NewNATSPublisher connects to url and ensures the SITEGEN stream exists.
// Connecting and publishing are retried with retry.DefaultPolicy.
func NewNATSPublisher(ctx context.Context, url string) (*NATSPublisher, error) {
	policy := retry.DefaultPolicy()
	var conn *nats.Conn
	err := retry.Do(ctx, policy, func(context.Context) error {
		c, err := nats.Connect(url, nats.Name("sitegen"), nats.Timeout(5*time.Second))
		if err != nil {
			return errors.NetworkError("failed to connect to NATS").
				WithCause(err).
				WithContext("url", url).
				Retryable().
				Build()
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.NetworkError("failed to create JetStream context").WithCause(err).Build()
	}

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(sctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "sitegen build events",
		Subjects:    []string{"sitegen.>"},
		MaxAge:      30 * 24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, errors.NetworkError("failed to ensure JetStream stream").
			WithCause(err).
			WithContext("stream", StreamName).
			Build()
	}

	slog.Info("NATS publisher initialized", logfields.URL(url), slog.String("stream", StreamName))
	return &NATSPublisher{conn: conn, js: js, retry: policy}, nil
}

// PublishBuildCompleted publishes ev on SubjectBuildCompleted.
func (p *NATSPublisher) PublishBuildCompleted(ctx context.Context, ev BuildCompleted) error {
	return p.publish(ctx, SubjectBuildCompleted, ev)
}

// PublishLinkBroken publishes ev on SubjectLinkBroken.
func (p *NATSPublisher) PublishLinkBroken(ctx context.Context, ev LinkBroken) error {
	return p.publish(ctx, SubjectLinkBroken, ev)
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = retry.Do(ctx, p.retry, func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := p.js.Publish(pctx, subject, data); err != nil {
			return errors.NetworkError("failed to publish event").
				WithCause(err).
				WithContext("subject", subject).
				Retryable().
				Build()
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Debug("Published event", slog.String("subject", subject))
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
