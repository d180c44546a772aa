package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const (
	streamName           = "EVMSTAGE"
	streamSubjectPattern = "EVMSTAGE.*"
	streamCreateTimeout  = 10 * time.Second
	duplicateWindow      = 20 * time.Minute
)

// Publisher fans sweep/partition-sealed progress events out to NATS
// JetStream, for external dashboards; entirely optional.
type Publisher struct {
	js     jetstream.JetStream
	nc     *nats.Conn
	logger *zerolog.Logger
	prefix string
}

// NewPublisher connects to NATS and ensures the progress stream exists.
func NewPublisher(natsURL string, persistDuration time.Duration, subjectPrefix string, logger *zerolog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("evmstage"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), streamCreateTimeout)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       streamName,
		Subjects:   []string{streamSubjectPattern},
		MaxAge:     persistDuration,
		Storage:    jetstream.FileStorage,
		Duplicates: duplicateWindow,
		Retention:  jetstream.LimitsPolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	logger.Info().
		Str("stream", streamName).
		Str("subjects", streamSubjectPattern).
		Dur("max_age", persistDuration).
		Msg("progress publisher initialized")

	return &Publisher{js: js, nc: nc, logger: logger, prefix: subjectPrefix}, nil
}

// Publish fans an Event out as EVMSTAGE.{task}, deduplicated on
// task+checkpoint so a replayed partial sweep doesn't double-publish.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	subject := fmt.Sprintf("%s.%s", p.prefix, ev.Task)

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}

	msgID := fmt.Sprintf("%s-%d", ev.Task, ev.Checkpoint)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID)); err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Str("msg_id", msgID).Msg("failed to publish progress event")
		return fmt.Errorf("publish to nats: %w", err)
	}
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info().Msg("progress publisher closed")
	}
}

// Healthy reports whether the NATS connection is currently up.
func (p *Publisher) Healthy() bool {
	return p.nc != nil && p.nc.IsConnected()
}
