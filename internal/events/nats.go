package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher implements Publisher using NATS.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher connects to NATS and returns a publisher emitting on
// the given subject.
func NewNATSPublisher(natsURL, subject string, logger zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}

	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}, nil
}

// Close closes the NATS connection.
func (n *NATSPublisher) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

// PublishEpisodeCompleted publishes episode events to NATS.
func (n *NATSPublisher) PublishEpisodeCompleted(ctx context.Context, event EpisodeEvent) error {
	return n.publish(n.subject+".episode", event)
}

// PublishBatchSampled publishes sample events to NATS.
func (n *NATSPublisher) PublishBatchSampled(ctx context.Context, event SampleEvent) error {
	return n.publish(n.subject+".sample", event)
}

func (n *NATSPublisher) publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(subject, data); err != nil {
		n.logger.Error().Err(err).Str("subject", subject).Msg("failed to publish event")
		return err
	}
	return nil
}
