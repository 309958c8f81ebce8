package events

import "context"

// Publisher is implemented by downstream fan-out mechanisms.
type Publisher interface {
	PublishEpisodeCompleted(ctx context.Context, event EpisodeEvent) error
	PublishBatchSampled(ctx context.Context, event SampleEvent) error
}

// EpisodeEvent is emitted whenever a terminal transition is appended.
type EpisodeEvent struct {
	Episode     uint64  `json:"episode"`
	FinalReward float64 `json:"final_reward"`
	BufferSize  int     `json:"buffer_size"`
}

// SampleEvent is emitted after a training batch is drawn.
type SampleEvent struct {
	BatchSize  int `json:"batch_size"`
	BufferSize int `json:"buffer_size"`
}

// NoopPublisher publishes nothing; useful for tests and for running
// without a broker.
type NoopPublisher struct{}

// PublishEpisodeCompleted satisfies Publisher.
func (NoopPublisher) PublishEpisodeCompleted(context.Context, EpisodeEvent) error { return nil }

// PublishBatchSampled satisfies Publisher.
func (NoopPublisher) PublishBatchSampled(context.Context, SampleEvent) error { return nil }
