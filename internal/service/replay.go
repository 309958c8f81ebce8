package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gridline/replay/internal/events"
	"github.com/gridline/replay/internal/replay"
)

// Stats describes the current state of the replay buffer.
type Stats struct {
	Size     int    `json:"size"`
	Capacity int    `json:"capacity"`
	Appends  uint64 `json:"appends"`
	Episodes uint64 `json:"episodes"`
}

// Replay exposes a replay memory to concurrent callers. The core
// buffers are single-writer by design, so all access is serialized
// here rather than inside them.
type Replay struct {
	mu       sync.Mutex
	memory   replay.Memory
	capacity int
	events   events.Publisher
	logger   zerolog.Logger

	appends  uint64
	episodes uint64
}

// NewReplay constructs a Replay service around the given memory.
func NewReplay(memory replay.Memory, capacity int, publisher events.Publisher, logger zerolog.Logger) *Replay {
	return &Replay{
		memory:   memory,
		capacity: capacity,
		events:   publisher,
		logger:   logger,
	}
}

// AppendTransition stores a single transition.
func (s *Replay) AppendTransition(ctx context.Context, t replay.Transition) error {
	s.mu.Lock()
	err := s.memory.Append(t)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.appends++
	var episodeEvent *events.EpisodeEvent
	if t.Done {
		s.episodes++
		episodeEvent = &events.EpisodeEvent{
			Episode:     s.episodes,
			FinalReward: t.Reward,
			BufferSize:  s.memory.Len(),
		}
	}
	s.mu.Unlock()

	if episodeEvent != nil {
		if err := s.events.PublishEpisodeCompleted(ctx, *episodeEvent); err != nil {
			s.logger.Error().Err(err).Uint64("episode", episodeEvent.Episode).Msg("failed to publish episode event")
		}
	}
	return nil
}

// SampleBatch draws a training batch from the memory.
func (s *Replay) SampleBatch(ctx context.Context, batchSize int) ([]replay.Transition, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	s.mu.Lock()
	sampled, err := s.memory.Sample(batchSize)
	size := s.memory.Len()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishBatchSampled(ctx, events.SampleEvent{
		BatchSize:  batchSize,
		BufferSize: size,
	}); err != nil {
		s.logger.Error().Err(err).Msg("failed to publish sample event")
	}
	return sampled, nil
}

// Stats returns buffer statistics.
func (s *Replay) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Size:     s.memory.Len(),
		Capacity: s.capacity,
		Appends:  s.appends,
		Episodes: s.episodes,
	}
}
