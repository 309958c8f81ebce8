package agent

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/gridline/replay/internal/replay"
)

// Model is the opaque external value model. Predict returns one
// action-value vector per input state window; Train fits the model to
// the given targets. Both take batches of k-frame windows.
type Model interface {
	Predict(states [][]replay.Frame) ([][]float64, error)
	Train(states [][]replay.Frame, targets [][]float64) error
}

// ActionSpace is the opaque environment action-space contract.
type ActionSpace interface {
	// Sample returns a uniformly random action index.
	Sample() int
	// N returns the number of discrete actions.
	N() int
}

// Agent runs the Q-learning update loop against a replay memory and an
// external model. It is single-threaded by design, matching the
// single-writer assumption of the memories it drives.
type Agent struct {
	memory    replay.Memory
	model     Model
	space     ActionSpace
	epsilon   Schedule
	gamma     float64
	batchSize int
	rng       *rand.Rand
	logger    zerolog.Logger
}

// New constructs an agent. gamma is the reward discount and batchSize
// the number of transitions sampled per update.
func New(memory replay.Memory, model Model, space ActionSpace, epsilon Schedule,
	gamma float64, batchSize int, rng *rand.Rand, logger zerolog.Logger) *Agent {
	return &Agent{
		memory:    memory,
		model:     model,
		space:     space,
		epsilon:   epsilon,
		gamma:     gamma,
		batchSize: batchSize,
		rng:       rng,
		logger:    logger,
	}
}

// Act returns the action index for the given state. During training it
// occasionally returns a random action per the epsilon schedule.
func (a *Agent) Act(state []replay.Frame, training bool) (int, error) {
	if training && a.rng.Float64() <= a.epsilon.Next() {
		return a.space.Sample(), nil
	}

	values, err := a.model.Predict([][]replay.Frame{state})
	if err != nil {
		return 0, fmt.Errorf("predict failed: %w", err)
	}
	if len(values) != 1 || len(values[0]) != a.space.N() {
		return 0, fmt.Errorf("model returned %d value vectors, expected 1 of length %d", len(values), a.space.N())
	}
	return floats.MaxIdx(values[0]), nil
}

// ObserveResult records the outcome of an action and runs one update
// step against the memory.
func (a *Agent) ObserveResult(t replay.Transition) error {
	if err := a.memory.Append(t); err != nil {
		return err
	}
	return a.update()
}

func (a *Agent) update() error {
	// One extra record beyond the batch size is required because state
	// and next_state windows overlap for all but one frame.
	if a.memory.Len() <= a.batchSize+1 {
		return nil
	}

	samples, err := a.memory.Sample(a.batchSize)
	if err != nil {
		return err
	}

	states := make([][]replay.Frame, len(samples))
	nextStates := make([][]replay.Frame, len(samples))
	for i, s := range samples {
		states[i] = s.State
		nextStates[i] = s.NextState
	}

	targets, err := a.model.Predict(states)
	if err != nil {
		return fmt.Errorf("predict states failed: %w", err)
	}
	nextValues, err := a.model.Predict(nextStates)
	if err != nil {
		return fmt.Errorf("predict next states failed: %w", err)
	}

	for i, s := range samples {
		target := s.Reward
		if !s.Done {
			target += a.gamma * floats.Max(nextValues[i])
		}
		targets[i][s.Action] = target
	}

	if err := a.model.Train(states, targets); err != nil {
		return fmt.Errorf("train failed: %w", err)
	}
	a.logger.Debug().Int("batch_size", a.batchSize).Msg("update step completed")
	return nil
}
