// Package replay implements bounded experience-replay memories for
// reinforcement-learning agents: a uniform FIFO buffer and a
// frame-stack-aware circular buffer that stores each observation frame
// only once.
package replay

// Frame is a single raw observation from the environment, flattened to
// the frame shape agreed at construction.
type Frame []float64

// Transition describes one environment step. State and NextState are
// windows of k consecutive frames ordered oldest to newest; NextState
// is State shifted forward by one frame, so the two overlap by k-1
// frames.
type Transition struct {
	State     []Frame `json:"state"`
	Action    int     `json:"action"`
	Reward    float64 `json:"reward"`
	NextState []Frame `json:"next_state"`
	Done      bool    `json:"done"`
}

// Memory is the shape both replay buffers expose. The agent's update
// loop only depends on this interface, so either buffer can back it.
//
// Implementations assume at most one writer at a time; callers that
// collect from concurrent episodes must serialize Append externally.
type Memory interface {
	Append(t Transition) error
	Sample(batchSize int) ([]Transition, error)
	Len() int
}
