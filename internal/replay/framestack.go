package replay

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// DefaultMaxSampleAttempts bounds the rejection-sampling loop in
// FrameStack.Sample. A draw that cannot find a valid window within this
// many attempts fails with ErrNoValidSample instead of spinning.
const DefaultMaxSampleAttempts = 1000

// windowTolerance is the elementwise tolerance used when verifying that
// state and next_state overlap by k-1 frames.
const windowTolerance = 1e-6

// frameMeta is the per-slot metadata kept alongside each stored frame.
// The full state/next_state windows are dropped on append and
// reconstructed from neighboring slots on sample.
type frameMeta struct {
	action int
	reward float64
	done   bool
}

// FrameStack is a circular replay buffer for frame-stacked observations.
// Consecutive transitions overlap by k-1 frames, so only the newest
// frame of each transition is stored; sampling reconstructs the full
// k-frame windows from runs of k+1 consecutive slots.
//
// Slot i holds the tail frame of the next_state that was current when
// records[i] was written. A run of slots is a valid sample only if it
// does not straddle the write position and carries no episode boundary
// before its final slot.
//
// FrameStack assumes a single writer; it has no internal locking.
type FrameStack struct {
	framesPerObs int
	maxlen       int
	frameLen     int

	// observations is a preallocated arena of maxlen frame slots; slot i
	// occupies observations[i*frameLen : (i+1)*frameLen].
	observations []float64
	records      []frameMeta

	count       int
	writePos    int
	maxAttempts int
	rng         *rand.Rand
}

// NewFrameStack creates a frame-stack replay buffer for windows of
// framesPerObservation frames, holding at most maxlen frames of
// frameLen elements each. The rng is the only randomness source.
func NewFrameStack(framesPerObservation, maxlen, frameLen int, rng *rand.Rand) *FrameStack {
	return &FrameStack{
		framesPerObs: framesPerObservation,
		maxlen:       maxlen,
		frameLen:     frameLen,
		observations: make([]float64, maxlen*frameLen),
		records:      make([]frameMeta, maxlen),
		maxAttempts:  DefaultMaxSampleAttempts,
		rng:          rng,
	}
}

// SetMaxSampleAttempts overrides the per-draw rejection budget.
func (f *FrameStack) SetMaxSampleAttempts(n int) {
	f.maxAttempts = n
}

// Append validates the transition and stores only the newest frame of
// its next_state plus the action/reward/done metadata. On validation
// failure the buffer is left untouched.
func (f *FrameStack) Append(t Transition) error {
	if err := f.checkRecord(t); err != nil {
		return err
	}

	tail := t.NextState[f.framesPerObs-1]
	copy(f.observations[f.writePos*f.frameLen:(f.writePos+1)*f.frameLen], tail)
	f.records[f.writePos] = frameMeta{action: t.Action, reward: t.Reward, done: t.Done}

	if f.count < f.maxlen {
		f.count++
	}
	f.writePos++
	if f.writePos == f.maxlen {
		f.writePos = 0
	}
	return nil
}

func (f *FrameStack) checkRecord(t Transition) error {
	if len(t.State) != f.framesPerObs || len(t.NextState) != f.framesPerObs {
		return fmt.Errorf("%w: expected %d frames per window, got state=%d next_state=%d",
			ErrShape, f.framesPerObs, len(t.State), len(t.NextState))
	}
	for i := 0; i < f.framesPerObs; i++ {
		if len(t.State[i]) != f.frameLen || len(t.NextState[i]) != f.frameLen {
			return fmt.Errorf("%w: expected frames of %d elements, got state[%d]=%d next_state[%d]=%d",
				ErrShape, f.frameLen, i, len(t.State[i]), i, len(t.NextState[i]))
		}
	}
	// state and next_state must differ only by the first frame of state
	// and the last frame of next_state.
	for i := 1; i < f.framesPerObs; i++ {
		if !floats.EqualApprox(t.State[i], t.NextState[i-1], windowTolerance) {
			return fmt.Errorf("%w: state[%d] does not match next_state[%d]", ErrWindowMismatch, i, i-1)
		}
	}
	return nil
}

// Sample draws batchSize transitions, each reconstructed from a run of
// k+1 consecutive slots chosen by rejection sampling. It fails with
// ErrInsufficientHistory before k frames are stored and with
// ErrNoValidSample when a draw exhausts its attempt budget.
func (f *FrameStack) Sample(batchSize int) ([]Transition, error) {
	if f.count < f.framesPerObs {
		return nil, fmt.Errorf("%w: %d frames stored, at least %d required",
			ErrInsufficientHistory, f.count, f.framesPerObs)
	}

	sampled := make([]Transition, batchSize)
	for b := range sampled {
		t, err := f.sampleOne()
		if err != nil {
			return nil, err
		}
		sampled[b] = t
	}
	return sampled, nil
}

func (f *FrameStack) sampleOne() (Transition, error) {
	starts := f.count - f.framesPerObs
	if starts <= 0 {
		return Transition{}, fmt.Errorf("%w: no complete run of %d slots",
			ErrNoValidSample, f.framesPerObs+1)
	}

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		i := f.rng.Intn(starts)
		end := i + f.framesPerObs + 1

		// Reject runs partially overwritten by the circular writer.
		if i < f.writePos && end > f.writePos {
			continue
		}
		// Reject runs spliced across an episode boundary. The final slot
		// may be terminal; earlier slots may not.
		if f.hasBoundary(i, end-1) {
			continue
		}
		return f.reconstruct(i), nil
	}
	return Transition{}, fmt.Errorf("%w: gave up after %d attempts", ErrNoValidSample, f.maxAttempts)
}

// hasBoundary reports whether any slot in [start, end) is terminal.
func (f *FrameStack) hasBoundary(start, end int) bool {
	for j := start; j < end; j++ {
		if f.records[j].done {
			return true
		}
	}
	return false
}

// reconstruct rebuilds the transition whose window starts at slot i:
// state spans slots [i, i+k-1], next_state spans [i+1, i+k], and the
// metadata comes from the slot holding the window's final frame.
func (f *FrameStack) reconstruct(i int) Transition {
	state := make([]Frame, f.framesPerObs)
	next := make([]Frame, f.framesPerObs)
	for j := 0; j < f.framesPerObs; j++ {
		state[j] = f.frameAt(i + j)
		next[j] = f.frameAt(i + j + 1)
	}
	meta := f.records[i+f.framesPerObs]
	return Transition{
		State:     state,
		Action:    meta.action,
		Reward:    meta.reward,
		NextState: next,
		Done:      meta.done,
	}
}

// frameAt returns an independent copy of the frame in the given slot so
// samples never alias the internal arena.
func (f *FrameStack) frameAt(slot int) Frame {
	out := make(Frame, f.frameLen)
	copy(out, f.observations[slot*f.frameLen:(slot+1)*f.frameLen])
	return out
}

// Len returns the number of frames stored so far, saturating at the
// buffer capacity.
func (f *FrameStack) Len() int {
	return f.count
}
