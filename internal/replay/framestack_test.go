package replay

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scalarTransition builds a transition over scalar frames where the
// newest frame of next_state carries the value tail. The k-frame
// windows hold the values tail-k .. tail-1 and tail-k+1 .. tail.
func scalarTransition(k int, tail float64, action int, reward float64, done bool) Transition {
	state := make([]Frame, k)
	next := make([]Frame, k)
	for i := 0; i < k; i++ {
		state[i] = Frame{tail - float64(k-i)}
		next[i] = Frame{tail - float64(k-i-1)}
	}
	return Transition{State: state, Action: action, Reward: reward, NextState: next, Done: done}
}

func TestFrameStack_AppendScenario(t *testing.T) {
	// frames_per_observation=4, maxlen=10, scalar frames. Appending
	// transitions whose newest frames are 0..9 must fill the arena with
	// exactly those values and wrap the write position back to zero.
	fs := NewFrameStack(4, 10, 1, rand.New(rand.NewSource(1)))

	for i := 0; i < 10; i++ {
		done := i == 9
		require.NoError(t, fs.Append(scalarTransition(4, float64(i), i, float64(i), done)))
	}

	assert.Equal(t, 10, fs.Len())
	assert.Equal(t, 0, fs.writePos)
	for i := 0; i < 10; i++ {
		assert.Equal(t, float64(i), fs.observations[i], "slot %d", i)
	}

	// Any sampled window must sit fully inside [0,9] without crossing
	// the wrap point: frames are consecutive values.
	for trial := 0; trial < 50; trial++ {
		sampled, err := fs.Sample(1)
		require.NoError(t, err)
		require.Len(t, sampled, 1)

		tr := sampled[0]
		require.Len(t, tr.State, 4)
		require.Len(t, tr.NextState, 4)
		start := tr.State[0][0]
		for j := 0; j < 4; j++ {
			assert.Equal(t, start+float64(j), tr.State[j][0])
			assert.Equal(t, start+float64(j)+1, tr.NextState[j][0])
		}
		assert.GreaterOrEqual(t, start, 0.0)
		assert.LessOrEqual(t, tr.NextState[3][0], 9.0)
	}
}

func TestFrameStack_ShapeErrors(t *testing.T) {
	fs := NewFrameStack(4, 10, 1, rand.New(rand.NewSource(1)))

	// Wrong frame count.
	bad := scalarTransition(3, 3, 0, 0, false)
	err := fs.Append(bad)
	require.ErrorIs(t, err, ErrShape)

	// Wrong frame length.
	bad = scalarTransition(4, 4, 0, 0, false)
	bad.State[2] = Frame{1, 2}
	err = fs.Append(bad)
	require.ErrorIs(t, err, ErrShape)

	assert.Equal(t, 0, fs.Len())
	assert.Equal(t, 0, fs.writePos)
}

func TestFrameStack_WindowMismatch(t *testing.T) {
	fs := NewFrameStack(4, 10, 1, rand.New(rand.NewSource(1)))

	require.NoError(t, fs.Append(scalarTransition(4, 0, 0, 0, false)))

	bad := scalarTransition(4, 1, 1, 1, false)
	bad.NextState[0] = Frame{99} // breaks the k-1 frame overlap
	err := fs.Append(bad)
	require.ErrorIs(t, err, ErrWindowMismatch)

	// Buffer state must be unchanged by the rejected append.
	assert.Equal(t, 1, fs.Len())
	assert.Equal(t, 1, fs.writePos)
}

func TestFrameStack_InsufficientHistory(t *testing.T) {
	fs := NewFrameStack(4, 10, 1, rand.New(rand.NewSource(1)))

	_, err := fs.Sample(1)
	require.ErrorIs(t, err, ErrInsufficientHistory)

	for i := 0; i < 3; i++ {
		require.NoError(t, fs.Append(scalarTransition(4, float64(i), i, 0, false)))
	}
	_, err = fs.Sample(1)
	require.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestFrameStack_NoCompleteWindow(t *testing.T) {
	// With exactly k frames stored there is no run of k+1 slots, so a
	// sample must fail explicitly instead of looping.
	fs := NewFrameStack(4, 10, 1, rand.New(rand.NewSource(1)))

	for i := 0; i < 4; i++ {
		require.NoError(t, fs.Append(scalarTransition(4, float64(i), i, 0, false)))
	}
	_, err := fs.Sample(1)
	require.ErrorIs(t, err, ErrNoValidSample)
}

func TestFrameStack_EpisodeBoundary(t *testing.T) {
	fs := NewFrameStack(2, 10, 1, rand.New(rand.NewSource(3)))

	// Slot 2 is terminal. Windows with the boundary before their final
	// slot would splice frames from two episodes and must be rejected,
	// leaving only starts 0 and 3.
	for i := 0; i < 6; i++ {
		done := i == 2
		require.NoError(t, fs.Append(scalarTransition(2, float64(i), i, 0, done)))
	}

	for trial := 0; trial < 100; trial++ {
		sampled, err := fs.Sample(1)
		require.NoError(t, err)

		start := sampled[0].State[0][0]
		assert.Contains(t, []float64{0, 3}, start)
		if sampled[0].Done {
			// Only the window ending at the terminal slot carries done.
			assert.Equal(t, 0.0, start)
		}
	}
}

func TestFrameStack_AllTerminalExhaustsAttempts(t *testing.T) {
	fs := NewFrameStack(2, 10, 1, rand.New(rand.NewSource(4)))
	fs.SetMaxSampleAttempts(50)

	for i := 0; i < 5; i++ {
		require.NoError(t, fs.Append(scalarTransition(2, float64(i), i, 0, true)))
	}

	_, err := fs.Sample(1)
	require.ErrorIs(t, err, ErrNoValidSample)
}

func TestFrameStack_StraddleRejected(t *testing.T) {
	fs := NewFrameStack(2, 5, 1, rand.New(rand.NewSource(5)))

	// Eight appends into five slots leave the writer at slot 3: slots
	// 0..2 hold frames 5..7 and slots 3..4 hold the stale frames 3..4.
	for i := 0; i < 8; i++ {
		require.NoError(t, fs.Append(scalarTransition(2, float64(i), i, 0, false)))
	}
	require.Equal(t, 3, fs.writePos)

	// The only run of three slots that does not straddle the write
	// position is slots 0..2.
	for trial := 0; trial < 50; trial++ {
		sampled, err := fs.Sample(1)
		require.NoError(t, err)

		tr := sampled[0]
		assert.Equal(t, 5.0, tr.State[0][0])
		assert.Equal(t, 6.0, tr.State[1][0])
		assert.Equal(t, 6.0, tr.NextState[0][0])
		assert.Equal(t, 7.0, tr.NextState[1][0])
		assert.Equal(t, 7, tr.Action)
	}
}

func TestFrameStack_RoundTrip(t *testing.T) {
	fs := NewFrameStack(2, 10, 3, rand.New(rand.NewSource(6)))

	// Vector frames: frame at step i holds {i, 10i, 100i}.
	frame := func(i int) Frame {
		v := float64(i)
		return Frame{v, 10 * v, 100 * v}
	}
	for i := 0; i < 8; i++ {
		tr := Transition{
			State:     []Frame{frame(i - 2), frame(i - 1)},
			Action:    i,
			Reward:    float64(i) / 2,
			NextState: []Frame{frame(i - 1), frame(i)},
			Done:      false,
		}
		require.NoError(t, fs.Append(tr))
	}

	sampled, err := fs.Sample(16)
	require.NoError(t, err)
	require.Len(t, sampled, 16)

	for _, tr := range sampled {
		// Slot s holds frame(s); the window starting at slot s must
		// reproduce the transition that was appended as step s+2.
		s := int(tr.State[0][0])
		assert.Equal(t, []Frame{frame(s), frame(s + 1)}, tr.State)
		assert.Equal(t, []Frame{frame(s + 1), frame(s + 2)}, tr.NextState)
		assert.Equal(t, s+2, tr.Action)
		assert.InDelta(t, float64(s+2)/2, tr.Reward, 1e-12)
		assert.False(t, tr.Done)
	}
}

func TestFrameStack_SamplesDoNotAliasStorage(t *testing.T) {
	fs := NewFrameStack(2, 10, 1, rand.New(rand.NewSource(7)))

	for i := 0; i < 6; i++ {
		require.NoError(t, fs.Append(scalarTransition(2, float64(i), i, 0, false)))
	}

	sampled, err := fs.Sample(1)
	require.NoError(t, err)

	// Mutating the returned window must not corrupt the arena.
	slot := int(sampled[0].State[0][0])
	sampled[0].State[0][0] = -999
	assert.Equal(t, float64(slot), fs.observations[slot])
}
