package replay

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformTransition(action int) Transition {
	return Transition{
		State:     []Frame{{float64(action)}},
		Action:    action,
		Reward:    float64(action),
		NextState: []Frame{{float64(action) + 1}},
		Done:      false,
	}
}

func TestUniformMemory_AppendBelowCapacity(t *testing.T) {
	mem := NewUniformMemory(10, rand.New(rand.NewSource(1)))

	for i := 0; i < 7; i++ {
		require.NoError(t, mem.Append(uniformTransition(i)))
		assert.Equal(t, i+1, mem.Len())
	}
}

func TestUniformMemory_FIFOEviction(t *testing.T) {
	mem := NewUniformMemory(3, rand.New(rand.NewSource(1)))

	// Append A, B, C, D as actions 0..3; A must be evicted.
	for i := 0; i < 4; i++ {
		require.NoError(t, mem.Append(uniformTransition(i)))
	}
	assert.Equal(t, 3, mem.Len())

	sampled, err := mem.Sample(3)
	require.NoError(t, err)

	got := map[int]bool{}
	for _, tr := range sampled {
		got[tr.Action] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, got)
}

func TestUniformMemory_SampleTooLarge(t *testing.T) {
	mem := NewUniformMemory(3, rand.New(rand.NewSource(1)))

	for i := 0; i < 4; i++ {
		require.NoError(t, mem.Append(uniformTransition(i)))
	}

	_, err := mem.Sample(4)
	require.ErrorIs(t, err, ErrSampleSize)
}

func TestUniformMemory_SampleDistinct(t *testing.T) {
	mem := NewUniformMemory(10, rand.New(rand.NewSource(42)))

	for i := 0; i < 10; i++ {
		require.NoError(t, mem.Append(uniformTransition(i)))
	}

	sampled, err := mem.Sample(6)
	require.NoError(t, err)
	require.Len(t, sampled, 6)

	seen := map[int]bool{}
	for _, tr := range sampled {
		assert.False(t, seen[tr.Action], "action %d sampled twice", tr.Action)
		seen[tr.Action] = true
		assert.GreaterOrEqual(t, tr.Action, 0)
		assert.Less(t, tr.Action, 10)
	}
}

func TestUniformMemory_SampleIsIndependent(t *testing.T) {
	mem := NewUniformMemory(5, rand.New(rand.NewSource(7)))

	for i := 0; i < 5; i++ {
		require.NoError(t, mem.Append(uniformTransition(i)))
	}

	// Sampling must not consume records.
	for i := 0; i < 3; i++ {
		sampled, err := mem.Sample(5)
		require.NoError(t, err)
		assert.Len(t, sampled, 5)
		assert.Equal(t, 5, mem.Len())
	}
}
