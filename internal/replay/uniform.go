package replay

import (
	"fmt"
	"math/rand"
)

// UniformMemory is a bounded FIFO buffer of full transitions with
// uniform without-replacement sampling. Once the buffer reaches
// capacity, each append overwrites the oldest record.
type UniformMemory struct {
	records []Transition
	maxlen  int
	head    int
	rng     *rand.Rand
}

// NewUniformMemory creates a uniform replay memory holding at most
// maxlen transitions. The rng is the only source of randomness, so a
// seeded source makes sampling reproducible.
func NewUniformMemory(maxlen int, rng *rand.Rand) *UniformMemory {
	return &UniformMemory{
		records: make([]Transition, 0, maxlen),
		maxlen:  maxlen,
		rng:     rng,
	}
}

// Append stores a transition, evicting the oldest one when at capacity.
func (m *UniformMemory) Append(t Transition) error {
	if len(m.records) < m.maxlen {
		m.records = append(m.records, t)
		return nil
	}
	m.records[m.head] = t
	m.head = (m.head + 1) % m.maxlen
	return nil
}

// Sample draws batchSize distinct transitions uniformly at random from
// the stored records. It fails with ErrSampleSize when more records are
// requested than are stored.
func (m *UniformMemory) Sample(batchSize int) ([]Transition, error) {
	if batchSize > len(m.records) {
		return nil, fmt.Errorf("%w: requested %d of %d stored", ErrSampleSize, batchSize, len(m.records))
	}

	// Fisher-Yates over the index set, take the first batchSize.
	indices := make([]int, len(m.records))
	for i := range indices {
		indices[i] = i
	}
	for i := len(indices) - 1; i > 0; i-- {
		j := m.rng.Intn(i + 1)
		indices[i], indices[j] = indices[j], indices[i]
	}

	sampled := make([]Transition, batchSize)
	for i := 0; i < batchSize; i++ {
		sampled[i] = m.records[indices[i]]
	}
	return sampled, nil
}

// Len returns the number of stored transitions.
func (m *UniformMemory) Len() int {
	return len(m.records)
}
