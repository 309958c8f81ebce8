// Package agent implements the training-side update loop on top of a
// replay memory: epsilon schedules, epsilon-greedy action selection and
// the Q-target computation fed to an external model.
package agent

// Schedule yields the exploration rate consumed by an epsilon-greedy
// policy. Each call advances the schedule by one step.
type Schedule interface {
	Next() float64
}

type linearSchedule struct {
	start, end float64
	steps      int
	taken      int
}

// NewLinear interpolates linearly from start to end over the given
// number of steps, then keeps returning end.
func NewLinear(start, end float64, steps int) Schedule {
	return &linearSchedule{start: start, end: end, steps: steps}
}

func (s *linearSchedule) Next() float64 {
	if s.taken >= s.steps {
		return s.end
	}
	v := s.start + (s.end-s.start)*float64(s.taken)/float64(s.steps-1)
	s.taken++
	return v
}

type decaySchedule struct {
	value, decay, min float64
}

// NewDecay starts at start (or min, whichever is larger) and multiplies
// by decay on every step, never dropping below min.
func NewDecay(start, decay, min float64) Schedule {
	if start < min {
		start = min
	}
	return &decaySchedule{value: start, decay: decay, min: min}
}

func (s *decaySchedule) Next() float64 {
	v := s.value
	s.value *= s.decay
	if s.value < s.min {
		s.value = s.min
	}
	return v
}
