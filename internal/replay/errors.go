package replay

import "errors"

var (
	// ErrShape indicates a transition whose frame count or frame shape
	// does not match the buffer configuration.
	ErrShape = errors.New("frame shape mismatch")
	// ErrWindowMismatch indicates state and next_state do not overlap by
	// k-1 frames; this is a caller bug, not a transient condition.
	ErrWindowMismatch = errors.New("sliding window mismatch")
	// ErrInsufficientHistory indicates sampling was attempted before at
	// least one full frame window was stored.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrSampleSize indicates a sample request larger than the number of
	// stored records.
	ErrSampleSize = errors.New("sample size exceeds stored records")
	// ErrNoValidSample indicates the rejection-sampling budget was
	// exhausted without finding a valid window.
	ErrNoValidSample = errors.New("no valid sample window")
)
