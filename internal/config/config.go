package config

import (
	"fmt"
	"time"
)

// Memory kinds selectable at startup.
const (
	MemoryUniform    = "uniform"
	MemoryFrameStack = "framestack"
)

// Config holds all replay service configuration.
type Config struct {
	// Server settings
	ListenAddr      string        `mapstructure:"listen_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Memory settings
	MemoryKind           string `mapstructure:"memory_kind"`
	Capacity             int    `mapstructure:"capacity"`
	FramesPerObservation int    `mapstructure:"frames_per_observation"`
	FrameLen             int    `mapstructure:"frame_len"`
	Seed                 int64  `mapstructure:"seed"`
	MaxSampleAttempts    int    `mapstructure:"max_sample_attempts"`

	// Events
	NATSURL     string `mapstructure:"nats_url"`
	NATSSubject string `mapstructure:"nats_subject"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
}

// Default returns a config with sensible defaults.
func Default() *Config {
	return &Config{
		ListenAddr:           ":8080",
		ReadTimeout:          30 * time.Second,
		WriteTimeout:         30 * time.Second,
		ShutdownTimeout:      30 * time.Second,
		MemoryKind:           MemoryFrameStack,
		Capacity:             100000,
		FramesPerObservation: 4,
		FrameLen:             84 * 84,
		Seed:                 0, // 0 means seed from the clock
		MaxSampleAttempts:    1000,
		NATSSubject:          "replay.events",
		LogLevel:             "info",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.MemoryKind != MemoryUniform && c.MemoryKind != MemoryFrameStack {
		return fmt.Errorf("memory_kind must be %q or %q", MemoryUniform, MemoryFrameStack)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if c.MemoryKind == MemoryFrameStack {
		if c.FramesPerObservation <= 0 {
			return fmt.Errorf("frames_per_observation must be positive")
		}
		if c.FrameLen <= 0 {
			return fmt.Errorf("frame_len must be positive")
		}
		if c.Capacity <= c.FramesPerObservation {
			return fmt.Errorf("capacity must exceed frames_per_observation")
		}
		if c.MaxSampleAttempts <= 0 {
			return fmt.Errorf("max_sample_attempts must be positive")
		}
	}
	return nil
}
