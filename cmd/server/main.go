package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridline/replay/internal/config"
	"github.com/gridline/replay/internal/events"
	httpserver "github.com/gridline/replay/internal/http"
	"github.com/gridline/replay/internal/replay"
	"github.com/gridline/replay/internal/service"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "replay-server",
	Short: "Experience replay buffer service",
	Long: `Replay service that stores environment transitions and samples
training batches for reinforcement-learning agents.

The framestack memory stores only the newest frame of each transition
and reconstructs overlapping frame windows on sample, so stacked
observations are held once instead of k times.`,
	RunE: runServer,
}

func init() {
	cfg = config.Default()

	// Server settings
	rootCmd.Flags().StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "HTTP listen address")
	rootCmd.Flags().DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "HTTP read timeout")
	rootCmd.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "HTTP write timeout")
	rootCmd.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")

	// Memory settings
	rootCmd.Flags().StringVar(&cfg.MemoryKind, "memory-kind", cfg.MemoryKind, "Memory kind (uniform or framestack)")
	rootCmd.Flags().IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "Maximum number of stored records")
	rootCmd.Flags().IntVar(&cfg.FramesPerObservation, "frames-per-observation", cfg.FramesPerObservation, "Frames per stacked observation")
	rootCmd.Flags().IntVar(&cfg.FrameLen, "frame-len", cfg.FrameLen, "Number of elements per flattened frame")
	rootCmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Sampling RNG seed (0 seeds from the clock)")
	rootCmd.Flags().IntVar(&cfg.MaxSampleAttempts, "max-sample-attempts", cfg.MaxSampleAttempts, "Rejection sampling attempt budget per draw")

	// Events
	rootCmd.Flags().StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL (empty disables event publishing)")
	rootCmd.Flags().StringVar(&cfg.NATSSubject, "nats-subject", cfg.NATSSubject, "NATS subject prefix for events")

	// Logging
	rootCmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// Bind flags to viper for environment variable support
	viper.BindPFlags(rootCmd.Flags())
	viper.SetEnvPrefix("REPLAY")
	viper.AutomaticEnv()
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var memory replay.Memory
	switch cfg.MemoryKind {
	case config.MemoryUniform:
		memory = replay.NewUniformMemory(cfg.Capacity, rng)
	case config.MemoryFrameStack:
		fs := replay.NewFrameStack(cfg.FramesPerObservation, cfg.Capacity, cfg.FrameLen, rng)
		fs.SetMaxSampleAttempts(cfg.MaxSampleAttempts)
		memory = fs
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return err
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	svc := service.NewReplay(memory, cfg.Capacity, publisher, logger)
	handler := httpserver.NewServer(svc, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.ListenAddr).
			Str("memory_kind", cfg.MemoryKind).
			Int("capacity", cfg.Capacity).
			Int64("seed", seed).
			Msg("replay HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sig:
	}

	logger.Info().Msg("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
