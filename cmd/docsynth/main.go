package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docsynth/docsynth/internal/config"
	"github.com/docsynth/docsynth/internal/ffmpeg"
	"github.com/docsynth/docsynth/internal/observability"
	"github.com/docsynth/docsynth/internal/pipeline"
	"github.com/docsynth/docsynth/internal/tts"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <input.txt>\n", os.Args[0])
		os.Exit(2)
	}
	inputPath := os.Args[1]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("input", inputPath).
		Str("provider", cfg.Provider).
		Int("chunk_limit", cfg.ChunkLimit).
		Int("workers", cfg.SynthesisWorkers).
		Msg("Document synthesis starting")

	synth, err := tts.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to construct synthesis provider")
	}
	defer synth.Close()

	tool := ffmpeg.New(cfg.FFmpegPath)

	pipe, err := pipeline.New(cfg, synth, tool)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to construct pipeline")
	}

	// Cancel the run on SIGINT/SIGTERM so no partial artifact survives
	// unnoticed.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ops server: health, readiness and Prometheus metrics while a long
	// synthesis runs.
	var opsServer *http.Server
	if cfg.MetricsEnabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", observability.HealthCheckHandler())
		mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
			"ffmpeg": func(ctx context.Context) (bool, error) {
				_, err := exec.LookPath(cfg.FFmpegPath)
				return err == nil, err
			},
			"provider": func(ctx context.Context) (bool, error) {
				return synth != nil, nil
			},
		}))
		mux.Handle("/metrics", promhttp.Handler())

		opsServer = &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.MetricsPort),
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info().Str("port", cfg.MetricsPort).Msg("Ops server listening")
			if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("Ops server failed")
			}
		}()
	}

	final, err := pipe.Run(ctx, inputPath)

	if opsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = opsServer.Shutdown(shutdownCtx)
	}

	if err != nil {
		logger.Error().Err(err).Msg("Synthesis failed")
		os.Exit(1)
	}

	logger.Info().Str("output", final).Msg("Synthesis finished")
	fmt.Println(final)
}
