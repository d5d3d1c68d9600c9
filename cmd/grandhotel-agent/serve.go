package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/desu777/GrandHotelAgent/pkg/agent"
	"github.com/desu777/GrandHotelAgent/pkg/config"
	"github.com/desu777/GrandHotelAgent/pkg/gemini"
	"github.com/desu777/GrandHotelAgent/pkg/hotel"
	"github.com/desu777/GrandHotelAgent/pkg/httpserver"
	"github.com/desu777/GrandHotelAgent/pkg/langdetect"
	"github.com/desu777/GrandHotelAgent/pkg/orchestrator"
	"github.com/desu777/GrandHotelAgent/pkg/session"
	"github.com/desu777/GrandHotelAgent/pkg/tools"
	"github.com/desu777/GrandHotelAgent/pkg/tts"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return errors.Wrap(err, "configuration")
			}
			cfg.Version = Version
			setupLogging(cfg)
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	var (
		store   session.Store
		limiter session.Limiter
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse REDIS_URL")
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()
		store = session.NewRedisStore(client, cfg.SessionTTL)
		limiter = session.NewRedisLimiter(client, cfg.RateLimitPerMin)
		log.Info().Str("addr", opts.Addr).Msg("using redis session store")
	} else {
		store = session.NewMemoryStore(cfg.SessionTTL)
		limiter = session.NewMemoryLimiter(cfg.RateLimitPerMin)
		log.Warn().Msg("REDIS_URL not set, sessions are process-local")
	}

	llm := gemini.NewClient(cfg.GoogleAPIKey)
	detector := langdetect.New(llm, cfg.LLMModelDetect)
	backend := hotel.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	orch := orchestrator.New(llm, cfg.LLMModelMain, tools.Catalogue(), backend, cfg.MaxFCRounds)

	var synth tts.Synthesizer
	if cfg.TTSEnabled() {
		synth = tts.NewClient(cfg.TTSAPIKey, cfg.TTSVoiceID, cfg.TTSModelID)
		log.Info().Str("voice_id", cfg.TTSVoiceID).Msg("voice synthesis enabled")
	}

	controller := agent.NewController(
		store, limiter, detector, orch, synth,
		cfg.SessionMaxMsgs, cfg.TurnDeadline,
	)

	server := httpserver.New(controller, cfg.Version, cfg.AppEnv == config.EnvProduction)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	eg := errgroup.Group{}

	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigChan:
			log.Info().Msg("received interrupt signal, shutting down gracefully...")
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		log.Info().Msg("server shutdown complete")
		return nil
	})

	eg.Go(func() error {
		log.Info().
			Str("addr", cfg.ListenAddr).
			Str("model", cfg.LLMModelMain).
			Str("backend", cfg.BackendURL).
			Msg("starting gateway")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})

	return eg.Wait()
}
