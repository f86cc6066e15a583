package main

import (
	"DonorBot/config"
	"DonorBot/handler"
	"DonorBot/metrics"
	"DonorBot/repo"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}
	setupLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, prometheus.DefaultRegisterer); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Bot failed")
	}
	log.Info().Msg("Bot stopped")
}

// run wires the bot and blocks until ctx is done. Every resource it opens is
// released before it returns.
func run(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) error {
	questions, err := config.LoadQuestions(cfg.QuestionnairePath)
	if err != nil {
		return fmt.Errorf("error loading questionnaire: %w", err)
	}

	collector, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("error registering metrics: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error opening %s screening store: %w", cfg.Store, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing screening store")
		}
	}()

	donorHandler := handler.NewDonorBotHandler(store, handler.Options{
		Questions:     questions,
		Metrics:       collector,
		GreetingDelay: cfg.GreetingDelay,
		AnswerDelay:   cfg.AnswerDelay,
		VerdictDelay:  cfg.VerdictDelay,
	})
	defer donorHandler.Close()

	opts := []bot.Option{
		bot.WithDefaultHandler(donorHandler.Handler),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return fmt.Errorf("error creating bot: %w", err)
	}

	metricsServer := serveMetrics(cfg.MetricsAddr)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping metrics server")
		}
	}()

	log.Info().
		Str("store", cfg.Store).
		Int("questions", len(questions)).
		Str("metrics_addr", cfg.MetricsAddr).
		Msg("Bot started")
	b.Start(ctx)
	return nil
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openStore returns the screening store selected by STORE.
func openStore(ctx context.Context, cfg *config.Config) (repo.ScreeningStore, error) {
	switch cfg.Store {
	case config.StoreFirebase:
		fc, err := repo.NewFirebaseConnector(ctx, cfg.FirebaseServiceAccountKeyPath, cfg.FirebaseDatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("error creating Firebase connector: %w", err)
		}
		return fc, nil
	case config.StoreSQLite:
		return repo.NewSQLiteStore(ctx, cfg.DatabasePath)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	return server
}
