package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/frankfika/pokersight-gto/server/advisor"
	"github.com/frankfika/pokersight-gto/server/config"
	"github.com/frankfika/pokersight-gto/server/llm"
	"github.com/frankfika/pokersight-gto/server/relay"
	"github.com/frankfika/pokersight-gto/server/session"
	"github.com/frankfika/pokersight-gto/server/store"
	"github.com/frankfika/pokersight-gto/server/vision"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := newLogger(cfg.Log)

	var migrate bool
	for _, a := range os.Args[1:] {
		if a == "--migrate" {
			migrate = true
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage is optional: without a DSN the advisor runs, it just keeps
	// no history.
	var db *store.DB
	if cfg.Store.DSN != "" {
		db, err = store.Open(cfg.Store.DSN)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close(context.Background())
		if migrate {
			if err := store.Migrate(ctx, db); err != nil {
				log.Fatal(err)
			}
			logger.Info().Msg("migrated")
			return
		}
	} else if migrate {
		log.Fatal("--migrate needs DATABASE_URL")
	}

	var recorder session.Recorder
	if db != nil {
		recorder = dbRecorder{db: db}
	}

	sess := session.New(advisorConfig(cfg.Advisor), visionThresholds(cfg.Vision), recorder, logger)
	if db != nil {
		if err := db.CreateSession(ctx, sess.ID); err != nil {
			logger.Error().Err(err).Msg("create session row")
		}
		defer func() {
			if err := db.EndSession(context.Background(), sess.ID); err != nil {
				logger.Error().Err(err).Msg("end session row")
			}
		}()
	}
	go sess.Run(ctx)

	client := llm.NewClient(cfg.Model.Name, logger)
	advise := func(ctx context.Context, jpeg []byte, onChunk func(string)) (string, error) {
		return client.AdviseFrame(ctx, jpeg, onChunk)
	}
	rh := relay.NewHandler(sess, advise, cfg.Relay.UpstreamURL, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           Router(sess, db, rh),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("model", cfg.Model.Name).
		Str("session_id", sess.ID).
		Bool("store", db != nil).
		Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func advisorConfig(cfg config.AdvisorConfig) advisor.Config {
	return advisor.Config{
		ActingExitWindow:        cfg.ActingExitWindow,
		WaitingConfirmations:    cfg.WaitingConfirmations,
		ActingConfirmationsHigh: cfg.ActingConfirmHigh,
		ActingConfirmationsLow:  cfg.ActingConfirmLow,
		PixelEscapeThreshold:    cfg.PixelEscapeThreshold,
	}
}

func visionThresholds(cfg config.VisionConfig) vision.Thresholds {
	th := vision.DefaultThresholds()
	if cfg.BandFrac > 0 && cfg.BandFrac <= 1 {
		th.BandFrac = cfg.BandFrac
	}
	if cfg.PrimaryDensity > 0 {
		th.PrimaryDensity = cfg.PrimaryDensity
	}
	if cfg.SecondaryDensity > 0 {
		th.SecondaryDensity = cfg.SecondaryDensity
	}
	return th
}

// dbRecorder adapts the store to the session's Recorder.
type dbRecorder struct{ db *store.DB }

func (r dbRecorder) RecordTransition(ctx context.Context, u session.Update) error {
	_, err := r.db.InsertDecision(ctx, store.Decision{
		SessionID:           u.SessionID,
		Phase:               string(u.State.Phase),
		Kind:                string(u.State.Kind),
		Display:             u.State.Display,
		Fields:              u.State.PinnedFields,
		WaitingStreak:       u.Diag.WaitingStreak,
		ActingStreak:        u.Diag.ActingStreak,
		PixelOverrideStreak: u.Diag.PixelOverrideStreak,
		PixelConfidence:     string(u.Diag.PixelConfidence),
		PixelDensity:        u.Diag.PixelDensity,
	})
	return err
}
