package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kanji-guesser/go-server/internal/auth"
	"github.com/kanji-guesser/go-server/internal/config"
	"github.com/kanji-guesser/go-server/internal/game"
	"github.com/kanji-guesser/go-server/internal/httpserver"
	"github.com/kanji-guesser/go-server/internal/lexicon"
	"github.com/kanji-guesser/go-server/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)
	if cfg.UsesDefaultSecret() {
		log.Warn().Msg("JWT_SECRET is the development default; set it in production")
	}

	lex, err := lexicon.Load(cfg.KanjiFile, cfg.WordsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load kanji lists")
	}
	k, w := lex.Stats()
	log.Info().Int("kanji", k).Int("words", w).Msg("lexicon loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, err := openHistory(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history database")
	}
	defer func() {
		if err := rec.Close(); err != nil {
			log.Warn().Err(err).Msg("close history")
		}
	}()

	mem := store.NewMemory(lex,
		store.WithTTL(cfg.LobbyTTL),
		store.WithRotateOnCorrect(cfg.RotateOnCorrect),
		store.WithEvictHook(func(v game.LobbyView) {
			hctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := rec.LobbyClosed(hctx, v.ID, v.Score, time.Now()); err != nil {
				log.Warn().Err(err).Str("lobby", v.ID).Msg("record lobby closed")
			}
		}),
	)
	go mem.RunJanitor(ctx, cfg.JanitorInterval)

	api := httpserver.New(mem, lex, rec, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), httpserver.Options{
		ClientOrigin:   cfg.ClientOrigin,
		StaticDir:      cfg.StaticDir,
		DailySalt:      cfg.DailySalt,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received, draining connections")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("http server shutdown")
		}
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", srv.Addr).Dur("lobby_ttl", cfg.LobbyTTL).Msg("starting kanji server")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	<-idleConnsClosed
	log.Info().Msg("server shutdown complete")
}

// setupLogging applies LOG_LEVEL and LOG_FORMAT to the global zerolog logger.
func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown LOG_LEVEL, keeping info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
