// db.go
//
// History backend selection.
//   - DATABASE_URL set   → Postgres (pgxpool), schema created on connect.
//   - DATABASE_PATH set  → SQLite file, embedded migrations applied.
//   - neither            → no-op recorder; leaderboard and stats stay empty.

package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kanji-guesser/go-server/internal/config"
	"github.com/kanji-guesser/go-server/internal/history"
)

// openHistory returns the recorder configured by cfg.
func openHistory(ctx context.Context, cfg config.Config) (history.Recorder, error) {
	switch {
	case cfg.DatabaseURL != "":
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pg, err := history.OpenPostgres(cctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("history: postgres")
		return pg, nil
	case cfg.DatabasePath != "":
		db, err := history.OpenSQLite(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.DatabasePath).Msg("history: sqlite")
		return db, nil
	}
	log.Info().Msg("history: disabled (set DATABASE_PATH or DATABASE_URL)")
	return history.Nop{}, nil
}
