// internal/history/sqlite.go
//
// SQLite-backed Recorder.
// Responsibilities:
//   - Opening the database file with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying embedded migrations (idempotent, recorded in schema_migrations).
//   - Lobby/attempt inserts and the leaderboard/stats queries.

package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// migrationsFS is rooted at the migrations directory.
var migrationsFS, _ = fs.Sub(embeddedMigrations, "migrations")

// tsLayout sorts lexicographically in time order.
const tsLayout = "2006-01-02T15:04:05.000Z"

// SQLite implements Recorder on a SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if missing) the database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	ms, err := loadMigrations(migrationsFS)
	if err == nil {
		err = applyMigrations(ctx, db, ms)
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// sqliteDSN enables WAL, a busy timeout and foreign keys on every pooled
// connection, not only the first.
func sqliteDSN(path string) string {
	q := url.Values{}
	q.Set("_busy_timeout", "5000")
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	return "file:" + path + "?" + q.Encode()
}

// migration is one embedded schema step, applied at most once.
type migration struct {
	name string
	sql  string
}

// loadMigrations reads every *.sql file at the root of fsys, ordered by name.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(names)
	ms := make([]migration, 0, len(names))
	for _, n := range names {
		body, err := fs.ReadFile(fsys, n)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", n, err)
		}
		ms = append(ms, migration{name: n, sql: string(body)})
	}
	return ms, nil
}

// applyMigrations runs the migrations not yet listed in schema_migrations,
// each in its own transaction together with its bookkeeping row.
func applyMigrations(ctx context.Context, db *sql.DB, ms []migration) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	done, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}
	for _, m := range ms {
		if done[m.name] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
		log.Info().Str("migration", m.name).Msg("applied")
	}
	return nil
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()
	done := map[string]bool{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		done[n] = true
	}
	return done, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("apply %s: %w", m.name, err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
		m.name, time.Now().UTC().Format(tsLayout),
	); err != nil {
		return fmt.Errorf("record %s: %w", m.name, err)
	}
	return tx.Commit()
}

// LobbyCreated inserts a lobby row. Reused IDs keep their first row.
func (s *SQLite) LobbyCreated(ctx context.Context, lobbyID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO lobbies (id, created_at) VALUES (?, ?)`,
		lobbyID, at.UTC().Format(tsLayout),
	)
	return err
}

// RecordAttempt inserts one submission.
func (s *SQLite) RecordAttempt(ctx context.Context, a Attempt) error {
	var player any
	if a.PlayerID != "" {
		player = a.PlayerID
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO attempts (lobby_id, player_id, kanji, word, correct, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		a.LobbyID, player, a.Kanji, a.Word, a.Correct, a.At.UTC().Format(tsLayout),
	)
	return err
}

// LobbyClosed stores the final score of an evicted lobby.
func (s *SQLite) LobbyClosed(ctx context.Context, lobbyID string, finalScore int, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE lobbies SET closed_at=?, final_score=? WHERE id=?`,
		at.UTC().Format(tsLayout), finalScore, lobbyID,
	)
	return err
}

// Leaderboard ranks lobbies by correct answers, then fewest attempts, then
// earliest first attempt.
func (s *SQLite) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `
        SELECT lobby_id, SUM(correct) AS score, COUNT(1) AS attempts
        FROM attempts
        GROUP BY lobby_id
        HAVING score > 0
        ORDER BY score DESC, attempts ASC, MIN(created_at) ASC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderboardRow, 0, limit)
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.LobbyID, &r.Score, &r.Attempts); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats counts a lobby's submissions.
func (s *SQLite) Stats(ctx context.Context, lobbyID string) (Stats, error) {
	st := Stats{LobbyID: lobbyID}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(correct), 0) FROM attempts WHERE lobby_id=?`,
		lobbyID,
	).Scan(&st.Attempts, &st.Correct)
	if err != nil {
		return Stats{}, err
	}
	st.Incorrect = st.Attempts - st.Correct
	return st, nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }
