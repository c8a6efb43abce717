package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS lobbies (
  id           TEXT PRIMARY KEY,
  created_at   TIMESTAMPTZ NOT NULL,
  closed_at    TIMESTAMPTZ,
  final_score  INTEGER
);
CREATE TABLE IF NOT EXISTS attempts (
  id          BIGSERIAL PRIMARY KEY,
  lobby_id    TEXT NOT NULL,
  player_id   TEXT,
  kanji       TEXT NOT NULL,
  word        TEXT NOT NULL,
  correct     BOOLEAN NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_lobby ON attempts(lobby_id);
`

const (
	pgInsertLobby = `INSERT INTO lobbies (id, created_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`

	pgInsertAttempt = `INSERT INTO attempts (lobby_id, player_id, kanji, word, correct, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	pgCloseLobby = `UPDATE lobbies SET closed_at=$1, final_score=$2 WHERE id=$3`

	// Selected columns are scanned by position into LeaderboardRow.
	pgLeaderboard = `
		SELECT lobby_id,
		       SUM(CASE WHEN correct THEN 1 ELSE 0 END)::int AS score,
		       COUNT(1)::int AS attempts
		FROM attempts
		GROUP BY lobby_id
		HAVING SUM(CASE WHEN correct THEN 1 ELSE 0 END) > 0
		ORDER BY score DESC, attempts ASC, MIN(created_at) ASC
		LIMIT $1`

	pgStats = `SELECT COUNT(1)::int, COALESCE(SUM(CASE WHEN correct THEN 1 ELSE 0 END), 0)::int
		 FROM attempts WHERE lobby_id=$1`
)

// querier is the part of *pgxpool.Pool the recorder uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Recorder on a pgx connection pool.
type Postgres struct {
	db    querier
	close func()
}

// OpenPostgres connects to url and creates the schema if needed.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{db: pool, close: pool.Close}, nil
}

func (p *Postgres) LobbyCreated(ctx context.Context, lobbyID string, at time.Time) error {
	_, err := p.db.Exec(ctx, pgInsertLobby, lobbyID, at.UTC())
	return err
}

func (p *Postgres) RecordAttempt(ctx context.Context, a Attempt) error {
	var player *string
	if a.PlayerID != "" {
		player = &a.PlayerID
	}
	_, err := p.db.Exec(ctx, pgInsertAttempt, a.LobbyID, player, a.Kanji, a.Word, a.Correct, a.At.UTC())
	return err
}

func (p *Postgres) LobbyClosed(ctx context.Context, lobbyID string, finalScore int, at time.Time) error {
	_, err := p.db.Exec(ctx, pgCloseLobby, at.UTC(), finalScore, lobbyID)
	return err
}

func (p *Postgres) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := p.db.Query(ctx, pgLeaderboard, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[LeaderboardRow])
}

func (p *Postgres) Stats(ctx context.Context, lobbyID string) (Stats, error) {
	st := Stats{LobbyID: lobbyID}
	err := p.db.QueryRow(ctx, pgStats, lobbyID).Scan(&st.Attempts, &st.Correct)
	if err != nil {
		return Stats{}, err
	}
	st.Incorrect = st.Attempts - st.Correct
	return st, nil
}

func (p *Postgres) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}
