// Package history records lobby activity for leaderboards and stats.
//
// Recording is best effort: callers log failures and carry on, because the
// live game state is the in-memory store, not this history.
package history

import (
	"context"
	"time"
)

const (
	defaultLeaderboardLimit = 20
	maxLeaderboardLimit     = 100
)

// Attempt is one word submission.
type Attempt struct {
	LobbyID  string
	PlayerID string // empty for anonymous submissions
	Kanji    string
	Word     string
	Correct  bool
	At       time.Time
}

// LeaderboardRow is one lobby's standing.
type LeaderboardRow struct {
	LobbyID  string `json:"lobby_id"`
	Score    int    `json:"score"`
	Attempts int    `json:"attempts"`
}

// Stats summarises a lobby's submissions.
type Stats struct {
	LobbyID   string `json:"lobby_id"`
	Attempts  int    `json:"attempts"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
}

// Recorder persists lobby history.
type Recorder interface {
	LobbyCreated(ctx context.Context, lobbyID string, at time.Time) error
	RecordAttempt(ctx context.Context, a Attempt) error
	LobbyClosed(ctx context.Context, lobbyID string, finalScore int, at time.Time) error

	// Leaderboard returns lobbies with a positive score, best first.
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
	Stats(ctx context.Context, lobbyID string) (Stats, error)

	Close() error
}

// Nop discards everything. It is used when no database is configured.
type Nop struct{}

func (Nop) LobbyCreated(context.Context, string, time.Time) error     { return nil }
func (Nop) RecordAttempt(context.Context, Attempt) error              { return nil }
func (Nop) LobbyClosed(context.Context, string, int, time.Time) error { return nil }
func (Nop) Leaderboard(context.Context, int) ([]LeaderboardRow, error) {
	return []LeaderboardRow{}, nil
}
func (Nop) Stats(_ context.Context, lobbyID string) (Stats, error) {
	return Stats{LobbyID: lobbyID}, nil
}
func (Nop) Close() error { return nil }

// clampLimit applies the default (20) and cap (100) to a leaderboard limit.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLeaderboardLimit
	case limit > maxLeaderboardLimit:
		return maxLeaderboardLimit
	}
	return limit
}
