// internal/httpserver/routes_daily.go
//
// Daily prompt and leaderboard:
//   - GET /daily/kanji  → today's kanji (same for every caller on a UTC date)
//     and the UTC midnight when it changes
//   - GET /leaderboard  → best lobbies from history (?limit=, default 20, max 100)
//
// Daily selection is deterministic: a PCG seeded with HMAC(DAILY_SALT, date).

package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kanji-guesser/go-server/internal/daily"
	"github.com/kanji-guesser/go-server/internal/game"
	"github.com/kanji-guesser/go-server/internal/history"
)

// mountDaily registers /daily/kanji and /leaderboard.
func (s *Server) mountDaily(r chi.Router) {
	r.Get("/daily/kanji", s.handle(s.handleDailyKanji))
	r.Get("/leaderboard", s.handle(s.handleLeaderboard))
}

type dailyRes struct {
	Date     string    `json:"date"`
	Kanji    string    `json:"kanji"`
	ResetsAt time.Time `json:"resets_at"`
}

type leaderboardRes struct {
	Top []history.LeaderboardRow `json:"top"`
}

func (s *Server) handleDailyKanji(r *http.Request) result {
	now := s.opts.Now()
	return success{status: http.StatusOK, body: dailyRes{
		Date:     daily.DateKey(now),
		Kanji:    s.lex.Daily(now, s.opts.DailySalt),
		ResetsAt: daily.NextReset(now),
	}}
}

func (s *Server) handleLeaderboard(r *http.Request) result {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			return failure{fmt.Errorf("%w: limit must be a positive integer", game.ErrInvalidInput)}
		}
		limit = n
	}
	rows, err := s.history.Leaderboard(r.Context(), limit)
	if err != nil {
		return failure{fmt.Errorf("leaderboard: %w", err)}
	}
	if rows == nil {
		rows = []history.LeaderboardRow{}
	}
	return success{status: http.StatusOK, body: leaderboardRes{Top: rows}}
}
