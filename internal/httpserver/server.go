// internal/httpserver/server.go
//
// HTTP server wiring for the kanji quiz backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     access log, per-IP rate limiting).
//   - Public endpoints: "/", "/health", "/debug/lexicon".
//   - Lobby endpoints (optional player token): /lobby/*, /player/*,
//     /kanji/{id}, /new_kanji/{id}, /check_word/{id}. Settings and start
//     need the leader's token.
//   - Daily prompt and leaderboard: /daily/kanji, /leaderboard.
//   - Optional static frontend with SPA fallback for unknown GET routes.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled.
//   - Private lobbies reject requests without a token issued for that lobby.
//   - History writes are best effort; failures are logged, never returned.

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kanji-guesser/go-server/internal/auth"
	"github.com/kanji-guesser/go-server/internal/game"
	"github.com/kanji-guesser/go-server/internal/history"
	"github.com/kanji-guesser/go-server/internal/store"
)

// LobbyStore is the lobby state the handlers operate on.
type LobbyStore interface {
	Create(ctx context.Context, p store.CreateParams) (game.LobbyView, game.Player, error)
	Join(ctx context.Context, id string, p store.JoinParams) (game.LobbyView, game.Player, error)
	Lookup(ctx context.Context, id string) (*game.Lobby, error)
	Kanji(ctx context.Context, id string) (string, error)
	NewKanji(ctx context.Context, id string) (string, error)
	CheckWord(ctx context.Context, id string, in game.CheckInput) (game.CheckResult, error)
	Info(ctx context.Context, id string) (game.LobbyView, error)
	Players(ctx context.Context, id string) ([]game.Player, error)
	PlayerInfo(ctx context.Context, id, playerID string) (game.Player, error)
	UpdateSettings(ctx context.Context, id, playerID string, s game.GameSettings) (game.GameSettings, error)
	StartGame(ctx context.Context, id, playerID string) (string, error)
	Len() int
}

// Lexicon is the corpus view used by the daily and debug endpoints.
type Lexicon interface {
	Daily(t time.Time, salt string) string
	Stats() (kanji, words int)
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	ClientOrigin   string        // default http://localhost:5173
	StaticDir      string        // serve a frontend build with SPA fallback
	DailySalt      string        // default local_dev_salt
	RateLimitRPS   float64       // 0 disables rate limiting
	RateLimitBurst int           // default 2*RPS
	Timeout        time.Duration // default 10s
	Now            func() time.Time
}

// Server bundles the router and its dependencies.
type Server struct {
	r       *chi.Mux
	lobbies LobbyStore
	lex     Lexicon
	history history.Recorder
	tokens  *auth.Tokens
	opts    Options
}

// New constructs a Server, installs middleware, and registers routes.
// A nil recorder is replaced by history.Nop.
func New(lobbies LobbyStore, lex Lexicon, rec history.Recorder, tokens *auth.Tokens, opts Options) *Server {
	if rec == nil {
		rec = history.Nop{}
	}
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.DailySalt == "" {
		opts.DailySalt = "local_dev_salt"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{r: chi.NewRouter(), lobbies: lobbies, lex: lex, history: rec, tokens: tokens, opts: opts}

	// --- middleware ---
	s.r.Use(chimw.RequestID)             // add X-Request-ID
	s.r.Use(chimw.RealIP)                // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog)                   // one zerolog line per request
	s.r.Use(chimw.Recoverer)             // recover from panics
	s.r.Use(chimw.Timeout(opts.Timeout)) // bound handler time
	s.r.Use(jsonContentType)             // default JSON responses
	s.r.Use(cors(opts.ClientOrigin))     // credentials-friendly CORS
	if opts.RateLimitRPS > 0 {
		s.r.Use(newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, opts.Now).middleware)
	}
	s.r.Use(s.withOptionalPlayer) // decorate with token claims when present

	// --- diagnostics ---
	if opts.StaticDir == "" {
		s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"kanji-guesser","endpoints":["/health","POST /lobby/create","/lobby/join/{id}","/lobby/{id}/info","POST /lobby/{id}/settings","POST /lobby/{id}/start","/lobby/players/{id}","/player/{id}/{player_id}","/kanji/{id}","POST /new_kanji/{id}","POST /check_word/{id}","/daily/kanji","/leaderboard"]}`))
		})
	}
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/lexicon", s.handle(s.handleDebugLexicon))

	s.mountLobby(s.r)
	s.mountDaily(s.r)

	if opts.StaticDir != "" {
		s.r.NotFound(spaHandler(opts.StaticDir))
	} else {
		s.r.NotFound(notFoundJSON)
	}
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.r }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) handleDebugLexicon(r *http.Request) result {
	k, w := s.lex.Stats()
	return success{status: http.StatusOK, body: map[string]int{"kanji": k, "words": w, "lobbies": s.lobbies.Len()}}
}

// notFoundJSON answers unknown routes with a JSON 404.
func notFoundJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
}
