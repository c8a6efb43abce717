// internal/httpserver/routes_lobby.go
//
// Lobby endpoints:
//   - POST     /lobby/create             → new lobby, creator's player id + token
//   - GET|POST /lobby/join/{id}          → join, new player id + token
//   - GET      /lobby/{id}/info          → snapshot (players, leader, settings, status)
//   - GET      /lobby/{id}/stats         → attempt counts from history
//   - POST     /lobby/{id}/settings      → leader replaces settings before the start
//   - POST     /lobby/{id}/start         → leader starts the game with a fresh prompt
//   - GET      /lobby/players/{id}       → players in join order
//   - GET      /player/{id}/{player_id}  → one player
//   - GET      /kanji/{id}               → current prompt
//   - POST     /new_kanji/{id}           → draw a new prompt
//   - POST     /check_word/{id}          → score a word against the prompt
//
// Private lobbies require a token issued for that lobby on every route
// except create and join.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/kanji-guesser/go-server/internal/game"
	"github.com/kanji-guesser/go-server/internal/history"
	"github.com/kanji-guesser/go-server/internal/store"
)

const (
	msgCreated = "Lobby created successfully!"
	msgJoined  = "Joined lobby successfully!"
	msgUpdated = "Settings updated successfully"
	msgStarted = "Game started successfully"

	maxBodyBytes = 4 << 10
)

// mountLobby registers lobby and gameplay routes.
func (s *Server) mountLobby(r chi.Router) {
	r.Post("/lobby/create", s.handle(s.handleCreate))
	r.Get("/lobby/join/{id}", s.handle(s.handleJoin))
	r.Post("/lobby/join/{id}", s.handle(s.handleJoin))
	r.Get("/lobby/{id}/info", s.handle(s.handleInfo))
	r.Get("/lobby/{id}/stats", s.handle(s.handleStats))
	r.Post("/lobby/{id}/settings", s.handle(s.handleSettings))
	r.Post("/lobby/{id}/start", s.handle(s.handleStart))
	r.Get("/lobby/players/{id}", s.handle(s.handlePlayers))
	r.Get("/player/{id}/{player_id}", s.handle(s.handlePlayer))

	r.Get("/kanji/{id}", s.handle(s.handleKanji))
	r.Post("/new_kanji/{id}", s.handle(s.handleNewKanji))
	r.Post("/check_word/{id}", s.handle(s.handleCheckWord))
}

// lobbyReq is the optional body of create and join.
type lobbyReq struct {
	PlayerName string `json:"player_name"`
	Passcode   string `json:"passcode"`
}

// lobbyRes is returned by create and join.
type lobbyRes struct {
	Message   string    `json:"message"`
	LobbyID   string    `json:"lobby_id"`
	PlayerID  string    `json:"player_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// settingsReq carries the leader's new settings. The leader is identified by
// the player token, never by the body.
type settingsReq struct {
	Settings *game.GameSettings `json:"settings"`
}

type settingsRes struct {
	Message  string            `json:"message"`
	Settings game.GameSettings `json:"settings"`
}

type startRes struct {
	Message string `json:"message"`
	Kanji   string `json:"kanji"`
}

type playersRes struct {
	Players []game.Player `json:"players"`
}

type kanjiRes struct {
	Kanji string `json:"kanji"`
}

type checkReq struct {
	Word  string `json:"word"`
	Kanji string `json:"kanji"`
}

type checkRes struct {
	Message     string `json:"message"`
	Score       int    `json:"score"`
	PlayerScore *int   `json:"player_score,omitempty"`
	Kanji       string `json:"kanji,omitempty"`
}

func (s *Server) handleCreate(r *http.Request) result {
	var req lobbyReq
	if err := decodeBody(r, &req, true); err != nil {
		return failure{err}
	}
	view, player, err := s.lobbies.Create(r.Context(), store.CreateParams{
		PlayerName: req.PlayerName,
		Passcode:   req.Passcode,
	})
	if err != nil {
		return failure{err}
	}
	s.record(r.Context(), "lobby created", func(ctx context.Context) error {
		return s.history.LobbyCreated(ctx, view.ID, view.CreatedAt)
	})
	return s.issue(view.ID, player, msgCreated, http.StatusOK)
}

func (s *Server) handleJoin(r *http.Request) result {
	req := lobbyReq{
		PlayerName: r.URL.Query().Get("name"),
		Passcode:   r.URL.Query().Get("passcode"),
	}
	if r.Method == http.MethodPost {
		var body lobbyReq
		if err := decodeBody(r, &body, true); err != nil {
			return failure{err}
		}
		if body.PlayerName != "" {
			req.PlayerName = body.PlayerName
		}
		if body.Passcode != "" {
			req.Passcode = body.Passcode
		}
	}
	view, player, err := s.lobbies.Join(r.Context(), chi.URLParam(r, "id"), store.JoinParams{
		PlayerName: req.PlayerName,
		Passcode:   req.Passcode,
	})
	if err != nil {
		return failure{err}
	}
	return s.issue(view.ID, player, msgJoined, http.StatusOK)
}

// issue signs a player token and builds the create/join response.
func (s *Server) issue(lobbyID string, p game.Player, msg string, status int) result {
	tok, exp, err := s.tokens.Sign(lobbyID, p.ID, p.Name)
	if err != nil {
		return failure{fmt.Errorf("sign token: %w", err)}
	}
	return success{status: status, body: lobbyRes{
		Message:   msg,
		LobbyID:   lobbyID,
		PlayerID:  p.ID,
		Token:     tok,
		ExpiresAt: exp.UTC(),
	}}
}

func (s *Server) handleInfo(r *http.Request) result {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r, id); err != nil {
		return failure{err}
	}
	view, err := s.lobbies.Info(r.Context(), id)
	if err != nil {
		return failure{err}
	}
	return success{status: http.StatusOK, body: view}
}

func (s *Server) handleStats(r *http.Request) result {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r, id); err != nil {
		return failure{err}
	}
	st, err := s.history.Stats(r.Context(), id)
	if err != nil {
		return failure{fmt.Errorf("lobby stats: %w", err)}
	}
	return success{status: http.StatusOK, body: st}
}

func (s *Server) handleSettings(r *http.Request) result {
	id := chi.URLParam(r, "id")
	playerID, err := s.authorize(r, id)
	if err != nil {
		return failure{err}
	}
	var req settingsReq
	if err := decodeBody(r, &req, false); err != nil {
		return failure{err}
	}
	if req.Settings == nil {
		return failure{fmt.Errorf("%w: settings are required", game.ErrInvalidInput)}
	}
	got, err := s.lobbies.UpdateSettings(r.Context(), id, playerID, *req.Settings)
	if err != nil {
		return failure{err}
	}
	return success{status: http.StatusOK, body: settingsRes{Message: msgUpdated, Settings: got}}
}

func (s *Server) handleStart(r *http.Request) result {
	id := chi.URLParam(r, "id")
	playerID, err := s.authorize(r, id)
	if err != nil {
		return failure{err}
	}
	k, err := s.lobbies.StartGame(r.Context(), id, playerID)
	if err != nil {
		return failure{err}
	}
	log.Info().Str("lobby", id).Str("leader", playerID).Msg("game started")
	return success{status: http.StatusOK, body: startRes{Message: msgStarted, Kanji: k}}
}

func (s *Server) handlePlayers(r *http.Request) result {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r, id); err != nil {
		return failure{err}
	}
	ps, err := s.lobbies.Players(r.Context(), id)
	if err != nil {
		return failure{err}
	}
	return success{status: http.StatusOK, body: playersRes{Players: ps}}
}

func (s *Server) handlePlayer(r *http.Request) result {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r, id); err != nil {
		return failure{err}
	}
	p, err := s.lobbies.PlayerInfo(r.Context(), id, chi.URLParam(r, "player_id"))
	if err != nil {
		return failure{err}
	}
	return success{status: http.StatusOK, body: p}
}

func (s *Server) handleKanji(r *http.Request) result {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r, id); err != nil {
		return failure{err}
	}
	k, err := s.lobbies.Kanji(r.Context(), id)
	if err != nil {
		return failure{err}
	}
	return success{status: http.StatusOK, body: kanjiRes{Kanji: k}}
}

func (s *Server) handleNewKanji(r *http.Request) result {
	id := chi.URLParam(r, "id")
	if _, err := s.authorize(r, id); err != nil {
		return failure{err}
	}
	k, err := s.lobbies.NewKanji(r.Context(), id)
	if err != nil {
		return failure{err}
	}
	return success{status: http.StatusOK, body: kanjiRes{Kanji: k}}
}

func (s *Server) handleCheckWord(r *http.Request) result {
	id := chi.URLParam(r, "id")
	playerID, err := s.authorize(r, id)
	if err != nil {
		return failure{err}
	}
	var req checkReq
	if err := decodeBody(r, &req, false); err != nil {
		return failure{err}
	}
	in := game.CheckInput{
		Word:     strings.TrimSpace(req.Word),
		Kanji:    strings.TrimSpace(req.Kanji),
		PlayerID: playerID,
	}
	res, err := s.lobbies.CheckWord(r.Context(), id, in)
	if err != nil {
		return failure{err}
	}

	attempt := history.Attempt{
		LobbyID:  id,
		PlayerID: playerID,
		Kanji:    in.Kanji,
		Word:     in.Word,
		Correct:  res.Verdict.Correct(),
		At:       s.opts.Now(),
	}
	s.record(r.Context(), "record attempt", func(ctx context.Context) error {
		return s.history.RecordAttempt(ctx, attempt)
	})

	return success{status: http.StatusOK, body: checkRes{
		Message:     res.Verdict.Message,
		Score:       res.Score,
		PlayerScore: res.PlayerScore,
		Kanji:       res.Kanji,
	}}
}

// authorize resolves the caller's player id within lobby id. It returns ""
// for guests. Private lobbies reject guests and tokens for other lobbies or
// unknown players with game.ErrForbidden.
func (s *Server) authorize(r *http.Request, id string) (string, error) {
	l, err := s.lobbies.Lookup(r.Context(), id)
	if err != nil {
		return "", err
	}
	claims := playerFrom(r.Context())
	member := claims != nil && claims.LobbyID == id && l.HasPlayer(claims.PlayerID, s.opts.Now())
	if l.Private() && !member {
		return "", fmt.Errorf("%w: a player token for this lobby is required", game.ErrForbidden)
	}
	if !member {
		return "", nil
	}
	return claims.PlayerID, nil
}

// record runs a best-effort history write. Failures are logged and dropped.
func (s *Server) record(ctx context.Context, what string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Warn().Err(err).Str("req_id", chimw.GetReqID(ctx)).Msg(what)
	}
}

// decodeBody reads a JSON body into v. With optional set, an empty body is
// accepted and leaves v untouched.
func decodeBody(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return fmt.Errorf("%w: malformed JSON body", game.ErrInvalidInput)
	}
	return nil
}
