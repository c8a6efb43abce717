// internal/game/lobby.go
//
// State for a single lobby.
// Every read and mutation takes the lobby's own mutex, so concurrent
// submissions against one lobby serialize and never lose a score update.
// Lobbies never lock each other; the store's map lock is separate.

package game

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// DrawFunc returns a new prompt kanji different from exclude when possible.
type DrawFunc func(exclude string) string

// Lobby holds one game session. Create with NewLobby.
type Lobby struct {
	id           string
	passcodeHash string // bcrypt hash; empty for public lobbies
	createdAt    time.Time

	mu         sync.Mutex // guards the fields below
	kanji      string
	score      int
	players    []Player
	leaderID   string // first player added
	settings   GameSettings
	status     GameStatus
	lastActive time.Time
}

// NewLobby constructs a lobby with score 0 and the given first prompt.
func NewLobby(id, kanji, passcodeHash string, now time.Time) *Lobby {
	return &Lobby{
		id:           id,
		passcodeHash: passcodeHash,
		createdAt:    now,
		kanji:        kanji,
		settings:     DefaultSettings(),
		status:       StatusLobby,
		lastActive:   now,
	}
}

// ID returns the lobby identifier.
func (l *Lobby) ID() string { return l.id }

// Private reports whether joining requires a passcode.
func (l *Lobby) Private() bool { return l.passcodeHash != "" }

// PasscodeHash returns the stored passcode hash ("" for public lobbies).
func (l *Lobby) PasscodeHash() string { return l.passcodeHash }

// AddPlayer registers p and returns it with its score reset to 0. An empty
// name becomes "Player N". The first player becomes the leader. A lobby
// already holding max_players players rejects p with ErrInvalidInput.
func (l *Lobby) AddPlayer(p Player, now time.Time) (Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.players) >= l.settings.MaxPlayers {
		return Player{}, fmt.Errorf("%w: lobby is full (%d players)", ErrInvalidInput, l.settings.MaxPlayers)
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("Player %d", len(l.players)+1)
	}
	p.Score = 0
	p.JoinedAt = now
	if len(l.players) == 0 {
		l.leaderID = p.ID
	}
	l.players = append(l.players, p)
	l.lastActive = now
	return p, nil
}

// HasPlayer reports whether a player with id is registered. A hit counts as
// activity.
func (l *Lobby) HasPlayer(id string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.playerIndex(id) < 0 {
		return false
	}
	l.lastActive = now
	return true
}

// Player returns the registered player with id.
func (l *Lobby) Player(id string, now time.Time) (Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.playerIndex(id)
	if i < 0 {
		return Player{}, fmt.Errorf("%w: %q is not in this lobby", ErrPlayerNotFound, id)
	}
	l.lastActive = now
	return l.players[i], nil
}

// Players returns the registered players in join order.
func (l *Lobby) Players(now time.Time) []Player {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastActive = now
	return append([]Player{}, l.players...)
}

// UpdateSettings replaces the lobby settings. Only the leader may do so, and
// only while the lobby is still in the waiting room.
func (l *Lobby) UpdateSettings(playerID string, s GameSettings, now time.Time) (GameSettings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if playerID == "" || playerID != l.leaderID {
		return GameSettings{}, fmt.Errorf("%w: only the lobby leader can change settings", ErrForbidden)
	}
	if l.status != StatusLobby {
		return GameSettings{}, fmt.Errorf("%w: settings are locked once the game has started", ErrInvalidInput)
	}
	if err := s.Validate(len(l.players)); err != nil {
		return GameSettings{}, err
	}
	l.settings = s.clone()
	l.lastActive = now
	return l.settings.clone(), nil
}

// Start moves the lobby from the waiting room to playing and draws a fresh
// prompt. Only the leader may start, and only once.
func (l *Lobby) Start(playerID string, draw DrawFunc, now time.Time) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if playerID == "" || playerID != l.leaderID {
		return "", fmt.Errorf("%w: only the lobby leader can start the game", ErrForbidden)
	}
	if l.status != StatusLobby {
		return "", fmt.Errorf("%w: game is not in lobby state", ErrInvalidInput)
	}
	l.status = StatusPlaying
	l.kanji = draw(l.kanji)
	l.lastActive = now
	return l.kanji, nil
}

// Kanji returns the current prompt.
func (l *Lobby) Kanji(now time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastActive = now
	return l.kanji
}

// Rotate draws a new prompt, stores it and returns it.
func (l *Lobby) Rotate(draw DrawFunc, now time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kanji = draw(l.kanji)
	l.lastActive = now
	return l.kanji
}

// Check validates and scores a submission against the current prompt.
// When rotate is set, a correct answer also draws the next prompt.
func (l *Lobby) Check(in CheckInput, dict Dictionary, draw DrawFunc, rotate bool, now time.Time) (CheckResult, error) {
	word := strings.TrimSpace(in.Word)
	kanji := strings.TrimSpace(in.Kanji)
	if word == "" {
		return CheckResult{}, fmt.Errorf("%w: word is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(kanji) != 1 {
		return CheckResult{}, fmt.Errorf("%w: kanji must be a single character", ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if kanji != l.kanji {
		return CheckResult{}, fmt.Errorf("%w: %s", ErrInvalidInput, StalePromptMessage(kanji))
	}
	pi := -1
	if in.PlayerID != "" {
		if pi = l.playerIndex(in.PlayerID); pi < 0 {
			return CheckResult{}, fmt.Errorf("%w: unknown player", ErrForbidden)
		}
	}

	v := Evaluate(kanji, word, dict)
	l.lastActive = now
	res := CheckResult{Verdict: v}
	if v.Award > 0 {
		l.score += v.Award
		if pi >= 0 {
			l.players[pi].Score += v.Award
		}
		if rotate {
			l.kanji = draw(l.kanji)
			res.Kanji = l.kanji
		}
	}
	res.Score = l.score
	if pi >= 0 {
		ps := l.players[pi].Score
		res.PlayerScore = &ps
	}
	return res, nil
}

// View returns a copy of the lobby's state and counts as activity, so a
// waiting room that only polls its info stays alive.
func (l *Lobby) View(now time.Time) LobbyView {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastActive = now
	return l.view()
}

// Snapshot returns a copy of the lobby's state without touching its
// activity clock. The janitor uses it for evicted lobbies.
func (l *Lobby) Snapshot() LobbyView {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.view()
}

// StalePromptMessage explains a submission against a kanji that has since
// been replaced, e.g. by another player's new_kanji.
func StalePromptMessage(kanji string) string {
	return fmt.Sprintf("%q is no longer the current kanji; fetch the new prompt and submit again", kanji)
}

// view must be called with l.mu held.
func (l *Lobby) view() LobbyView {
	return LobbyView{
		ID:         l.id,
		LeaderID:   l.leaderID,
		Kanji:      l.kanji,
		Score:      l.score,
		Players:    append([]Player{}, l.players...),
		Settings:   l.settings.clone(),
		Status:     l.status,
		Private:    l.passcodeHash != "",
		CreatedAt:  l.createdAt,
		LastActive: l.lastActive,
	}
}

// IdleSince returns the time of the last operation on the lobby.
func (l *Lobby) IdleSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastActive
}

// playerIndex must be called with l.mu held.
func (l *Lobby) playerIndex(id string) int {
	for i := range l.players {
		if l.players[i].ID == id {
			return i
		}
	}
	return -1
}
