// internal/store/memory.go
//
// In-memory lobby store.
//
// Characteristics:
//   - Lobbies keyed by ID in a map guarded by an RWMutex. The map lock only
//     covers lookups/inserts/deletes; lobby state has its own per-lobby lock
//     (see game.Lobby), so players in different lobbies never contend.
//   - Lock order is always map → lobby, never the reverse.
//   - Idle lobbies are evicted after a TTL by Sweep / RunJanitor.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/kanji-guesser/go-server/internal/auth"
	"github.com/kanji-guesser/go-server/internal/game"
)

// DefaultLobbyTTL is the idle time after which a lobby is evicted.
const DefaultLobbyTTL = 30 * time.Minute

const (
	lobbyIDLength = 6
	lobbyIDChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	maxIDAttempts = 16
	maxPlayerName = 32
)

// Lexicon is what the store needs from the kanji corpus.
type Lexicon interface {
	game.Dictionary
	Draw(exclude string) string
}

// EvictFunc is called with the final state of each evicted lobby.
type EvictFunc func(game.LobbyView)

// CreateParams are the optional inputs of Create.
type CreateParams struct {
	PlayerName string
	Passcode   string // non-empty makes the lobby private
}

// JoinParams are the optional inputs of Join.
type JoinParams struct {
	PlayerName string
	Passcode   string
}

// Memory is the in-memory lobby store.
type Memory struct {
	mu      sync.RWMutex           // guards lobbies
	lobbies map[string]*game.Lobby // keyed by Lobby.ID()

	lex      Lexicon
	ttl      time.Duration
	rotate   bool
	now      func() time.Time
	lobbyID  func() string
	playerID func() string
	onEvict  EvictFunc
}

// Option configures a Memory store.
type Option func(*Memory)

// WithTTL sets the idle time after which a lobby is evicted (0 disables).
func WithTTL(d time.Duration) Option { return func(m *Memory) { m.ttl = d } }

// WithRotateOnCorrect makes a correct answer draw the next prompt.
func WithRotateOnCorrect(on bool) Option { return func(m *Memory) { m.rotate = on } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(m *Memory) { m.now = now } }

// WithLobbyIDs replaces the lobby ID generator.
func WithLobbyIDs(gen func() string) Option { return func(m *Memory) { m.lobbyID = gen } }

// WithEvictHook registers a callback for evicted lobbies.
func WithEvictHook(fn EvictFunc) Option { return func(m *Memory) { m.onEvict = fn } }

// NewMemory constructs an empty store drawing prompts from lex.
func NewMemory(lex Lexicon, opts ...Option) *Memory {
	m := &Memory{
		lobbies:  make(map[string]*game.Lobby),
		lex:      lex,
		ttl:      DefaultLobbyTTL,
		now:      time.Now,
		lobbyID:  randomLobbyID,
		playerID: uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create allocates a lobby with score 0 and a fresh prompt, and registers the
// creating player.
func (m *Memory) Create(ctx context.Context, p CreateParams) (game.LobbyView, game.Player, error) {
	name, err := playerName(p.PlayerName)
	if err != nil {
		return game.LobbyView{}, game.Player{}, err
	}
	var hash string
	if p.Passcode != "" {
		if hash, err = auth.HashPasscode(p.Passcode); err != nil {
			if errors.Is(err, auth.ErrInvalidPasscode) {
				return game.LobbyView{}, game.Player{}, fmt.Errorf("%w: %v", game.ErrInvalidInput, err)
			}
			return game.LobbyView{}, game.Player{}, fmt.Errorf("hash passcode: %w", err)
		}
	}

	now := m.now()
	m.mu.Lock()
	id, err := m.uniqueID()
	if err != nil {
		m.mu.Unlock()
		return game.LobbyView{}, game.Player{}, err
	}
	l := game.NewLobby(id, m.lex.Draw(""), hash, now)
	m.lobbies[id] = l
	m.mu.Unlock()

	player, err := l.AddPlayer(game.Player{ID: m.playerID(), Name: name}, now)
	if err != nil {
		m.mu.Lock()
		delete(m.lobbies, id)
		m.mu.Unlock()
		return game.LobbyView{}, game.Player{}, err
	}
	return l.View(now), player, nil
}

// Join registers a new player in an existing lobby. A full lobby rejects the
// player with game.ErrInvalidInput.
func (m *Memory) Join(ctx context.Context, id string, p JoinParams) (game.LobbyView, game.Player, error) {
	l, err := m.Lookup(ctx, id)
	if err != nil {
		return game.LobbyView{}, game.Player{}, err
	}
	if l.Private() && !auth.CheckPasscode(l.PasscodeHash(), p.Passcode) {
		return game.LobbyView{}, game.Player{}, fmt.Errorf("%w: invalid passcode", game.ErrForbidden)
	}
	name, err := playerName(p.PlayerName)
	if err != nil {
		return game.LobbyView{}, game.Player{}, err
	}
	now := m.now()
	player, err := l.AddPlayer(game.Player{ID: m.playerID(), Name: name}, now)
	if err != nil {
		return game.LobbyView{}, game.Player{}, err
	}
	return l.View(now), player, nil
}

// Lookup returns the live lobby with id or game.ErrNotFound.
func (m *Memory) Lookup(ctx context.Context, id string) (*game.Lobby, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.lobbies[id]; ok {
		return l, nil
	}
	return nil, game.ErrNotFound
}

// Kanji returns the lobby's current prompt.
func (m *Memory) Kanji(ctx context.Context, id string) (string, error) {
	l, err := m.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	return l.Kanji(m.now()), nil
}

// NewKanji draws, stores and returns a new prompt for the lobby.
func (m *Memory) NewKanji(ctx context.Context, id string) (string, error) {
	l, err := m.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	return l.Rotate(m.lex.Draw, m.now()), nil
}

// CheckWord scores a submission against the lobby's current prompt.
func (m *Memory) CheckWord(ctx context.Context, id string, in game.CheckInput) (game.CheckResult, error) {
	l, err := m.Lookup(ctx, id)
	if err != nil {
		return game.CheckResult{}, err
	}
	return l.Check(in, m.lex, m.lex.Draw, m.rotate, m.now())
}

// Info returns a copy of the lobby's state. Polling it keeps the lobby alive.
func (m *Memory) Info(ctx context.Context, id string) (game.LobbyView, error) {
	l, err := m.Lookup(ctx, id)
	if err != nil {
		return game.LobbyView{}, err
	}
	return l.View(m.now()), nil
}

// Players lists the lobby's players in join order.
func (m *Memory) Players(ctx context.Context, id string) ([]game.Player, error) {
	l, err := m.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.Players(m.now()), nil
}

// PlayerInfo returns one player of the lobby.
func (m *Memory) PlayerInfo(ctx context.Context, id, playerID string) (game.Player, error) {
	l, err := m.Lookup(ctx, id)
	if err != nil {
		return game.Player{}, err
	}
	return l.Player(playerID, m.now())
}

// UpdateSettings replaces the lobby's settings on behalf of playerID, who
// must be the leader.
func (m *Memory) UpdateSettings(ctx context.Context, id, playerID string, s game.GameSettings) (game.GameSettings, error) {
	l, err := m.Lookup(ctx, id)
	if err != nil {
		return game.GameSettings{}, err
	}
	return l.UpdateSettings(playerID, s, m.now())
}

// StartGame moves the lobby to playing on behalf of its leader and returns
// the first prompt of the game.
func (m *Memory) StartGame(ctx context.Context, id, playerID string) (string, error) {
	l, err := m.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	return l.Start(playerID, m.lex.Draw, m.now())
}

// Len returns the number of live lobbies.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lobbies)
}

// IDs returns the live lobby IDs in no particular order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Keys(m.lobbies)
}

// Sweep evicts lobbies idle for longer than the TTL as of now and returns
// their final state. The evict hook runs after the map lock is released.
func (m *Memory) Sweep(now time.Time) []game.LobbyView {
	if m.ttl <= 0 {
		return nil
	}
	var evicted []game.LobbyView
	m.mu.Lock()
	for id, l := range m.lobbies {
		if now.Sub(l.IdleSince()) > m.ttl {
			delete(m.lobbies, id)
			evicted = append(evicted, l.Snapshot())
		}
	}
	m.mu.Unlock()

	if m.onEvict != nil {
		for _, v := range evicted {
			m.onEvict(v)
		}
	}
	return evicted
}

// RunJanitor sweeps every interval until ctx is cancelled.
func (m *Memory) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.ttl <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ev := m.Sweep(m.now()); len(ev) > 0 {
				log.Info().Int("evicted", len(ev)).Int("live", m.Len()).Msg("lobby janitor")
			}
		}
	}
}

// uniqueID must be called with m.mu held for writing.
func (m *Memory) uniqueID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := m.lobbyID()
		if _, taken := m.lobbies[id]; !taken {
			return id, nil
		}
	}
	return "", errors.New("could not allocate a unique lobby id")
}

// playerName trims and validates an optional display name.
func playerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxPlayerName {
		return "", fmt.Errorf("%w: player name must be at most %d characters", game.ErrInvalidInput, maxPlayerName)
	}
	return name, nil
}

// randomLobbyID returns a crypto-random 6-character alphanumeric identifier.
func randomLobbyID() string {
	var b strings.Builder
	limit := big.NewInt(int64(len(lobbyIDChars)))
	for i := 0; i < lobbyIDLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			n = big.NewInt(0)
		}
		b.WriteByte(lobbyIDChars[n.Int64()])
	}
	return b.String()
}
