package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanji-guesser/go-server/internal/game"
	"github.com/kanji-guesser/go-server/internal/lexicon"
)

// fixedLexicon always picks the lowest eligible index: Draw("") = 水,
// Draw("水") = 火, Draw("火") = 水.
func fixedLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	lx, err := lexicon.New(
		[]string{"水", "火", "木"},
		[]string{"水曜日", "火山", "木曜日", "日本"},
		lexicon.WithPicker(func(int) int { return 0 }),
	)
	require.NoError(t, err)
	return lx
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCreateStartsAtZero(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))

	v, p, err := m.Create(ctx, CreateParams{PlayerName: "  Aiko "})
	require.NoError(t, err)
	assert.Len(t, v.ID, 6)
	assert.Equal(t, 0, v.Score)
	assert.Equal(t, "水", v.Kanji)
	assert.False(t, v.Private)
	assert.Equal(t, "Aiko", p.Name)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []string{v.ID}, m.IDs())
}

func TestCreateDefaultPlayerName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))
	v, p, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)
	assert.Equal(t, "Player 1", p.Name)

	_, p2, err := m.Join(ctx, v.ID, JoinParams{})
	require.NoError(t, err)
	assert.Equal(t, "Player 2", p2.Name)
}

func TestCreateRejectsLongName(t *testing.T) {
	m := NewMemory(fixedLexicon(t))
	_, _, err := m.Create(context.Background(), CreateParams{PlayerName: strings.Repeat("あ", 33)})
	assert.ErrorIs(t, err, game.ErrInvalidInput)
}

func TestUnknownLobbyIsNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))

	_, _, err := m.Join(ctx, "doesnotexist", JoinParams{})
	assert.ErrorIs(t, err, game.ErrNotFound)
	_, err = m.Kanji(ctx, "doesnotexist")
	assert.ErrorIs(t, err, game.ErrNotFound)
	_, err = m.NewKanji(ctx, "doesnotexist")
	assert.ErrorIs(t, err, game.ErrNotFound)
	_, err = m.CheckWord(ctx, "doesnotexist", game.CheckInput{Word: "水曜日", Kanji: "水"})
	assert.ErrorIs(t, err, game.ErrNotFound)
	_, err = m.Info(ctx, "doesnotexist")
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestJoinAddsPlayer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))
	v, _, err := m.Create(ctx, CreateParams{PlayerName: "Aiko"})
	require.NoError(t, err)

	joined, p, err := m.Join(ctx, v.ID, JoinParams{PlayerName: "Ben"})
	require.NoError(t, err)
	assert.Equal(t, v.ID, joined.ID)
	assert.Equal(t, "水", joined.Kanji)
	require.Len(t, joined.Players, 2)
	assert.Equal(t, p.ID, joined.Players[1].ID)
}

func TestPrivateLobby(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))

	_, _, err := m.Create(ctx, CreateParams{Passcode: "abc"})
	assert.ErrorIs(t, err, game.ErrInvalidInput, "short passcode")

	v, _, err := m.Create(ctx, CreateParams{Passcode: "sakura"})
	require.NoError(t, err)
	assert.True(t, v.Private)

	_, _, err = m.Join(ctx, v.ID, JoinParams{Passcode: "wrong"})
	assert.ErrorIs(t, err, game.ErrForbidden)
	_, _, err = m.Join(ctx, v.ID, JoinParams{})
	assert.ErrorIs(t, err, game.ErrForbidden)

	_, _, err = m.Join(ctx, v.ID, JoinParams{Passcode: "sakura"})
	assert.NoError(t, err)
}

func TestNewKanjiThenKanji(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))
	v, _, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)

	k, err := m.NewKanji(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "火", k)
	assert.NotEqual(t, v.Kanji, k)

	got, err := m.Kanji(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestScenarioGoodGuessKeepsPrompt(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t), WithLobbyIDs(func() string { return "abc123" }))
	v, _, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)
	require.Equal(t, "abc123", v.ID)

	k, err := m.Kanji(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, "水", k)

	res, err := m.CheckWord(ctx, "abc123", game.CheckInput{Word: "水曜日", Kanji: "水"})
	require.NoError(t, err)
	assert.Equal(t, "Good guess!", res.Verdict.Message)
	assert.Equal(t, 1, res.Score)

	k, err = m.Kanji(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "水", k)
}

func TestRotateOnCorrect(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t), WithRotateOnCorrect(true))
	v, _, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)

	res, err := m.CheckWord(ctx, v.ID, game.CheckInput{Word: "水曜日", Kanji: "水"})
	require.NoError(t, err)
	assert.Equal(t, "火", res.Kanji)

	k, err := m.Kanji(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "火", k)
}

func TestScoreNeverDecreases(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))
	v, _, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)

	words := []string{"水曜日", "日本", "水水", "xyz", "水曜日", "火山", "水曜日"}
	prev := 0
	for _, w := range words {
		res, err := m.CheckWord(ctx, v.ID, game.CheckInput{Word: w, Kanji: "水"})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Score, prev, "word %q", w)
		prev = res.Score
	}
	assert.Equal(t, 3, prev)
}

func TestConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))
	v, _, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.CheckWord(ctx, v.ID, game.CheckInput{Word: "水曜日", Kanji: "水"})
			_, _ = m.Kanji(ctx, v.ID)
		}()
	}
	wg.Wait()

	info, err := m.Info(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, n, info.Score)
}

func TestSweepEvictsIdleLobbies(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var evicted []game.LobbyView
	m := NewMemory(fixedLexicon(t),
		WithTTL(10*time.Minute),
		WithClock(clock.Now),
		WithEvictHook(func(v game.LobbyView) { evicted = append(evicted, v) }),
	)

	idle, _, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)
	busy, _, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)
	_, err = m.CheckWord(ctx, idle.ID, game.CheckInput{Word: "水曜日", Kanji: "水"})
	require.NoError(t, err)

	clock.Advance(8 * time.Minute)
	_, err = m.Kanji(ctx, busy.ID)
	require.NoError(t, err)
	assert.Empty(t, m.Sweep(clock.Now()))

	clock.Advance(5 * time.Minute)
	out := m.Sweep(clock.Now())
	require.Len(t, out, 1)
	assert.Equal(t, idle.ID, out[0].ID)
	assert.Equal(t, 1, out[0].Score)
	require.Len(t, evicted, 1)
	assert.Equal(t, idle.ID, evicted[0].ID)

	_, err = m.Kanji(ctx, idle.ID)
	assert.ErrorIs(t, err, game.ErrNotFound)
	_, err = m.Kanji(ctx, busy.ID)
	assert.NoError(t, err)
}

func TestPollingInfoKeepsLobbyAlive(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(fixedLexicon(t), WithTTL(30*time.Minute), WithClock(clock.Now))

	v, _, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		clock.Advance(10 * time.Minute)
		_, err := m.Info(ctx, v.ID)
		require.NoError(t, err)
	}
	assert.Empty(t, m.Sweep(clock.Now()), "lobby polled every 10m was evicted")

	_, err = m.Info(ctx, v.ID)
	assert.NoError(t, err)
}

func TestJoinFullLobby(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))
	v, _, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)
	for i := 1; i < game.DefaultMaxPlayers; i++ {
		_, _, err := m.Join(ctx, v.ID, JoinParams{})
		require.NoError(t, err)
	}

	_, _, err = m.Join(ctx, v.ID, JoinParams{PlayerName: "late"})
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	assert.ErrorContains(t, err, "lobby is full")

	info, err := m.Info(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, info.Players, game.DefaultMaxPlayers)
}

func TestLeaderSettingsAndStart(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))
	v, leader, err := m.Create(ctx, CreateParams{PlayerName: "Aiko"})
	require.NoError(t, err)
	_, guest, err := m.Join(ctx, v.ID, JoinParams{PlayerName: "Ben"})
	require.NoError(t, err)
	assert.Equal(t, leader.ID, v.LeaderID)
	assert.Equal(t, game.StatusLobby, v.Status)

	two := game.GameSettings{DifficultyLevels: []string{"N4", "N5"}, MaxPlayers: 2}
	_, err = m.UpdateSettings(ctx, v.ID, guest.ID, two)
	assert.ErrorIs(t, err, game.ErrForbidden)

	got, err := m.UpdateSettings(ctx, v.ID, leader.ID, two)
	require.NoError(t, err)
	assert.Equal(t, two, got)

	_, _, err = m.Join(ctx, v.ID, JoinParams{})
	assert.ErrorIs(t, err, game.ErrInvalidInput, "max_players lowered to 2")

	_, err = m.StartGame(ctx, v.ID, guest.ID)
	assert.ErrorIs(t, err, game.ErrForbidden)
	k, err := m.StartGame(ctx, v.ID, leader.ID)
	require.NoError(t, err)
	assert.Equal(t, "火", k)

	info, err := m.Info(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusPlaying, info.Status)
	assert.Equal(t, "火", info.Kanji)
	assert.Equal(t, []string{"N4", "N5"}, info.Settings.DifficultyLevels)

	_, err = m.StartGame(ctx, "nope", leader.ID)
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestPlayersAndPlayerInfo(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t))
	v, aiko, err := m.Create(ctx, CreateParams{PlayerName: "Aiko"})
	require.NoError(t, err)
	_, ben, err := m.Join(ctx, v.ID, JoinParams{PlayerName: "Ben"})
	require.NoError(t, err)

	ps, err := m.Players(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, []string{aiko.ID, ben.ID}, []string{ps[0].ID, ps[1].ID})

	p, err := m.PlayerInfo(ctx, v.ID, ben.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ben", p.Name)

	_, err = m.PlayerInfo(ctx, v.ID, "ghost")
	assert.ErrorIs(t, err, game.ErrPlayerNotFound)
	_, err = m.Players(ctx, "nope")
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestSweepDisabledWithZeroTTL(t *testing.T) {
	m := NewMemory(fixedLexicon(t), WithTTL(0))
	_, _, err := m.Create(context.Background(), CreateParams{})
	require.NoError(t, err)
	assert.Nil(t, m.Sweep(time.Now().Add(1000*time.Hour)))
	assert.Equal(t, 1, m.Len())
}

func TestRunJanitorStopsOnCancel(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := NewMemory(fixedLexicon(t), WithTTL(time.Minute), WithClock(clock.Now))
	_, _, err := m.Create(context.Background(), CreateParams{})
	require.NoError(t, err)
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestUniqueIDExhaustion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(fixedLexicon(t), WithLobbyIDs(func() string { return "SAME01" }))
	_, _, err := m.Create(ctx, CreateParams{})
	require.NoError(t, err)
	_, _, err = m.Create(ctx, CreateParams{})
	assert.Error(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestRandomLobbyID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id := randomLobbyID()
		require.Len(t, id, lobbyIDLength)
		for _, r := range id {
			assert.Contains(t, lobbyIDChars, string(r))
		}
		seen[id] = true
	}
	assert.Greater(t, len(seen), 190)
}
