// internal/game/types.go
//
// Core type definitions for the kanji game.
// Defines:
//   - Outcome/Verdict: the scorer's judgement of a submitted word.
//   - Player, LobbyView, CheckResult: values handed out by Lobby.
//   - GameStatus/GameSettings: the leader-controlled lobby lifecycle.
//   - Sentinel errors used across the store and HTTP layers.

package game

import (
	"errors"
	"time"
)

// Sentinel errors. The HTTP layer maps them to status codes with errors.Is.
var (
	ErrNotFound       = errors.New("lobby not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrForbidden      = errors.New("forbidden")
)

// Outcome classifies a submitted word.
//   - "correct":    word is in the dictionary and contains the kanji.
//   - "wrong_word": word contains the kanji but is not a dictionary word.
//   - "wrong_kanji": word is a dictionary word without the kanji.
//   - "wrong":      neither.
type Outcome string

const (
	OutcomeCorrect    Outcome = "correct"
	OutcomeWrongWord  Outcome = "wrong_word"
	OutcomeWrongKanji Outcome = "wrong_kanji"
	OutcomeWrong      Outcome = "wrong"
)

// Verdict is the scorer's pure judgement of one word against one kanji.
type Verdict struct {
	Outcome Outcome
	Message string
	Award   int
}

// Correct reports whether the verdict awards points.
func (v Verdict) Correct() bool { return v.Outcome == OutcomeCorrect }

// Player is a participant registered in a lobby.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// GameStatus is where a lobby is in its lifecycle.
type GameStatus string

const (
	StatusLobby   GameStatus = "lobby"   // waiting room, settings editable
	StatusPlaying GameStatus = "playing" // started by the leader
)

// LobbyView is a point-in-time copy of a lobby's state.
type LobbyView struct {
	ID         string       `json:"lobby_id"`
	LeaderID   string       `json:"leader_id"`
	Kanji      string       `json:"kanji"`
	Score      int          `json:"score"`
	Players    []Player     `json:"players"`
	Settings   GameSettings `json:"settings"`
	Status     GameStatus   `json:"status"`
	Private    bool         `json:"private"`
	CreatedAt  time.Time    `json:"created_at"`
	LastActive time.Time    `json:"-"`
}

// CheckInput is one word submission.
type CheckInput struct {
	Word     string
	Kanji    string
	PlayerID string // optional; attributes the award to a player
}

// CheckResult is returned by a word submission.
type CheckResult struct {
	Verdict     Verdict
	Score       int    // lobby score after the submission
	PlayerScore *int   // set when the submission was attributed to a player
	Kanji       string // set when a correct answer rotated the prompt
}
