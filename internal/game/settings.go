package game

import (
	"fmt"
	"slices"
)

const (
	DefaultMaxPlayers = 4
	MaxPlayersLimit   = 16
	MaxTimeLimit      = 3600 // seconds
)

// Levels are the accepted difficulty levels, easiest last.
var Levels = []string{"N1", "N2", "N3", "N4", "N5"}

// GameSettings are the per-lobby tunables the leader may change before the
// game starts. A nil TimeLimitSeconds means rounds are untimed.
type GameSettings struct {
	DifficultyLevels []string `json:"difficulty_levels"`
	TimeLimitSeconds *int     `json:"time_limit_seconds"`
	MaxPlayers       int      `json:"max_players"`
}

// DefaultSettings returns every level, no time limit and four seats.
func DefaultSettings() GameSettings {
	return GameSettings{
		DifficultyLevels: slices.Clone(Levels),
		MaxPlayers:       DefaultMaxPlayers,
	}
}

// Validate checks s against the accepted ranges. seated is the number of
// players already in the lobby; MaxPlayers may not drop below it.
func (s GameSettings) Validate(seated int) error {
	if len(s.DifficultyLevels) == 0 {
		return fmt.Errorf("%w: at least one difficulty level is required", ErrInvalidInput)
	}
	for _, lv := range s.DifficultyLevels {
		if !slices.Contains(Levels, lv) {
			return fmt.Errorf("%w: unknown difficulty level %q", ErrInvalidInput, lv)
		}
	}
	if t := s.TimeLimitSeconds; t != nil && (*t < 1 || *t > MaxTimeLimit) {
		return fmt.Errorf("%w: time_limit_seconds must be between 1 and %d", ErrInvalidInput, MaxTimeLimit)
	}
	if s.MaxPlayers < 1 || s.MaxPlayers > MaxPlayersLimit {
		return fmt.Errorf("%w: max_players must be between 1 and %d", ErrInvalidInput, MaxPlayersLimit)
	}
	if s.MaxPlayers < seated {
		return fmt.Errorf("%w: max_players is below the %d players already seated", ErrInvalidInput, seated)
	}
	return nil
}

// clone copies the slice and pointer fields so callers never share storage
// with a lobby.
func (s GameSettings) clone() GameSettings {
	c := s
	c.DifficultyLevels = slices.Clone(s.DifficultyLevels)
	if s.TimeLimitSeconds != nil {
		t := *s.TimeLimitSeconds
		c.TimeLimitSeconds = &t
	}
	return c
}
