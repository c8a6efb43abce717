// internal/auth/auth.go
//
// Player tokens and lobby passcodes.
//   - Tokens are HS256 JWTs naming one player inside one lobby. They are
//     handed out by create/join and sent back as "Authorization: Bearer".
//   - Passcodes protect private lobbies and are stored as bcrypt hashes.

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// PlayerTokenHeader is accepted as an alternative to the Authorization header.
const PlayerTokenHeader = "X-Player-Token"

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidPasscode = errors.New("passcode must be 4-72 characters")
)

// Claims identify a player within a lobby.
type Claims struct {
	LobbyID  string `json:"lobby_id"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies player tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a signer. A non-positive ttl defaults to 24h.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign creates a token for playerID in lobbyID.
func (t *Tokens) Sign(lobbyID, playerID, name string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		LobbyID:  lobbyID,
		PlayerID: playerID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := tok.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return ss, exp, nil
}

// Parse verifies a token and returns its claims.
func (t *Tokens) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.LobbyID == "" || claims.PlayerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts a player token from the Authorization header or the
// X-Player-Token header.
func BearerToken(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return strings.TrimSpace(r.Header.Get(PlayerTokenHeader))
}

// HashPasscode returns a bcrypt hash of p.
func HashPasscode(p string) (string, error) {
	if len(p) < 4 || len(p) > 72 {
		return "", ErrInvalidPasscode
	}
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost) // cost=10
	return string(b), err
}

// CheckPasscode is a bcrypt verifier.
func CheckPasscode(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}
