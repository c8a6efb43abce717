package auth

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	tk := NewTokens("secret", time.Hour)
	tok, exp, err := tk.Sign("abc123", "p1", "Alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := tk.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc123", c.LobbyID)
	assert.Equal(t, "p1", c.PlayerID)
	assert.Equal(t, "Alice", c.Name)
}

func TestParseRejects(t *testing.T) {
	tk := NewTokens("secret", time.Hour)
	tok, _, err := tk.Sign("abc123", "p1", "Alice")
	require.NoError(t, err)

	other := NewTokens("other-secret", time.Hour)
	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	_, err = tk.Parse(tok[:len(tok)-2] + "xx")
	assert.ErrorIs(t, err, ErrInvalidToken, "tampered signature")

	_, err = tk.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokens("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.Sign("abc123", "p1", "Alice")
	require.NoError(t, err)
	_, err = tk.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "", BearerToken(r))

	r.Header.Set(PlayerTokenHeader, " tok2 ")
	assert.Equal(t, "tok2", BearerToken(r))

	r.Header.Set("Authorization", "Bearer tok1")
	assert.Equal(t, "tok1", BearerToken(r), "Authorization wins")

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "tok2", BearerToken(r))
}

func TestPasscode(t *testing.T) {
	h, err := HashPasscode("sakura")
	require.NoError(t, err)
	assert.True(t, CheckPasscode(h, "sakura"))
	assert.False(t, CheckPasscode(h, "sakurA"))

	_, err = HashPasscode("abc")
	assert.ErrorIs(t, err, ErrInvalidPasscode)
	assert.EqualError(t, err, "passcode must be 4-72 characters")
	_, err = HashPasscode(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrInvalidPasscode)
}
