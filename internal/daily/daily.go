// Package daily schedules the kanji of the day.
//
// A day is a UTC calendar date. Every process sharing a salt picks the same
// entry for the same day, with no coordination and no stored state.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

const keyLayout = "2006-01-02"

// DateKey returns the UTC day of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.UTC().Format(keyLayout)
}

// Schedule maps days onto a fixed list of entries.
type Schedule[T any] struct {
	entries []T
	salt    []byte
}

// NewSchedule returns a schedule over entries. The slice is not copied.
func NewSchedule[T any](entries []T, salt string) Schedule[T] {
	return Schedule[T]{entries: entries, salt: []byte(salt)}
}

// On returns the entry for the UTC day of t. ok is false for an empty
// schedule.
func (s Schedule[T]) On(t time.Time) (v T, ok bool) {
	if len(s.entries) == 0 {
		return v, false
	}
	return s.entries[s.index(t)], true
}

// Upcoming returns the entries for n consecutive days starting with the day
// of t.
func (s Schedule[T]) Upcoming(t time.Time, n int) []T {
	out := make([]T, 0, max(n, 0))
	for d := 0; d < n; d++ {
		v, ok := s.On(t.UTC().AddDate(0, 0, d))
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// index seeds a PCG with HMAC-SHA256(salt, day) and draws uniformly from
// the entries.
func (s Schedule[T]) index(t time.Time) int {
	mac := hmac.New(sha256.New, s.salt)
	mac.Write([]byte(DateKey(t)))
	sum := mac.Sum(nil)
	rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])))
	return rng.IntN(len(s.entries))
}

// NextReset returns the UTC midnight that ends the day of t.
func NextReset(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
