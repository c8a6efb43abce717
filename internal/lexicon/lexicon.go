// internal/lexicon/lexicon.go
//
// Kanji corpus and word dictionary for the game.
//
// Responsibilities:
//   - Load the kanji list and the word dictionary from CSV files named by the
//     environment, or fall back to the embedded defaults in the assets package.
//   - Draw random prompt kanji (never repeating the current one when possible).
//   - Answer dictionary lookups for the scorer.
//
// File format:
//   - First CSV column only; extra columns are ignored.
//   - Blank lines and lines starting with '#' are skipped.
//   - An optional header row ("kanji" / "word") is skipped.
//
// Constraints:
//   • Every kanji entry must be a single character (one rune).
//   • Entries are trimmed and deduplicated, first occurrence wins.

package lexicon

import (
	"crypto/rand"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/kanji-guesser/go-server/assets"
	"github.com/kanji-guesser/go-server/internal/daily"
)

// ErrEmptyCorpus is returned when no kanji survive loading.
var ErrEmptyCorpus = errors.New("lexicon: kanji list is empty")

// Lexicon is immutable after construction and safe for concurrent use.
type Lexicon struct {
	kanji    []string
	position map[string]int      // kanji -> index in kanji
	words    map[string]struct{} // dictionary
	pick     func(n int) int
}

// Option customises a Lexicon.
type Option func(*Lexicon)

// WithPicker replaces the random source used by Draw. p must return a value
// in [0, n).
func WithPicker(p func(n int) int) Option {
	return func(l *Lexicon) { l.pick = p }
}

// New builds a Lexicon from in-memory lists.
func New(kanji, words []string, opts ...Option) (*Lexicon, error) {
	kanji = normalize(kanji)
	if len(kanji) == 0 {
		return nil, ErrEmptyCorpus
	}
	for _, k := range kanji {
		if utf8.RuneCountInString(k) != 1 {
			return nil, fmt.Errorf("lexicon: kanji entry %q is not a single character", k)
		}
	}
	l := &Lexicon{
		kanji:    kanji,
		position: make(map[string]int, len(kanji)),
		words:    lo.Keyify(normalize(words)),
		pick:     cryptoPick,
	}
	for i, k := range kanji {
		l.position[k] = i
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Load reads the kanji list from kanjiPath and the dictionary from wordsPath.
// An empty path selects the embedded default for that list.
func Load(kanjiPath, wordsPath string, opts ...Option) (*Lexicon, error) {
	kanji, err := readList(kanjiPath, assets.KanjiCSV)
	if err != nil {
		return nil, fmt.Errorf("load kanji: %w", err)
	}
	words, err := readList(wordsPath, assets.WordsCSV)
	if err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}
	return New(kanji, words, opts...)
}

// Draw returns a random kanji. When the corpus holds more than one entry the
// result never equals exclude.
func (l *Lexicon) Draw(exclude string) string {
	n := len(l.kanji)
	if n == 1 {
		return l.kanji[0]
	}
	e, ok := l.position[exclude]
	if !ok {
		return l.kanji[l.pick(n)]
	}
	// Pick among the other n-1 entries by skipping over e.
	i := l.pick(n - 1)
	if i >= e {
		i++
	}
	return l.kanji[i]
}

// Contains reports whether word is in the dictionary.
func (l *Lexicon) Contains(word string) bool {
	_, ok := l.words[strings.TrimSpace(word)]
	return ok
}

// IsKanji reports whether k is part of the prompt corpus.
func (l *Lexicon) IsKanji(k string) bool {
	_, ok := l.position[k]
	return ok
}

// Daily returns the kanji of the day for t, stable for a given salt.
func (l *Lexicon) Daily(t time.Time, salt string) string {
	k, _ := daily.NewSchedule(l.kanji, salt).On(t)
	return k
}

// Kanji returns a copy of the prompt corpus.
func (l *Lexicon) Kanji() []string {
	return append([]string(nil), l.kanji...)
}

// Stats returns counts of loaded entries: (kanji, words).
func (l *Lexicon) Stats() (kanjiCount int, wordCount int) {
	return len(l.kanji), len(l.words)
}

// readList opens path, or the embedded fallback when path is empty, and
// returns its first column.
func readList(path string, fallback func() (io.ReadCloser, error)) ([]string, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if path != "" {
		rc, err = os.Open(path)
	} else {
		rc, err = fallback()
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return firstColumn(rc)
}

// firstColumn parses CSV and keeps the first field of every record.
func firstColumn(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var out []string
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		cell := strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff"))
		if first {
			first = false
			if isHeader(cell) {
				continue
			}
		}
		out = append(out, cell)
	}
	return out, nil
}

func isHeader(cell string) bool {
	switch strings.ToLower(cell) {
	case "kanji", "word", "words":
		return true
	}
	return false
}

// normalize trims entries, drops blanks and removes duplicates.
func normalize(list []string) []string {
	trimmed := lo.Map(list, func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Uniq(lo.Filter(trimmed, func(s string, _ int) bool { return s != "" }))
}

// cryptoPick returns a cryptographically random index in [0, n).
func cryptoPick(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
