// internal/game/engine.go
//
// Scoring rules for a single word submission.
// Rules:
//   - The word must contain the prompt kanji as a substring.
//   - The word must be in the dictionary and at least MinWordRunes long.
//   - Both hold → "Good guess!" and a flat award of 1; otherwise award 0 and a
//     message naming which check failed.
//
// Evaluate is pure: identical inputs and dictionary give identical verdicts.

package game

import (
	"strings"
	"unicode/utf8"
)

const (
	// MinWordRunes is the shortest accepted word (a lone kanji is not a word).
	MinWordRunes = 2
	// CorrectAward is added to the score for each correct word.
	CorrectAward = 1
)

// Verdict messages shown verbatim by the client.
const (
	MsgCorrect    = "Good guess!"
	MsgWrongWord  = "Bad Guess: Correct kanji, but not a valid word."
	MsgWrongKanji = "Bad Guess: Valid word, but does not contain the correct kanji."
	MsgWrong      = "Bad guess: Incorrect kanji and not a valid word."
)

// Dictionary answers word lookups. *lexicon.Lexicon satisfies it.
type Dictionary interface {
	Contains(word string) bool
}

// Evaluate judges word against kanji.
func Evaluate(kanji, word string, dict Dictionary) Verdict {
	kanji = strings.TrimSpace(kanji)
	word = strings.TrimSpace(word)

	hasKanji := kanji != "" && strings.Contains(word, kanji)
	isWord := utf8.RuneCountInString(word) >= MinWordRunes && dict.Contains(word)

	switch {
	case hasKanji && isWord:
		return Verdict{Outcome: OutcomeCorrect, Message: MsgCorrect, Award: CorrectAward}
	case hasKanji:
		return Verdict{Outcome: OutcomeWrongWord, Message: MsgWrongWord}
	case isWord:
		return Verdict{Outcome: OutcomeWrongKanji, Message: MsgWrongKanji}
	default:
		return Verdict{Outcome: OutcomeWrong, Message: MsgWrong}
	}
}
