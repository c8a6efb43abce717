package game

import "testing"

// dict is a map-backed Dictionary for tests.
type dict map[string]bool

func (d dict) Contains(w string) bool { return d[w] }

var testDict = dict{"水曜日": true, "日本": true, "火山": true, "水": true}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		kanji string
		word  string
		want  Outcome
		msg   string
		award int
	}{
		{"correct", "水", "水曜日", OutcomeCorrect, MsgCorrect, 1},
		{"correct with spaces", " 水 ", "  水曜日 ", OutcomeCorrect, MsgCorrect, 1},
		{"kanji but not a word", "水", "水水水", OutcomeWrongWord, MsgWrongWord, 0},
		{"word without kanji", "水", "日本", OutcomeWrongKanji, MsgWrongKanji, 0},
		{"neither", "水", "abc", OutcomeWrong, MsgWrong, 0},
		{"single kanji is not a word", "水", "水", OutcomeWrongWord, MsgWrongWord, 0},
		{"empty kanji never matches", "", "日本", OutcomeWrongKanji, MsgWrongKanji, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(tt.kanji, tt.word, testDict)
			if v.Outcome != tt.want || v.Message != tt.msg || v.Award != tt.award {
				t.Errorf("Evaluate(%q, %q) = %+v, want %s/%q/%d", tt.kanji, tt.word, v, tt.want, tt.msg, tt.award)
			}
			if v.Correct() != (tt.want == OutcomeCorrect) {
				t.Errorf("Correct() = %v for %s", v.Correct(), tt.want)
			}
		})
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	first := Evaluate("火", "火山", testDict)
	for i := 0; i < 50; i++ {
		if got := Evaluate("火", "火山", testDict); got != first {
			t.Fatalf("verdict changed: %+v vs %+v", got, first)
		}
	}
}
