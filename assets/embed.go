// Package assets embeds the default kanji corpus and word dictionary so the
// server can run without any data files configured.
package assets

import (
	"embed"
	"io"
)

//go:embed kanji.csv words.csv
var FS embed.FS

// KanjiCSV opens the embedded kanji list (one kanji per row, first column).
func KanjiCSV() (io.ReadCloser, error) {
	return FS.Open("kanji.csv")
}

// WordsCSV opens the embedded word dictionary (one word per row, first column).
func WordsCSV() (io.ReadCloser, error) {
	return FS.Open("words.csv")
}
