// Package langdetect tags transcripts with the language they were
// spoken in.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// The detector is restricted to languages whisper handles well; a
// smaller set keeps model load fast and improves accuracy on short
// dictation snippets.
var detectorLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Russian,
	lingua.Ukrainian,
	lingua.Polish,
	lingua.Turkish,
	lingua.Arabic,
	lingua.Hindi,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
	lingua.Vietnamese,
	lingua.Indonesian,
}

var detector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(detectorLanguages...).
		Build()
})

// Detect returns the ISO 639-1 code and English display name of text's
// language, or ("auto", "Unknown") when detection is inconclusive.
func Detect(text string) (code, name string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "auto", "Unknown"
	}
	lang, ok := detector().DetectLanguageOf(text)
	if !ok {
		return "auto", "Unknown"
	}
	code = strings.ToLower(lang.IsoCode639_1().String())
	return code, DisplayName(code)
}

// DisplayName returns the English name for an ISO 639-1 code.
func DisplayName(code string) string {
	tag := language.Make(code)
	if tag == language.Und {
		return "Unknown"
	}
	return display.English.Languages().Name(tag)
}
