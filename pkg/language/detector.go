package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

type detector struct {
	api lingua.LanguageDetector
}

// NewDetector builds a detector over all spoken languages lingua supports.
// Building loads the language models once; reuse the detector.
func NewDetector() *detector {
	return &detector{
		api: lingua.NewLanguageDetectorBuilder().FromAllSpokenLanguages().Build(),
	}
}

// Detect returns the lowercase ISO 639-1 code of the most likely language, or
// "" when the text is empty or no language is confident enough.
func (d *detector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	lang, ok := d.api.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
