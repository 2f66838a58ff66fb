// Package normalize cleans up metadata values read from book files.
package normalize

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultLanguage is reported when a book does not declare a recognizable language.
const DefaultLanguage = "en"

// bibliographicCodes maps ISO 639-2/B codes, still common in older OPF files, to
// ISO 639-1.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var bibliographicCodes = map[string]string{
	"ger": "de", "fre": "fr", "dut": "nl", "chi": "zh", "cze": "cs",
	"gre": "el", "per": "fa", "rum": "ro", "slo": "sk", "alb": "sq",
	"arm": "hy", "baq": "eu", "bur": "my", "geo": "ka", "ice": "is",
	"mac": "mk", "may": "ms", "tib": "bo", "wel": "cy",
}

// languageNameToCode maps common language names to ISO 639-1 codes.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var languageNameToCode = map[string]string{
	"english": "en", "spanish": "es", "french": "fr", "german": "de",
	"italian": "it", "portuguese": "pt", "dutch": "nl", "russian": "ru",
	"japanese": "ja", "chinese": "zh", "korean": "ko", "arabic": "ar",
	"polish": "pl", "swedish": "sv", "norwegian": "no", "danish": "da",
	"finnish": "fi", "turkish": "tr", "greek": "el", "hebrew": "he",
	"czech": "cs", "hungarian": "hu", "romanian": "ro", "ukrainian": "uk",
	"catalan": "ca", "persian": "fa", "farsi": "fa", "mandarin": "zh",
	"cantonese": "zh", "filipino": "tl", "tagalog": "tl",
}

// LanguageCode converts various language representations to ISO 639 codes,
// preferring the two-letter form. It handles:
//   - ISO 639-1 codes: "en" -> "en"
//   - ISO 639-2 codes: "eng" -> "en", "ger" -> "de"
//   - Locale codes: "en-US", "en_GB" -> "en"
//   - Language names: "English", "ENGLISH" -> "en"
//
// Returns empty string for unrecognized values.
func LanguageCode(raw string) string {
	s := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "\x00", "")))
	if s == "" {
		return ""
	}

	if code, ok := languageNameToCode[s]; ok {
		return code
	}

	if idx := strings.IndexAny(s, "-_"); idx > 0 {
		s = s[:idx]
	}

	if code, ok := bibliographicCodes[s]; ok {
		return code
	}

	base, err := language.ParseBase(s)
	if err != nil {
		return ""
	}
	return base.String()
}

// KoboLanguage returns the code to advertise to the device, falling back to
// DefaultLanguage.
func KoboLanguage(raw string) string {
	if code := LanguageCode(raw); code != "" {
		return code
	}
	return DefaultLanguage
}

// Language converts various language representations to English display names.
// "en" -> "English", "german" -> "German", "deu" -> "German"
// Returns empty string for unrecognized values.
func Language(raw string) string {
	code := LanguageCode(raw)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return display.English.Languages().Name(tag)
}
