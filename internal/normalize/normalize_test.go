package normalize

import "testing"

func TestLanguageCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// ISO 639-1 codes (passthrough)
		{"en", "en"},
		{"de", "de"},
		// ISO 639-2 codes
		{"eng", "en"},
		{"deu", "de"},
		{"ger", "de"}, // bibliographic variant
		{"fre", "fr"},
		// Locale codes
		{"en-US", "en"},
		{"en_GB", "en"},
		{"pt-BR", "pt"},
		// Language names
		{"English", "en"},
		{"GERMAN", "de"},
		// Edge cases
		{"", ""},
		{"  en  ", "en"},
		{"e1", ""},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := LanguageCode(tt.input)
			if result != tt.expected {
				t.Errorf("LanguageCode(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestKoboLanguage(t *testing.T) {
	if got := KoboLanguage("fra"); got != "fr" {
		t.Errorf("KoboLanguage(fra) = %q, want fr", got)
	}
	if got := KoboLanguage(""); got != DefaultLanguage {
		t.Errorf("KoboLanguage(\"\") = %q, want %q", got, DefaultLanguage)
	}
}

func TestLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"deu", "German"},
		{"french", "French"},
		{"ja-JP", "Japanese"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := Language(tt.input)
			if result != tt.expected {
				t.Errorf("Language(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
