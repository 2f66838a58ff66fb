package bookmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAuthor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Herbert, Frank", "Frank Herbert"},
		{"Frank Herbert", "Frank Herbert"},
		{"  Le Guin ,  Ursula K. ", "Ursula K. Le Guin"},
		{"King, Jr., Martin Luther", "King, Jr., Martin Luther"},
		{"Plato,", "Plato"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAuthor(tt.in))
		})
	}
}

func TestClean_NFC(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	assert.Equal(t, "caf\u00e9", clean("cafe\u0301"))
	assert.Equal(t, "a b", clean(" a \n\t b "))
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "plain words", htmlToText("plain   words"))
	assert.Equal(t, "One. Two.", htmlToText("<div>One.</div><div>Two.</div>"))
	assert.Equal(t, "kept", htmlToText("<p>kept</p><script>dropped()</script>"))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatKEPUB, DetectFormat("x.KEPUB.EPUB"))
	assert.Equal(t, FormatEPUB, DetectFormat("x.epub"))
	assert.Equal(t, FormatPDF, DetectFormat("x.pdf"))
	assert.Equal(t, FormatUnknown, DetectFormat("x.txt"))
}
