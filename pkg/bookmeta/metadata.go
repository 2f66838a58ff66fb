package bookmeta

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Format is the container format of a book file.
type Format int

const (
	FormatUnknown Format = iota
	FormatEPUB
	FormatKEPUB
	FormatPDF
)

func (f Format) String() string {
	switch f {
	case FormatEPUB:
		return "EPUB"
	case FormatKEPUB:
		return "KEPUB"
	case FormatPDF:
		return "PDF"
	default:
		return "Unknown"
	}
}

// DetectFormat classifies a file by its name.
func DetectFormat(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".kepub.epub"):
		return FormatKEPUB
	case strings.HasSuffix(lower, ".epub"):
		return FormatEPUB
	case strings.HasSuffix(lower, ".pdf"):
		return FormatPDF
	default:
		return FormatUnknown
	}
}

// Metadata is what could be recovered from a book file. Any field may be empty.
type Metadata struct {
	Format      Format
	Title       string
	Authors     []string
	Description string
	Publisher   string
	Language    string
	Identifier  string
	Date        string
	Series      string
	SeriesIndex float64
	HasCover    bool
}

// PublishedAt parses Date, accepting full timestamps, dates, and bare years.
func (m *Metadata) PublishedAt() (time.Time, bool) {
	if m.Date == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, m.Date); err == nil {
			return t.UTC(), true
		}
	}
	if len(m.Date) >= 10 {
		if t, err := time.Parse("2006-01-02", m.Date[:10]); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Read dispatches on the file name and returns the metadata of the book at path.
func Read(path string) (*Metadata, error) {
	switch f := DetectFormat(path); f {
	case FormatEPUB, FormatKEPUB:
		m, err := readEPUB(path)
		if err != nil {
			return nil, err
		}
		m.Format = f
		return m, nil
	case FormatPDF:
		return readPDF(path)
	default:
		return nil, &UnsupportedFormatError{Path: path}
	}
}

// ReadCover returns the raw cover image bytes. PDFs never have one.
func ReadCover(path string) ([]byte, error) {
	switch DetectFormat(path) {
	case FormatEPUB, FormatKEPUB:
		return readEPUBCover(path)
	case FormatPDF:
		return nil, ErrNoCover
	default:
		return nil, &UnsupportedFormatError{Path: path}
	}
}

// clean trims and NFC-normalizes a metadata string, collapsing internal whitespace.
func clean(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// NormalizeAuthor turns "Last, First" into "First Last". Names with more than one
// comma are left alone since they are usually lists or suffixes.
func NormalizeAuthor(name string) string {
	name = clean(name)
	if strings.Count(name, ",") != 1 {
		return name
	}
	last, first, _ := strings.Cut(name, ",")
	last, first = strings.TrimSpace(last), strings.TrimSpace(first)
	if first == "" || last == "" {
		return strings.Trim(name, ", ")
	}
	return first + " " + last
}

func parseSeriesIndex(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
