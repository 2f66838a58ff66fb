package bookmeta

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

func readPDF(path string) (m *Metadata, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, &CorruptedFileError{Path: path, Reason: fmt.Sprintf("pdf parser: %v", r)}
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, &CorruptedFileError{Path: path, Reason: "open pdf", Err: err}
	}
	defer f.Close()

	m = &Metadata{Format: FormatPDF}
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return m, nil
	}

	m.Title = clean(info.Key("Title").Text())
	m.Description = clean(info.Key("Subject").Text())
	if author := clean(info.Key("Author").Text()); author != "" {
		for _, a := range splitAuthors(author) {
			m.Authors = append(m.Authors, NormalizeAuthor(a))
		}
	}
	if d := info.Key("CreationDate").Text(); len(d) >= 10 && strings.HasPrefix(d, "D:") {
		m.Date = d[2:6] + "-" + d[6:8] + "-" + d[8:10]
	}
	return m, nil
}

// splitAuthors separates a PDF Author field listing several people.
func splitAuthors(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '&' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
