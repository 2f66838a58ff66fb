// Package bookmetatest builds small synthetic EPUB files for tests.
package bookmetatest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// EPUB describes the book to generate. Zero fields are left out of the package document.
type EPUB struct {
	Title       string
	Authors     []string
	Description string
	Publisher   string
	Language    string
	Date        string
	Series      string
	SeriesIndex string
	// Cover adds a JPEG cover of the given size when both dimensions are positive.
	CoverWidth, CoverHeight int
	// Body distinguishes otherwise identical books.
	Body string
}

// Bytes renders the EPUB archive.
func (e EPUB) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return nil, err
	}
	if _, err := mw.Write([]byte("application/epub+zip")); err != nil {
		return nil, err
	}

	files := map[string][]byte{
		"META-INF/container.xml": []byte(`<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`),
		"OEBPS/content.opf": []byte(e.opf()),
		"OEBPS/text.xhtml":  []byte("<html><body><p>" + html.EscapeString(e.Body) + "</p></body></html>"),
	}
	if e.CoverWidth > 0 && e.CoverHeight > 0 {
		img := image.NewRGBA(image.Rect(0, 0, e.CoverWidth, e.CoverHeight))
		for y := range e.CoverHeight {
			for x := range e.CoverWidth {
				img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
			}
		}
		var cover bytes.Buffer
		if err := jpeg.Encode(&cover, img, nil); err != nil {
			return nil, err
		}
		files["OEBPS/images/cover.jpg"] = cover.Bytes()
	}

	for _, name := range []string{"META-INF/container.xml", "OEBPS/content.opf", "OEBPS/text.xhtml", "OEBPS/images/cover.jpg"} {
		data, ok := files[name]
		if !ok {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e EPUB) opf() string {
	var md strings.Builder
	tag := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&md, "    <dc:%s>%s</dc:%s>\n", name, html.EscapeString(value), name)
		}
	}
	tag("title", e.Title)
	for _, a := range e.Authors {
		fmt.Fprintf(&md, "    <dc:creator opf:role=\"aut\">%s</dc:creator>\n", html.EscapeString(a))
	}
	tag("description", e.Description)
	tag("publisher", e.Publisher)
	tag("language", e.Language)
	tag("date", e.Date)
	if e.Series != "" {
		fmt.Fprintf(&md, "    <meta name=\"calibre:series\" content=\"%s\"/>\n", html.EscapeString(e.Series))
		fmt.Fprintf(&md, "    <meta name=\"calibre:series_index\" content=\"%s\"/>\n", e.SeriesIndex)
	}

	manifest := `    <item id="text" href="text.xhtml" media-type="application/xhtml+xml"/>` + "\n"
	if e.CoverWidth > 0 && e.CoverHeight > 0 {
		md.WriteString("    <meta name=\"cover\" content=\"cover-img\"/>\n")
		manifest += `    <item id="cover-img" href="images/cover.jpg" media-type="image/jpeg"/>` + "\n"
	}

	return `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
` + md.String() + `  </metadata>
  <manifest>
` + manifest + `  </manifest>
  <spine><itemref idref="text"/></spine>
</package>`
}

// Write renders the EPUB to dir/name, creating parent directories, and returns the path.
func Write(t testing.TB, dir, name string, e EPUB) string {
	t.Helper()

	data, err := e.Bytes()
	if err != nil {
		t.Fatalf("render epub: %v", err)
	}
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write epub: %v", err)
	}
	return p
}
