package bookmeta

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

const (
	containerPath = "META-INF/container.xml"
	// maxCoverSize bounds how much of a cover entry is read into memory.
	maxCoverSize = 16 << 20
)

type epubContainer struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest []opfItem   `xml:"manifest>item"`
}

type opfMetadata struct {
	Titles       []string     `xml:"title"`
	Creators     []opfCreator `xml:"creator"`
	Descriptions []string     `xml:"description"`
	Publishers   []string     `xml:"publisher"`
	Languages    []string     `xml:"language"`
	Dates        []string     `xml:"date"`
	Identifiers  []string     `xml:"identifier"`
	Metas        []opfMeta    `xml:"meta"`
}

type opfCreator struct {
	Name string `xml:",chardata"`
	ID   string `xml:"id,attr"`
	Role string `xml:"role,attr"`
}

type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"`
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
	ID       string `xml:"id,attr"`
	Value    string `xml:",chardata"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// epubBook is an opened EPUB archive with its parsed package document.
type epubBook struct {
	zr      *zip.ReadCloser
	opfPath string
	pkg     opfPackage
}

func openEPUB(filePath string) (*epubBook, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, &CorruptedFileError{Path: filePath, Reason: "open archive", Err: err}
	}

	b := &epubBook{zr: zr}
	if err := b.load(filePath); err != nil {
		zr.Close()
		return nil, err
	}
	return b, nil
}

func (b *epubBook) Close() error {
	return b.zr.Close()
}

func (b *epubBook) load(filePath string) error {
	var container epubContainer
	if err := b.decode(containerPath, &container); err != nil {
		return &CorruptedFileError{Path: filePath, Reason: "read container", Err: err}
	}
	for _, rf := range container.Rootfiles {
		if rf.FullPath != "" {
			b.opfPath = rf.FullPath
			break
		}
	}
	if b.opfPath == "" {
		return &CorruptedFileError{Path: filePath, Reason: "container lists no rootfile"}
	}
	if err := b.decode(b.opfPath, &b.pkg); err != nil {
		return &CorruptedFileError{Path: filePath, Reason: "read package document", Err: err}
	}
	return nil
}

func (b *epubBook) file(name string) (*zip.File, bool) {
	for _, f := range b.zr.File {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (b *epubBook) decode(name string, v any) error {
	f, ok := b.file(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, errors.New("missing from archive"))
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	dec.Strict = false
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	return dec.Decode(v)
}

// resolve turns a manifest href into an archive path.
func (b *epubBook) resolve(href string) string {
	if u, err := url.PathUnescape(href); err == nil {
		href = u
	}
	return path.Join(path.Dir(b.opfPath), href)
}

// coverItem finds the manifest entry holding the cover image.
func (b *epubBook) coverItem() (opfItem, bool) {
	for _, it := range b.pkg.Manifest {
		if hasProperty(it.Properties, "cover-image") {
			return it, true
		}
	}

	for _, m := range b.pkg.Metadata.Metas {
		if m.Name != "cover" || m.Content == "" {
			continue
		}
		for _, it := range b.pkg.Manifest {
			if it.ID == m.Content && strings.HasPrefix(it.MediaType, "image/") {
				return it, true
			}
		}
	}

	for _, it := range b.pkg.Manifest {
		if strings.HasPrefix(it.MediaType, "image/") &&
			(strings.Contains(strings.ToLower(it.ID), "cover") || strings.Contains(strings.ToLower(it.Href), "cover")) {
			return it, true
		}
	}
	return opfItem{}, false
}

func hasProperty(props, want string) bool {
	for p := range strings.FieldsSeq(props) {
		if p == want {
			return true
		}
	}
	return false
}

func readEPUB(filePath string) (*Metadata, error) {
	b, err := openEPUB(filePath)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	md := b.pkg.Metadata
	m := &Metadata{
		Title:      clean(first(md.Titles)),
		Publisher:  clean(first(md.Publishers)),
		Language:   clean(first(md.Languages)),
		Date:       clean(first(md.Dates)),
		Identifier: clean(first(md.Identifiers)),
	}
	if d := first(md.Descriptions); d != "" {
		m.Description = htmlToText(d)
	}

	roles := refinedValues(md.Metas, "role")
	for _, c := range md.Creators {
		role := c.Role
		if role == "" && c.ID != "" {
			role = roles["#"+c.ID]
		}
		if role != "" && role != "aut" {
			continue
		}
		if name := NormalizeAuthor(c.Name); name != "" {
			m.Authors = append(m.Authors, name)
		}
	}

	m.Series, m.SeriesIndex = seriesOf(md.Metas)

	_, m.HasCover = b.coverItem()
	return m, nil
}

// refinedValues maps refines targets to the value of EPUB3 <meta property=prop>.
func refinedValues(metas []opfMeta, prop string) map[string]string {
	out := make(map[string]string)
	for _, m := range metas {
		if m.Property == prop && m.Refines != "" {
			out[m.Refines] = strings.TrimSpace(m.Value)
		}
	}
	return out
}

// seriesOf reads calibre series metadata, falling back to EPUB3 collections.
func seriesOf(metas []opfMeta) (string, float64) {
	var name string
	var index float64
	for _, m := range metas {
		switch m.Name {
		case "calibre:series":
			name = clean(m.Content)
		case "calibre:series_index":
			index = parseSeriesIndex(m.Content)
		}
	}
	if name != "" {
		return name, index
	}

	positions := refinedValues(metas, "group-position")
	for _, m := range metas {
		if m.Property != "belongs-to-collection" || m.Refines != "" {
			continue
		}
		name = clean(m.Value)
		if m.ID != "" {
			index = parseSeriesIndex(positions["#"+m.ID])
		}
		return name, index
	}
	return "", 0
}

func readEPUBCover(filePath string) ([]byte, error) {
	b, err := openEPUB(filePath)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	item, ok := b.coverItem()
	if !ok {
		return nil, ErrNoCover
	}
	f, ok := b.file(b.resolve(item.Href))
	if !ok {
		return nil, ErrNoCover
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &CorruptedFileError{Path: filePath, Reason: "open cover", Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxCoverSize))
	if err != nil {
		return nil, &CorruptedFileError{Path: filePath, Reason: "read cover", Err: err}
	}
	return data, nil
}

func first(values []string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
