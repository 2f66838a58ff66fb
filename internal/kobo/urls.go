package kobo

import (
	"net/url"
	"strings"

	"github.com/kobink/kobink-server/internal/domain"
)

// URLs builds the absolute URLs advertised to one device.
type URLs struct {
	base string
	key  string
}

// NewURLs creates a builder for the given advertised base URL and path key.
func NewURLs(base, key string) URLs {
	return URLs{base: strings.TrimRight(base, "/"), key: key}
}

// Base returns the advertised base URL.
func (u URLs) Base() string {
	return u.base
}

// API returns the root the device uses in place of storeapi.kobo.com/v1.
func (u URLs) API() string {
	return u.base + "/kobo/" + url.PathEscape(u.key) + "/v1"
}

// Download returns the content URL for an entry. The rev query parameter changes
// whenever the file content does.
func (u URLs) Download(e *domain.BookEntry) string {
	return u.base + "/download/" + e.ID + "/" + strings.ToLower(string(e.Format)) + "/" +
		url.PathEscape(e.FileName()) + "?rev=" + e.Revision()
}

// CoverTemplate is the image_url_template resource.
func (u URLs) CoverTemplate() string {
	return u.base + "/kobo/" + url.PathEscape(u.key) + "/covers/{ImageId}/{Width}/{Height}/false/image.jpg"
}

// CoverQualityTemplate is the image_url_quality_template resource.
func (u URLs) CoverQualityTemplate() string {
	return u.base + "/kobo/" + url.PathEscape(u.key) + "/covers/{ImageId}/{Width}/{Height}/{Quality}/{IsGreyscale}/image.jpg"
}
