package api

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/http/response"
	"github.com/kobink/kobink-server/internal/media/covers"
)

func (s *Server) registerContentRoutes() {
	s.router.Get("/download/{bookID}/{format}/{filename}", s.handleDownload)
}

// handleDownload streams a book file. Unknown ids are 404 whether or not the
// device is authenticated.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	entry, err := s.kobo.Resolve(r.Context(), bookID, credentials(r))
	if err != nil {
		response.KoboError(w, err, s.logger)
		return
	}
	if !strings.EqualFold(chi.URLParam(r, "format"), string(entry.Format)) {
		response.KoboError(w, domainerrors.NotFoundf("book %s is not available as %s", bookID, chi.URLParam(r, "format")), s.logger)
		return
	}

	f, err := os.Open(entry.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Removed since the last scan.
			s.library.MarkDirty()
			response.KoboError(w, domainerrors.NotFoundf("book %s not found", bookID), s.logger)
			return
		}
		response.KoboError(w, err, s.logger)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		response.KoboError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", entry.Format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": entry.FileName()}))
	http.ServeContent(w, r, entry.FileName(), info.ModTime(), f)
}

// handleCover renders a cover at the size in the image template. The short
// template has no quality segment.
func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	opts, err := coverOptions(r)
	if err != nil {
		response.KoboError(w, err, s.logger)
		return
	}

	data, err := s.kobo.Cover(r.Context(), chi.URLParam(r, "imageID"), opts)
	if err != nil {
		response.KoboError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

func coverOptions(r *http.Request) (covers.Options, error) {
	width, err := strconv.Atoi(chi.URLParam(r, "width"))
	if err != nil {
		return covers.Options{}, domainerrors.Validation("invalid cover width")
	}
	height, err := strconv.Atoi(chi.URLParam(r, "height"))
	if err != nil {
		return covers.Options{}, domainerrors.Validation("invalid cover height")
	}

	opts := covers.Options{Width: width, Height: height}
	if q := chi.URLParam(r, "quality"); q != "" {
		// Unparseable quality falls back to the default.
		opts.Quality, _ = strconv.Atoi(q)
	}
	opts.Greyscale, _ = strconv.ParseBool(chi.URLParam(r, "grey"))
	return opts.Normalize(), nil
}
