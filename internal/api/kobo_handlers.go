package api

import (
	"encoding/json/v2"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/kobink/kobink-server/internal/errors"
	"github.com/kobink/kobink-server/internal/http/response"
	"github.com/kobink/kobink-server/internal/kobo"
	"github.com/kobink/kobink-server/internal/service"
)

// Kobo protocol headers.
const (
	headerSyncToken = "X-Kobo-Synctoken"
	headerSync      = "X-Kobo-Sync"
	headerDeviceID  = "X-Kobo-Deviceid"
	headerAPIToken  = "X-Kobo-Apitoken"
)

// maxAuthBody bounds the JSON bodies devices post.
const maxAuthBody = 64 << 10

func (s *Server) registerKoboRoutes() {
	s.router.Route("/kobo/{key}", func(r chi.Router) {
		r.Use(s.requireAPIKey)

		r.Get("/", s.handleHandshake)
		r.Get("/covers/{imageID}/{width}/{height}/{grey}/image.jpg", s.handleCover)
		r.Get("/covers/{imageID}/{width}/{height}/{quality}/{grey}/image.jpg", s.handleCover)

		// Some firmware doubles the version prefix.
		r.Route("/v1", s.koboV1Routes)
		r.Route("/v1/v1", s.koboV1Routes)

		r.HandleFunc("/*", s.handleAcknowledge)
	})
}

func (s *Server) koboV1Routes(r chi.Router) {
	r.Get("/initialization", s.handleInitialization)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/auth/device", s.handleDeviceAuth)
		r.Post("/auth/refresh", s.handleRefresh)
	})

	r.Get("/library/sync", s.handleSync)
	r.Get("/library/{bookID}/metadata", s.handleMetadata)
	r.Get("/library/{bookID}/state", s.handleGetState)
	r.Put("/library/{bookID}/state", s.handlePutState)
	r.Delete("/library/{bookID}", s.handleArchive)

	r.HandleFunc("/*", s.handleAcknowledge)
}

func (s *Server) handleHandshake(w http.ResponseWriter, r *http.Request) {
	resources := s.kobo.Handshake(r.Context(), service.HandshakeRequest{
		URLs:     s.urls(r),
		Bearer:   bearerToken(r),
		DeviceID: r.Header.Get(headerDeviceID),
	})
	response.KoboOK(w, resources, s.logger)
}

func (s *Server) handleInitialization(w http.ResponseWriter, r *http.Request) {
	resources := s.kobo.Handshake(r.Context(), service.HandshakeRequest{
		URLs:     s.urls(r),
		Bearer:   bearerToken(r),
		DeviceID: r.Header.Get(headerDeviceID),
	})
	// An empty base64 JSON object; the device expects the header to be present.
	w.Header().Set(headerAPIToken, "e30=")
	response.KoboOK(w, kobo.InitializationResponse{Resources: resources}, s.logger)
}

func (s *Server) handleDeviceAuth(w http.ResponseWriter, r *http.Request) {
	var req kobo.DeviceAuthRequest
	if err := decodeBody(w, r, &req); err != nil {
		response.KoboError(w, err, s.logger)
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = r.Header.Get(headerDeviceID)
	}

	res, err := s.kobo.AuthenticateDevice(r.Context(), req)
	if err != nil {
		response.KoboError(w, err, s.logger)
		return
	}
	w.Header().Set(headerSyncToken, res.SyncToken)
	response.KoboOK(w, res.Response, s.logger)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req kobo.RefreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		response.KoboError(w, err, s.logger)
		return
	}
	if req.RefreshToken == "" {
		req.RefreshToken = bearerToken(r)
	}

	res, err := s.kobo.RefreshAuth(r.Context(), req, r.Header.Get(headerDeviceID))
	if err != nil {
		response.KoboError(w, err, s.logger)
		return
	}
	w.Header().Set(headerSyncToken, res.SyncToken)
	response.KoboOK(w, res.Response, s.logger)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.kobo.Sync(r.Context(), service.SyncRequest{
		URLs:      s.urls(r),
		Bearer:    bearerToken(r),
		DeviceID:  r.Header.Get(headerDeviceID),
		SyncToken: r.Header.Get(headerSyncToken),
	})
	if err != nil {
		response.KoboError(w, err, s.logger)
		return
	}

	w.Header().Set(headerSyncToken, res.SyncToken)
	if res.More {
		w.Header().Set(headerSync, "continue")
	}
	response.KoboOK(w, res.Events, s.logger)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	md, err := s.kobo.Metadata(r.Context(), chi.URLParam(r, "bookID"), credentials(r), s.urls(r))
	if err != nil {
		response.KoboError(w, err, s.logger)
		return
	}
	response.KoboOK(w, md, s.logger)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	states, err := s.kobo.ReadingState(r.Context(), chi.URLParam(r, "bookID"), credentials(r))
	if err != nil {
		response.KoboError(w, err, s.logger)
		return
	}
	response.KoboOK(w, states, s.logger)
}

func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, http.MaxBytesReader(w, r.Body, maxAuthBody))

	ack, err := s.kobo.UpdateReadingState(r.Context(), chi.URLParam(r, "bookID"), credentials(r))
	if err != nil {
		response.KoboError(w, err, s.logger)
		return
	}
	response.KoboOK(w, ack, s.logger)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if err := s.kobo.Archive(r.Context(), chi.URLParam(r, "bookID"), credentials(r)); err != nil {
		response.KoboError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleAcknowledge answers every store endpoint the server does not model with
// an empty object, which the device accepts as success.
func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("acknowledged unmodeled endpoint", "method", r.Method, "path", r.URL.Path)
	response.KoboOK(w, struct{}{}, s.logger)
}

// decodeBody reads a bounded JSON body into v. Unknown fields are ignored.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.UnmarshalRead(http.MaxBytesReader(w, r.Body, maxAuthBody), v); err != nil {
		return domainerrors.Validation("invalid JSON body").WithCause(err)
	}
	return nil
}
