package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kobink/kobink-server/internal/domain"
)

func (s *Server) registerAdminRoutes() {
	s.registerHealthRoutes()

	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog",
		Summary:     "Get catalog",
		Description: "Returns the head catalog generation and its books",
		Tags:        []string{"Catalog"},
	}, s.handleGetCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID:   "rescanCatalog",
		Method:        http.MethodPost,
		Path:          "/api/v1/catalog/rescan",
		Summary:       "Rescan library",
		Description:   "Scans the library now and commits a new generation if anything changed",
		Tags:          []string{"Catalog"},
		DefaultStatus: http.StatusOK,
	}, s.handleRescan)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDevices",
		Method:      http.MethodGet,
		Path:        "/api/v1/devices",
		Summary:     "List devices",
		Description: "Returns every device session known to this process",
		Tags:        []string{"Devices"},
	}, s.handleListDevices)
}

// CatalogResponse is the head snapshot.
type CatalogResponse struct {
	Generation  uint64              `json:"generation" doc:"Catalog generation, 0 before the first scan"`
	PublishedAt time.Time           `json:"published_at,omitzero" doc:"When the generation was committed"`
	Books       []*domain.BookEntry `json:"books" doc:"Books ordered by id"`
}

// CatalogOutput wraps the catalog response for Huma.
type CatalogOutput struct {
	Body CatalogResponse
}

func (s *Server) handleGetCatalog(_ context.Context, _ *struct{}) (*CatalogOutput, error) {
	head := s.library.Head()
	if head == nil {
		return &CatalogOutput{Body: CatalogResponse{Books: []*domain.BookEntry{}}}, nil
	}
	return &CatalogOutput{Body: CatalogResponse{
		Generation:  head.Generation,
		PublishedAt: head.PublishedAt,
		Books:       head.Entries(),
	}}, nil
}

// ScanWarning is a file the scan skipped.
type ScanWarning struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// RescanResponse summarizes a completed scan.
type RescanResponse struct {
	Generation uint64        `json:"generation"`
	Books      int           `json:"books"`
	Files      int           `json:"files" doc:"Book files found, including unreadable ones"`
	Duration   string        `json:"duration"`
	Warnings   []ScanWarning `json:"warnings"`
}

// RescanOutput wraps the rescan response for Huma.
type RescanOutput struct {
	Body RescanResponse
}

func (s *Server) handleRescan(ctx context.Context, _ *struct{}) (*RescanOutput, error) {
	head, err := s.library.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	resp := RescanResponse{
		Generation: head.Generation,
		Books:      head.Len(),
		Warnings:   []ScanWarning{},
	}
	if report := s.library.LastReport(); report != nil {
		resp.Files = report.Files
		resp.Duration = report.Duration().String()
		for _, w := range report.Warnings {
			resp.Warnings = append(resp.Warnings, ScanWarning{Path: w.Path, Error: w.Err.Error()})
		}
	}
	return &RescanOutput{Body: resp}, nil
}

// DeviceResponse describes one device session.
type DeviceResponse struct {
	DeviceID   string    `json:"device_id"`
	State      string    `json:"state" doc:"unauthenticated, handshaking or authenticated"`
	Cursor     uint64    `json:"cursor" doc:"Last generation the device fully synced"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// DevicesOutput wraps the device list for Huma.
type DevicesOutput struct {
	Body struct {
		Devices []DeviceResponse `json:"devices"`
	}
}

func (s *Server) handleListDevices(_ context.Context, _ *struct{}) (*DevicesOutput, error) {
	out := &DevicesOutput{}
	out.Body.Devices = make([]DeviceResponse, 0)
	for _, d := range s.kobo.Devices() {
		out.Body.Devices = append(out.Body.Devices, deviceResponse(d))
	}
	return out, nil
}

func deviceResponse(d domain.DeviceSession) DeviceResponse {
	return DeviceResponse{
		DeviceID:   d.DeviceID,
		State:      d.State.String(),
		Cursor:     d.Cursor,
		CreatedAt:  d.CreatedAt,
		LastSeenAt: d.LastSeenAt,
	}
}
