package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Health check",
		Description: "Returns server health with catalog and device counts",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string `json:"status" doc:"healthy, or degraded before the first catalog scan"`
	Generation uint64 `json:"generation" doc:"Head catalog generation"`
	Books      int    `json:"books" doc:"Books in the head catalog"`
	Devices    int    `json:"devices" doc:"Known device sessions"`
	Uptime     string `json:"uptime" doc:"Time since the server started"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	resp := HealthResponse{
		Status:  "healthy",
		Devices: len(s.kobo.Devices()),
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
	}
	if head := s.library.Head(); head != nil {
		resp.Generation = head.Generation
		resp.Books = head.Len()
	} else {
		resp.Status = "degraded"
	}
	return &HealthOutput{Body: resp}, nil
}
