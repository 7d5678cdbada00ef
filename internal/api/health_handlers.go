package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status         string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	DatasetVersion string                     `json:"dataset_version,omitempty" doc:"Version of the loaded card dataset"`
	Components     map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"corpus": s.checkCorpus(),
		"search": s.checkSearchIndex(),
		"prices": s.checkPrices(),
	}

	overall := statusHealthy
	for _, c := range components {
		switch {
		case c.Status == statusUnhealthy:
			overall = statusUnhealthy
		case c.Status == statusDegraded && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	resp := HealthResponse{Status: overall, Components: components}
	if s.corpus != nil && s.corpus.IsLoaded() {
		resp.DatasetVersion = s.corpus.DatasetVersion()
	}
	return &HealthOutput{Body: resp}, nil
}

// checkCorpus reports whether the card model finished loading.
func (s *Server) checkCorpus() ComponentHealth {
	if s.corpus == nil {
		return ComponentHealth{Status: statusDegraded, Message: "corpus not configured"}
	}
	if !s.corpus.IsLoaded() {
		return ComponentHealth{Status: statusDegraded, Message: "loading"}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Message: countMessage(len(s.corpus.Cards()), "card"),
	}
}

// checkSearchIndex verifies the Bleve index is accessible.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.searcher == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search not configured"}
	}
	if !s.searcher.IsIndexLoaded() {
		return ComponentHealth{Status: statusDegraded, Message: "index not loaded"}
	}

	start := time.Now()
	docCount, err := s.searcher.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  statusUnhealthy,
			Latency: latency.String(),
			Message: "search index unreachable",
		}
	}
	if docCount == 0 {
		return ComponentHealth{
			Status:  statusDegraded,
			Latency: latency.String(),
			Message: "search index empty",
		}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Latency: latency.String(),
		Message: countMessage(int(docCount), "document"),
	}
}

// checkPrices reports the price overlay. A failed overlay degrades the
// server without making it unhealthy: cards are served without prices.
func (s *Server) checkPrices() ComponentHealth {
	if s.corpus == nil {
		return ComponentHealth{Status: statusDegraded, Message: "corpus not configured"}
	}
	w := s.corpus.PricesLoaded()
	switch {
	case !w.Fired():
		return ComponentHealth{Status: statusDegraded, Message: "loading"}
	case w.Err() != nil:
		return ComponentHealth{Status: statusDegraded, Message: "prices unavailable"}
	default:
		return ComponentHealth{Status: statusHealthy}
	}
}

func countMessage(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
