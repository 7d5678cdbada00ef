package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "invalidateIndex",
		Method:        http.MethodPost,
		Path:          "/api/v1/admin/index/invalidate",
		Summary:       "Invalidate search index",
		Description:   "Marks the index stale so the next load rebuilds it, then rebuilds in the background",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   huma.Middlewares{s.rateLimited},
	}, s.handleInvalidateIndex)

	huma.Register(s.api, huma.Operation{
		OperationID: "refreshPrices",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/prices/refresh",
		Summary:     "Drop price cache",
		Description: "Deletes the price cache so the next price load reads the raw feed",
		Tags:        []string{"Admin"},
		Middlewares: huma.Middlewares{s.rateLimited},
	}, s.handleRefreshPrices)
}

// AdminActionResponse reports the outcome of an admin action.
type AdminActionResponse struct {
	Message string `json:"message" doc:"What was done"`
}

// AdminActionOutput wraps the admin response for Huma.
type AdminActionOutput struct {
	Body AdminActionResponse
}

func (s *Server) handleInvalidateIndex(_ context.Context, _ *struct{}) (*AdminActionOutput, error) {
	if err := s.searcher.InvalidateIndex(); err != nil {
		s.logger.Error("Failed to invalidate index", "error", err)
		return nil, toAPIError(err)
	}

	msg := "index invalidated"
	if s.reloader != nil {
		go s.rebuildIndex()
		msg = "index invalidated, rebuild started"
	}
	return &AdminActionOutput{Body: AdminActionResponse{Message: msg}}, nil
}

// rebuildIndex runs detached from the request; Shutdown cancels it.
func (s *Server) rebuildIndex() {
	built, err := s.reloader.ReloadIndex(s.rebuildCtx)
	if err != nil {
		s.logger.Error("Background index rebuild failed", "error", err)
		return
	}
	s.logger.Info("Background index rebuild finished", "built", built)
}

func (s *Server) handleRefreshPrices(_ context.Context, _ *struct{}) (*AdminActionOutput, error) {
	s.corpus.DeletePriceCache()
	return &AdminActionOutput{Body: AdminActionResponse{Message: "price cache deleted"}}, nil
}
