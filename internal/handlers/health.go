package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/deepgram/pipeview/internal/infrastructure/redis"
	"github.com/deepgram/pipeview/pkg/httpext"
	"github.com/rs/zerolog/log"
)

type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

// HandleHealth reports whether the service and its Redis backing are usable.
// Running without Redis is healthy; a configured Redis that stops answering
// is not.
func HandleHealth(redisService *redis.Service, w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Redis: "disabled"}
	if redisService == nil {
		httpext.Json(w, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := redisService.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Health check could not reach Redis")
		resp.Status = "degraded"
		resp.Redis = "unreachable"
		httpext.Json(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Redis = "ok"
	httpext.Json(w, http.StatusOK, resp)
}
