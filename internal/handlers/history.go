package handlers

import (
	"net/http"
	"strconv"

	"github.com/deepgram/pipeview/internal/services/history"
	"github.com/deepgram/pipeview/internal/services/session"
	"github.com/deepgram/pipeview/pkg/httpext"
	"github.com/rs/zerolog/log"
)

// HistoryResponse lists the caller's recent exchanges, newest first.
type HistoryResponse struct {
	Count   int              `json:"count"`
	Records []history.Record `json:"records"`
}

func HandleHistory(historyService *history.Service, w http.ResponseWriter, r *http.Request) {
	limit := historyService.Limit()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpext.JsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	sessionID := session.IDFromContext(r.Context())
	records, err := historyService.Recent(r.Context(), sessionID, limit)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load history")
		httpext.JsonError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	count, err := historyService.Count(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to count history")
		httpext.JsonError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []history.Record{}
	}
	httpext.Json(w, http.StatusOK, HistoryResponse{Count: count, Records: records})
}

// HandleFailedHistory lists the most recent failed exchanges of every session.
func HandleFailedHistory(historyService *history.Service, w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpext.JsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := historyService.Failed(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load failed exchanges")
		httpext.JsonError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []history.Record{}
	}
	httpext.Json(w, http.StatusOK, HistoryResponse{Count: len(records), Records: records})
}
