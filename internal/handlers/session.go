package handlers

import (
	"net/http"

	"github.com/deepgram/pipeview/internal/services/session"
)

// HandleResetSession drops the caller's session and sends them back to a
// fresh console, which starts a new session with an empty history.
func HandleResetSession(sessionService *session.Service, w http.ResponseWriter, r *http.Request) {
	sessionService.ClearSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
