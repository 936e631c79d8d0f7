package handlers

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/deepgram/pipeview/internal/infrastructure/pipeline"
	"github.com/deepgram/pipeview/internal/render"
	"github.com/deepgram/pipeview/internal/services/console"
	"github.com/deepgram/pipeview/internal/services/session"
	"github.com/deepgram/pipeview/pkg/httpext"
	"github.com/rs/zerolog/log"
	"github.com/unrolled/secure"
)

const maxSubmitBody = 1 << 20

// SubmitRequest is the body of POST /console/submit.
type SubmitRequest struct {
	Text string `json:"text"`
}

// SubmitResponse carries pre-escaped fragments for the page regions.
type SubmitResponse struct {
	AnswerHTML template.HTML `json:"answer_html"`
	StagesHTML template.HTML `json:"stages_html"`
	ErrorHTML  template.HTML `json:"error_html,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// HandlePage renders the console with empty regions.
func HandlePage(consoleService *console.Service, w http.ResponseWriter, r *http.Request) {
	renderPage(consoleService, w, r, http.StatusOK, render.PageData{})
}

// HandleFormSubmit serves the plain form post, re-rendering the whole page.
func HandleFormSubmit(consoleService *console.Service, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBody)
	if err := r.ParseForm(); err != nil {
		log.Warn().Err(err).Msg("Client sent an unreadable form")
		renderPage(consoleService, w, r, http.StatusBadRequest, render.PageData{Alert: "The request could not be read."})
		return
	}

	text := r.PostFormValue("text")
	result, err := consoleService.Submit(r.Context(), session.IDFromContext(r.Context()), text)
	switch {
	case errors.Is(err, console.ErrEmptyInput):
		renderPage(consoleService, w, r, http.StatusBadRequest, render.PageData{Input: text, Alert: console.EmptyInputMessage})
		return
	case errors.Is(err, console.ErrBusy):
		renderPage(consoleService, w, r, http.StatusConflict, render.PageData{Input: text, Alert: "A request is already in progress."})
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to process form submission")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if result.Err != nil {
		status = http.StatusBadGateway
	}
	renderPage(consoleService, w, r, status, render.PageData{Input: result.Text, View: result.View})
}

// HandleSubmit is the script-driven submission. It answers with the
// rendered regions as JSON.
func HandleSubmit(consoleService *console.Service, w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBody)).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed JSON request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	result, err := consoleService.Submit(r.Context(), session.IDFromContext(r.Context()), req.Text)
	switch {
	case errors.Is(err, console.ErrEmptyInput):
		httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{Detail: console.EmptyInputMessage, Code: "empty_input"})
		return
	case errors.Is(err, console.ErrBusy):
		httpext.JsonErrorWithDetails(w, http.StatusConflict, httpext.ErrorResponse{Detail: err.Error(), Code: "busy"})
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to process submission")
		httpext.JsonError(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := SubmitResponse{
		AnswerHTML: result.View.Answer,
		StagesHTML: result.View.Stages,
	}
	status := http.StatusOK
	if result.Err != nil {
		status = http.StatusBadGateway
		resp.ErrorHTML = result.View.Error
		resp.Error = pipeline.ErrorMessage(result.Err)
	}
	httpext.Json(w, status, resp)
}

func renderPage(consoleService *console.Service, w http.ResponseWriter, r *http.Request, status int, data render.PageData) {
	data.Nonce = secure.CSPNonce(r.Context())
	data.EmptyInputMessage = console.EmptyInputMessage

	// Render buffers the page, so the status can still be set on failure.
	w.Header().Set("Cache-Control", "no-store")
	rw := &statusWriter{ResponseWriter: w, status: status}
	if err := consoleService.Renderer().Page(rw, data); err != nil {
		log.Error().Err(err).Msg("Failed to render console page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// statusWriter applies a non-200 status on the first write.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusWriter) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(s.status)
	}
	return s.ResponseWriter.Write(b)
}
