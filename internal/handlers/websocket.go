package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deepgram/pipeview/internal/connections"
	"github.com/deepgram/pipeview/internal/infrastructure/pipeline"
	"github.com/deepgram/pipeview/internal/services/console"
	"github.com/deepgram/pipeview/internal/services/session"
	"github.com/deepgram/pipeview/pkg/logger"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// ConsoleMessage is what the browser sends over /ws.
type ConsoleMessage struct {
	Text string `json:"text"`
}

// ConsoleEvent is what the server sends back over /ws.
type ConsoleEvent struct {
	Type       string        `json:"type"`
	AnswerHTML template.HTML `json:"answer_html,omitempty"`
	StagesHTML template.HTML `json:"stages_html,omitempty"`
	ErrorHTML  template.HTML `json:"error_html,omitempty"`
	Error      string        `json:"error,omitempty"`
	Code       string        `json:"code,omitempty"`
}

const (
	EventBusy   = "busy"
	EventResult = "result"
	EventError  = "error"
)

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// HandleWebSocket runs the console over a websocket. Each text message is one
// submission; a message arriving while the previous one is outstanding is
// answered with an error event instead of being queued.
func HandleWebSocket(consoleService *console.Service, manager *connections.Manager, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(logger.HANDLER, "Could not upgrade connection: %v", err)
		return
	}

	sessionID := session.IDFromContext(r.Context())
	client := manager.AddConnection(conn, sessionID)
	timeouts := manager.GetTimeouts()

	// Submissions outlive the upgrade request, so they get their own context.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	var pending sync.WaitGroup
	defer func() {
		cancel()
		pending.Wait()
		manager.RemoveConnection(client)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(timeouts.PingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := client.Ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	var inFlight atomic.Bool
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn(logger.HANDLER, "Unexpected websocket closure for session %s: %v", sessionID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))

		var msg ConsoleMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug(logger.HANDLER, "Invalid websocket message from session %s: %v", sessionID, err)
			client.WriteJSON(ConsoleEvent{Type: EventError, Error: "Invalid request format", Code: "invalid_request"})
			continue
		}

		if _, err := console.Validate(msg.Text); err != nil {
			client.WriteJSON(ConsoleEvent{Type: EventError, Error: console.EmptyInputMessage, Code: "empty_input"})
			continue
		}
		if !inFlight.CompareAndSwap(false, true) {
			client.WriteJSON(ConsoleEvent{Type: EventError, Error: console.ErrBusy.Error(), Code: "busy"})
			continue
		}

		if err := client.WriteJSON(ConsoleEvent{Type: EventBusy}); err != nil {
			return
		}

		pending.Add(1)
		go func(text string) {
			defer pending.Done()
			defer inFlight.Store(false)

			if err := client.WriteJSON(submitEvent(ctx, consoleService, sessionID, text)); err != nil {
				logger.Debug(logger.HANDLER, "Failed to deliver console event: %v", err)
			}
		}(msg.Text)
	}
}

func submitEvent(ctx context.Context, consoleService *console.Service, sessionID, text string) ConsoleEvent {
	result, err := consoleService.Submit(ctx, sessionID, text)
	switch {
	case errors.Is(err, console.ErrEmptyInput):
		return ConsoleEvent{Type: EventError, Error: console.EmptyInputMessage, Code: "empty_input"}
	case errors.Is(err, console.ErrBusy):
		return ConsoleEvent{Type: EventError, Error: err.Error(), Code: "busy"}
	case err != nil:
		logger.Error(logger.HANDLER, "Failed to process websocket submission: %v", err)
		return ConsoleEvent{Type: EventError, Error: "Internal Server Error", Code: "internal"}
	}

	if result.Err != nil {
		return ConsoleEvent{
			Type:      EventError,
			ErrorHTML: result.View.Error,
			Error:     pipeline.ErrorMessage(result.Err),
			Code:      "pipeline_failed",
		}
	}
	return ConsoleEvent{
		Type:       EventResult,
		AnswerHTML: result.View.Answer,
		StagesHTML: result.View.Stages,
	}
}
