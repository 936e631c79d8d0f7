package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is returned when the pipeline answers with a non-2xx status.
// Message is the best human-readable text that could be extracted.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

// ErrorMessage flattens any error from Process into the single string shown
// to the user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message
	}
	return err.Error()
}

// extractErrorMessage picks detail, then error_message, then the raw JSON
// from an error body. Bodies that are not JSON fall back to the status line
// the server sent.
func extractErrorMessage(statusCode int, status string, body []byte) string {
	fallback := statusLine(statusCode, status)

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return fallback
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err == nil {
		for _, key := range []string{"detail", "error_message"} {
			if raw := fields[key]; truthy(raw) {
				return messageText(raw)
			}
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed)
	}
	return compact.String()
}

// statusLine renders "Error: <code> <reason>", preferring the reason phrase
// from the response over Go's name for the code.
func statusLine(statusCode int, status string) string {
	if status = strings.TrimSpace(status); status != "" {
		return "Error: " + status
	}
	if text := http.StatusText(statusCode); text != "" {
		return fmt.Sprintf("Error: %d %s", statusCode, text)
	}
	return fmt.Sprintf("Error: %d", statusCode)
}

func messageText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}
