package httpext

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJsonError(t *testing.T) {
	tests := []struct {
		name    string
		message string
		code    int
	}{
		{"Basic error", "Something went wrong", http.StatusBadRequest},
		{"Conflict", "request already in progress", http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JsonError(w, tt.message, tt.code)

			if w.Code != tt.code {
				t.Errorf("Expected status code %d, got %d", tt.code, w.Code)
			}
			if w.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", w.Header().Get("Content-Type"))
			}

			var response ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response body: %v", err)
			}
			if response.Detail != tt.message {
				t.Errorf("Expected detail %q, got %q", tt.message, response.Detail)
			}
			if response.Code != "" {
				t.Errorf("Expected empty code, got %q", response.Code)
			}
		})
	}
}

func TestJsonErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	JsonErrorWithDetails(w, http.StatusBadRequest, ErrorResponse{Detail: "Please enter some text.", Code: "empty_input"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	if response["detail"] != "Please enter some text." || response["code"] != "empty_input" {
		t.Errorf("Unexpected body %v", response)
	}
}

func TestJson(t *testing.T) {
	w := httptest.NewRecorder()
	Json(w, http.StatusOK, map[string]int{"count": 3})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status code 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "{\"count\":3}\n" {
		t.Errorf("Unexpected body %q", got)
	}
}
