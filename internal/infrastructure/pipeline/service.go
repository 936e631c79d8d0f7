package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ProcessPath is the pipeline endpoint every request goes to.
const ProcessPath = "/process_user_request"

// maxErrorBody bounds how much of an error body is read for message extraction.
const maxErrorBody = 1 << 20

type Service struct {
	client  *http.Client
	baseURL string
}

// NewService returns a client for the pipeline at baseURL. A nil client
// means http.DefaultClient; no timeout is imposed beyond the caller's context.
func NewService(baseURL string, client *http.Client) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{
		client:  client,
		baseURL: baseURL,
	}
}

// BaseURL returns the pipeline address the service posts to.
func (s *Service) BaseURL() string {
	return s.baseURL
}

// Process sends one request and decodes the reply. Non-2xx replies come back
// as *StatusError.
func (s *Service) Process(ctx context.Context, req Request) (*Response, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+ProcessPath, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach pipeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			log.Warn().Err(readErr).Int("status", resp.StatusCode).Msg("Failed to read pipeline error body")
		}
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(resp.StatusCode, resp.Status, body),
		}
		log.Warn().
			Int("status", resp.StatusCode).
			Str("error_message", statusErr.Message).
			Msg("Pipeline returned an error status")
		return nil, statusErr
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Int("stages", len(out.PipelineStages)).
		Msg("Pipeline request completed")

	return &out, nil
}
