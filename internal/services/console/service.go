package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deepgram/pipeview/internal/infrastructure/pipeline"
	"github.com/deepgram/pipeview/internal/render"
	"github.com/deepgram/pipeview/internal/services/history"
	"github.com/deepgram/pipeview/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// EmptyInputMessage is shown when a submission has no text.
const EmptyInputMessage = "Please enter some text."

var (
	ErrEmptyInput = errors.New(EmptyInputMessage)
	ErrBusy       = errors.New("request already in progress")
)

// Processor sends one request to the pipeline.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// Result is the outcome of a submission that reached the pipeline. Err is
// the pipeline failure, if any; View already contains its error panel.
type Result struct {
	Text     string
	View     render.View
	Response *pipeline.Response
	Err      error
}

type Service struct {
	pipeline Processor
	renderer *render.Renderer
	history  *history.Service
	metrics  *metrics.Metrics
	guard    *Guard
	userID   string
	now      func() time.Time
}

func NewService(p Processor, renderer *render.Renderer, historyService *history.Service, m *metrics.Metrics, userID string) *Service {
	return &Service{
		pipeline: p,
		renderer: renderer,
		history:  historyService,
		metrics:  m,
		guard:    NewGuard(),
		userID:   userID,
		now:      time.Now,
	}
}

// Renderer returns the renderer used for views and pages.
func (s *Service) Renderer() *render.Renderer {
	return s.renderer
}

// Validate trims text and rejects it when nothing is left.
func Validate(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyInput
	}
	return trimmed, nil
}

// Submit validates text, sends it to the pipeline and renders the reply.
// It returns ErrEmptyInput without any network call, and ErrBusy while
// another submission for the same session is outstanding. Pipeline failures
// are reported in Result.Err, not as the returned error.
func (s *Service) Submit(ctx context.Context, sessionID, text string) (Result, error) {
	trimmed, err := Validate(text)
	if err != nil {
		s.metrics.ObserveSubmission("empty")
		return Result{}, err
	}

	if !s.guard.TryAcquire(sessionID) {
		s.metrics.ObserveSubmission("busy")
		log.Warn().Str("session_id", sessionID).Msg("Submission refused while another is in progress")
		return Result{}, ErrBusy
	}
	defer s.guard.Release(sessionID)

	result := Result{Text: trimmed}
	started := s.now()
	resp, err := s.pipeline.Process(ctx, pipeline.Request{UserID: s.userID, Text: trimmed})
	elapsed := s.now().Sub(started)

	record := history.Record{SessionID: sessionID, Text: trimmed}

	if err != nil {
		message := pipeline.ErrorMessage(err)
		outcome := metrics.OutcomeFailed
		var statusErr *pipeline.StatusError
		if errors.As(err, &statusErr) {
			outcome = metrics.OutcomeRejected
		}
		s.metrics.ObservePipeline(outcome, elapsed)
		s.metrics.ObserveSubmission("error")

		log.Error().
			Err(err).
			Str("session_id", sessionID).
			Dur("elapsed", elapsed).
			Msg("Pipeline request failed")

		result.Err = err
		result.View, err = s.renderer.Failure(message)
		if err != nil {
			return Result{}, fmt.Errorf("failed to render error panel: %w", err)
		}

		record.Status = history.StatusFailed
		record.Error = message
		s.record(ctx, record)
		return result, nil
	}

	s.metrics.ObservePipeline(metrics.OutcomeCompleted, elapsed)
	s.metrics.ObserveSubmission("ok")

	result.Response = resp
	result.View, err = s.renderer.Build(resp)
	if err != nil {
		return Result{}, fmt.Errorf("failed to render response: %w", err)
	}

	record.Status = history.StatusCompleted
	record.FinalResponse, _ = resp.Final()
	record.Error, _ = resp.Failure()
	record.StageCount = len(resp.PipelineStages)
	s.record(ctx, record)

	log.Info().
		Str("session_id", sessionID).
		Int("stages", record.StageCount).
		Dur("elapsed", elapsed).
		Msg("Pipeline request completed")

	return result, nil
}

func (s *Service) record(ctx context.Context, record history.Record) {
	if s.history == nil {
		return
	}
	// The page has already been rendered; a lost history entry is only logged.
	if _, err := s.history.Record(context.WithoutCancel(ctx), record); err != nil {
		log.Warn().Err(err).Str("session_id", record.SessionID).Msg("Failed to record exchange")
	}
}
