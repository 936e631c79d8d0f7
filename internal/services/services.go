package services

import (
	"fmt"
	"sync"

	"github.com/deepgram/pipeview/internal/config"
	"github.com/deepgram/pipeview/internal/connections"
	"github.com/deepgram/pipeview/internal/infrastructure/pipeline"
	"github.com/deepgram/pipeview/internal/infrastructure/redis"
	"github.com/deepgram/pipeview/internal/render"
	"github.com/deepgram/pipeview/internal/services/console"
	"github.com/deepgram/pipeview/internal/services/history"
	"github.com/deepgram/pipeview/internal/services/session"
	"github.com/deepgram/pipeview/pkg/metrics"
	"github.com/rs/zerolog/log"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	connectionManager *connections.Manager
	consoleService    *console.Service
	historyService    *history.Service
	metrics           *metrics.Metrics
	pipelineService   *pipeline.Service
	redisService      *redis.Service
	sessionService    *session.Service
}

// Options overrides the pieces tests want to control. Zero values fall back
// to the environment.
type Options struct {
	Pipeline console.Processor
	Redis    *redis.Service
	Timeouts *connections.TimeoutConfig
}

// InitializeServices initializes all required services
func InitializeServices() (*Services, error) {
	return InitializeServicesWithOptions(Options{Redis: redis.NewService()})
}

func InitializeServicesWithOptions(opts Options) (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	redisService := opts.Redis
	if redisService == nil {
		log.Warn().Msg("Redis unavailable - sessions and history are kept in memory")
	}

	sessionService := session.NewService(redisService)
	log.Info().Msg("Initializing session service")

	historyService := history.NewService(redisService, config.GetHistoryLimit())
	log.Info().Int("limit", historyService.Limit()).Msg("Initializing history service")

	engine, err := render.NewTemplateEngine()
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse page templates")
		return nil, fmt.Errorf("failed to initialize templates: %w", err)
	}
	renderer := render.NewRenderer(engine)

	pipelineService := pipeline.NewService(config.GetPipelineURL(), nil)
	processor := opts.Pipeline
	if processor == nil {
		processor = pipelineService
	}
	log.Info().Str("url", pipelineService.BaseURL()).Msg("Initializing pipeline client")

	m := metrics.New()
	consoleService := console.NewService(processor, renderer, historyService, m, config.GetPipelineUserID())
	log.Info().Msg("Initializing console service")

	timeouts := connections.DefaultTimeouts
	if opts.Timeouts != nil {
		timeouts = *opts.Timeouts
	}

	log.Info().Msg("All services initialized successfully")

	return &Services{
		connectionManager: connections.NewManager(timeouts),
		consoleService:    consoleService,
		historyService:    historyService,
		metrics:           m,
		pipelineService:   pipelineService,
		redisService:      redisService,
		sessionService:    sessionService,
	}, nil
}

// GetConsoleService returns the console service
func (s *Services) GetConsoleService() *console.Service {
	return s.consoleService
}

// GetHistoryService returns the history service
func (s *Services) GetHistoryService() *history.Service {
	return s.historyService
}

// GetSessionService returns the session service
func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

// GetRedisService returns the Redis service, nil when running in memory
func (s *Services) GetRedisService() *redis.Service {
	return s.redisService
}

// GetConnectionManager returns the websocket connection manager
func (s *Services) GetConnectionManager() *connections.Manager {
	return s.connectionManager
}

// GetMetrics returns the Prometheus collectors
func (s *Services) GetMetrics() *metrics.Metrics {
	return s.metrics
}

// Close releases connections held by the services.
func (s *Services) Close() error {
	s.connectionManager.CloseAll()
	if s.redisService != nil {
		return s.redisService.Close()
	}
	return nil
}
