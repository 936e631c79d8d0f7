package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/deepgram/pipeview/internal/infrastructure/redis"
	"github.com/deepgram/pipeview/pkg/logger"
	"github.com/google/uuid"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	resultsKeyPrefix = "pipeview:results:"
	failedKey        = "pipeview:failed"
	retention        = 7 * 24 * time.Hour

	// FailedLimit caps the cross-session failure list.
	FailedLimit = 100
	// MaxMemorySessions caps how many sessions MemoryStore keeps history for.
	MaxMemorySessions = 10000
)

// Record is one finished exchange with the pipeline.
type Record struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Text          string    `json:"text"`
	Status        string    `json:"status"`
	FinalResponse string    `json:"final_response,omitempty"`
	Error         string    `json:"error,omitempty"`
	StageCount    int       `json:"stage_count"`
	CompletedAt   time.Time `json:"completion_time"`
}

// Store persists records, newest first, capped per session.
type Store interface {
	Save(ctx context.Context, record Record, limit int) error
	Recent(ctx context.Context, sessionID string, limit int) ([]Record, error)
	Count(ctx context.Context, sessionID string) (int, error)
	Failed(ctx context.Context, limit int) ([]Record, error)
}

type Service struct {
	store Store
	limit int
	now   func() time.Time
}

func NewService(redisService *redis.Service, limit int) *Service {
	var store Store
	if redisService != nil {
		logger.Info(logger.HISTORY, "Using Redis for exchange history")
		store = &RedisStore{redisService: redisService}
	} else {
		logger.Info(logger.HISTORY, "Using in-memory exchange history")
		store = NewMemoryStore()
	}
	return NewServiceWithStore(store, limit)
}

func NewServiceWithStore(store Store, limit int) *Service {
	if limit <= 0 {
		limit = 20
	}
	return &Service{store: store, limit: limit, now: time.Now}
}

// Limit is the per-session cap.
func (s *Service) Limit() int {
	return s.limit
}

// Record stores an exchange, filling in the id and completion time.
func (s *Service) Record(ctx context.Context, record Record) (Record, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CompletedAt.IsZero() {
		record.CompletedAt = s.now().UTC()
	}
	if err := s.store.Save(ctx, record, s.limit); err != nil {
		return record, fmt.Errorf("failed to store history record: %w", err)
	}
	return record, nil
}

// Recent returns up to limit records for a session, newest first. A
// non-positive or oversized limit means the configured cap.
func (s *Service) Recent(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	records, err := s.store.Recent(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return records, nil
}

// Count returns how many records a session has.
func (s *Service) Count(ctx context.Context, sessionID string) (int, error) {
	return s.store.Count(ctx, sessionID)
}

// Failed returns the most recent failed exchanges across all sessions,
// newest first. A non-positive or oversized limit means FailedLimit.
func (s *Service) Failed(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > FailedLimit {
		limit = FailedLimit
	}
	records, err := s.store.Failed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load failed exchanges: %w", err)
	}
	return records, nil
}

// RedisStore keeps one capped list per session plus a global failed list.
type RedisStore struct {
	redisService *redis.Service
}

func (rs *RedisStore) Save(ctx context.Context, record Record, limit int) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := rs.redisService.PushCapped(ctx, resultsKeyPrefix+record.SessionID, string(data), limit, retention); err != nil {
		return err
	}
	if record.Status == StatusFailed {
		return rs.redisService.PushCapped(ctx, failedKey, string(data), FailedLimit, retention)
	}
	return nil
}

func (rs *RedisStore) Recent(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	values, err := rs.redisService.Range(ctx, resultsKeyPrefix+sessionID, 0, int64(limit-1))
	if err != nil {
		return nil, err
	}
	return decodeRecords(values), nil
}

func (rs *RedisStore) Count(ctx context.Context, sessionID string) (int, error) {
	n, err := rs.redisService.Len(ctx, resultsKeyPrefix+sessionID)
	return int(n), err
}

func (rs *RedisStore) Failed(ctx context.Context, limit int) ([]Record, error) {
	values, err := rs.redisService.Range(ctx, failedKey, 0, int64(limit-1))
	if err != nil {
		return nil, err
	}
	return decodeRecords(values), nil
}

func decodeRecords(values []string) []Record {
	records := make([]Record, 0, len(values))
	for _, value := range values {
		var record Record
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			logger.Warn(logger.HISTORY, "Could not decode history record: %.100s", value)
			continue
		}
		records = append(records, record)
	}
	return records
}

// MemoryStore mirrors RedisStore for single-process deployments and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string][]Record
	failed      []Record
	maxSessions int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Record), maxSessions: MaxMemorySessions}
}

func (ms *MemoryStore) Save(ctx context.Context, record Record, limit int) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.sessions[record.SessionID]; !exists && len(ms.sessions) >= ms.maxSessions {
		ms.evictStalestLocked()
	}

	records := append([]Record{record}, ms.sessions[record.SessionID]...)
	if len(records) > limit {
		records = records[:limit]
	}
	ms.sessions[record.SessionID] = records

	if record.Status == StatusFailed {
		ms.failed = append([]Record{record}, ms.failed...)
		if len(ms.failed) > FailedLimit {
			ms.failed = ms.failed[:FailedLimit]
		}
	}
	return nil
}

// evictStalestLocked drops the session whose newest record is oldest.
func (ms *MemoryStore) evictStalestLocked() {
	var (
		stalestID string
		stalest   time.Time
		found     bool
	)
	for id, records := range ms.sessions {
		latest := records[0].CompletedAt
		if !found || latest.Before(stalest) {
			stalestID, stalest, found = id, latest, true
		}
	}
	if found {
		delete(ms.sessions, stalestID)
	}
}

func (ms *MemoryStore) Recent(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	records := ms.sessions[sessionID]
	if len(records) > limit {
		records = records[:limit]
	}
	return append([]Record(nil), records...), nil
}

func (ms *MemoryStore) Count(ctx context.Context, sessionID string) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.sessions[sessionID]), nil
}

func (ms *MemoryStore) Failed(ctx context.Context, limit int) ([]Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	failed := ms.failed
	if limit > 0 && len(failed) > limit {
		failed = failed[:limit]
	}
	return append([]Record(nil), failed...), nil
}
