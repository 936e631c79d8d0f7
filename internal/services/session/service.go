package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/deepgram/pipeview/internal/config"
	"github.com/deepgram/pipeview/internal/infrastructure/redis"
	"github.com/deepgram/pipeview/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	cookieLifetime = 24 * time.Hour
	keyPrefix      = "pipeview:session:"

	// DefaultMemoryCapacity bounds the in-memory store; cookie-less clients
	// create a session per request.
	DefaultMemoryCapacity = 10000
)

type contextKey struct{}

type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

type SessionStore interface {
	Set(ctx context.Context, sessionID string, claims *SessionClaims) error
	Get(ctx context.Context, sessionID string) (*SessionClaims, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
}

type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*SessionClaims
	capacity int
	now      func() time.Time
}

type Service struct {
	store SessionStore
	now   func() time.Time
}

func NewService(redisService *redis.Service) *Service {
	var store SessionStore
	if redisService != nil {
		logger.Info(logger.SESSION, "Using Redis for session storage")
		store = &RedisStore{redisService: redisService}
	} else {
		logger.Info(logger.SESSION, "Using in-memory session storage")
		store = NewMemoryStore(DefaultMemoryCapacity)
	}

	return NewServiceWithStore(store)
}

// NewServiceWithStore builds a service on an explicit store.
func NewServiceWithStore(store SessionStore) *Service {
	return &Service{store: store, now: time.Now}
}

// NewMemoryStore keeps at most capacity sessions, dropping expired ones first
// and then those closest to expiry.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{
		sessions: make(map[string]*SessionClaims),
		capacity: capacity,
		now:      time.Now,
	}
}

// Len reports how many sessions are held.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.sessions)
}

// Redis Store implementation
func (rs *RedisStore) Set(ctx context.Context, sessionID string, claims *SessionClaims) error {
	data, err := json.Marshal(claims)
	if err != nil {
		return err
	}

	return rs.redisService.Set(ctx, keyPrefix+sessionID, string(data), cookieLifetime)
}

func (rs *RedisStore) Get(ctx context.Context, sessionID string) (*SessionClaims, error) {
	data, err := rs.redisService.Get(ctx, keyPrefix+sessionID)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var claims SessionClaims
	if err := json.Unmarshal([]byte(data), &claims); err != nil {
		return nil, err
	}

	return &claims, nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, keyPrefix+sessionID)
}

// Memory Store implementation
func (ms *MemoryStore) Set(ctx context.Context, sessionID string, claims *SessionClaims) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.sessions[sessionID]; !exists && len(ms.sessions) >= ms.capacity {
		ms.evictLocked()
	}
	ms.sessions[sessionID] = claims
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, sessionID string) (*SessionClaims, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	claims, exists := ms.sessions[sessionID]
	if !exists {
		return nil, nil
	}
	if ms.expired(claims) {
		delete(ms.sessions, sessionID)
		return nil, nil
	}
	return claims, nil
}

func (ms *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, sessionID)
	return nil
}

func (ms *MemoryStore) expired(claims *SessionClaims) bool {
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(ms.now())
}

// evictLocked drops every expired session; when none has expired it drops
// the one that expires soonest.
func (ms *MemoryStore) evictLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, claims := range ms.sessions {
		if ms.expired(claims) {
			delete(ms.sessions, id)
			continue
		}
		var expiresAt time.Time
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if oldestID == "" || expiresAt.Before(oldest) {
			oldestID, oldest = id, expiresAt
		}
	}
	if len(ms.sessions) >= ms.capacity && oldestID != "" {
		delete(ms.sessions, oldestID)
	}
}

// CreateSession stores a new anonymous session and sets its signed cookie.
func (s *Service) CreateSession(ctx context.Context, w http.ResponseWriter, r *http.Request) (*SessionClaims, error) {
	now := s.now()
	sessionID := uuid.New().String()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cookieLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        sessionID,
		},
		SessionID: sessionID,
	}

	if err := s.store.Set(ctx, sessionID, claims); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(config.GetSessionSecret())
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    signedToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   r != nil && r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		Expires:  now.Add(cookieLifetime),
	})

	logger.Debug(logger.SESSION, "Created session %s", sessionID)
	return claims, nil
}

// ValidateSession returns the claims of a valid session cookie, or nil when
// there is none or it no longer matches a stored session.
func (s *Service) ValidateSession(ctx context.Context, r *http.Request) (*SessionClaims, error) {
	cookie, err := r.Cookie(config.GetSessionCookieName())
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.GetSessionSecret(), nil
	})
	if err != nil {
		logger.Debug(logger.SESSION, "Rejected session cookie: %v", err)
		return nil, nil
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, nil
	}

	stored, err := s.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}

	return claims, nil
}

// Ensure returns the caller's session, creating one when needed.
func (s *Service) Ensure(w http.ResponseWriter, r *http.Request) (*SessionClaims, error) {
	claims, err := s.ValidateSession(r.Context(), r)
	if err != nil {
		return nil, err
	}
	if claims != nil {
		return claims, nil
	}
	return s.CreateSession(r.Context(), w, r)
}

// ClearSession removes the session cookie and its stored claims
func (s *Service) ClearSession(w http.ResponseWriter, r *http.Request) {
	if claims, err := s.ValidateSession(r.Context(), r); err == nil && claims != nil {
		if err := s.store.Delete(r.Context(), claims.SessionID); err != nil {
			logger.Warn(logger.SESSION, "Failed to delete session %s: %v", claims.SessionID, err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// Middleware attaches a session to every request.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.Ensure(w, r)
		if err != nil {
			logger.Error(logger.SESSION, "Failed to establish session: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// WithClaims stores claims on ctx.
func WithClaims(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// FromContext returns the session attached by Middleware, if any.
func FromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*SessionClaims)
	return claims, ok && claims != nil
}

// IDFromContext returns the session id, or "" without a session.
func IDFromContext(ctx context.Context) string {
	if claims, ok := FromContext(ctx); ok {
		return claims.SessionID
	}
	return ""
}
