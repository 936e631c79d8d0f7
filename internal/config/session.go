package config

import (
	"crypto/rand"
	"sync"

	"github.com/deepgram/pipeview/pkg/logger"
)

var (
	sessionSecretMu sync.RWMutex
	sessionSecret   []byte
)

// DefaultSessionCookieName is used when SESSION_COOKIE_NAME is unset.
const DefaultSessionCookieName = "pipeview_session"

// GetSessionSecret returns the key used to sign session cookies. Without
// SESSION_SECRET a random key is generated, so sessions do not survive a restart.
func GetSessionSecret() []byte {
	sessionSecretMu.RLock()
	secret := sessionSecret
	sessionSecretMu.RUnlock()
	if secret != nil {
		return secret
	}

	sessionSecretMu.Lock()
	defer sessionSecretMu.Unlock()
	if sessionSecret != nil {
		return sessionSecret
	}

	if value := GetEnvOrDefault("SESSION_SECRET", ""); value != "" {
		sessionSecret = []byte(value)
		return sessionSecret
	}

	logger.Warn(logger.CONFIG, "SESSION_SECRET not set - generating an ephemeral signing key")
	generated := make([]byte, 32)
	if _, err := rand.Read(generated); err != nil {
		logger.Fatal(logger.CONFIG, "Failed to generate session secret: %v", err)
	}
	sessionSecret = generated
	return sessionSecret
}

// SetSessionSecret temporarily changes the session secret and returns a function to restore it
// This is primarily used for testing
func SetSessionSecret(secret []byte) func() {
	sessionSecretMu.Lock()
	previous := sessionSecret
	sessionSecret = secret
	sessionSecretMu.Unlock()

	return func() {
		sessionSecretMu.Lock()
		sessionSecret = previous
		sessionSecretMu.Unlock()
	}
}

// GetSessionCookieName returns the configured session cookie name
func GetSessionCookieName() string {
	return GetEnvOrDefault("SESSION_COOKIE_NAME", DefaultSessionCookieName)
}
