package config

import (
	"strings"

	"github.com/deepgram/pipeview/pkg/logger"
)

// DefaultUserID is sent as user_id on every pipeline request until the
// console carries a real identity.
const DefaultUserID = "default_user"

// GetPipelineURL returns the base URL of the pipeline backend, without a trailing slash
func GetPipelineURL() string {
	value := strings.TrimRight(GetEnvOrDefault("PIPELINE_URL", "http://localhost:8000"), "/")
	logger.Debug(logger.CONFIG, "Pipeline URL resolved to %s", value)
	return value
}

// GetPipelineUserID returns the user_id placed in request envelopes
func GetPipelineUserID() string {
	return GetEnvOrDefault("PIPELINE_USER_ID", DefaultUserID)
}
