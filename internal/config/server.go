package config

// GetPort returns the port the console listens on
func GetPort() string {
	return GetEnvOrDefault("PORT", "8080")
}

// GetHistoryLimit caps how many exchanges are kept per session
func GetHistoryLimit() int {
	return parseEnvInt("HISTORY_LIMIT", 20)
}

// IsDevelopment relaxes host and TLS header checks for local runs
func IsDevelopment() bool {
	return GetEnvOrDefault("ENVIRONMENT", "production") == "development"
}
