// Package config loads application configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/timedial/timephone/internal/directory"
)

// Config holds all application configuration.
type Config struct {
	// Voice service settings.
	ElevenLabsAPIKey string // Required for provisioning; live calls use public agents.
	ServiceBaseURL   string // REST base, e.g. "https://api.elevenlabs.io".

	// AgentIDs maps each dialable year to its provisioned agent id.
	// Years without a binding stay in the phone book but are unreachable.
	AgentIDs map[string]string

	// Local storage.
	HistoryDBPath string

	// Operational settings.
	LogPath  string // Log file; the terminal UI owns stdout.
	LogLevel slog.Level
}

// Load reads configuration from environment variables with sensible
// defaults. Agent bindings use AGENT_ID_<year>, matching the file the
// provisioning tool writes.
func Load() Config {
	agentIDs := make(map[string]string)
	for _, year := range directory.Years() {
		agentIDs[year] = envStr("AGENT_ID_"+year, "")
	}

	return Config{
		ElevenLabsAPIKey: envStr("ELEVENLABS_API_KEY", ""),
		ServiceBaseURL:   envStr("TIMEPHONE_SERVICE_URL", "https://api.elevenlabs.io"),
		AgentIDs:         agentIDs,
		HistoryDBPath:    envStr("TIMEPHONE_HISTORY_DB", "timephone.db"),
		LogPath:          envStr("TIMEPHONE_LOG_FILE", "timephone.log"),
		LogLevel:         envLogLevel("TIMEPHONE_LOG_LEVEL", slog.LevelInfo),
	}
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envLogLevel(key string, defaultVal slog.Level) slog.Level {
	switch strings.ToLower(os.Getenv(key)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultVal
	}
}
