package config

import (
	"log/slog"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.ServiceBaseURL != "https://api.elevenlabs.io" {
		t.Fatalf("ServiceBaseURL = %q", cfg.ServiceBaseURL)
	}
	if cfg.HistoryDBPath != "timephone.db" {
		t.Fatalf("HistoryDBPath = %q", cfg.HistoryDBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.LogLevel)
	}
	if _, ok := cfg.AgentIDs["1945"]; !ok {
		t.Fatalf("AgentIDs missing built-in year 1945: %v", cfg.AgentIDs)
	}
}

func TestLoad_AgentBindingsFromEnv(t *testing.T) {
	t.Setenv("AGENT_ID_1945", "agent_einstein")
	t.Setenv("AGENT_ID_1969", "agent_armstrong")

	cfg := Load()
	if cfg.AgentIDs["1945"] != "agent_einstein" {
		t.Fatalf("AgentIDs[1945] = %q", cfg.AgentIDs["1945"])
	}
	if cfg.AgentIDs["1969"] != "agent_armstrong" {
		t.Fatalf("AgentIDs[1969] = %q", cfg.AgentIDs["1969"])
	}
	if cfg.AgentIDs["0044"] != "" {
		t.Fatalf("unbound year should be empty, got %q", cfg.AgentIDs["0044"])
	}
}

func TestEnvLogLevel(t *testing.T) {
	cases := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		t.Setenv("TIMEPHONE_LOG_LEVEL", tc.value)
		if got := envLogLevel("TIMEPHONE_LOG_LEVEL", slog.LevelInfo); got != tc.want {
			t.Fatalf("envLogLevel(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
