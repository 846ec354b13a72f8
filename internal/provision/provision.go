// Package provision creates one conversational agent per historical
// persona and emits the year-to-agent-id bindings the phone reads at
// startup.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/timedial/timephone/internal/convai"
)

// ttsModelID selects a low-latency synthesis model suited to live
// conversation.
const ttsModelID = "eleven_turbo_v2"

// agentNamePrefix brands provisioned agents so they are easy to spot in
// the service dashboard.
const agentNamePrefix = "TimePhone - "

// creationDelay spaces out creation requests to stay under rate limits.
const creationDelay = 500 * time.Millisecond

// AgentCreator provisions a single agent and returns its id.
type AgentCreator interface {
	CreateAgent(ctx context.Context, req *convai.CreateAgentRequest) (string, error)
}

// Result is the outcome of provisioning one persona.
type Result struct {
	Year    string
	Name    string
	AgentID string
	Err     error
}

// Options tunes a provisioning run.
type Options struct {
	Logger *slog.Logger
	// Delay between creation requests. Defaults to creationDelay.
	Delay time.Duration
	// sleep seam for tests.
	sleep func(ctx context.Context, d time.Duration)
}

// Run provisions an agent for each persona. A failure on one persona is
// reported in its Result and the run continues; only context
// cancellation aborts early.
func Run(ctx context.Context, creator AgentCreator, personas []PersonaDef, opts Options) []Result {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = creationDelay
	}
	sleep := opts.sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
			}
		}
	}

	results := make([]Result, 0, len(personas))
	for i, p := range personas {
		if ctx.Err() != nil {
			break
		}

		logger.Info("creating agent", "year", p.Year, "persona", p.Name)
		req := &convai.CreateAgentRequest{
			Name: agentNamePrefix + p.Name,
			ConversationConfig: convai.ConversationConfig{
				Agent: convai.AgentConfig{
					Prompt:       convai.Prompt{Prompt: p.Prompt},
					FirstMessage: p.FirstMessage,
					Language:     "en",
				},
				TTS: convai.TTSConfig{
					ModelID: ttsModelID,
					VoiceID: VoiceID(p.Voice),
				},
			},
			// The phone dials without a key, so the agents stay public.
			PlatformSettings: convai.PlatformSettings{
				Auth: convai.AuthSettings{EnableAuth: false},
			},
		}

		id, err := creator.CreateAgent(ctx, req)
		if err != nil {
			logger.Error("agent creation failed", "year", p.Year, "persona", p.Name, "error", err)
		} else {
			logger.Info("agent created", "year", p.Year, "persona", p.Name, "agent_id", id)
		}
		results = append(results, Result{Year: p.Year, Name: p.Name, AgentID: id, Err: err})

		if i < len(personas)-1 {
			sleep(ctx, delay)
		}
	}
	return results
}

// EnvLines renders the successful results as AGENT_ID_<year>=<id>
// assignments, sorted by year.
func EnvLines(results []Result) []string {
	var lines []string
	for _, r := range results {
		if r.Err != nil || r.AgentID == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("AGENT_ID_%s=%s", r.Year, r.AgentID))
	}
	sort.Strings(lines)
	return lines
}

// WriteEnvFile writes the successful bindings to path in dotenv format.
// It reports how many bindings were written.
func WriteEnvFile(path string, results []Result) (int, error) {
	lines := EnvLines(results)
	if len(lines) == 0 {
		return 0, nil
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return 0, fmt.Errorf("write agent bindings: %w", err)
	}
	return len(lines), nil
}
