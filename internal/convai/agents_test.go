package convai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testAgentRequest() *CreateAgentRequest {
	return &CreateAgentRequest{
		Name: "TimePhone - Albert Einstein",
		ConversationConfig: ConversationConfig{
			Agent: AgentConfig{
				Prompt:       Prompt{Prompt: "You are Albert Einstein."},
				FirstMessage: "Ja, hello?",
				Language:     "en",
			},
			TTS: TTSConfig{
				ModelID: "eleven_turbo_v2",
				VoiceID: "voice_german",
			},
		},
		PlatformSettings: PlatformSettings{
			Auth: AuthSettings{EnableAuth: false},
		},
	}
}

func TestCreateAgent_SendsExpectedPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/convai/agents/create" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("xi-api-key"); got != "sk-test" {
			t.Errorf("xi-api-key = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		conv, _ := payload["conversation_config"].(map[string]any)
		agent, _ := conv["agent"].(map[string]any)
		prompt, _ := agent["prompt"].(map[string]any)
		if prompt["prompt"] != "You are Albert Einstein." {
			t.Errorf("prompt = %v", prompt["prompt"])
		}
		if agent["first_message"] != "Ja, hello?" {
			t.Errorf("first_message = %v", agent["first_message"])
		}
		tts, _ := conv["tts"].(map[string]any)
		if tts["model_id"] != "eleven_turbo_v2" || tts["voice_id"] != "voice_german" {
			t.Errorf("tts = %v", tts)
		}
		platform, _ := payload["platform_settings"].(map[string]any)
		auth, _ := platform["auth"].(map[string]any)
		if enabled, ok := auth["enable_auth"].(bool); !ok || enabled {
			t.Errorf("enable_auth = %v, want false", auth["enable_auth"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"agent_id":"agent_abc123"}`))
	}))
	defer server.Close()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(server.URL))
	agentID, err := client.CreateAgent(context.Background(), testAgentRequest())
	if err != nil {
		t.Fatalf("CreateAgent error: %v", err)
	}
	if agentID != "agent_abc123" {
		t.Fatalf("agent id = %q", agentID)
	}
}

func TestCreateAgent_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	client := NewClient(WithAPIKey(""))
	_, err := client.CreateAgent(context.Background(), testAgentRequest())

	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Type != ErrAuthentication {
		t.Fatalf("err = %v, want authentication error", err)
	}
}

func TestCreateAgent_MapsAPIErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		body   string
		want   ErrorType
		msg    string
	}{
		{401, `{"detail":{"status":"invalid_api_key","message":"invalid api key"}}`, ErrAuthentication, "invalid api key"},
		{402, `{"detail":{"status":"quota_exceeded","message":"character quota exceeded"}}`, ErrQuotaExceeded, "character quota exceeded"},
		{422, `{"detail":{"status":"voice_not_found"}}`, ErrInvalidRequest, "voice_not_found"},
		{429, `too many requests`, ErrRateLimit, "too many requests"},
		{500, ``, ErrAPI, "request failed with status 500"},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))

		client := NewClient(WithAPIKey("sk-test"), WithBaseURL(server.URL))
		_, err := client.CreateAgent(context.Background(), testAgentRequest())
		server.Close()

		var apiErr *Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: err = %v, want *Error", tc.status, err)
		}
		if apiErr.Type != tc.want || apiErr.StatusCode != tc.status {
			t.Fatalf("status %d: got %#v", tc.status, apiErr)
		}
		if apiErr.Message != tc.msg {
			t.Fatalf("status %d: message = %q, want %q", tc.status, apiErr.Message, tc.msg)
		}
	}
}

func TestCreateAgent_MissingAgentID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(WithAPIKey("sk-test"), WithBaseURL(server.URL))
	if _, err := client.CreateAgent(context.Background(), testAgentRequest()); err == nil {
		t.Fatalf("expected missing agent_id error")
	}
}
