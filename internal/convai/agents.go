package convai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CreateAgentRequest is the payload for the agent-creation endpoint.
type CreateAgentRequest struct {
	Name               string             `json:"name"`
	ConversationConfig ConversationConfig `json:"conversation_config"`
	PlatformSettings   PlatformSettings   `json:"platform_settings"`
}

// ConversationConfig holds the agent and TTS blocks of an agent definition.
type ConversationConfig struct {
	Agent AgentConfig `json:"agent"`
	TTS   TTSConfig   `json:"tts"`
}

// AgentConfig configures the agent's prompt, opener, and language.
type AgentConfig struct {
	Prompt       Prompt `json:"prompt"`
	FirstMessage string `json:"first_message"`
	Language     string `json:"language"`
}

// Prompt wraps the system prompt text.
type Prompt struct {
	Prompt string `json:"prompt"`
}

// TTSConfig selects the synthesis model and voice.
type TTSConfig struct {
	ModelID string `json:"model_id"`
	VoiceID string `json:"voice_id"`
}

// PlatformSettings holds platform-level agent settings.
type PlatformSettings struct {
	Auth AuthSettings `json:"auth"`
}

// AuthSettings controls whether callers must authenticate. The phone dials
// agents without a key, so provisioning disables auth.
type AuthSettings struct {
	EnableAuth bool `json:"enable_auth"`
}

type createAgentResponse struct {
	AgentID string `json:"agent_id"`
}

// apiErrorDetail is the error shape the REST endpoints return.
type apiErrorDetail struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// CreateAgent provisions a conversational agent and returns its id.
func (c *Client) CreateAgent(ctx context.Context, req *CreateAgentRequest) (string, error) {
	if c == nil {
		return "", NewInvalidRequestError("client is not initialized")
	}
	if c.apiKey == "" {
		return "", NewAuthenticationError("an API key is required to create agents")
	}
	if req == nil {
		return "", NewInvalidRequestError("req must not be nil")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", NewInvalidRequestError("encode agent definition: " + err.Error())
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/v1/convai/agents/create"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", NewInvalidRequestError("build request: " + err.Error())
	}
	httpReq.Header.Set(apiKeyHeader, c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Op: "create agent", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &TransportError{Op: "read response", URL: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apiErrorFromResponse(resp.StatusCode, respBody)
	}

	var decoded createAgentResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", NewAPIError("decode create-agent response: " + err.Error())
	}
	if decoded.AgentID == "" {
		return "", NewAPIError("create-agent response missing agent_id")
	}
	return decoded.AgentID, nil
}

func apiErrorFromResponse(statusCode int, body []byte) *Error {
	message := strings.TrimSpace(string(body))
	var detail apiErrorDetail
	if err := json.Unmarshal(body, &detail); err == nil {
		switch {
		case detail.Detail.Message != "":
			message = detail.Detail.Message
		case detail.Detail.Status != "":
			message = detail.Detail.Status
		}
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", statusCode)
	}
	return &Error{
		Type:       errorTypeForStatus(statusCode),
		Message:    message,
		StatusCode: statusCode,
	}
}
