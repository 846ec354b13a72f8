// Package convai is a client for the ElevenLabs Conversational AI platform:
// the real-time conversation websocket the phone dials into, and the agent
// provisioning REST endpoint the setup command uses.
package convai

import (
	"log/slog"
	"net/http"
	"net/url"
	"os"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	apiKeyHeader   = "xi-api-key"
)

// Client is the entry point for the ElevenLabs API.
type Client struct {
	apiKey     string
	baseURL    string
	origin     string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the ElevenLabs API key. Conversations with public agents
// work without one; agent provisioning requires it.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithOrigin sets the Origin header sent on the conversation websocket.
func WithOrigin(origin string) ClientOption {
	return func(c *Client) { c.origin = origin }
}

// NewClient creates a client. The API key defaults to ELEVENLABS_API_KEY.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  os.Getenv("ELEVENLABS_API_KEY"),
		baseURL: defaultBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newDefaultHTTPClient()
	}
	return c
}

// websocketEndpoint maps the configured base URL onto a ws/wss URL for the
// given path and query.
func (c *Client) websocketEndpoint(path string, query url.Values) (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", NewInvalidRequestError("invalid base URL: " + err.Error())
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", NewInvalidRequestError("unsupported base URL scheme: " + parsed.Scheme)
	}
	parsed.Path = path
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
