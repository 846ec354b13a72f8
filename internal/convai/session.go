package convai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const defaultConnectTimeout = 15 * time.Second

// Event is an event emitted by Conversation.Events().
type Event interface {
	conversationEventType() string
}

// MetadataEvent is the server's conversation confirmation; receiving it
// means the session is established.
type MetadataEvent struct {
	ConversationID         string
	AgentOutputAudioFormat string
	UserInputAudioFormat   string
}

func (e MetadataEvent) conversationEventType() string { return "conversation_initiation_metadata" }

// AudioEvent carries a decoded chunk of agent speech.
type AudioEvent struct {
	EventID int64
	Audio   []byte
}

func (e AudioEvent) conversationEventType() string { return "audio" }

// AgentResponseEvent is the agent's committed textual response.
type AgentResponseEvent struct {
	Text string
}

func (e AgentResponseEvent) conversationEventType() string { return "agent_response" }

// AgentResponseCorrectionEvent revises an earlier agent response after an
// interruption truncated it.
type AgentResponseCorrectionEvent struct {
	Original  string
	Corrected string
}

func (e AgentResponseCorrectionEvent) conversationEventType() string {
	return "agent_response_correction"
}

// TentativeAgentResponseEvent is a provisional response that may still change.
type TentativeAgentResponseEvent struct {
	Text string
}

func (e TentativeAgentResponseEvent) conversationEventType() string {
	return "internal_tentative_agent_response"
}

// UserTranscriptEvent is the STT transcript of the caller's speech.
type UserTranscriptEvent struct {
	Text string
}

func (e UserTranscriptEvent) conversationEventType() string { return "user_transcript" }

// VADScoreEvent reports the voice-activity score for the caller's input.
type VADScoreEvent struct {
	Score float64
}

func (e VADScoreEvent) conversationEventType() string { return "vad_score" }

// InterruptionEvent signals that agent playback should be flushed.
type InterruptionEvent struct {
	EventID int64
}

func (e InterruptionEvent) conversationEventType() string { return "interruption" }

// PingEvent is the server keepalive. The read loop answers it automatically;
// it is still surfaced for observability.
type PingEvent struct {
	EventID int64
	PingMS  *int64
}

func (e PingEvent) conversationEventType() string { return "ping" }

// ErrorEvent is an error frame from the service.
type ErrorEvent struct {
	Message string
}

func (e ErrorEvent) conversationEventType() string { return "error" }

// UnknownEvent preserves frames this client does not understand.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) conversationEventType() string { return e.Type }

// Server frame shapes. Every server frame carries a type plus a nested
// <type>_event payload.
type metadataFrame struct {
	Event struct {
		ConversationID         string `json:"conversation_id"`
		AgentOutputAudioFormat string `json:"agent_output_audio_format"`
		UserInputAudioFormat   string `json:"user_input_audio_format"`
	} `json:"conversation_initiation_metadata_event"`
}

type audioFrame struct {
	Event struct {
		AudioB64 string `json:"audio_base_64"`
		EventID  int64  `json:"event_id"`
	} `json:"audio_event"`
}

type agentResponseFrame struct {
	Event struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event"`
}

type agentResponseCorrectionFrame struct {
	Event struct {
		OriginalAgentResponse  string `json:"original_agent_response"`
		CorrectedAgentResponse string `json:"corrected_agent_response"`
	} `json:"agent_response_correction_event"`
}

type tentativeAgentResponseFrame struct {
	Event struct {
		TentativeAgentResponse string `json:"tentative_agent_response"`
	} `json:"tentative_agent_response_internal_event"`
}

type userTranscriptFrame struct {
	Event struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event"`
}

type vadScoreFrame struct {
	Event struct {
		VADScore float64 `json:"vad_score"`
	} `json:"vad_score_event"`
}

type interruptionFrame struct {
	Event struct {
		EventID int64 `json:"event_id"`
	} `json:"interruption_event"`
}

type pingFrame struct {
	Event struct {
		EventID int64  `json:"event_id"`
		PingMS  *int64 `json:"ping_ms"`
	} `json:"ping_event"`
}

type errorFrame struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Client frame shapes.
type initiationFrame struct {
	Type string `json:"type"`
}

type pongFrame struct {
	Type    string `json:"type"`
	EventID int64  `json:"event_id"`
}

// Audio chunks are the one client frame without a type field.
type userAudioChunkFrame struct {
	UserAudioChunk string `json:"user_audio_chunk"`
}

// Conversation is an open real-time session with an agent.
type Conversation struct {
	conn *websocket.Conn

	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error
}

// Events yields conversation events until the session ends.
func (s *Conversation) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.events
}

// SendAudioChunk sends a chunk of caller PCM to the agent.
func (s *Conversation) SendAudioChunk(pcm []byte) error {
	if s == nil {
		return fmt.Errorf("conversation must not be nil")
	}
	return s.sendJSON(userAudioChunkFrame{
		UserAudioChunk: base64.StdEncoding.EncodeToString(pcm),
	})
}

// Pong answers a server ping. The read loop does this automatically.
func (s *Conversation) Pong(eventID int64) error {
	return s.sendJSON(pongFrame{Type: "pong", EventID: eventID})
}

func (s *Conversation) sendJSON(v any) error {
	if s == nil {
		return fmt.Errorf("conversation must not be nil")
	}
	if s.closed.Load() {
		return fmt.Errorf("conversation is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close closes the websocket session and waits for the read loop to drain.
func (s *Conversation) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

// Err returns the terminal session error (if any).
func (s *Conversation) Err() error {
	if s == nil {
		return nil
	}
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Conversation) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Conversation) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || s.closed.Load() {
				return
			}
			s.setErr(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, frameErr := decodeConversationFrame(data)
		if frameErr != nil {
			s.setErr(frameErr)
			return
		}
		if event == nil {
			continue
		}
		if ping, ok := event.(PingEvent); ok {
			_ = s.Pong(ping.EventID)
		}
		s.emitEvent(event)
		if errEvent, ok := event.(ErrorEvent); ok {
			s.setErr(NewAPIError(strings.TrimSpace(errEvent.Message)))
		}
	}
}

func (s *Conversation) emitEvent(event Event) {
	if event == nil {
		return
	}
	select {
	case s.events <- event:
	default:
		// Avoid deadlocking the read loop if the caller stops consuming.
	}
}

func decodeConversationFrame(data []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode conversation frame envelope: %w", err)
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, fmt.Errorf("conversation frame missing type")
	}

	switch typ {
	case "conversation_initiation_metadata":
		var frame metadataFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode conversation_initiation_metadata: %w", err)
		}
		return MetadataEvent{
			ConversationID:         frame.Event.ConversationID,
			AgentOutputAudioFormat: frame.Event.AgentOutputAudioFormat,
			UserInputAudioFormat:   frame.Event.UserInputAudioFormat,
		}, nil
	case "audio":
		var frame audioFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode audio: %w", err)
		}
		audio, err := base64.StdEncoding.DecodeString(frame.Event.AudioB64)
		if err != nil {
			return nil, fmt.Errorf("decode agent audio chunk: %w", err)
		}
		return AudioEvent{EventID: frame.Event.EventID, Audio: audio}, nil
	case "agent_response":
		var frame agentResponseFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode agent_response: %w", err)
		}
		return AgentResponseEvent{Text: frame.Event.AgentResponse}, nil
	case "agent_response_correction":
		var frame agentResponseCorrectionFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode agent_response_correction: %w", err)
		}
		return AgentResponseCorrectionEvent{
			Original:  frame.Event.OriginalAgentResponse,
			Corrected: frame.Event.CorrectedAgentResponse,
		}, nil
	case "internal_tentative_agent_response":
		var frame tentativeAgentResponseFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode internal_tentative_agent_response: %w", err)
		}
		return TentativeAgentResponseEvent{Text: frame.Event.TentativeAgentResponse}, nil
	case "user_transcript":
		var frame userTranscriptFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode user_transcript: %w", err)
		}
		return UserTranscriptEvent{Text: frame.Event.UserTranscript}, nil
	case "vad_score":
		var frame vadScoreFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode vad_score: %w", err)
		}
		return VADScoreEvent{Score: frame.Event.VADScore}, nil
	case "interruption":
		var frame interruptionFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode interruption: %w", err)
		}
		return InterruptionEvent{EventID: frame.Event.EventID}, nil
	case "ping":
		var frame pingFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode ping: %w", err)
		}
		return PingEvent{EventID: frame.Event.EventID, PingMS: frame.Event.PingMS}, nil
	case "error":
		var frame errorFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode error frame: %w", err)
		}
		message := frame.Message
		if message == "" {
			message = frame.Detail
		}
		if message == "" {
			message = strings.TrimSpace(string(data))
		}
		return ErrorEvent{Message: message}, nil
	default:
		return UnknownEvent{
			Type: typ,
			Raw:  append(json.RawMessage(nil), data...),
		}, nil
	}
}

// StartConversation opens a real-time session bound to an agent id and sends
// the initiation frame. The session is established once the server's
// metadata event arrives on Events().
func (c *Client) StartConversation(ctx context.Context, agentID string) (*Conversation, error) {
	if c == nil {
		return nil, NewInvalidRequestError("client is not initialized")
	}
	if strings.TrimSpace(agentID) == "" {
		return nil, NewInvalidRequestError("agent id must not be empty")
	}

	wsURL, err := c.websocketEndpoint("/v1/convai/conversation", url.Values{"agent_id": {agentID}})
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	if c.apiKey != "" {
		headers.Set(apiKeyHeader, c.apiKey)
	}
	if c.origin != "" {
		headers.Set("Origin", c.origin)
	}

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil && resp.StatusCode != 0 {
			return nil, &Error{
				Type:       errorTypeForStatus(resp.StatusCode),
				Message:    "conversation websocket rejected",
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &TransportError{Op: "dial", URL: wsURL, Err: err}
	}

	conv := &Conversation{
		conn:   conn,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	if err := conv.sendJSON(initiationFrame{Type: "conversation_initiation_client_data"}); err != nil {
		_ = conn.Close()
		close(conv.done)
		close(conv.events)
		return nil, &TransportError{Op: "initiate", URL: wsURL, Err: err}
	}

	go conv.readLoop()
	c.logger.Debug("conversation opened", "agent_id", agentID)
	return conv, nil
}
