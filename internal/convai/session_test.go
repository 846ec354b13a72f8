package convai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newConversationTestServer(t *testing.T, handler func(conn *websocket.Conn)) (string, func()) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/convai/conversation" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return wsURL, server.Close
}

func collectEvents(t *testing.T, conv *Conversation) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-conv.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out collecting events; got %d so far", len(events))
		}
	}
}

func TestStartConversation_EmptyAgentID(t *testing.T) {
	t.Parallel()

	client := NewClient(WithAPIKey(""), WithBaseURL("ws://127.0.0.1:1"))
	if _, err := client.StartConversation(context.Background(), "  "); err == nil {
		t.Fatalf("expected empty agent id error")
	}
}

func TestStartConversation_DecodesServerFrames(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newConversationTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		var initiation map[string]any
		if err := conn.ReadJSON(&initiation); err != nil {
			return
		}
		if initiation["type"] != "conversation_initiation_client_data" {
			return
		}

		_ = conn.WriteJSON(map[string]any{
			"type": "conversation_initiation_metadata",
			"conversation_initiation_metadata_event": map[string]any{
				"conversation_id":           "conv_123",
				"agent_output_audio_format": "pcm_16000",
				"user_input_audio_format":   "pcm_16000",
			},
		})
		_ = conn.WriteJSON(map[string]any{
			"type": "audio",
			"audio_event": map[string]any{
				"audio_base_64": base64.StdEncoding.EncodeToString([]byte("agent pcm")),
				"event_id":      1,
			},
		})
		_ = conn.WriteJSON(map[string]any{
			"type": "agent_response",
			"agent_response_event": map[string]any{
				"agent_response": "Ja, hello?",
			},
		})
		_ = conn.WriteJSON(map[string]any{
			"type": "user_transcript",
			"user_transcription_event": map[string]any{
				"user_transcript": "hello einstein",
			},
		})
		_ = conn.WriteJSON(map[string]any{
			"type": "vad_score",
			"vad_score_event": map[string]any{
				"vad_score": 0.92,
			},
		})
		_ = conn.WriteJSON(map[string]any{
			"type": "interruption",
			"interruption_event": map[string]any{
				"event_id": 2,
			},
		})
		_ = conn.WriteJSON(map[string]any{
			"type":         "some_future_frame",
			"future_event": map[string]any{"x": 1},
		})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
	})
	defer closeServer()

	client := NewClient(WithAPIKey(""), WithBaseURL(serverURL))
	conv, err := client.StartConversation(context.Background(), "agent_test")
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}
	defer conv.Close()

	events := collectEvents(t, conv)
	if err := conv.Err(); err != nil {
		t.Fatalf("conversation err: %v", err)
	}
	if len(events) != 7 {
		t.Fatalf("got %d events, want 7: %#v", len(events), events)
	}

	meta, ok := events[0].(MetadataEvent)
	if !ok || meta.ConversationID != "conv_123" {
		t.Fatalf("events[0] = %#v, want metadata conv_123", events[0])
	}
	audio, ok := events[1].(AudioEvent)
	if !ok || string(audio.Audio) != "agent pcm" || audio.EventID != 1 {
		t.Fatalf("events[1] = %#v, want decoded audio", events[1])
	}
	if resp, ok := events[2].(AgentResponseEvent); !ok || resp.Text != "Ja, hello?" {
		t.Fatalf("events[2] = %#v", events[2])
	}
	if tr, ok := events[3].(UserTranscriptEvent); !ok || tr.Text != "hello einstein" {
		t.Fatalf("events[3] = %#v", events[3])
	}
	if vad, ok := events[4].(VADScoreEvent); !ok || vad.Score != 0.92 {
		t.Fatalf("events[4] = %#v", events[4])
	}
	if intr, ok := events[5].(InterruptionEvent); !ok || intr.EventID != 2 {
		t.Fatalf("events[5] = %#v", events[5])
	}
	unknown, ok := events[6].(UnknownEvent)
	if !ok || unknown.Type != "some_future_frame" {
		t.Fatalf("events[6] = %#v, want unknown frame preserved", events[6])
	}
}

func TestConversation_PingIsAnsweredWithPong(t *testing.T) {
	t.Parallel()

	pongs := make(chan map[string]any, 1)
	serverURL, closeServer := newConversationTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		var initiation json.RawMessage
		_ = conn.ReadJSON(&initiation)
		_ = conn.WriteJSON(map[string]any{
			"type": "ping",
			"ping_event": map[string]any{
				"event_id": 7,
			},
		})

		var pong map[string]any
		if err := conn.ReadJSON(&pong); err == nil {
			pongs <- pong
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
	})
	defer closeServer()

	client := NewClient(WithAPIKey(""), WithBaseURL(serverURL))
	conv, err := client.StartConversation(context.Background(), "agent_test")
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}
	defer conv.Close()

	select {
	case pong := <-pongs:
		if pong["type"] != "pong" {
			t.Fatalf("pong frame = %#v", pong)
		}
		if id, ok := pong["event_id"].(float64); !ok || int64(id) != 7 {
			t.Fatalf("pong event_id = %v, want 7", pong["event_id"])
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server never received a pong")
	}
	collectEvents(t, conv)
}

func TestConversation_SendAudioChunkIsBase64(t *testing.T) {
	t.Parallel()

	chunks := make(chan string, 1)
	serverURL, closeServer := newConversationTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		var initiation json.RawMessage
		_ = conn.ReadJSON(&initiation)

		var frame map[string]string
		if err := conn.ReadJSON(&frame); err == nil {
			chunks <- frame["user_audio_chunk"]
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
	})
	defer closeServer()

	client := NewClient(WithAPIKey(""), WithBaseURL(serverURL))
	conv, err := client.StartConversation(context.Background(), "agent_test")
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}
	defer conv.Close()

	if err := conv.SendAudioChunk([]byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("SendAudioChunk error: %v", err)
	}

	select {
	case chunk := <-chunks:
		decoded, err := base64.StdEncoding.DecodeString(chunk)
		if err != nil {
			t.Fatalf("chunk is not base64: %v", err)
		}
		if len(decoded) != 3 || decoded[0] != 0x01 {
			t.Fatalf("decoded chunk = %v", decoded)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server never received an audio chunk")
	}
}

func TestConversation_ErrorFrameBecomesTerminalErr(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newConversationTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		var initiation json.RawMessage
		_ = conn.ReadJSON(&initiation)
		_ = conn.WriteJSON(map[string]any{
			"type":    "error",
			"message": "quota exceeded for this billing period",
		})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
	})
	defer closeServer()

	client := NewClient(WithAPIKey(""), WithBaseURL(serverURL))
	conv, err := client.StartConversation(context.Background(), "agent_test")
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}
	defer conv.Close()

	events := collectEvents(t, conv)
	found := false
	for _, ev := range events {
		if errEvent, ok := ev.(ErrorEvent); ok {
			found = true
			if !strings.Contains(errEvent.Message, "quota") {
				t.Fatalf("error event message = %q", errEvent.Message)
			}
		}
	}
	if !found {
		t.Fatalf("no error event surfaced; events = %#v", events)
	}
	if err := conv.Err(); err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("terminal err = %v, want quota error", err)
	}
}

func TestConversation_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newConversationTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer closeServer()

	client := NewClient(WithAPIKey(""), WithBaseURL(serverURL))
	conv, err := client.StartConversation(context.Background(), "agent_test")
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}

	if err := conv.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := conv.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	if err := conv.SendAudioChunk([]byte{0x00}); err == nil {
		t.Fatalf("SendAudioChunk succeeded on closed conversation")
	}
}

func TestWebsocketEndpoint_SchemeMapping(t *testing.T) {
	t.Parallel()

	for base, wantPrefix := range map[string]string{
		"https://api.elevenlabs.io": "wss://api.elevenlabs.io",
		"http://127.0.0.1:9999":     "ws://127.0.0.1:9999",
		"ws://127.0.0.1:9999":       "ws://127.0.0.1:9999",
	} {
		client := NewClient(WithAPIKey(""), WithBaseURL(base))
		got, err := client.websocketEndpoint("/v1/convai/conversation", nil)
		if err != nil {
			t.Fatalf("websocketEndpoint(%q) error: %v", base, err)
		}
		if !strings.HasPrefix(got, wantPrefix) {
			t.Fatalf("websocketEndpoint(%q) = %q, want prefix %q", base, got, wantPrefix)
		}
	}

	client := NewClient(WithAPIKey(""), WithBaseURL("ftp://example.com"))
	if _, err := client.websocketEndpoint("/v1/convai/conversation", nil); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}
