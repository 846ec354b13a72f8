package convai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordedEvents struct {
	connected    chan struct{}
	disconnected chan struct{}
	errs         chan error
	speaking     chan bool
}

func newRecordedEvents() *recordedEvents {
	return &recordedEvents{
		connected:    make(chan struct{}, 4),
		disconnected: make(chan struct{}, 4),
		errs:         make(chan error, 4),
		speaking:     make(chan bool, 16),
	}
}

func (r *recordedEvents) RemoteConnected()            { r.connected <- struct{}{} }
func (r *recordedEvents) RemoteDisconnected()         { r.disconnected <- struct{}{} }
func (r *recordedEvents) RemoteError(err error)       { r.errs <- err }
func (r *recordedEvents) RemoteSpeaking(speaking bool) { r.speaking <- speaking }

type chanCapture struct {
	frames chan []byte
	once   sync.Once
}

func newChanCapture() *chanCapture {
	return &chanCapture{frames: make(chan []byte, 4)}
}

func (c *chanCapture) Frames() <-chan []byte { return c.frames }
func (c *chanCapture) Stop()                 { c.once.Do(func() { close(c.frames) }) }

type recordedSink struct {
	mu      sync.Mutex
	played  [][]byte
	flushes int
}

func (s *recordedSink) Play(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, append([]byte(nil), pcm...))
}

func (s *recordedSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
}

func TestDialer_ConnectsPumpsAndDisconnects(t *testing.T) {
	t.Parallel()

	micChunks := make(chan []byte, 1)
	serverURL, closeServer := newConversationTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		var initiation json.RawMessage
		_ = conn.ReadJSON(&initiation)

		_ = conn.WriteJSON(map[string]any{
			"type": "conversation_initiation_metadata",
			"conversation_initiation_metadata_event": map[string]any{
				"conversation_id": "conv_dial",
			},
		})
		_ = conn.WriteJSON(map[string]any{
			"type": "audio",
			"audio_event": map[string]any{
				"audio_base_64": base64.StdEncoding.EncodeToString([]byte("agent audio")),
				"event_id":      1,
			},
		})

		var frame map[string]string
		if err := conn.ReadJSON(&frame); err == nil {
			if pcm, err := base64.StdEncoding.DecodeString(frame["user_audio_chunk"]); err == nil {
				micChunks <- pcm
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
	})
	defer closeServer()

	client := NewClient(WithAPIKey(""), WithBaseURL(serverURL))
	sink := &recordedSink{}
	dialer := NewDialer(client, sink, nil)
	events := newRecordedEvents()
	mic := newChanCapture()

	remote, err := dialer.Dial(context.Background(), "agent_test", mic, events)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer remote.Close()

	select {
	case <-events.connected:
	case <-time.After(3 * time.Second):
		t.Fatalf("RemoteConnected never fired")
	}

	select {
	case speaking := <-events.speaking:
		if !speaking {
			t.Fatalf("first speaking signal = false, want true")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no speaking signal from agent audio")
	}
	sink.mu.Lock()
	if len(sink.played) != 1 || string(sink.played[0]) != "agent audio" {
		t.Fatalf("sink played = %v", sink.played)
	}
	sink.mu.Unlock()

	mic.frames <- []byte("caller pcm")
	select {
	case pcm := <-micChunks:
		if string(pcm) != "caller pcm" {
			t.Fatalf("server got mic chunk %q", pcm)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server never received mic audio")
	}
	mic.Stop()

	select {
	case <-events.disconnected:
	case <-time.After(3 * time.Second):
		t.Fatalf("RemoteDisconnected never fired after normal close")
	}
}

func TestDialer_ErrorFrameRaisesRemoteError(t *testing.T) {
	t.Parallel()

	serverURL, closeServer := newConversationTestServer(t, func(conn *websocket.Conn) {
		defer conn.Close()

		var initiation json.RawMessage
		_ = conn.ReadJSON(&initiation)
		_ = conn.WriteJSON(map[string]any{
			"type":    "error",
			"message": "insufficient credits",
		})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
	})
	defer closeServer()

	client := NewClient(WithAPIKey(""), WithBaseURL(serverURL))
	dialer := NewDialer(client, nil, nil)
	events := newRecordedEvents()
	mic := newChanCapture()
	defer mic.Stop()

	remote, err := dialer.Dial(context.Background(), "agent_test", mic, events)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer remote.Close()

	select {
	case err := <-events.errs:
		if err == nil {
			t.Fatalf("nil remote error")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("RemoteError never fired")
	}
}

func TestDialer_DialFailurePropagates(t *testing.T) {
	t.Parallel()

	client := NewClient(WithAPIKey(""), WithBaseURL("ws://127.0.0.1:1"))
	dialer := NewDialer(client, nil, nil)
	mic := newChanCapture()
	defer mic.Stop()

	if _, err := dialer.Dial(context.Background(), "agent_test", mic, newRecordedEvents()); err == nil {
		t.Fatalf("expected dial failure")
	}
}
