package convai

import (
	"context"
	"log/slog"

	"github.com/timedial/timephone/internal/call"
)

// AudioSink receives agent speech for playback.
type AudioSink interface {
	Play(pcm []byte)
	Flush()
}

// Dialer adapts the conversational client to the call controller's
// collaborator contract: microphone frames are pumped up to the agent, agent
// audio is pumped down to the sink, and session events are translated into
// the controller's inbound signals.
type Dialer struct {
	client  *Client
	speaker AudioSink
	logger  *slog.Logger
}

// NewDialer creates a dialer. The speaker may be nil (events only).
func NewDialer(client *Client, speaker AudioSink, logger *slog.Logger) *Dialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{client: client, speaker: speaker, logger: logger}
}

// Dial implements call.Dialer.
func (d *Dialer) Dial(ctx context.Context, agentID string, mic call.Capture, events call.Events) (call.RemoteSession, error) {
	conv, err := d.client.StartConversation(ctx, agentID)
	if err != nil {
		return nil, err
	}
	go d.pumpMic(conv, mic)
	go d.pumpEvents(conv, events)
	return &remoteSession{conv: conv, speaker: d.speaker}, nil
}

func (d *Dialer) pumpMic(conv *Conversation, mic call.Capture) {
	if mic == nil {
		return
	}
	for frame := range mic.Frames() {
		if err := conv.SendAudioChunk(frame); err != nil {
			// Session is gone; the event pump reports the outcome.
			return
		}
	}
}

func (d *Dialer) pumpEvents(conv *Conversation, events call.Events) {
	for ev := range conv.Events() {
		switch ev := ev.(type) {
		case MetadataEvent:
			d.logger.Debug("conversation established", "conversation_id", ev.ConversationID)
			events.RemoteConnected()
		case AudioEvent:
			if d.speaker != nil {
				d.speaker.Play(ev.Audio)
			}
			events.RemoteSpeaking(true)
		case UserTranscriptEvent:
			events.RemoteSpeaking(false)
		case InterruptionEvent:
			if d.speaker != nil {
				d.speaker.Flush()
			}
			events.RemoteSpeaking(false)
		case ErrorEvent:
			events.RemoteError(NewAPIError(ev.Message))
		}
	}
	if err := conv.Err(); err != nil {
		events.RemoteError(err)
		return
	}
	events.RemoteDisconnected()
}

type remoteSession struct {
	conv    *Conversation
	speaker AudioSink
}

func (s *remoteSession) Close() error {
	if s.speaker != nil {
		s.speaker.Flush()
	}
	return s.conv.Close()
}
