package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// pcmBuffer is an unbounded FIFO bridging agent audio chunks to the pull
// model the playback device uses.
type pcmBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newPCMBuffer() *pcmBuffer {
	b := &pcmBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *pcmBuffer) Write(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.buf = append(b.buf, p...)
	b.cond.Signal()
}

// Read implements io.Reader for the playback device. It blocks until data
// arrives, and returns silence once closed so the device can drain.
func (b *pcmBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.buf) == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.closed && len(b.buf) == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := copy(p, b.buf)
	b.buf = b.buf[n:]
	return n, nil
}

// Flush discards pending audio, e.g. when the caller interrupts the agent.
func (b *pcmBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = b.buf[:0]
}

func (b *pcmBuffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Speaker plays agent speech through the default output device. It
// satisfies the dialer's audio sink contract.
type Speaker struct {
	otoCtx *oto.Context
	buf    *pcmBuffer

	mu      sync.Mutex
	player  *oto.Player
	playing bool
	closed  bool
}

// NewSpeaker initializes the playback device.
func NewSpeaker() (*Speaker, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRateHz,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	}
	otoCtx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready
	return &Speaker{otoCtx: otoCtx, buf: newPCMBuffer()}, nil
}

// Play queues a chunk of agent PCM, starting playback on the first chunk.
func (s *Speaker) Play(pcm []byte) {
	s.mu.Lock()
	if !s.playing && !s.closed {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s.buf)
		s.player.Play()
	}
	s.mu.Unlock()
	s.buf.Write(pcm)
}

// Flush discards queued audio immediately.
func (s *Speaker) Flush() {
	s.buf.Flush()
}

// Close stops playback and releases the player.
func (s *Speaker) Close() {
	s.mu.Lock()
	s.closed = true
	player := s.player
	s.player = nil
	s.mu.Unlock()

	s.buf.Close()
	if player != nil {
		_ = player.Close()
	}
}
