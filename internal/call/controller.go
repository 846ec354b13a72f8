// Package call implements the phone's call-session state machine.
//
// A single Controller owns the one live session the app can have: the
// dialed input buffer, the idle/connecting/connected/error status, the
// duration counter, and the microphone and remote-session handles. All
// transitions are serialized under one mutex and every failure path has a
// bounded, automatic return to idle; nothing leaves the session stuck.
package call

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/timedial/timephone/internal/directory"
)

// Status is the call-session state.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Notice distinguishes how a failure is presented to the user. Everything
// collapses to a generic "unreachable" except service exhaustion, which is
// an operator/billing problem rather than a mis-dial.
type Notice int

const (
	NoticeNone Notice = iota
	NoticeUnreachable
	NoticeExhausted
)

// State is a snapshot of the session, safe to read from the UI goroutine.
type State struct {
	Status         Status
	Persona        *directory.Persona
	DurationSecs   int
	RemoteSpeaking bool
	Dialed         string
	Notice         Notice

	// ShakeSeq increments each time the UI should play the invalid-dial
	// shake effect.
	ShakeSeq int
}

// Capture is an acquired microphone handle.
type Capture interface {
	// Frames yields PCM chunks captured from the microphone.
	Frames() <-chan []byte
	Stop()
}

// CaptureSource grants microphone capture. A denial is an error.
type CaptureSource interface {
	Acquire(ctx context.Context) (Capture, error)
}

// Events is the inbound signal surface the remote session drives. The
// Controller implements it.
type Events interface {
	RemoteConnected()
	RemoteDisconnected()
	RemoteError(err error)
	RemoteSpeaking(speaking bool)
}

// RemoteSession is an open conversation with the external voice service.
type RemoteSession interface {
	Close() error
}

// Dialer opens a remote session bound to an agent id, wiring the given
// microphone capture in and delivering session events to the handler.
type Dialer interface {
	Dial(ctx context.Context, agentID string, mic Capture, events Events) (RemoteSession, error)
}

// Record is one completed call, emitted when a connected call ends.
type Record struct {
	Year         string
	Persona      string
	StartedAt    time.Time
	DurationSecs int
}

// Recorder persists completed calls.
type Recorder interface {
	Record(rec Record)
}

const (
	maxDialedLen      = 4
	invalidYearReturn = 1500 * time.Millisecond
	failureReturn     = 2 * time.Second
	tickInterval      = time.Second
)

// Controller is the call-session state machine.
type Controller struct {
	dir    *directory.Directory
	dialer Dialer
	mic    CaptureSource
	rec    Recorder
	log    *slog.Logger
	clk    clock

	mu         sync.Mutex
	state      State
	gen        int // identifies the current call attempt; bumped on every teardown
	capture    Capture
	remote     RemoteSession
	cancelDial context.CancelFunc
	startedAt  time.Time

	updates chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithRecorder sets the completed-call recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.rec = r }
}

func withClock(clk clock) Option {
	return func(c *Controller) { c.clk = clk }
}

// New creates a Controller in the idle state.
func New(dir *directory.Directory, dialer Dialer, mic CaptureSource, opts ...Option) *Controller {
	c := &Controller{
		dir:     dir,
		dialer:  dialer,
		mic:     mic,
		log:     slog.Default(),
		clk:     realClock{},
		updates: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current session snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	if c.state.Persona != nil {
		p := *c.state.Persona
		st.Persona = &p
	}
	return st
}

// Updates signals (coalesced) whenever the session state changes.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

func (c *Controller) notifyLocked() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Press appends a digit to the dialed buffer. Idle-only; no-op otherwise
// and once the buffer is full.
func (c *Controller) Press(digit rune) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusIdle || len(c.state.Dialed) >= maxDialedLen {
		return
	}
	if digit < '0' || digit > '9' {
		return
	}
	c.state.Dialed += string(digit)
	c.notifyLocked()
}

// Backspace deletes the last dialed digit. Idle-only.
func (c *Controller) Backspace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusIdle || c.state.Dialed == "" {
		return
	}
	c.state.Dialed = c.state.Dialed[:len(c.state.Dialed)-1]
	c.notifyLocked()
}

// ClearDialed empties the dialed buffer. Idle-only.
func (c *Controller) ClearDialed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusIdle || c.state.Dialed == "" {
		return
	}
	c.state.Dialed = ""
	c.notifyLocked()
}

// Randomize replaces the dialed buffer with a random directory key. Idle-only.
func (c *Controller) Randomize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusIdle {
		return
	}
	c.state.Dialed = c.dir.Random()
	c.notifyLocked()
}

// PlaceCall resolves the dialed year and opens a session with its agent.
// No-op unless idle with a full 4-digit buffer. The dialed buffer is
// preserved on failure so the user sees what they mis-dialed.
func (c *Controller) PlaceCall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusIdle || len(c.state.Dialed) != maxDialedLen {
		return
	}

	p, ok := c.dir.Lookup(c.state.Dialed)
	if !ok {
		c.log.Warn("call failed", "error", NewInvalidYearError(c.state.Dialed))
		c.enterErrorLocked(NoticeUnreachable, invalidYearReturn)
		return
	}
	if !p.Provisioned() {
		c.log.Warn("call failed", "error", NewUnprovisionedError(p.Key))
		c.enterErrorLocked(NoticeUnreachable, invalidYearReturn)
		return
	}

	persona := p
	c.state.Persona = &persona
	c.state.Status = StatusConnecting
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	c.log.Info("placing call", "year", persona.Key, "persona", persona.Name)
	c.notifyLocked()

	go c.connect(ctx, gen, persona.AgentID)
}

// connect runs off the event path: microphone permission first, then the
// remote session open. Completion is reported back under the lock and
// discarded if the attempt was torn down in the meantime.
func (c *Controller) connect(ctx context.Context, gen int, agentID string) {
	mic, err := c.mic.Acquire(ctx)
	if err != nil {
		c.connectFailed(gen, NewPermissionDeniedError(err))
		return
	}

	remote, err := c.dialer.Dial(ctx, agentID, mic, c)
	if err != nil {
		mic.Stop()
		c.connectFailed(gen, NewSessionOpenError(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || (c.state.Status != StatusConnecting && c.state.Status != StatusConnected) {
		// The attempt was cancelled while dialing; release what we acquired.
		mic.Stop()
		c.closeRemoteLocked(remote)
		return
	}
	c.capture = mic
	c.remote = remote
}

func (c *Controller) connectFailed(gen int, err *Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state.Status != StatusConnecting {
		return
	}
	c.log.Error("call setup failed", "error", err)
	notice := NoticeUnreachable
	if IsExhausted(err) {
		notice = NoticeExhausted
	}
	c.enterErrorLocked(notice, failureReturn)
}

// EndCall hangs up from any state. Remote teardown is best-effort; the
// local session always resets. Idempotent.
func (c *Controller) EndCall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == StatusConnected {
		c.recordLocked()
	}
	c.releaseLocked()
	c.resetLocked(false)
	c.notifyLocked()
}

// RemoteConnected moves a connecting call to connected and starts the
// duration counter. Ignored in any other state.
func (c *Controller) RemoteConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusConnecting {
		return
	}
	c.state.Status = StatusConnected
	c.state.DurationSecs = 0
	c.startedAt = c.clk.Now()
	c.log.Info("call connected", "year", c.state.Persona.Key)
	c.armTickLocked(c.gen)
	c.notifyLocked()
}

// RemoteDisconnected ends a connected call. Ignored while connecting or in
// error: an in-flight attempt's own failure path owns that transition, so a
// stale disconnect cannot clobber a newer attempt.
func (c *Controller) RemoteDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusConnected {
		return
	}
	c.log.Info("remote hung up", "year", c.state.Persona.Key, "duration_secs", c.state.DurationSecs)
	c.recordLocked()
	c.releaseLocked()
	c.resetLocked(true)
	c.notifyLocked()
}

// RemoteError tears the session down into the error state. A quota/credit
// payload is surfaced as the distinct exhausted notice.
func (c *Controller) RemoteError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusConnecting && c.state.Status != StatusConnected {
		return
	}
	c.log.Error("remote session error", "error", NewRemoteSessionError(err))
	if c.state.Status == StatusConnected {
		c.recordLocked()
	}
	c.releaseLocked()
	notice := NoticeUnreachable
	if IsExhausted(err) {
		notice = NoticeExhausted
	}
	c.enterErrorLocked(notice, failureReturn)
}

// RemoteSpeaking updates the speaking indicator. Applied only while connected.
func (c *Controller) RemoteSpeaking(speaking bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusConnected || c.state.RemoteSpeaking == speaking {
		return
	}
	c.state.RemoteSpeaking = speaking
	c.notifyLocked()
}

// enterErrorLocked arms the bounded auto-return to idle. The dialed buffer
// is left alone on every error path.
func (c *Controller) enterErrorLocked(notice Notice, delay time.Duration) {
	c.gen++
	gen := c.gen
	c.state.Status = StatusError
	c.state.Persona = nil
	c.state.DurationSecs = 0
	c.state.RemoteSpeaking = false
	c.state.Notice = notice
	c.state.ShakeSeq++
	c.clk.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen || c.state.Status != StatusError {
			return
		}
		c.resetLocked(true)
		c.notifyLocked()
	})
	c.notifyLocked()
}

// armTickLocked schedules the next duration tick, guarded by attempt
// generation and status so a leaked timer firing after teardown is a no-op.
func (c *Controller) armTickLocked(gen int) {
	c.clk.AfterFunc(tickInterval, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen || c.state.Status != StatusConnected {
			return
		}
		c.state.DurationSecs++
		c.armTickLocked(gen)
		c.notifyLocked()
	})
}

// releaseLocked frees the microphone and remote session handles. The remote
// close runs off the lock so a slow or failing teardown can never hold the
// local state hostage.
func (c *Controller) releaseLocked() {
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.capture != nil {
		c.capture.Stop()
		c.capture = nil
	}
	if c.remote != nil {
		c.closeRemoteLocked(c.remote)
		c.remote = nil
	}
}

func (c *Controller) closeRemoteLocked(remote RemoteSession) {
	log := c.log
	go func() {
		if err := remote.Close(); err != nil {
			log.Warn("hangup failed", "error", &Error{Kind: ErrHangup, Message: "remote close failed", Cause: err})
		}
	}()
}

// resetLocked returns the session to its initial idle values. The dialed
// buffer survives unless the user hung up explicitly.
func (c *Controller) resetLocked(keepDialed bool) {
	c.gen++
	c.state.Status = StatusIdle
	c.state.Persona = nil
	c.state.DurationSecs = 0
	c.state.RemoteSpeaking = false
	c.state.Notice = NoticeNone
	if !keepDialed {
		c.state.Dialed = ""
	}
}

func (c *Controller) recordLocked() {
	if c.rec == nil || c.state.Persona == nil {
		return
	}
	rec := Record{
		Year:         c.state.Persona.Key,
		Persona:      c.state.Persona.Name,
		StartedAt:    c.startedAt,
		DurationSecs: c.state.DurationSecs,
	}
	// Recording is off the event path; a slow sink must not stall hangup.
	go c.rec.Record(rec)
}
