// Package audio provides microphone capture and speaker playback for the
// phone. The conversational service consumes and produces 16kHz mono
// signed-16-bit PCM.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/timedial/timephone/internal/call"
)

const (
	sampleRateHz = 16000
	channels     = 1
)

// CaptureSource opens the default microphone on demand. A device that
// cannot be opened or started is reported as an error, which the call
// controller presents as a permission denial.
type CaptureSource struct {
	log *slog.Logger
}

// NewCaptureSource creates a microphone source.
func NewCaptureSource(log *slog.Logger) *CaptureSource {
	if log == nil {
		log = slog.Default()
	}
	return &CaptureSource{log: log}
}

// Acquire implements call.CaptureSource.
func (s *CaptureSource) Acquire(_ context.Context) (call.Capture, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	c := &Capture{
		mctx:   mctx,
		frames: make(chan []byte, 32),
		log:    s.log,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = channels
	deviceConfig.SampleRate = sampleRateHz
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			frame := append([]byte(nil), pInputSamples...)
			select {
			case c.frames <- frame:
			default:
				// Drop rather than stall the device thread.
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("start microphone: %w", err)
	}

	c.device = device
	return c, nil
}

// Capture is an open microphone device streaming PCM frames.
type Capture struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	frames chan []byte
	log    *slog.Logger

	stopOnce sync.Once
}

// Frames implements call.Capture.
func (c *Capture) Frames() <-chan []byte { return c.frames }

// Stop releases the device and closes the frame stream. Safe to call more
// than once.
func (c *Capture) Stop() {
	c.stopOnce.Do(func() {
		if err := c.device.Stop(); err != nil {
			c.log.Warn("stop microphone", "error", err)
		}
		c.device.Uninit()
		if err := c.mctx.Uninit(); err != nil {
			c.log.Warn("uninit audio context", "error", err)
		}
		c.mctx.Free()
		close(c.frames)
	})
}
