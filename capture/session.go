// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ik5/audcap/audio"
	"github.com/ik5/audcap/pcm"
)

// Config describes one capture session.
type Config struct {
	DeviceID string

	// InputRate is requested from the device; 0 means OutputRate.
	InputRate  int
	OutputRate int

	// Channels, when non-zero, must match the device stream.
	Channels int

	// Capacity is the device ring size in frames; 0 means one second.
	Capacity int

	// MaxFrames caps the output-rate frames kept; 0 means no cap.
	MaxFrames int

	// FrameFormat encodes delivered frames; 0 means 16-bit.
	FrameFormat pcm.Format
}

func (c Config) withDefaults() Config {
	if c.InputRate == 0 {
		c.InputRate = c.OutputRate
	}
	if c.Capacity == 0 {
		c.Capacity = c.InputRate
	}
	if c.FrameFormat == 0 {
		c.FrameFormat = pcm.Bits16
	}
	return c
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if c.OutputRate <= 0 {
		errs = append(errs, fmt.Errorf("%w: output rate %d", ErrInvalidConfig, c.OutputRate))
	}
	if c.InputRate < 0 {
		errs = append(errs, fmt.Errorf("%w: input rate %d", ErrInvalidConfig, c.InputRate))
	}
	if c.Channels < 0 {
		errs = append(errs, fmt.Errorf("%w: channels %d", ErrInvalidConfig, c.Channels))
	}
	if c.Capacity < 0 {
		errs = append(errs, fmt.Errorf("%w: capacity %d", ErrInvalidConfig, c.Capacity))
	}
	if c.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("%w: max frames %d", ErrInvalidConfig, c.MaxFrames))
	}
	if c.FrameFormat != 0 && !c.FrameFormat.Valid() {
		errs = append(errs, fmt.Errorf("%w: frame format %d", ErrInvalidConfig, int(c.FrameFormat)))
	}

	return errors.Join(errs...)
}

// Result is what a finished session captured.
type Result struct {
	ID uuid.UUID

	// Buffer holds the un-encoded samples at the output rate.
	Buffer audio.Buffer

	Reason     StopReason
	Err        error
	Deliveries int
	SinkErrors int
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStateHook registers fn to observe every state transition. fn runs on
// the capture goroutine.
func WithStateHook(fn func(from, to State)) Option {
	return func(s *Session) { s.hook = fn }
}

func WithID(id uuid.UUID) Option {
	return func(s *Session) { s.id = id }
}

// Session polls a device write position and turns it into an ordered
// stream of encoded frames. A Session owns its device stream from Open
// until Run returns or Close is called.
type Session struct {
	id     uuid.UUID
	cfg    Config
	stream Stream
	dev     Device
	sink    Sink
	discard bool
	logger  *slog.Logger
	hook   func(from, to State)

	state     atomic.Int32
	frames    atomic.Int64
	cancelled atomic.Bool
	started   atomic.Bool

	mu        sync.Mutex
	cancelRun context.CancelFunc

	release sync.Once
}

// Open acquires the device stream described by cfg.
func Open(dev Device, cfg Config, sink Sink, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInvalidConfig)
	}
	if sink == nil {
		sink = Discard
	}
	cfg = cfg.withDefaults()

	s := &Session{
		id:     uuid.New(),
		dev:    dev,
		sink:   sink,
		logger: slog.Default(),
	}
	_, s.discard = sink.(discardSink)
	for _, opt := range opts {
		opt(s)
	}

	stream, err := dev.StartCapture(cfg.DeviceID, cfg.InputRate, cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to start capture on %q: %w", cfg.DeviceID, err)
	}

	switch {
	case stream.SampleRate <= 0 || stream.Channels <= 0 || stream.Capacity <= 0:
		err = fmt.Errorf("%w: device stream %+v", ErrInvalidConfig, stream)
	case cfg.Channels != 0 && cfg.Channels != stream.Channels:
		err = fmt.Errorf("%w: want %d channels, device has %d", ErrInvalidConfig, cfg.Channels, stream.Channels)
	}
	if err != nil {
		if endErr := dev.EndCapture(cfg.DeviceID); endErr != nil {
			err = errors.Join(err, endErr)
		}
		return nil, err
	}

	cfg.InputRate = stream.SampleRate
	cfg.Channels = stream.Channels
	cfg.Capacity = stream.Capacity

	s.cfg = cfg
	s.stream = stream
	s.logger = s.logger.With("component", "capture", "session_id", s.id.String(), "device", cfg.DeviceID)

	return s, nil
}

func (s *Session) ID() uuid.UUID   { return s.id }
func (s *Session) Config() Config  { return s.cfg }
func (s *Session) State() State    { return State(s.state.Load()) }
func (s *Session) Frames() int     { return int(s.frames.Load()) }
func (s *Session) Cancelled() bool { return s.cancelled.Load() }

// Cancel asks the loop to stop. It is safe from any goroutine and wakes a
// loop that is waiting on its ticker.
func (s *Session) Cancel() {
	s.cancelled.Store(true)

	s.mu.Lock()
	cancel := s.cancelRun
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close cancels the session and releases the device if Run was never
// called.
func (s *Session) Close() error {
	s.Cancel()
	if s.started.CompareAndSwap(false, true) {
		s.releaseDevice()
	}
	return nil
}

// Run drives the capture loop until cancellation, the frame cap or a
// device fault. The device is released before Run returns. A fault is
// returned both as the error and in Result.Err, together with the samples
// captured so far.
func (s *Session) Run(ctx context.Context, ticker Ticker) (Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Result{}, ErrSessionClosed
	}
	defer s.releaseDevice()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()

	s.transition(StateRecording)
	s.logger.Info("capture started",
		"input_rate", s.cfg.InputRate,
		"output_rate", s.cfg.OutputRate,
		"channels", s.cfg.Channels,
		"capacity", s.cfg.Capacity,
		"max_frames", s.cfg.MaxFrames)

	res := s.loop(ctx, ticker)

	switch res.Reason {
	case StopFault:
		s.transition(StateFailed)
		s.logger.Error("capture stopped by device fault", "error", res.Err, "frames", res.Buffer.Frames())
	case StopCancelled:
		s.transition(StateCancelled)
	}

	s.transition(StateFinalizing)
	s.releaseDevice()
	s.transition(StateIdle)

	s.logger.Info("capture finished",
		"reason", res.Reason.String(),
		"frames", res.Buffer.Frames(),
		"deliveries", res.Deliveries,
		"sink_errors", res.SinkErrors)

	return res, res.Err
}

func (s *Session) loop(ctx context.Context, ticker Ticker) (res Result) {
	var (
		id        = s.cfg.DeviceID
		ch        = s.stream.Channels
		capacity  = s.stream.Capacity
		maxFrames = s.cfg.MaxFrames
		last      int
		resampled []float32
		resampler *audio.LinearStream
	)

	if s.cfg.InputRate != s.cfg.OutputRate {
		// rates and channels were validated in Open
		resampler, _ = audio.NewLinearStream(s.cfg.InputRate, s.cfg.OutputRate, ch)
	}

	readBuf := make([]float32, capacity*ch)
	acc := make([]float32, 0, initialCap(maxFrames, s.cfg.OutputRate)*ch)

	res.ID = s.id
	defer func() {
		if r := recover(); r != nil {
			res.Reason = StopFault
			res.Err = fmt.Errorf("%w: panic: %v", ErrDeviceFault, r)
		}
		res.Buffer = audio.Buffer{Samples: acc, Channels: ch, SampleRate: s.cfg.OutputRate}
	}()

	fault := func(err error) Result {
		res.Reason = StopFault
		res.Err = fmt.Errorf("%w: %w", ErrDeviceFault, err)
		return res
	}

	// emit clips out to the frame cap, hands it to the sink and keeps it.
	emit := func(out []float32) (int, error) {
		frames := len(out) / ch
		if maxFrames > 0 {
			frames = min(frames, maxFrames-len(acc)/ch)
			out = out[:frames*ch]
		}
		if frames <= 0 {
			return 0, nil
		}

		if !s.discard {
			frame, err := pcm.Encode(out, s.cfg.FrameFormat)
			if err != nil {
				return 0, err
			}
			s.deliver(ctx, frame, &res)
		}

		acc = append(acc, out...)
		s.frames.Store(int64(len(acc) / ch))
		return frames, nil
	}

	// stop drains the resampler tail before a clean exit.
	stop := func(reason StopReason) Result {
		if resampler != nil {
			tail := resampler.Flush(resampled[:0])
			if _, err := emit(tail); err != nil {
				return fault(err)
			}
		}
		res.Reason = reason
		return res
	}

	for {
		if s.stopRequested(ctx) {
			return stop(StopCancelled)
		}

		if err := ticker.Next(ctx); err != nil {
			if s.stopRequested(ctx) {
				return stop(StopCancelled)
			}
			return fault(fmt.Errorf("ticker: %w", err))
		}
		if s.cancelled.Load() {
			return stop(StopCancelled)
		}

		pos, err := s.dev.Position(id)
		if err != nil {
			return fault(err)
		}
		if pos < 0 {
			return fault(fmt.Errorf("%w: %d", ErrInvalidPosition, pos))
		}
		if pos >= capacity {
			pos %= capacity
		}

		// nothing written yet
		if pos == 0 && last == 0 {
			continue
		}

		delta := pos - last
		wrapped := pos < last
		if wrapped {
			// collect the tail now, the head after the wrap on the next tick
			delta = capacity - last
		}
		if delta == 0 {
			continue
		}

		chunk := readBuf[:delta*ch]
		if err := s.dev.ReadSamples(id, last, chunk); err != nil {
			return fault(err)
		}

		out := chunk
		if resampler != nil {
			resampled = resampler.Process(resampled[:0], chunk)
			out = resampled
		}

		frames, err := emit(out)
		if err != nil {
			return fault(err)
		}

		s.logger.Debug("capture iteration", "position", pos, "last", last, "delta", delta, "wrapped", wrapped, "frames", frames)

		if wrapped {
			last = 0
		} else {
			last = pos
		}

		if maxFrames > 0 && len(acc)/ch >= maxFrames {
			return stop(StopLimit)
		}
	}
}

// deliver hands f to the sink. Sink failures are counted and logged but
// never stop the capture.
func (s *Session) deliver(ctx context.Context, f Frame, res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res.SinkErrors++
			s.logger.Error("sink panicked", "panic", r, "bytes", len(f))
		}
	}()

	if err := s.sink.WriteFrame(ctx, f); err != nil {
		res.SinkErrors++
		s.logger.Error("failed to deliver frame", "error", err, "bytes", len(f))
		return
	}
	res.Deliveries++
}

func (s *Session) stopRequested(ctx context.Context) bool {
	return s.cancelled.Load() || ctx.Err() != nil
}

func (s *Session) releaseDevice() {
	s.release.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("device panicked while ending capture", "panic", r)
			}
		}()

		if err := s.dev.EndCapture(s.cfg.DeviceID); err != nil {
			s.logger.Warn("failed to end capture", "error", err)
		}
	})
}

func (s *Session) transition(to State) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	s.logger.Debug("capture state", "from", from.String(), "to", to.String())
	if s.hook != nil {
		s.hook(from, to)
	}
}

// initialCap sizes the accumulation buffer: the full cap when known, up to
// ten seconds of output.
func initialCap(maxFrames, rate int) int {
	limit := rate * 10
	if maxFrames > 0 {
		return min(maxFrames, limit)
	}
	return limit
}
