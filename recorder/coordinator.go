// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/ik5/audcap/audio"
	"github.com/ik5/audcap/capture"
	"github.com/ik5/audcap/pcm"
)

const (
	DefaultDeviceWait  = 5 * time.Second
	devicePollInterval = 50 * time.Millisecond
)

// Result is what a finished recording produced. Buffer always holds the
// captured samples. Encoded is set for in-memory recordings, Path for
// recordings streamed to disk.
type Result struct {
	ID         uuid.UUID
	Path       string
	Codec      string
	Buffer     audio.Buffer
	Encoded    []byte
	Reason     capture.StopReason
	Err        error
	SinkErrors int
}

// Recording is a handle on a started session.
type Recording struct {
	id      uuid.UUID
	req     Request
	session *capture.Session
	done    chan struct{}
	result  Result
}

func (r *Recording) ID() uuid.UUID { return r.id }

// Request returns the request as it was applied, after defaults and
// clamping.
func (r *Recording) Request() Request { return r.req }

// Done is closed once the result is final and the coordinator is idle.
func (r *Recording) Done() <-chan struct{} { return r.done }

// Wait blocks until the recording finishes or ctx is done.
func (r *Recording) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.baseLogger = l
		}
	}
}

// WithFs sets the filesystem recordings are written to. Default is the
// OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Coordinator) { c.fs = fs }
}

func WithEncoders(r *EncoderRegistry) Option {
	return func(c *Coordinator) { c.encoders = r }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithOnComplete registers fn to receive every result. It is called once
// per recording, from the capture goroutine, while Status reports
// StatusProcessing.
func WithOnComplete(fn func(Result)) Option {
	return func(c *Coordinator) { c.onComplete = fn }
}

// WithDeviceWait bounds how long Start waits for a device to appear.
func WithDeviceWait(d time.Duration) Option {
	return func(c *Coordinator) { c.deviceWait = d }
}

// WithTicker replaces the ticker each session polls its device with.
func WithTicker(fn func(interval time.Duration) capture.Ticker) Option {
	return func(c *Coordinator) { c.newTicker = fn }
}

// Coordinator runs at most one capture session at a time.
type Coordinator struct {
	dev        capture.Device
	fs         afero.Fs
	encoders   *EncoderRegistry
	metrics    *Metrics
	baseLogger *slog.Logger
	logger     *slog.Logger
	onComplete func(Result)
	deviceWait time.Duration
	newTicker  func(time.Duration) capture.Ticker

	// sessions run under ctx so Shutdown can stop them
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	status Status
	active *Recording
	closed bool
	wg     sync.WaitGroup
}

func New(dev capture.Device, opts ...Option) *Coordinator {
	c := &Coordinator{
		dev:        dev,
		fs:         afero.NewOsFs(),
		encoders:   NewEncoderRegistry(),
		baseLogger: slog.Default(),
		deviceWait: DefaultDeviceWait,
		newTicker: func(d time.Duration) capture.Ticker {
			return capture.NewIntervalTicker(d)
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.baseLogger.With("component", "recorder")
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Active returns the running recording, or nil.
func (c *Coordinator) Active() *Recording {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start begins a recording. While another recording is active it returns
// (nil, false, nil). Any failure leaves nothing acquired and the
// coordinator idle. ctx bounds the start only; the recording itself runs
// until End, its duration cap, a device fault or Shutdown.
func (c *Coordinator) Start(ctx context.Context, req Request) (*Recording, bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false, ErrShutdown
	}
	if c.status != StatusIdle {
		status := c.status
		c.mu.Unlock()

		c.logger.Warn("recording already in progress, start ignored", "status", status.String())
		c.metrics.recordRejected()
		return nil, false, nil
	}
	c.status = StatusRecording
	c.wg.Add(1)
	c.mu.Unlock()

	rec, err := c.start(ctx, req)
	if err != nil {
		c.mu.Lock()
		c.status = StatusIdle
		c.mu.Unlock()
		c.wg.Done()

		c.logger.Error("failed to start recording", "device", req.DeviceID, "error", err)
		return nil, false, err
	}

	return rec, true, nil
}

func (c *Coordinator) start(ctx context.Context, req Request) (*Recording, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.withDefaults()

	enc, err := c.encoders.Resolve(req.Codec)
	if err != nil {
		return nil, err
	}

	id, err := c.resolveDevice(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	req.DeviceID = id

	caps, err := c.dev.Capabilities(id)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", id, err)
	}

	if rate := caps.ClampRate(req.SampleRate); rate != req.SampleRate {
		c.logger.Warn("sample rate outside device range, clamped",
			"device", id, "requested", req.SampleRate, "rate", rate,
			"min_rate", caps.MinRate, "max_rate", caps.MaxRate)
		req.SampleRate = rate
	}
	if d := ClampDuration(req.MaxDuration); d != req.MaxDuration {
		c.logger.Warn("max duration out of range, clamped", "requested", req.MaxDuration, "max_duration", d)
		req.MaxDuration = d
	}

	inputRate := caps.PreferredRate
	if inputRate <= 0 {
		inputRate = req.SampleRate
	}

	recID := uuid.New()

	// memory mode keeps only the raw samples, so frames are not encoded
	var (
		sink     capture.Sink
		deferred *deferredSink
	)
	if req.Path != "" {
		deferred = &deferredSink{}
		sink = deferred
	}

	session, err := capture.Open(c.dev, capture.Config{
		DeviceID:    id,
		InputRate:   inputRate,
		OutputRate:  req.SampleRate,
		Capacity:    inputRate * req.BufferSeconds,
		MaxFrames:   int(int64(req.MaxDuration) * int64(req.SampleRate) / int64(time.Second)),
		FrameFormat: req.Format,
	}, sink, capture.WithLogger(c.baseLogger), capture.WithID(recID))
	if err != nil {
		return nil, err
	}

	var disk *diskOutput
	if req.Path != "" {
		disk, err = c.openDisk(enc, req, session.Config().Channels)
		if err != nil {
			_ = session.Close()
			return nil, err
		}
		deferred.target = disk.sink
	}

	rec := &Recording{
		id:      recID,
		req:     req,
		session: session,
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	c.active = rec
	c.mu.Unlock()

	c.metrics.recordStarted()
	c.logger.Info("recording started",
		"session_id", recID.String(),
		"device", id,
		"rate", req.SampleRate,
		"input_rate", session.Config().InputRate,
		"codec", enc.Name(),
		"path", req.Path,
		"max_duration", req.MaxDuration)

	go c.run(rec, enc, disk)

	return rec, nil
}

// End cancels the active recording. It reports false, with a warning,
// when nothing is recording.
func (c *Coordinator) End() bool {
	c.mu.Lock()
	rec, status := c.active, c.status
	c.mu.Unlock()

	if rec == nil || status != StatusRecording {
		c.logger.Warn("no recording in progress, end ignored", "status", status.String())
		return false
	}

	rec.session.Cancel()
	c.logger.Info("recording end requested", "session_id", rec.id.String())
	return true
}

// Shutdown refuses new recordings, stops the active one and waits for it
// to finish or for ctx to expire.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) run(rec *Recording, enc SessionEncoder, disk *diskOutput) {
	defer c.wg.Done()

	ticker := c.newTicker(rec.req.PollInterval)
	if s, ok := ticker.(interface{ Stop() }); ok {
		defer s.Stop()
	}

	res, _ := rec.session.Run(c.ctx, ticker)

	c.mu.Lock()
	c.status = StatusProcessing
	c.mu.Unlock()

	result := c.finalize(rec, enc, disk, res)
	rec.result = result

	c.metrics.recordCompleted(result.Reason, len(result.Buffer.Samples), result.SinkErrors)
	c.notify(result)

	c.mu.Lock()
	c.status = StatusIdle
	c.active = nil
	c.mu.Unlock()

	close(rec.done)
}

func (c *Coordinator) finalize(rec *Recording, enc SessionEncoder, disk *diskOutput, res capture.Result) Result {
	result := Result{
		ID:         rec.id,
		Path:       rec.req.Path,
		Codec:      enc.Name(),
		Buffer:     res.Buffer.Clone(),
		Reason:     res.Reason,
		Err:        res.Err,
		SinkErrors: res.SinkErrors,
	}

	if disk != nil {
		if err := disk.close(); err != nil {
			c.logger.Error("failed to finish recording file", "session_id", rec.id.String(), "path", rec.req.Path, "error", err)
			result.Err = errors.Join(result.Err, err)
		}
	} else {
		encoded, err := enc.Memory(result.Buffer, rec.req.Format, pcm.EncodeOptions{
			Trim:             rec.req.Trim,
			SilenceThreshold: rec.req.SilenceThreshold,
		})
		if err != nil {
			c.logger.Error("failed to encode recording", "session_id", rec.id.String(), "codec", enc.Name(), "error", err)
			result.Err = errors.Join(result.Err, err)
		}
		result.Encoded = encoded
	}

	c.logger.Info("recording finished",
		"session_id", rec.id.String(),
		"reason", result.Reason.String(),
		"duration", result.Buffer.Duration(),
		"bytes", len(result.Encoded),
		"sink_errors", result.SinkErrors)

	return result
}

func (c *Coordinator) notify(result Result) {
	if c.onComplete == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("completion callback panicked", "session_id", result.ID.String(), "panic", r)
		}
	}()
	c.onComplete(result)
}

// resolveDevice waits up to deviceWait for the device to list at least one
// id, then picks want or, when want is empty, the first id.
func (c *Coordinator) resolveDevice(ctx context.Context, want string) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.deviceWait)
	defer cancel()

	t := time.NewTicker(devicePollInterval)
	defer t.Stop()

	var lastErr error
	for {
		ids, err := c.dev.ListDevices(waitCtx)
		if err == nil && len(ids) > 0 {
			if want == "" {
				return ids[0], nil
			}
			if slices.Contains(ids, want) {
				return want, nil
			}
			return "", fmt.Errorf("%w: %q", ErrDeviceNotFound, want)
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return "", err
			}
			if lastErr != nil {
				return "", fmt.Errorf("%w after %s: %w", ErrNoDevices, c.deviceWait, lastErr)
			}
			return "", fmt.Errorf("%w after %s", ErrNoDevices, c.deviceWait)
		case <-t.C:
		}
	}
}

type diskOutput struct {
	file afero.File
	sink FrameSink
}

func (c *Coordinator) openDisk(enc SessionEncoder, req Request, channels int) (*diskOutput, error) {
	if err := c.fs.MkdirAll(filepath.Dir(req.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %q: %w", req.Path, err)
	}

	f, err := c.fs.Create(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %q: %w", req.Path, err)
	}

	sink, err := enc.Disk(f, req.SampleRate, channels, req.Format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &diskOutput{file: f, sink: sink}, nil
}

func (d *diskOutput) close() error {
	return errors.Join(d.sink.Finish(), d.file.Close())
}

// deferredSink forwards to target, which is attached once the session
// reports its channel count and before Run starts.
type deferredSink struct {
	target capture.Sink
}

func (s *deferredSink) WriteFrame(ctx context.Context, f capture.Frame) error {
	if s.target == nil {
		return nil
	}
	return s.target.WriteFrame(ctx, f)
}
