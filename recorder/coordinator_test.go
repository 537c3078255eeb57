// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ik5/audcap/capture"
	"github.com/ik5/audcap/formats/wav"
	"github.com/ik5/audcap/internal/audiotest"
	"github.com/ik5/audcap/pcm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	dev     *audiotest.FakeDevice
	fs      afero.Fs
	coord   *Coordinator
	metrics *Metrics
	tickers chan *audiotest.CountTicker

	mu      sync.Mutex
	results []Result
}

// newHarness builds a coordinator over a mono 8 kHz fake device "mic".
// Every session gets a ticker that fires ticks times and then waits.
func newHarness(t *testing.T, ticks int, opts ...Option) *harness {
	t.Helper()

	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	h := &harness{
		dev: audiotest.NewFakeDevice(capture.Capabilities{
			MinRate: 8000, MaxRate: 48000, PreferredRate: 8000, Channels: 1,
		}, "mic"),
		fs:      afero.NewMemMapFs(),
		metrics: m,
		tickers: make(chan *audiotest.CountTicker, 4),
	}

	base := []Option{
		WithFs(h.fs),
		WithMetrics(m),
		WithDeviceWait(time.Second),
		WithOnComplete(func(r Result) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.results = append(h.results, r)
		}),
		WithTicker(func(time.Duration) capture.Ticker {
			tk := audiotest.NewCountTicker(ticks)
			h.tickers <- tk
			return tk
		}),
	}
	h.coord = New(h.dev, append(base, opts...)...)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, h.coord.Shutdown(ctx))
	})

	return h
}

func (h *harness) Results() []Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Result(nil), h.results...)
}

// drain waits until the session has used up its ticks.
func (h *harness) drain(t *testing.T) {
	t.Helper()

	select {
	case tk := <-h.tickers:
		select {
		case <-tk.Drained():
		case <-time.After(5 * time.Second):
			t.Fatal("ticker not drained")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session never asked for a ticker")
	}
}

func wait(t *testing.T, rec *Recording) Result {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := rec.Wait(ctx)
	require.NoError(t, err)
	return res
}

func memoryRequest() Request {
	return Request{SampleRate: 8000, Codec: "pcm", BufferSeconds: 1}
}

func TestCoordinator_MemoryRecording(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 3)
	h.dev.Script(4000)

	rec, ok, err := h.coord.Start(context.Background(), memoryRequest())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusRecording, h.coord.Status())
	assert.Same(t, rec, h.coord.Active())

	h.drain(t)
	require.True(t, h.coord.End())

	res := wait(t, rec)
	assert.Equal(t, rec.ID(), res.ID)
	assert.Equal(t, capture.StopCancelled, res.Reason)
	require.NoError(t, res.Err)
	assert.Equal(t, 4000, res.Buffer.Frames())
	assert.Equal(t, 8000, res.Buffer.SampleRate)
	assert.Len(t, res.Encoded, 4000*2)
	assert.Equal(t, "pcm", res.Codec)
	assert.Empty(t, res.Path)

	decoded, err := pcm.Decode(res.Encoded, pcm.Bits16)
	require.NoError(t, err)
	for i := range decoded {
		require.InDelta(t, res.Buffer.Samples[i], decoded[i], 1.0/32767+1e-6)
	}

	assert.Equal(t, StatusIdle, h.coord.Status())
	assert.Nil(t, h.coord.Active())
	assert.Equal(t, 1, h.dev.StartCalls())
	assert.Equal(t, 1, h.dev.EndCalls())

	results := h.Results()
	require.Len(t, results, 1)
	assert.Equal(t, res.ID, results[0].ID)

	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.started), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.completed.WithLabelValues("cancelled")), 0)
	assert.InDelta(t, 4000, testutil.ToFloat64(h.metrics.samples), 0)
}

func TestCoordinator_SingleActiveSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 1)

	rec, ok, err := h.coord.Start(context.Background(), memoryRequest())
	require.NoError(t, err)
	require.True(t, ok)

	again, ok, err := h.coord.Start(context.Background(), memoryRequest())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, again)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.rejected), 0)

	require.True(t, h.coord.End())
	wait(t, rec)

	// idle again, so a new session is accepted
	rec, ok, err = h.coord.Start(context.Background(), memoryRequest())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, h.coord.End())
	wait(t, rec)

	assert.Equal(t, 2, h.dev.StartCalls())
	assert.Equal(t, 2, h.dev.EndCalls())
}

func TestCoordinator_EndWhenIdle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 1)
	assert.False(t, h.coord.End())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// deliveries returns the frame deliveries logged when capture finished.
func (b *lockedBuffer) deliveries(t *testing.T) int {
	t.Helper()

	b.mu.Lock()
	defer b.mu.Unlock()

	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var rec struct {
			Msg        string `json:"msg"`
			Deliveries int    `json:"deliveries"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		if rec.Msg == "capture finished" {
			return rec.Deliveries
		}
	}
	t.Fatal("no capture finished record")
	return 0
}

func TestCoordinator_FrameDeliveryOnlyToDisk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "memory", want: 0},
		{name: "disk", path: "/recordings/take.pcm", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logs := &lockedBuffer{}
			h := newHarness(t, 2, WithLogger(slog.New(slog.NewJSONHandler(logs, nil))))
			h.dev.Script(1000, 3000)

			req := memoryRequest()
			req.Path = tt.path

			rec, _, err := h.coord.Start(context.Background(), req)
			require.NoError(t, err)
			h.drain(t)
			h.coord.End()

			res := wait(t, rec)
			require.NoError(t, res.Err)
			assert.Equal(t, 3000, res.Buffer.Frames())
			assert.Equal(t, tt.want, logs.deliveries(t))
		})
	}
}

func TestCoordinator_DiskWAV(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 3)
	h.dev.Script(2000, 6000)

	req := memoryRequest()
	req.Codec = "wav"
	req.Path = "/recordings/2026/take.wav"

	rec, ok, err := h.coord.Start(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)

	h.drain(t)
	h.coord.End()
	res := wait(t, rec)

	require.NoError(t, res.Err)
	assert.Equal(t, req.Path, res.Path)
	assert.Nil(t, res.Encoded)
	require.Equal(t, 6000, res.Buffer.Frames())

	f, err := h.fs.Open(req.Path)
	require.NoError(t, err)
	defer f.Close()

	src, err := wav.Decoder{}.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8000, src.SampleRate())
	assert.Equal(t, 1, src.Channels())

	got := make([]float32, 8000)
	n, _ := src.ReadSamples(got)
	require.Equal(t, 6000, n)
	for i := range n {
		require.InDelta(t, res.Buffer.Samples[i], got[i], 1.0/32767+1e-6, "sample %d", i)
	}
}

func TestCoordinator_DiskTruncatesExisting(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 1)
	h.dev.Script(100)
	require.NoError(t, afero.WriteFile(h.fs, "/take.pcm", make([]byte, 100000), 0o644))

	req := memoryRequest()
	req.Path = "/take.pcm"

	rec, _, err := h.coord.Start(context.Background(), req)
	require.NoError(t, err)
	h.drain(t)
	h.coord.End()
	wait(t, rec)

	data, err := afero.ReadFile(h.fs, "/take.pcm")
	require.NoError(t, err)
	assert.Len(t, data, 100*2)
}

func TestCoordinator_Clamping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		rate         int
		duration     time.Duration
		wantRate     int
		wantDuration time.Duration
	}{
		{"within range", 16000, time.Minute, 16000, time.Minute},
		{"rate too high", 96000, time.Minute, 48000, time.Minute},
		{"rate too low", 4000, time.Minute, 8000, time.Minute},
		{"duration too short", 16000, 5 * time.Second, 16000, MinDuration},
		{"duration too long", 16000, time.Hour, 16000, MaxDuration},
		{"defaults", 0, 0, DefaultSampleRate, DefaultDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, 0)

			rec, ok, err := h.coord.Start(context.Background(), Request{
				SampleRate:  tt.rate,
				MaxDuration: tt.duration,
				Codec:       "pcm",
			})
			require.NoError(t, err)
			require.True(t, ok)

			assert.Equal(t, tt.wantRate, rec.Request().SampleRate)
			assert.Equal(t, tt.wantDuration, rec.Request().MaxDuration)
			assert.Equal(t, "mic", rec.Request().DeviceID)

			h.coord.End()
			res := wait(t, rec)
			assert.Equal(t, tt.wantRate, res.Buffer.SampleRate)
		})
	}
}

func TestCoordinator_DurationLimit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 100)

	// each tick yields half the 8000-frame ring
	script := make([]int, 70)
	for i := range script {
		if i%2 == 0 {
			script[i] = 4000
		}
	}
	h.dev.Script(script...)

	req := memoryRequest()
	req.MaxDuration = MinDuration

	rec, ok, err := h.coord.Start(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)

	res := wait(t, rec)
	assert.Equal(t, capture.StopLimit, res.Reason)
	assert.Equal(t, 30*8000, res.Buffer.Frames())
	assert.Equal(t, MinDuration, res.Buffer.Duration())
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.completed.WithLabelValues("limit")), 0)
}

func TestCoordinator_DeviceFault(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 5)
	h.dev.Script(1000, 2000)
	h.dev.FailPositionAt(2, errors.New("unplugged"))

	rec, _, err := h.coord.Start(context.Background(), memoryRequest())
	require.NoError(t, err)

	res := wait(t, rec)
	assert.Equal(t, capture.StopFault, res.Reason)
	require.ErrorIs(t, res.Err, capture.ErrDeviceFault)
	assert.Equal(t, 1000, res.Buffer.Frames())
	assert.Len(t, res.Encoded, 2000)
	assert.Equal(t, 1, h.dev.EndCalls())
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.completed.WithLabelValues("fault")), 0)
}

func TestCoordinator_TrimSilence(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 1)
	h.dev.Fill = func(frame, _ int) float32 {
		if frame < 1000 || frame >= 3000 {
			return 0
		}
		return 0.5
	}
	h.dev.Script(4000)

	req := memoryRequest()
	req.Trim = true

	rec, _, err := h.coord.Start(context.Background(), req)
	require.NoError(t, err)
	h.drain(t)
	h.coord.End()

	res := wait(t, rec)
	assert.Equal(t, 4000, res.Buffer.Frames())
	// one sample of lead-in is kept before the first loud sample
	assert.Len(t, res.Encoded, 2001*2)
}

func TestCoordinator_TrimAllSilence(t *testing.T) {
	t.Parallel()

	for _, codec := range []string{"pcm", "wav"} {
		t.Run(codec, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, 1)
			h.dev.Fill = func(int, int) float32 { return 0 }
			h.dev.Script(4000)

			req := memoryRequest()
			req.Codec = codec
			req.Trim = true

			rec, _, err := h.coord.Start(context.Background(), req)
			require.NoError(t, err)
			h.drain(t)
			h.coord.End()

			res := wait(t, rec)
			require.ErrorIs(t, res.Err, pcm.ErrEmptyTrim)
			assert.Empty(t, res.Encoded)
			// captured samples are still handed back
			assert.Equal(t, 4000, res.Buffer.Frames())
			require.Len(t, h.Results(), 1)
			assert.ErrorIs(t, h.Results()[0].Err, pcm.ErrEmptyTrim)
		})
	}
}

func TestCoordinator_StartErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0, WithDeviceWait(100*time.Millisecond))

	_, ok, err := h.coord.Start(context.Background(), Request{Codec: "flac"})
	require.ErrorIs(t, err, ErrUnknownCodec)
	assert.False(t, ok)

	_, _, err = h.coord.Start(context.Background(), Request{DeviceID: "speaker"})
	require.ErrorIs(t, err, ErrDeviceNotFound)

	_, _, err = h.coord.Start(context.Background(), Request{SampleRate: -1, Format: pcm.Format(12)})
	require.ErrorIs(t, err, ErrInvalidRequest)

	boom := errors.New("device busy")
	h.dev.FailStart(boom)
	_, _, err = h.coord.Start(context.Background(), memoryRequest())
	require.ErrorIs(t, err, boom)

	assert.Equal(t, StatusIdle, h.coord.Status())
	assert.Equal(t, 0, h.dev.StartCalls())
	assert.Empty(t, h.Results())

	h.dev.FailStart(nil)
	rec, ok, err := h.coord.Start(context.Background(), memoryRequest())
	require.NoError(t, err)
	require.True(t, ok)
	h.coord.End()
	wait(t, rec)
}

func TestCoordinator_DiskFailureReleasesDevice(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0, WithFs(afero.NewReadOnlyFs(afero.NewMemMapFs())))

	req := memoryRequest()
	req.Path = "/out/take.wav"

	_, ok, err := h.coord.Start(context.Background(), req)
	require.Error(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, h.dev.StartCalls())
	assert.Equal(t, 1, h.dev.EndCalls())
	assert.False(t, h.dev.Active())
	assert.Equal(t, StatusIdle, h.coord.Status())
}

func TestCoordinator_WaitsForDevices(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0)
	h.dev.HideDevicesFor(3)

	rec, ok, err := h.coord.Start(context.Background(), memoryRequest())
	require.NoError(t, err)
	require.True(t, ok)

	h.coord.End()
	wait(t, rec)
}

func TestCoordinator_NoDevices(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0, WithDeviceWait(100*time.Millisecond))
	h.dev.HideDevicesFor(1 << 20)

	_, ok, err := h.coord.Start(context.Background(), memoryRequest())
	require.ErrorIs(t, err, ErrNoDevices)
	assert.False(t, ok)

	// the caller's context wins over the device wait
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = h.coord.Start(ctx, memoryRequest())
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, StatusIdle, h.coord.Status())
}

func TestCoordinator_Shutdown(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0)

	rec, _, err := h.coord.Start(context.Background(), memoryRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.coord.Shutdown(ctx))

	select {
	case <-rec.Done():
	default:
		t.Fatal("recording still running after Shutdown")
	}
	assert.Equal(t, capture.StopCancelled, wait(t, rec).Reason)

	_, ok, err := h.coord.Start(context.Background(), memoryRequest())
	require.ErrorIs(t, err, ErrShutdown)
	assert.False(t, ok)
}

func TestCoordinator_OnCompletePanic(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 0, WithOnComplete(func(Result) { panic("callback") }))

	rec, _, err := h.coord.Start(context.Background(), memoryRequest())
	require.NoError(t, err)
	h.coord.End()

	wait(t, rec)
	assert.Equal(t, StatusIdle, h.coord.Status())
}

func TestCoordinator_ProcessingDuringCallback(t *testing.T) {
	t.Parallel()

	var (
		h      *harness
		status Status
		ok     bool
	)
	h = newHarness(t, 0, WithOnComplete(func(Result) {
		status = h.coord.Status()
		_, ok, _ = h.coord.Start(context.Background(), memoryRequest())
	}))

	rec, _, err := h.coord.Start(context.Background(), memoryRequest())
	require.NoError(t, err)
	h.coord.End()
	wait(t, rec)

	assert.Equal(t, StatusProcessing, status)
	assert.False(t, ok)
}
