// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/ik5/audcap/pcm"
	"github.com/ik5/audcap/recorder"
)

var ErrInvalidSettings = errors.New("invalid settings")

// LogLevel is the minimum level written by the logger from NewLogger.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to a slog level; unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Replay configures the file-backed capture device.
type Replay struct {
	// Dir exposes every decodable file in it as a device.
	Dir string `yaml:"dir"`

	// Files maps device ids to audio files.
	Files map[string]string `yaml:"files"`

	// Interval is how often the replay clock advances.
	Interval time.Duration `yaml:"interval"`
}

// Enabled reports whether any replay source is configured.
func (r Replay) Enabled() bool { return r.Dir != "" || len(r.Files) > 0 }

// Settings is the recorder configuration file. Durations are Go duration
// strings such as "90s" or "20ms".
type Settings struct {
	Device           string        `yaml:"device"`
	SampleRate       int           `yaml:"sample_rate"`
	BitDepth         int           `yaml:"bit_depth"`
	MaxDuration      time.Duration `yaml:"max_duration"`
	Codec            string        `yaml:"codec"`
	OutputPath       string        `yaml:"output_path"`
	Trim             bool          `yaml:"trim"`
	SilenceThreshold float32       `yaml:"silence_threshold"`
	BufferSeconds    int           `yaml:"buffer_seconds"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	DeviceWait       time.Duration `yaml:"device_wait"`
	LogLevel         LogLevel      `yaml:"log_level"`
	Replay           Replay        `yaml:"replay"`
}

// Default returns the settings used for every key a file leaves out.
func Default() Settings {
	return Settings{
		SampleRate:       recorder.DefaultSampleRate,
		BitDepth:         pcm.Bits16.BitDepth(),
		MaxDuration:      recorder.DefaultDuration,
		Codec:            recorder.DefaultCodec,
		SilenceThreshold: recorder.DefaultSilenceThreshold,
		BufferSeconds:    recorder.DefaultBufferSeconds,
		PollInterval:     recorder.DefaultPollInterval,
		DeviceWait:       recorder.DefaultDeviceWait,
		LogLevel:         LogInfo,
	}
}

// Load reads and validates the YAML file at path from the OS filesystem.
func Load(path string) (Settings, error) {
	return LoadFs(afero.NewOsFs(), path)
}

func LoadFs(fs afero.Fs, path string) (Settings, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	s, err := LoadFromReader(f)
	if err != nil {
		return Settings{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return s, nil
}

// LoadFromReader decodes YAML over Default and validates the result.
// Unknown keys are an error. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (Settings, error) {
	s := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("config: decode yaml: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate returns a joined error listing every invalid key.
func (s Settings) Validate() error {
	var errs []error

	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSettings}, args...)...))
	}

	if s.SampleRate < 0 {
		invalid("sample_rate %d must not be negative", s.SampleRate)
	}
	if s.BitDepth != 0 {
		if _, err := pcm.ParseBitDepth(s.BitDepth); err != nil {
			invalid("bit_depth %d; valid values: 8, 16, 24, 32", s.BitDepth)
		}
	}
	if s.MaxDuration < 0 {
		invalid("max_duration %s must not be negative", s.MaxDuration)
	}
	if s.SilenceThreshold < 0 || s.SilenceThreshold >= 1 {
		invalid("silence_threshold %g is out of range [0, 1)", s.SilenceThreshold)
	}
	if s.BufferSeconds < 0 {
		invalid("buffer_seconds %d must not be negative", s.BufferSeconds)
	}
	if s.PollInterval < 0 {
		invalid("poll_interval %s must not be negative", s.PollInterval)
	}
	if s.DeviceWait < 0 {
		invalid("device_wait %s must not be negative", s.DeviceWait)
	}
	if s.LogLevel != "" && !s.LogLevel.IsValid() {
		invalid("log_level %q; valid values: debug, info, warn, error", s.LogLevel)
	}
	if s.Replay.Interval < 0 {
		invalid("replay.interval %s must not be negative", s.Replay.Interval)
	}
	for id, path := range s.Replay.Files {
		if id == "" || path == "" {
			invalid("replay.files entry %q: %q needs both an id and a path", id, path)
		}
	}

	return errors.Join(errs...)
}

// Request converts the settings into a recording request.
func (s Settings) Request() recorder.Request {
	var f pcm.Format
	if s.BitDepth != 0 {
		f, _ = pcm.ParseBitDepth(s.BitDepth)
	}

	return recorder.Request{
		DeviceID:         s.Device,
		SampleRate:       s.SampleRate,
		MaxDuration:      s.MaxDuration,
		Format:           f,
		Codec:            s.Codec,
		Path:             s.OutputPath,
		Trim:             s.Trim,
		SilenceThreshold: s.SilenceThreshold,
		BufferSeconds:    s.BufferSeconds,
		PollInterval:     s.PollInterval,
	}
}

// NewLogger returns a text logger writing to w at the configured level.
func (s Settings) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: s.LogLevel.Level()}))
}
