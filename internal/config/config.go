// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults and bounds for the visualization pipeline.
const (
	DefaultKind          = "peak_stereo"
	DefaultBands         = 12 // narrow displays; wide displays get 16
	DefaultBandsWide     = 16
	DefaultHold          = 500 * time.Millisecond
	DefaultDecayPerSec   = 8.0
	DefaultPollPlaying   = 16 * time.Millisecond // ~60 Hz while playing
	DefaultPollIdle      = 48 * time.Millisecond // chill when idle
	DefaultRenderTick    = 33 * time.Millisecond // ~30 Hz display refresh
	DefaultLMSPort       = 9000
	DefaultWSListenAddr  = ":8080"
	DefaultSampleRate    = 44100
	DefaultFramesPerBuf  = 1024
	DefaultInputChannels = 2

	MinBands = 4
	MaxBands = 64
)

// Config is the application configuration, loaded from YAML with environment
// variable overrides applied afterwards. CLI flags are layered on top by cmd.
type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`

	Input     string          `yaml:"input"` // "shm" or "live"
	Viz       VizConfig       `yaml:"viz"`
	Audio     AudioConfig     `yaml:"audio"` // live input only
	Player    PlayerConfig    `yaml:"player"`
	Transport TransportConfig `yaml:"transport"`
	Recording RecordingConfig `yaml:"recording"`
}

// VizConfig selects the visualization and its meter ballistics.
type VizConfig struct {
	Kind           string        `yaml:"kind"`             // e.g. "vu_stereo", "peak_mono", "hist_stereo"
	Wide           bool          `yaml:"wide"`             // wide display doubles usable bands
	Bands          int           `yaml:"bands"`            // 0 = derive from Wide
	Hold           time.Duration `yaml:"hold"`             // peak hold duration
	DecayPerSecond float64       `yaml:"decay_per_second"` // brackets per second after hold
	BarFallPerSec  float64       `yaml:"bar_fall_per_second"`
	PollPlaying    time.Duration `yaml:"poll_playing"`
	PollIdle       time.Duration `yaml:"poll_idle"`
	RenderTick     time.Duration `yaml:"render_tick"`
}

// AudioConfig configures the live PortAudio input source.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"` // -1 for default
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	InputChannels   int     `yaml:"input_channels"`
}

// PlayerConfig points at the music server whose playback state gates the
// analysis loop. Empty Host disables polling; the segment's own running flag
// still gates.
type PlayerConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	PlayerID string        `yaml:"player_id"` // MAC of the player, empty = first player
	Interval time.Duration `yaml:"interval"`
}

// TransportConfig configures optional frame streaming for debug renderers.
type TransportConfig struct {
	WSEnabled   bool          `yaml:"ws_enabled"`
	WSListen    string        `yaml:"ws_listen"`
	UDPEnabled  bool          `yaml:"udp_enabled"`
	UDPTarget   string        `yaml:"udp_target"`
	UDPInterval time.Duration `yaml:"udp_interval"`
}

// RecordingConfig configures the WAV tap used for offline tuning.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Input:    "shm",
		Viz: VizConfig{
			Kind:           DefaultKind,
			Bands:          0,
			Hold:           DefaultHold,
			DecayPerSecond: DefaultDecayPerSec,
			PollPlaying:    DefaultPollPlaying,
			PollIdle:       DefaultPollIdle,
			RenderTick:     DefaultRenderTick,
		},
		Audio: AudioConfig{
			InputDevice:     -1,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuf,
			InputChannels:   DefaultInputChannels,
		},
		Player: PlayerConfig{
			Port:     DefaultLMSPort,
			Interval: 2 * time.Second,
		},
		Transport: TransportConfig{
			WSListen:    DefaultWSListenAddr,
			UDPTarget:   "127.0.0.1:9090",
			UDPInterval: 33 * time.Millisecond,
		},
		Recording: RecordingConfig{
			OutputDir: ".",
		},
	}
}

// Load reads configuration from the YAML file at path. An empty path checks
// default locations and silently falls back to built-in defaults when no
// file exists. Environment overrides are applied after the file, and the
// result is validated.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		for _, candidate := range []string{"vizmon.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ResolvedBands returns the effective band count.
func (c *Config) ResolvedBands() int {
	if c.Viz.Bands > 0 {
		return c.Viz.Bands
	}
	if c.Viz.Wide {
		return DefaultBandsWide
	}
	return DefaultBands
}

// Validate checks the configuration invariants that would otherwise surface
// as confusing runtime behavior.
func (c *Config) Validate() error {
	if c.Input != "shm" && c.Input != "live" {
		return fmt.Errorf("input must be \"shm\" or \"live\", got %q", c.Input)
	}
	if b := c.Viz.Bands; b != 0 && (b < MinBands || b > MaxBands) {
		return fmt.Errorf("viz.bands must be within [%d, %d], got %d", MinBands, MaxBands, b)
	}
	if c.Viz.DecayPerSecond < 0 {
		return fmt.Errorf("viz.decay_per_second must not be negative")
	}
	if c.Viz.PollPlaying <= 0 || c.Viz.PollIdle <= 0 {
		return fmt.Errorf("viz poll intervals must be positive")
	}
	if c.Viz.BarFallPerSec > c.Viz.DecayPerSecond && c.Viz.DecayPerSecond > 0 {
		return fmt.Errorf("viz.bar_fall_per_second (%g) must not exceed viz.decay_per_second (%g)",
			c.Viz.BarFallPerSec, c.Viz.DecayPerSecond)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 384000 {
		return fmt.Errorf("audio.sample_rate out of range: %g", c.Audio.SampleRate)
	}
	if c.Audio.InputChannels < 1 || c.Audio.InputChannels > 2 {
		return fmt.Errorf("audio.input_channels must be 1 or 2, got %d", c.Audio.InputChannels)
	}
	return nil
}

// applyEnvOverrides layers VIZMON_* environment variables over the file.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("VIZMON_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("VIZMON_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("VIZMON_VIZ_KIND"); ok {
		c.Viz.Kind = val
	}
	if val, ok := os.LookupEnv("VIZMON_PLAYER_HOST"); ok {
		c.Player.Host = val
	}
	if val, ok := os.LookupEnv("VIZMON_WS_LISTEN"); ok {
		c.Transport.WSListen = val
		c.Transport.WSEnabled = true
	}
}
