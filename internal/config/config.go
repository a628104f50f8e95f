package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"sitebeep/internal/audio"
	"sitebeep/internal/core/model"
	"sitebeep/internal/storage"
)

// AppName names the config, state and log directories.
const AppName = "sitebeep"

// Config holds all configuration for the host.
type Config struct {
	Beeper BeeperConfig `yaml:"beeper"`
	Audio  AudioConfig  `yaml:"audio"`
	Store  StoreConfig  `yaml:"store"`
	Host   HostConfig   `yaml:"host"`
	Log    LogConfig    `yaml:"log"`
}

// BeeperConfig controls cue timing and shape.
type BeeperConfig struct {
	MinInterval  Duration       `yaml:"min_interval"`
	MaxInterval  Duration       `yaml:"max_interval"`
	SettleDelay  Duration       `yaml:"settle_delay"`
	CueFrequency float64        `yaml:"cue_frequency"`
	CueDuration  Duration       `yaml:"cue_duration"`
	CueWaveform  model.Waveform `yaml:"cue_waveform"`
	Randomness   float64        `yaml:"randomness"`
}

// AudioConfig selects where cues are rendered.
type AudioConfig struct {
	Sink audio.Kind `yaml:"sink"`
}

// StoreConfig selects the preference store.
type StoreConfig struct {
	Backend storage.Backend `yaml:"backend"`
	Dir     string          `yaml:"dir"`
}

// HostConfig describes the native messaging registration.
type HostConfig struct {
	Name         string   `yaml:"name"`
	ExtensionIDs []string `yaml:"extension_ids"`
}

// LogConfig controls the diagnostic log.
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Duration wraps time.Duration for YAML unmarshalling from strings like "15s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Defaults returns a Config with the stock cue behaviour.
func Defaults() Config {
	cue := model.DefaultCue()
	return Config{
		Beeper: BeeperConfig{
			MinInterval:  Duration{5 * time.Second},
			MaxInterval:  Duration{30 * time.Second},
			SettleDelay:  Duration{900 * time.Millisecond},
			CueFrequency: cue.Frequency,
			CueDuration:  Duration{cue.Duration},
			CueWaveform:  cue.Waveform,
			Randomness:   cue.Randomness,
		},
		Audio: AudioConfig{Sink: audio.KindExtension},
		Store: StoreConfig{Backend: storage.BackendYAML},
		Host:  HostConfig{Name: "com.sitebeep.host"},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads the default config file and merges it with defaults.
// A missing file is not an error.
func Load() (Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads config from a specific path.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Defaults(), fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c Config) validate() error {
	b := c.Beeper
	if b.MinInterval.Duration <= 0 {
		return fmt.Errorf("min_interval must be positive, got %s", b.MinInterval)
	}
	if b.MaxInterval.Duration < b.MinInterval.Duration {
		return fmt.Errorf("max_interval (%s) must not be below min_interval (%s)", b.MaxInterval, b.MinInterval)
	}
	if b.SettleDelay.Duration < 0 || b.SettleDelay.Duration > 10*time.Second {
		return fmt.Errorf("settle_delay must be between 0 and 10s, got %s", b.SettleDelay)
	}
	if b.CueFrequency <= 0 {
		return fmt.Errorf("cue_frequency must be positive, got %v", b.CueFrequency)
	}
	if b.CueDuration.Duration <= 0 {
		return fmt.Errorf("cue_duration must be positive, got %s", b.CueDuration)
	}
	if !b.CueWaveform.Valid() {
		return fmt.Errorf("cue_waveform must be square or triangle, got %q", b.CueWaveform)
	}
	if b.Randomness < 0 || b.Randomness > 1 {
		return fmt.Errorf("randomness must be between 0 and 1, got %v", b.Randomness)
	}

	switch c.Audio.Sink {
	case audio.KindExtension, audio.KindSpeaker, audio.KindSystem:
	default:
		return fmt.Errorf("unknown audio sink %q", c.Audio.Sink)
	}
	switch c.Store.Backend {
	case storage.BackendYAML, storage.BackendSQLite, storage.BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Host.Name == "" {
		return fmt.Errorf("host name must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// Interval returns the periodic cue spacing.
func (c Config) Interval() model.Range {
	return model.Range{Min: c.Beeper.MinInterval.Duration, Max: c.Beeper.MaxInterval.Duration}
}

// Cue returns the periodic cue tone.
func (c Config) Cue() model.Tone {
	cue := model.DefaultCue()
	cue.Frequency = c.Beeper.CueFrequency
	cue.Duration = c.Beeper.CueDuration.Duration
	cue.Waveform = c.Beeper.CueWaveform
	cue.Randomness = c.Beeper.Randomness
	return cue
}

// StateDir returns where preferences are stored.
func (c Config) StateDir() string {
	if c.Store.Dir != "" {
		return c.Store.Dir
	}
	return filepath.Dir(DefaultPath())
}

// DefaultPath returns $XDG_CONFIG_HOME/sitebeep/config.yml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		dir = configDir
	}
	return filepath.Join(dir, AppName, "config.yml")
}
