package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/FilterCam/internal/capture"
	"github.com/bryanchriswhite/FilterCam/internal/logger"
	"github.com/bryanchriswhite/FilterCam/internal/overlay"
)

// EnvPrefix is prepended to every environment override, so
// output.jpeg_quality is read from FILTERCAM_OUTPUT_JPEG_QUALITY.
const EnvPrefix = "FILTERCAM"

// Manager handles configuration
type Manager struct {
	configPath string
	fs         afero.Fs
	v          *viper.Viper
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/filtercam/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "filtercam", "config.yaml"), nil
}

// NewManager loads configFile, or the default path when it is empty. A
// missing file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	if configFile == "" {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configFile = path
	}
	return NewManagerFs(afero.NewOsFs(), configFile)
}

// NewManagerFs is NewManager on an explicit filesystem.
func NewManagerFs(fsys afero.Fs, configFile string) (*Manager, error) {
	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m := &Manager{
		configPath: configFile,
		fs:         fsys,
		v:          v,
	}
	log := logger.WithComponent("config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	if err := m.Get().Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	log.Info().
		Str("path", m.configPath).
		Msg("Config loaded")
	return m, nil
}

// GetViper exposes the underlying viper instance for ad-hoc key access.
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// Get returns a snapshot of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked()
}

func (m *Manager) getLocked() *Config {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		logger.WithComponent("config").Error().Err(err).Msg("Failed to decode config, using defaults")
		return Defaults()
	}
	return &cfg
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &cfg
}

// Keys lists every known configuration key in sorted order.
func Keys() []string {
	d := defaults()
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the effective value of key.
func (m *Manager) Lookup(key string) (interface{}, error) {
	key = strings.ToLower(key)
	if _, ok := defaults()[key]; !ok {
		return nil, fmt.Errorf("configuration key not found: %s", key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.Get(key), nil
}

// Set converts value to the type of key and applies it in memory. The
// change is rejected if the resulting configuration does not validate, and
// a filters.* change is also rejected if the filter parameters would not
// build a pipeline. Call Save to persist it.
func (m *Manager) Set(key, value string) error {
	key = strings.ToLower(key)
	def, ok := defaults()[key]
	if !ok {
		return fmt.Errorf("configuration key not found: %s", key)
	}

	converted, err := convert(key, def, value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.v.Get(key)
	m.v.Set(key, converted)
	cfg := m.getLocked()
	err = cfg.Validate()
	if err == nil && strings.HasPrefix(key, "filters.") {
		if perr := cfg.Filters.Params().Validate(); perr != nil {
			err = fmt.Errorf("filters: %w", perr)
		}
	}
	if err != nil {
		m.v.Set(key, prev)
		return err
	}
	return nil
}

func convert(key string, def interface{}, value string) (interface{}, error) {
	var (
		out interface{}
		err error
	)
	switch def.(type) {
	case int:
		out, err = cast.ToIntE(value)
	case float64:
		out, err = cast.ToFloat64E(value)
	case bool:
		out, err = cast.ToBoolE(value)
	default:
		if key == "capture.interval" {
			d, derr := cast.ToDurationE(value)
			out, err = d.String(), derr
		} else {
			out = value
		}
	}
	if err != nil {
		return nil, fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
	return out, nil
}

// BindFlag lets a command-line flag override key when the flag is given.
func (m *Manager) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag to bind to %s", key)
	}
	return m.v.BindPFlag(key, flag)
}

// Save writes the effective configuration to disk as YAML.
func (m *Manager) Save() error {
	m.mu.RLock()
	settings := m.v.AllSettings()
	m.mu.RUnlock()

	log := logger.WithComponent("config")
	log.Debug().
		Str("path", m.configPath).
		Msg("Saving config")

	configDir := filepath.Dir(m.configPath)
	if err := m.fs.MkdirAll(configDir, 0755); err != nil {
		log.Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		log.Error().
			Err(err).
			Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(m.fs, m.configPath, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	log.Info().
		Str("path", m.configPath).
		Msg("Config saved successfully")
	return nil
}

// Watch calls fn with the new configuration each time the file changes on
// disk. Changes that fail validation are logged and skipped.
func (m *Manager) Watch(fn func(*Config)) {
	log := logger.WithComponent("config")
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg := m.Get()
		if err := cfg.Validate(); err != nil {
			log.Warn().Err(err).Str("file", e.Name).Msg("Ignoring invalid config change")
			return
		}
		log.Info().Str("file", e.Name).Str("op", e.Op.String()).Msg("Config reloaded")
		fn(cfg)
	})
	m.v.WatchConfig()
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}

var logLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}

// Validate checks the configuration and joins every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("server_port must be 1-65535, got %d", c.ServerPort))
	}
	if !logLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("invalid log level: %s (use: trace, debug, info, warn, error)", c.LogLevel))
	}

	switch strings.ToLower(c.Capture.Backend) {
	case capture.BackendAuto, capture.BackendCamera, capture.BackendX11, capture.BackendFile:
	default:
		errs = append(errs, fmt.Errorf("unknown capture backend %q", c.Capture.Backend))
	}
	if c.Capture.Rotation%90 != 0 {
		errs = append(errs, fmt.Errorf("capture.rotation must be a multiple of 90, got %d", c.Capture.Rotation))
	}
	if c.Capture.Interval < 0 {
		errs = append(errs, fmt.Errorf("capture.interval must not be negative, got %s", c.Capture.Interval))
	}

	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("output.jpeg_quality must be 1-100, got %d", c.Output.JPEGQuality))
	}
	if c.Output.GalleryLimit < 1 {
		errs = append(errs, fmt.Errorf("output.gallery_limit must be >= 1, got %d", c.Output.GalleryLimit))
	}
	if _, err := overlay.ParsePosition(c.Output.LabelPosition); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
