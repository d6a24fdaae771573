package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/activitytracker/internal/constants"
	"github.com/julianstephens/activitytracker/internal/errors"
	"github.com/julianstephens/activitytracker/internal/storage"
)

// Config represents the complete activitytracker configuration
type Config struct {
	// StoreURI locates the activity store: a JSON file, a SQLite file,
	// a postgres:// URL or "keyring"
	StoreURI string `mapstructure:"store_uri"`
	// Owner is the label written into new stores
	Owner string `mapstructure:"owner"`
	// DefaultDurationMin is the span given to entries without a stop time
	DefaultDurationMin int              `mapstructure:"default_duration_min"`
	Dispatcher         DispatcherConfig `mapstructure:"dispatcher"`
	Log                LogConfig        `mapstructure:"log"`
}

// DispatcherConfig controls the event dispatcher worker
type DispatcherConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LogConfig controls logging
type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

// fileConfig is the on-disk shape written by Save
type fileConfig struct {
	StoreURI           string `yaml:"store_uri"`
	Owner              string `yaml:"owner,omitempty"`
	DefaultDurationMin int    `yaml:"default_duration_min"`
	Dispatcher         struct {
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"dispatcher"`
	Log struct {
		Debug bool `yaml:"debug"`
	} `yaml:"log"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		StoreURI:           constants.DefaultStoreURI,
		DefaultDurationMin: constants.DefaultDurationMin,
		Dispatcher: DispatcherConfig{
			PollInterval: constants.DefaultPollInterval,
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault(constants.SettingStoreURI, defaults.StoreURI)
	v.SetDefault(constants.SettingOwner, defaults.Owner)
	v.SetDefault(constants.SettingDefaultDurationMin, defaults.DefaultDurationMin)
	v.SetDefault(constants.SettingPollInterval, defaults.Dispatcher.PollInterval)
	v.SetDefault(constants.SettingLogDebug, defaults.Log.Debug)
}

// Dir resolves the configuration directory, falling back to the default
func Dir(dir string) string {
	if dir == "" {
		dir = constants.DefaultConfigDir
	}
	return filepath.Clean(storage.ExpandHome(dir))
}

// File returns the path to the config file inside dir
func File(dir string) string {
	return filepath.Join(Dir(dir), constants.ConfigFileName+"."+constants.ConfigFileType)
}

// Load reads config.yaml from dir, applies ACTIVITYTRACKER_* environment
// overrides and validates the result. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName(constants.ConfigFileName)
	v.SetConfigType(constants.ConfigFileType)
	v.AddConfigPath(Dir(dir))

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.DefaultDurationMin <= 0 {
		return errors.InvalidArgument("%s must be positive, got %d", constants.SettingDefaultDurationMin, c.DefaultDurationMin)
	}
	if c.Dispatcher.PollInterval <= 0 {
		return errors.InvalidArgument("%s must be positive, got %s", constants.SettingPollInterval, c.Dispatcher.PollInterval)
	}
	return nil
}

// DefaultDuration returns DefaultDurationMin as a time.Duration
func (c *Config) DefaultDuration() time.Duration {
	return time.Duration(c.DefaultDurationMin) * time.Minute
}

// Save writes cfg to config.yaml in dir, creating the directory if needed
func Save(dir string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var out fileConfig
	out.StoreURI = cfg.StoreURI
	out.Owner = cfg.Owner
	out.DefaultDurationMin = cfg.DefaultDurationMin
	out.Dispatcher.PollInterval = cfg.Dispatcher.PollInterval.String()
	out.Log.Debug = cfg.Log.Debug

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	resolved := Dir(dir)
	if err := os.MkdirAll(resolved, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(File(dir), data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
