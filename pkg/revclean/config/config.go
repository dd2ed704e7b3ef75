package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/jamesainslie/revclean/pkg/revclean/types"
	"github.com/spf13/viper"
)

// KeepConfig selects which manifest-derived paths survive a cleanup.
type KeepConfig struct {
	Original   bool `mapstructure:"original"`
	Renamed    bool `mapstructure:"renamed"`
	SourceMaps bool `mapstructure:"sourcemaps"`
	Manifest   bool `mapstructure:"manifest"`
}

// JournalConfig configures the run history.
type JournalConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Config represents the application configuration.
type Config struct {
	Manifest string              `mapstructure:"manifest"`
	Keep     KeepConfig          `mapstructure:"keep"`
	Emit     bool                `mapstructure:"emit"`
	Delete   types.DeleteOptions `mapstructure:"delete"`
	Exclude  []string            `mapstructure:"exclude"`
	Journal  JournalConfig       `mapstructure:"journal"`
	Logging  LoggingConfig       `mapstructure:"logging"`
}

// Options converts the configuration into filter options.
func (c *Config) Options() types.Options {
	return types.Options{
		KeepOriginalFiles:  c.Keep.Original,
		KeepRenamedFiles:   c.Keep.Renamed,
		KeepSourceMapFiles: c.Keep.SourceMaps,
		KeepManifestFile:   c.Keep.Manifest,
		EmitChunks:         c.Emit,
		Delete:             c.Delete,
	}
}

// Retention returns the journal retention as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Journal.RetentionDays) * 24 * time.Hour
}

// New returns a viper instance with search paths, environment binding and
// defaults applied, and the config file read. cfgFile overrides the search;
// a missing file in the search paths is not an error.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "revclean"))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "revclean"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals v into a Config and expands ~ in path settings.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.Journal.Path, err = ExpandPath(cfg.Journal.Path); err != nil {
		return nil, err
	}
	if cfg.Logging.Path, err = ExpandPath(cfg.Logging.Path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads the configuration. See New for the lookup rules.
func Load(cfgFile string) (*Config, error) {
	v, err := New(cfgFile)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// ConfigDir returns the configuration directory:
// $XDG_CONFIG_HOME/revclean or ~/.config/revclean.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "revclean"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "revclean"), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns $XDG_DATA_HOME/revclean.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "revclean")
}

// DefaultJournalPath returns the default journal database directory.
func DefaultJournalPath() string {
	return filepath.Join(DataDir(), "journal")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a commented default config file and returns its path.
// An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	opts := types.DefaultOptions()
	content := fmt.Sprintf(`# revclean configuration

# Manifest file, relative to the cleaned directory unless absolute
manifest: %s

# Paths kept by the allow-list
keep:
  original: %t
  renamed: %t
  sourcemaps: %t
  manifest: %t

# Print surviving paths to stdout
emit: %t

# Deletion behaviour
delete:
  dry_run: false
  # Allow deleting outside the working directory
  force: false
  # Move to the system trash instead of unlinking
  trash: false
  # Remove directories left empty, up to the cleaned directory
  prune_empty_dirs: false

# Glob patterns (relative to the cleaned directory) never touched
exclude: []

# Run history
journal:
  enabled: true
  path: %s
  retention_days: %d

logging:
  # debug, info, warn, error
  level: %s
  # Empty means $XDG_STATE_HOME/revclean/revclean.log
  path: ""
  # Rotate the log file at this size and keep this many old copies
  max_size_mb: %d
  max_backups: %d
`, DefaultManifest,
		opts.KeepOriginalFiles, opts.KeepRenamedFiles, opts.KeepSourceMapFiles, opts.KeepManifestFile,
		opts.EmitChunks, DefaultJournalPath(), DefaultRetentionDays, DefaultLogLevel,
		DefaultLogMaxSizeMB, DefaultLogMaxBackups)

	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return configPath, nil
}
