// Package config holds the localhtml CLI configuration, read by viper from
// localhtml.yaml and LOCALHTML_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. LOCALHTML_STORE_PATH.
const EnvPrefix = "LOCALHTML"

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "localhtml.yaml"

// Config holds all CLI options.
type Config struct {
	Document  DocumentConfig  `mapstructure:"document"`
	Migration MigrationConfig `mapstructure:"migration"`
	Store     StoreConfig     `mapstructure:"store"`
	Log       LogConfig       `mapstructure:"log"`
}

// DocumentConfig shapes the engine built for a document.
type DocumentConfig struct {
	// NameField is the form field whose value names saved documents.
	NameField       string   `mapstructure:"name_field"`
	InfoURL         string   `mapstructure:"info_url"`
	DisabledWidgets []string `mapstructure:"disabled_widgets"`
	// IDs picks how new page and widget identifiers are generated.
	IDs string `mapstructure:"ids"`
}

// Identifier styles accepted by document.ids.
const (
	IDsRandom = "random"
	IDsUUID   = "uuid"
)

// MigrationConfig selects how older snapshots are upgraded. Rules and Script
// are mutually exclusive.
type MigrationConfig struct {
	Rules         string        `mapstructure:"rules"`
	Script        string        `mapstructure:"script"`
	ScriptTimeout time.Duration `mapstructure:"script_timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// StoreConfig enables revision history. An empty path disables it.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig controls CLI logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Document: DocumentConfig{IDs: IDsRandom},
		Migration: MigrationConfig{
			ScriptTimeout: 5 * time.Second,
			CacheTTL:      10 * time.Minute,
		},
		Log: LogConfig{Level: "warn", Format: "text"},
	}
}

// SetDefaults registers Defaults with v so environment variables bind to
// every key.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("document.name_field", d.Document.NameField)
	v.SetDefault("document.info_url", d.Document.InfoURL)
	v.SetDefault("document.disabled_widgets", d.Document.DisabledWidgets)
	v.SetDefault("document.ids", d.Document.IDs)
	v.SetDefault("migration.rules", d.Migration.Rules)
	v.SetDefault("migration.script", d.Migration.Script)
	v.SetDefault("migration.script_timeout", d.Migration.ScriptTimeout)
	v.SetDefault("migration.cache_ttl", d.Migration.CacheTTL)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads path, or DefaultFile when path is empty and the file exists,
// applies environment overrides and validates the result.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case path != "":
		v.SetConfigFile(path)
	default:
		if _, err := os.Stat(DefaultFile); err == nil {
			v.SetConfigFile(DefaultFile)
		}
	}
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	idStyles   = []string{IDsRandom, IDsUUID}
)

// Validate reports every invalid option.
func (c Config) Validate() error {
	var errs []error
	if c.Migration.Rules != "" && c.Migration.Script != "" {
		errs = append(errs, fmt.Errorf("config: migration.rules and migration.script are mutually exclusive"))
	}
	if !slices.Contains(idStyles, strings.ToLower(c.Document.IDs)) {
		errs = append(errs, fmt.Errorf("config: document.ids %q must be one of %s", c.Document.IDs, strings.Join(idStyles, ", ")))
	}
	if c.Migration.ScriptTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: migration.script_timeout must not be negative"))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("config: log.level %q must be one of %s", c.Log.Level, strings.Join(logLevels, ", ")))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("config: log.format %q must be one of %s", c.Log.Format, strings.Join(logFormats, ", ")))
	}
	return errors.Join(errs...)
}

// SlogLevel maps Log.Level to a slog level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
