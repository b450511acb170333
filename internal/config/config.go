// Package config loads pydeas settings from a YAML file, PYDEAS_* environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	dberrors "github.com/Bilodev/Pydeas/internal/errors"
	"github.com/Bilodev/Pydeas/internal/relation"
	"github.com/Bilodev/Pydeas/internal/render"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the base name of the configuration file, without extension.
const FileName = "pydeas"

// EnvPrefix prefixes every environment variable, as in PYDEAS_DATA_DIR.
const EnvPrefix = "PYDEAS"

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds every setting.
type Config struct {
	DataDir  string    `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel string    `mapstructure:"log_level" yaml:"log_level"`
	Lenient  bool      `mapstructure:"lenient" yaml:"lenient"`
	InPlace  bool      `mapstructure:"in_place" yaml:"in_place"`
	Format   string    `mapstructure:"format" yaml:"format"`
	Color    string    `mapstructure:"color" yaml:"color"`
	Git      GitConfig `mapstructure:"git" yaml:"git"`
}

// GitConfig controls the change history.
type GitConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Name    string `mapstructure:"name" yaml:"name"`
	Email   string `mapstructure:"email" yaml:"email"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataDir:  ".",
		LogLevel: "info",
		Format:   string(render.FormatTable),
		Color:    ColorAuto,
		Git: GitConfig{
			Name:  "pydeas",
			Email: "pydeas@localhost",
		},
	}
}

// New returns a viper instance carrying the defaults and reading PYDEAS_*
// environment variables. Nested keys use an underscore, as in PYDEAS_GIT_ENABLED.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("lenient", d.Lenient)
	v.SetDefault("in_place", d.InPlace)
	v.SetDefault("format", d.Format)
	v.SetDefault("color", d.Color)
	v.SetDefault("git.enabled", d.Git.Enabled)
	v.SetDefault("git.name", d.Git.Name)
	v.SetDefault("git.email", d.Git.Email)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file into v and returns the merged, validated
// settings. An explicit path must exist; otherwise pydeas.yaml is looked up in
// the working directory then in the user configuration directory, and its
// absence is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, FileName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, dberrors.New(dberrors.CodeInvalidConfig, "failed to read configuration").Wrap(err)
		}
	} else {
		slog.Debug("Loaded configuration", "file", v.ConfigFileUsed())
	}
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, dberrors.New(dberrors.CodeInvalidConfig, "failed to decode configuration").Wrap(err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every setting holds an accepted value.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return dberrors.New(dberrors.CodeInvalidConfig, "data_dir is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := render.ParseFormat(c.Format); err != nil {
		return err
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return dberrors.Newf(dberrors.CodeInvalidConfig, "invalid color %q, want auto, always or never", c.Color)
	}
	if c.Git.Enabled && (c.Git.Name == "" || c.Git.Email == "") {
		return dberrors.New(dberrors.CodeInvalidConfig, "git.name and git.email are required when git is enabled")
	}
	return nil
}

// Options returns the relation options matching the settings.
func (c *Config) Options() relation.Options {
	return relation.Options{Lenient: c.Lenient, InPlace: c.InPlace}
}

// UseColor resolves the color mode for an output that is or is not a terminal.
func (c *Config) UseColor(terminal bool) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return terminal
	}
}

// Save writes the settings as YAML to path, refusing to overwrite.
func (c *Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return dberrors.AlreadyExists(path).Wrap(err)
		}
		return dberrors.IO("failed to create "+path, err)
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return dberrors.IO("failed to write "+path, err)
	}
	if err := f.Close(); err != nil {
		return dberrors.IO("failed to close "+path, err)
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, dberrors.Newf(dberrors.CodeInvalidConfig, "invalid log level %q", s).Wrap(err)
	}
	return l, nil
}
