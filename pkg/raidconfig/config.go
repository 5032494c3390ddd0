// Package raidconfig loads cmd/raid-cli's connection settings — not the
// raid.Client library itself, which takes no configuration files per
// spec.md §6 — the way the teacher's pkg/config loads dittofs.yaml:
// viper + mapstructure decode hooks, go-playground/validator
// validation, yaml.v3 for writing a starter file, precedence CLI flags
// > DITTOFS_*-style env vars > file > defaults.
package raidconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is cmd/raid-cli's connection + logging configuration.
type Config struct {
	Host string `mapstructure:"host" validate:"required" yaml:"host"`
	Port string `mapstructure:"port" validate:"required" yaml:"port"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0" yaml:"connect_timeout"`
	RecvTimeout    time.Duration `mapstructure:"recv_timeout" validate:"gt=0" yaml:"recv_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0" yaml:"request_timeout"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LoggingConfig controls internal/raidlog.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
}

// DefaultConfig mirrors the teacher's GetDefaultConfig: every field
// populated so a fresh install works without a config file.
func DefaultConfig() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           "9999",
		ConnectTimeout: 10 * time.Second,
		RecvTimeout:    time.Second,
		RequestTimeout: 10 * time.Second,
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// Load reads configPath (if non-empty) plus RAID_* environment
// variables; any key set by neither keeps its DefaultConfig value.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	d := DefaultConfig()
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("connect_timeout", d.ConnectTimeout)
	v.SetDefault("recv_timeout", d.RecvTimeout)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	_, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("raidconfig: unmarshal: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("raidconfig: validate: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, the same shape as the teacher's
// SaveConfig.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("raidconfig: mkdir: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("raidconfig: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

var validatorInstance = validator.New()

// Validate checks cfg against its `validate` struct tags.
func Validate(cfg *Config) error {
	return validatorInstance.Struct(cfg)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("RAID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(".")
	v.SetConfigName("raid")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("raidconfig: read config file: %w", err)
	}
	return true, nil
}
