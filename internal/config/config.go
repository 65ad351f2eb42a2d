// Package config loads builder settings from defaults, an optional
// pagebuilder.{yaml,json,toml} file and PAGEBUILDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PAGEBUILDER_SERVER_ADDR.
const EnvPrefix = "PAGEBUILDER"

// Config is the complete builder configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Export    ExportConfig    `mapstructure:"export"`
	Templates TemplatesConfig `mapstructure:"templates"`
}

// StorageConfig selects and locates the page store.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"` // json, sqlite or mongo
	Path          string `mapstructure:"path"`    // Directory for json and sqlite
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	CSRF           bool     `mapstructure:"csrf"`
	AllowedOrigins []string `mapstructure:"allowed_origins"` // Websocket origins; empty allows same host only
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type ExportConfig struct {
	Dir       string `mapstructure:"dir"`
	AssetsDir string `mapstructure:"assets_dir"`
}

// TemplatesConfig points at an optional directory overriding the page skeleton.
type TemplatesConfig struct {
	Dir string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "json")
	v.SetDefault("storage.path", ".pagebuilder")
	v.SetDefault("storage.mongo_uri", "")
	v.SetDefault("storage.mongo_database", "pagebuilder")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.csrf", false)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("export.dir", "dist")
	v.SetDefault("export.assets_dir", "")
	v.SetDefault("templates.dir", "")
}

// Load reads the configuration. With an empty file, pagebuilder.* is looked
// up in the working directory and its absence is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("pagebuilder")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
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

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case "json", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return errors.New("storage.mongo_uri is required for the mongo backend")
		}
		if c.Storage.MongoDatabase == "" {
			return errors.New("storage.mongo_database is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q (want json, sqlite or mongo)", c.Storage.Backend)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	return nil
}
