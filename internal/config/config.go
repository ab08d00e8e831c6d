// Package config loads leaf-api settings from an optional YAML file,
// LEAF_API_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "LEAF_API"

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

type ModelConfig struct {
	Path         string        `mapstructure:"path"`
	URL          string        `mapstructure:"url"`
	Labels       string        `mapstructure:"labels"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type ONNXConfig struct {
	LibraryPath string `mapstructure:"library_path"`
	Threads     int    `mapstructure:"threads"`
}

type ReportConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Model  ModelConfig  `mapstructure:"model"`
	ONNX   ONNXConfig   `mapstructure:"onnx"`
	Report ReportConfig `mapstructure:"report"`
	Log    LogConfig    `mapstructure:"log"`
}

// SetDefaults registers every known key so that environment variables are
// picked up by Unmarshal even when no config file exists.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(10<<20))

	v.SetDefault("model.path", "models/plant_disease_model.onnx")
	v.SetDefault("model.url", "")
	v.SetDefault("model.labels", "models/class_indices.json")
	v.SetDefault("model.fetch_timeout", 5*time.Minute)

	v.SetDefault("onnx.library_path", "")
	v.SetDefault("onnx.threads", 0)

	v.SetDefault("report.threshold", 0.8)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads the config file (explicit path, or leaf-api.yaml in the given
// search dirs) into v. A missing default file is not an error.
func Load(v *viper.Viper, file string, searchDirs ...string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("leaf-api")
		v.SetConfigType("yaml")
		for _, dir := range searchDirs {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Model.Path == "" {
		return errors.New("model.path must be set")
	}
	if c.Model.Labels == "" {
		return errors.New("model.labels must be set")
	}
	if c.Report.Threshold < 0 || c.Report.Threshold > 1 {
		return fmt.Errorf("report.threshold must be within [0,1], got %v", c.Report.Threshold)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	return nil
}
