package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the zforged daemon configuration. Values come from an optional
// YAML file, overridden by ZFORGE_* environment variables; a .env file in the
// working directory is folded into the environment first.
type Config struct {
	Bind           string
	CORSOrigin     string
	LogLevel       zerolog.Level
	MetricsEnabled bool
	RediscoverCron string
	BuildSpecPath  string
	WorkspaceDir   string
}

type fileConfig struct {
	HTTP struct {
		Bind string `yaml:"bind"`
	} `yaml:"http"`
	CORS struct {
		Origin string `yaml:"origin"`
	} `yaml:"cors"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Discovery struct {
		Rediscover string `yaml:"rediscover"`
	} `yaml:"discovery"`
	Build struct {
		Spec      string `yaml:"spec"`
		Workspace string `yaml:"workspace"`
	} `yaml:"build"`
}

// Load reads path (missing file is fine) and applies env overrides.
func Load(path string) Config {
	_ = godotenv.Load()

	cfg := Config{
		Bind:           "127.0.0.1:8672",
		LogLevel:       zerolog.InfoLevel,
		MetricsEnabled: true,
		RediscoverCron: "@every 15m",
		BuildSpecPath:  "build_spec.yml",
		WorkspaceDir:   "/var/lib/zforge",
	}

	if raw, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if yaml.Unmarshal(raw, &fc) == nil {
			if fc.HTTP.Bind != "" {
				cfg.Bind = fc.HTTP.Bind
			}
			if fc.CORS.Origin != "" {
				cfg.CORSOrigin = fc.CORS.Origin
			}
			if fc.Logging.Level != "" {
				if l, err := zerolog.ParseLevel(fc.Logging.Level); err == nil {
					cfg.LogLevel = l
				}
			}
			if fc.Metrics.Enabled != nil {
				cfg.MetricsEnabled = *fc.Metrics.Enabled
			}
			if fc.Discovery.Rediscover != "" {
				cfg.RediscoverCron = fc.Discovery.Rediscover
			}
			if fc.Build.Spec != "" {
				cfg.BuildSpecPath = fc.Build.Spec
			}
			if fc.Build.Workspace != "" {
				cfg.WorkspaceDir = fc.Build.Workspace
			}
		}
	}

	if v := os.Getenv("ZFORGE_HTTP_BIND"); v != "" {
		cfg.Bind = v
	}
	if v := os.Getenv("ZFORGE_CORS_ORIGIN"); v != "" {
		cfg.CORSOrigin = v
	}
	if v := os.Getenv("ZFORGE_LOG"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			cfg.LogLevel = l
		}
	}
	if v := os.Getenv("ZFORGE_METRICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MetricsEnabled = b
		}
	}
	if v := os.Getenv("ZFORGE_REDISCOVER"); v != "" {
		cfg.RediscoverCron = v
	}
	if v := os.Getenv("ZFORGE_BUILD_SPEC"); v != "" {
		cfg.BuildSpecPath = v
	}
	if v := os.Getenv("ZFORGE_WORKSPACE"); v != "" {
		cfg.WorkspaceDir = v
	}
	return cfg
}
