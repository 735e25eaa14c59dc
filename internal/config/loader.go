// Package config provides configuration loading, defaults, and validation for
// the MinRisk engine processes.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all engine settings.
const envPrefix = "MINRISK"

// newViper builds a Viper instance with YAML input, MINRISK_ env overrides and
// a "." to "_" key replacer, so "database.host" resolves to MINRISK_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetDefault("engine.confidence_threshold", DefaultConfidenceThreshold)
	v.SetDefault("tracing.sample_ratio", 1.0)
	bindEnvKeys(v)
	return v
}

// bindEnvKeys registers the keys that have no file default so that
// AutomaticEnv can populate them during Unmarshal.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.mode",
		"database.driver", "database.host", "database.port", "database.user", "database.password", "database.db_name", "database.ssl_mode",
		"redis.addr", "redis.password", "redis.db",
		"kafka.brokers", "kafka.group_id", "kafka.enabled",
		"minio.enabled", "minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket",
		"classifier.base_url", "classifier.api_key",
		"engine.matrix_size", "engine.residual_formula",
		"log.level", "log.format",
		"tracing.enabled", "tracing.exporter", "tracing.sample_ratio",
	} {
		_ = v.BindEnv(key)
	}
}

// Load reads the YAML file at configPath, merges MINRISK_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromFile is an alias of Load kept for the CLI's search-path logic.
func LoadFromFile(configPath string) (*Config, error) {
	return Load(configPath)
}

// LoadFromEnv builds a Config from MINRISK_* environment variables only.
//
//	MINRISK_<SECTION>_<FIELD>   e.g.  MINRISK_DATABASE_HOST, MINRISK_ENGINE_MATRIX_SIZE
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch reloads configPath on change and hands the new Config to onChange.
// Invalid edits are reported through onError and otherwise ignored, so a
// running process never switches to a broken configuration. Callers should
// only apply the hot-reloadable subset (log level, confidence threshold).
func Watch(configPath string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad panics on any load error. For main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
