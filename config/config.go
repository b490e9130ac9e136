// Package config loads server configuration with viper: defaults, then an
// optional YAML file, then LEDGER_* environment variables.
//
//	LEDGER_HTTP_PORT        8080
//	LEDGER_DB_PATH          ./data/ledger.db
//	LEDGER_LOG_LEVEL        info
//	LEDGER_LOG_DEV          false
//	LEDGER_REMOTE_URL       (empty: local only)
//	LEDGER_REMOTE_TIMEOUT   10s
//	LEDGER_CORS_ORIGINS     *
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP   HTTPConfig
	DB     DBConfig
	Log    LogConfig
	Remote RemoteConfig
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DBConfig struct {
	Path string
}

type LogConfig struct {
	Level       string
	Development bool
}

// RemoteConfig points at the authoritative backend. An empty URL runs the
// ledger local-only.
type RemoteConfig struct {
	URL     string
	Timeout time.Duration
}

func (c RemoteConfig) Enabled() bool { return c.URL != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("cors.origins", "*")
	v.SetDefault("db.path", "./data/ledger.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.timeout", "10s")
}

// Load reads the configuration. When path is empty, ledger.yaml is looked
// up in the working directory and ./config, and may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("ledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// LEDGER_HTTP_PORT -> http.port
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		HTTP: HTTPConfig{
			Host:        v.GetString("http.host"),
			Port:        v.GetInt("http.port"),
			CORSOrigins: splitList(v.GetString("cors.origins")),
		},
		DB: DBConfig{
			Path: v.GetString("db.path"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.dev"),
		},
		Remote: RemoteConfig{
			URL:     strings.TrimSpace(v.GetString("remote.url")),
			Timeout: v.GetDuration("remote.timeout"),
		},
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return nil, fmt.Errorf("invalid http port %d", cfg.HTTP.Port)
	}
	return cfg, nil
}

// splitList accepts comma or whitespace separated values.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil
	}
	return fields
}
