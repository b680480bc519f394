// Package server provides configuration helpers that define runtime defaults
// and validation for the hubcast service.
package server

import (
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds the server configuration settings.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	MaxMessageSize int64
	SendTimeout    time.Duration
}

// Addr returns the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Host: "localhost",
		Port: 8765,
		AllowedOrigins: []string{
			"http://localhost:8765",
		},
		MaxMessageSize: 4096,
		SendTimeout:    5 * time.Second,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = 8765
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}

	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to
// defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		AllowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
		MaxMessageSize: cfg.MaxMessageSize,
		SendTimeout:    cfg.SendTimeout,
	}
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables,
// falling back to default values for anything unset.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Host = host
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = parseIntValue(port, cfg.Port)
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if timeout := os.Getenv("SEND_TIMEOUT"); timeout != "" {
		cfg.SendTimeout = parseSendTimeout(timeout, cfg.SendTimeout)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSendTimeout(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
