// Package config handles configuration for the server component: defaults,
// then a JSON file, then the environment (and .env), then command-line flags.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/server/persist"
)

// Config holds runtime settings for the gatekeeper server.
type Config struct {
	HTTPAddr string
	GRPCAddr string

	AuthType        string
	SessionName     string
	SessionDuration time.Duration
	ExcludedPaths   []string
	SecureCookies   bool
	PurgeInterval   time.Duration

	TokenSecret   string
	TokenValidity time.Duration

	Storage persist.Settings

	MetricsEnabled bool
	LogLevel       string
}

// LoadDefaults populates Config with development defaults.
// NOTE: TokenSecret must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = "0.0.0.0:5000"
	c.GRPCAddr = ":50051"
	c.AuthType = ""
	c.SessionName = "_my_session_id"
	c.SessionDuration = 0
	c.ExcludedPaths = nil
	c.SecureCookies = false
	c.PurgeInterval = time.Minute
	c.TokenSecret = "secretKey"
	c.TokenValidity = 15 * time.Minute
	c.Storage = persist.Settings{Backend: persist.BackendFile, DataDir: "."}
	c.MetricsEnabled = true
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, the optional JSON file, the
// environment and args (usually os.Args[1:]), in that order of precedence.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg, os.Getenv("DOTENV_PATH")); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}

// joinHostPort keeps the parts of addr that host or port leave empty.
func joinHostPort(addr string, host, port *string) string {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		h, p = addr, ""
	}
	if host != nil {
		h = *host
	}
	if port != nil {
		p = *port
	}
	return net.JoinHostPort(h, p)
}
