// Package config loads stepform settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-stepform/pkg/client"
)

// Environment variables applied after the file is read.
const (
	EnvLoginURL  = "STEPFORM_LOGIN_URL"
	EnvSchemaURL = "STEPFORM_SCHEMA_URL"
	EnvSubmitURL = "STEPFORM_SUBMIT_URL"
	EnvAddr      = "STEPFORM_ADDR"
	EnvLogLevel  = "STEPFORM_LOG_LEVEL"
)

// Sink kinds accepted by SubmissionConfig.Sink.
const (
	SinkRemote = "remote"
	SinkLog    = "log"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds every stepform setting.
type Config struct {
	Endpoints  EndpointsConfig  `yaml:"endpoints"`
	Client     ClientConfig     `yaml:"client"`
	Server     ServerConfig     `yaml:"server"`
	Submission SubmissionConfig `yaml:"submission"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EndpointsConfig points at the login, schema and submission services. The
// schema URL may contain {identifier}.
type EndpointsConfig struct {
	Login  string `yaml:"login"`
	Schema string `yaml:"schema"`
	Submit string `yaml:"submit"`
}

// ClientConfig tunes outbound requests.
type ClientConfig struct {
	Timeout string `yaml:"timeout"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr          string  `yaml:"addr"`
	ShutdownGrace string  `yaml:"shutdown_grace"`
	SessionTTL    string  `yaml:"session_ttl"`
	LoginRate     float64 `yaml:"login_rate"` // logins per second
	LoginBurst    int     `yaml:"login_burst"`
	SecureCookies bool    `yaml:"secure_cookies"`
}

// SubmissionConfig selects where completed forms go.
type SubmissionConfig struct {
	Sink string `yaml:"sink"` // remote, log
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			Login:  "http://localhost:9000/login",
			Schema: "http://localhost:9000/forms/" + client.IdentifierPlaceholder,
			Submit: "http://localhost:9000/submissions",
		},
		Client: ClientConfig{Timeout: "10s"},
		Server: ServerConfig{
			Addr:          ":8080",
			ShutdownGrace: "5s",
			SessionTTL:    "2h",
			LoginRate:     1,
			LoginBurst:    5,
		},
		Submission: SubmissionConfig{Sink: SinkRemote},
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) {
	set := func(key string, target *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}
	set(EnvLoginURL, &c.Endpoints.Login)
	set(EnvSchemaURL, &c.Endpoints.Schema)
	set(EnvSubmitURL, &c.Endpoints.Submit)
	set(EnvAddr, &c.Server.Addr)
	set(EnvLogLevel, &c.Logging.Level)
}

// ClientEndpoints converts the endpoint settings for pkg/client.
func (c *Config) ClientEndpoints() client.Endpoints {
	return client.Endpoints{
		Login:  c.Endpoints.Login,
		Schema: c.Endpoints.Schema,
		Submit: c.Endpoints.Submit,
	}
}

// ClientTimeout returns the outbound request timeout.
func (c *Config) ClientTimeout() time.Duration {
	return duration(c.Client.Timeout, 10*time.Second)
}

// ShutdownGrace returns how long the server waits for in-flight requests.
func (c *Config) ShutdownGrace() time.Duration {
	return duration(c.Server.ShutdownGrace, 5*time.Second)
}

// SessionTTL returns how long an idle browser session is kept.
func (c *Config) SessionTTL() time.Duration {
	return duration(c.Server.SessionTTL, 2*time.Hour)
}

func duration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate reports every problem found, joined into one error wrapping
// ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []error

	for name, raw := range map[string]string{
		"endpoints.login":  c.Endpoints.Login,
		"endpoints.submit": c.Endpoints.Submit,
		"endpoints.schema": strings.ReplaceAll(c.Endpoints.Schema, client.IdentifierPlaceholder, "id"),
	} {
		if err := checkURL(raw); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", name, err))
		}
	}

	for name, raw := range map[string]string{
		"client.timeout":        c.Client.Timeout,
		"server.shutdown_grace": c.Server.ShutdownGrace,
		"server.session_ttl":    c.Server.SessionTTL,
	} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			problems = append(problems, fmt.Errorf("%s: %q is not a positive duration", name, raw))
		}
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		problems = append(problems, errors.New("server.addr: must not be empty"))
	}
	if c.Server.LoginRate <= 0 || c.Server.LoginBurst <= 0 {
		problems = append(problems, errors.New("server.login_rate and server.login_burst must be positive"))
	}

	switch c.Submission.Sink {
	case SinkRemote, SinkLog:
	default:
		problems = append(problems, fmt.Errorf("submission.sink: unknown sink %q", c.Submission.Sink))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
}

func checkURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
