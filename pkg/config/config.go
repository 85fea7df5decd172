package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration: yaml file first, THREADDB_* env
// overrides second, explicit flags last.
type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		TLS     struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	// Identity names the local peer so the record layer can recognize the
	// note-to-self conversation.
	Identity struct {
		LocalID string `yaml:"local_id"`
	} `yaml:"identity"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`
	Security struct {
		CORS struct {
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"cors"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
		IPWhitelist []string `yaml:"ip_whitelist"`
		APIKeys     struct {
			Keys []string `yaml:"keys"`
			// AllowUnauth opens the API without keys, for local development
			// and tests only.
			AllowUnauth bool `yaml:"allow_unauth"`
		} `yaml:"api_keys"`
	} `yaml:"security"`
	// Handshake tunes the friend-request lifecycle.
	Handshake struct {
		// RequestTTL is how long a sent request waits for a response before
		// the expiry sweep times it out.
		RequestTTL Duration `yaml:"request_ttl"`
	} `yaml:"handshake"`
	// Expiry configures the scheduled sweeps (handshake timeouts and
	// disappearing messages).
	Expiry struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"expiry"`
	Limits struct {
		MaxBodyLen int `yaml:"max_body_len"`
		MaxNameLen int `yaml:"max_name_len"`
		MaxMembers int `yaml:"max_members"`
	} `yaml:"limits"`
}

// DefaultRequestTTL applies when handshake.request_ttl is unset: three days,
// after which an unanswered request expires and the user may retry.
const DefaultRequestTTL = 72 * time.Hour

// Duration is a yaml duration field accepting Go duration strings ("72h",
// "15m") or bare numbers of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		if s == "" {
			*d = 0
			return nil
		}
		dur, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(dur)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// RequestTTL returns the configured handshake timeout, defaulted when unset.
func (c *Config) RequestTTL() time.Duration {
	if c.Handshake.RequestTTL <= 0 {
		return DefaultRequestTTL
	}
	return c.Handshake.RequestTTL.Std()
}

// APIKeySet returns the configured API keys as a set.
func (c *Config) APIKeySet() map[string]struct{} {
	out := map[string]struct{}{}
	for _, k := range c.Security.APIKeys.Keys {
		if k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

// Load reads a yaml config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEffective loads the config file at path (a missing file yields the
// zero config) and applies environment overrides on top. The boolean reports
// whether any THREADDB_* variable was consulted.
func LoadEffective(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
	}
	envUsed := LoadEnvOverrides(cfg)
	return cfg, envUsed, nil
}
