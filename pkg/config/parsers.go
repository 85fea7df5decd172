package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ParseCommandFlags defines and parses the command-line flags shared by the
// daemon binaries and reports which were explicitly set (explicit flags win
// over file and env values).
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.threaddb", "data directory")
	cfgPtr := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *cfgPtr, setFlags
}

// ResolveConfigPath decides the config file path: an explicit -config flag
// wins, then THREADDB_CONFIG, then the flag default.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("THREADDB_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

func parseList(v string) []string {
	if v == "" {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// LoadEnvOverrides applies THREADDB_* environment overrides onto cfg and
// reports whether any were present.
func LoadEnvOverrides(cfg *Config) bool {
	envUsed := false

	if v := os.Getenv("THREADDB_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("THREADDB_ADDRESS"); host != "" {
			envUsed = true
			cfg.Server.Address = host
		}
		if port := os.Getenv("THREADDB_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = pi
			}
		}
	}

	if v := os.Getenv("THREADDB_DB_PATH"); v != "" {
		envUsed = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("THREADDB_LOCAL_ID"); v != "" {
		envUsed = true
		cfg.Identity.LocalID = v
	}
	if v := os.Getenv("THREADDB_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = v
	}
	if v := os.Getenv("THREADDB_LOG_FORMAT"); v != "" {
		envUsed = true
		cfg.Logging.Format = v
	}
	if v := os.Getenv("THREADDB_CORS_ORIGINS"); v != "" {
		envUsed = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("THREADDB_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("THREADDB_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("THREADDB_IP_WHITELIST"); v != "" {
		envUsed = true
		cfg.Security.IPWhitelist = parseList(v)
	}
	if v := os.Getenv("THREADDB_API_KEYS"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.Keys = parseList(v)
	}
	if v := os.Getenv("THREADDB_API_ALLOW_UNAUTH"); v != "" {
		envUsed = true
		cfg.Security.APIKeys.AllowUnauth = parseBool(v)
	}
	if v := os.Getenv("THREADDB_REQUEST_TTL"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Handshake.RequestTTL = Duration(d)
		}
	}
	if v := os.Getenv("THREADDB_EXPIRY_ENABLED"); v != "" {
		envUsed = true
		cfg.Expiry.Enabled = parseBool(v)
	}
	if v := os.Getenv("THREADDB_EXPIRY_CRON"); v != "" {
		envUsed = true
		cfg.Expiry.Cron = v
	}
	if c := os.Getenv("THREADDB_TLS_CERT"); c != "" {
		envUsed = true
		cfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("THREADDB_TLS_KEY"); k != "" {
		envUsed = true
		cfg.Server.TLS.KeyFile = k
	}

	return envUsed
}
