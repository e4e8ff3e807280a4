// Package config loads the bookstore service configuration from defaults,
// an optional YAML file, an optional .env file and BOOKSTORE_* environment
// variables, in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix = "BOOKSTORE_"

	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	minSecretLen = 32
)

type Config struct {
	HTTP struct {
		Addr              string        `koanf:"addr"`
		ReadHeaderTimeout time.Duration `koanf:"readheadertimeout"`
		ShutdownTimeout   time.Duration `koanf:"shutdowntimeout"`

		// TrustProxy keys the login rate limit on X-Forwarded-For.
		TrustProxy bool `koanf:"trustproxy"`
	} `koanf:"http"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`

	Store struct {
		Driver string `koanf:"driver"`
		DSN    string `koanf:"dsn"`
	} `koanf:"store"`

	Sales struct {
		StrictStock bool `koanf:"strictstock"`
	} `koanf:"sales"`

	Seed struct {
		Demo bool `koanf:"demo"`
	} `koanf:"seed"`

	Auth struct {
		Enabled      bool          `koanf:"enabled"`
		JWTSecret    string        `koanf:"jwtsecret"`
		StaffUser    string        `koanf:"staffuser"`
		PasswordHash string        `koanf:"passwordhash"`
		TokenTTL     time.Duration `koanf:"tokenttl"`
		LoginLimit   int           `koanf:"loginlimit"`
		LoginWindow  time.Duration `koanf:"loginwindow"`
	} `koanf:"auth"`

	Metrics struct {
		Enabled bool   `koanf:"enabled"`
		Token   string `koanf:"token"`
	} `koanf:"metrics"`
}

func defaults() map[string]any {
	return map[string]any{
		"http.addr":              ":8080",
		"http.readheadertimeout": "5s",
		"http.shutdowntimeout":   "10s",
		"http.trustproxy":        false,
		"log.level":              "info",
		"store.driver":           DriverMemory,
		"sales.strictstock":      false,
		"seed.demo":              false,
		"auth.enabled":           false,
		"auth.staffuser":         "staff",
		"auth.tokenttl":          "15m",
		"auth.loginlimit":        5,
		"auth.loginwindow":       "1m",
		"metrics.enabled":        true,
	}
}

// Load reads configuration. path names an optional YAML file and envFile an
// optional dotenv file; missing files are skipped.
func Load(path, envFile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		m := make(map[string]any, len(vars))
		for key, v := range vars {
			if strings.HasPrefix(key, EnvPrefix) {
				m[keyTransformer(key)] = v
			}
		}
		if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", keyTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("invalid http.readheadertimeout: %v", c.HTTP.ReadHeaderTimeout)
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid http.shutdowntimeout: %v", c.HTTP.ShutdownTimeout)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if !strings.HasPrefix(c.Store.DSN, "postgres://") && !strings.HasPrefix(c.Store.DSN, "postgresql://") {
			return fmt.Errorf("store.dsn must be a postgres:// url, got %s", maskDSN(c.Store.DSN))
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	if c.Auth.Enabled {
		if len(c.Auth.JWTSecret) < minSecretLen {
			return fmt.Errorf("auth.jwtsecret must be at least %d chars", minSecretLen)
		}
		if c.Auth.PasswordHash == "" {
			return errors.New("auth.passwordhash is required when auth is enabled")
		}
		if c.Auth.TokenTTL <= 0 {
			return fmt.Errorf("invalid auth.tokenttl: %v", c.Auth.TokenTTL)
		}
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("http.addr=%s, log.level=%s, store.driver=%s, store.dsn=%s, sales.strictstock=%t, auth.enabled=%t, metrics.enabled=%t",
		c.HTTP.Addr,
		c.Log.Level,
		c.Store.Driver,
		maskDSN(c.Store.DSN),
		c.Sales.StrictStock,
		c.Auth.Enabled,
		c.Metrics.Enabled,
	)
}

func maskDSN(dsn string) string {
	if dsn == "" {
		return "<not configured>"
	}
	if _, host, ok := strings.Cut(dsn, "@"); ok {
		return "****@" + host
	}
	return "****"
}

// keyTransformer maps BOOKSTORE_HTTP_ADDR to http.addr. Keys are lower
// case throughout so every source lands on the same koanf path.
func keyTransformer(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "_", ".")
}
