package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/falkordb/falkordb-mcp/core/logger"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	FalkorDB  FalkorDBConfig  `yaml:"falkordb"`
	CORS      CORSConfig      `yaml:"cors"`
	Stream    StreamConfig    `yaml:"stream"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port           int           `yaml:"port" validate:"min=1,max=65535"`
	Environment    string        `yaml:"environment" validate:"oneof=development production test"`
	BaseURL        string        `yaml:"baseUrl"`
	RequestTimeout time.Duration `yaml:"requestTimeout" validate:"min=0"`
	MaxBodyBytes   int64         `yaml:"maxBodyBytes" validate:"min=0"`
	// TrustProxy takes the client address from forwarding headers.
	TrustProxy bool `yaml:"trustProxy"`
}

type AuthConfig struct {
	APIKey string `yaml:"apiKey"`
}

type FalkorDBConfig struct {
	Host         string        `yaml:"host" validate:"required"`
	Port         int           `yaml:"port" validate:"min=1,max=65535"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DefaultGraph string        `yaml:"defaultGraph" validate:"required"`
	DialTimeout  time.Duration `yaml:"dialTimeout" validate:"min=0"`
}

type CORSConfig struct {
	Origin string `yaml:"origin"`
}

type StreamConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval" validate:"gt=0"`
	MaxSubscribers    int           `yaml:"maxSubscribers" validate:"gt=0"`
	EnforceLimit      bool          `yaml:"enforceLimit"`
	SendTimeout       time.Duration `yaml:"sendTimeout" validate:"gt=0"`
}

// RateLimitConfig enables a per-client sliding window when Requests > 0.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" validate:"min=0"`
	Window   time.Duration `yaml:"window" validate:"gt=0"`
}

type LogConfig struct {
	Tags string `yaml:"tags"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           3000,
			Environment:    EnvProduction,
			RequestTimeout: 60 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		FalkorDB: FalkorDBConfig{
			Host:         "localhost",
			Port:         6379,
			DefaultGraph: "default",
			DialTimeout:  5 * time.Second,
		},
		CORS: CORSConfig{Origin: "*"},
		Stream: StreamConfig{
			HeartbeatInterval: 30 * time.Second,
			MaxSubscribers:    100,
			SendTimeout:       5 * time.Second,
		},
		RateLimit: RateLimitConfig{Window: time.Minute},
	}
}

// Development reports whether the relaxed development rules apply.
func (c Config) Development() bool {
	return c.Server.Environment == EnvDevelopment
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the environment, in increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, logger.WithTag("config", fmt.Errorf("failed to read config file %s: %w", path, err))
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, logger.WithTag("config", fmt.Errorf("failed to parse config file %s: %w", path, err))
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, logger.WithTag("config", err)
	}

	cfg.Server.Environment = strings.ToLower(strings.TrimSpace(cfg.Server.Environment))
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}

	if err := Validate(&cfg); err != nil {
		return nil, logger.WithTag("config", err)
	}
	return &cfg, nil
}

// Validate checks the struct constraints of cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	num("PORT", &cfg.Server.Port)
	if v, ok := lookup("MCP_ENV"); ok && v != "" {
		cfg.Server.Environment = v
	} else {
		str("NODE_ENV", &cfg.Server.Environment)
	}
	str("MCP_SERVER_URL", &cfg.Server.BaseURL)
	flag("MCP_TRUST_PROXY", &cfg.Server.TrustProxy)
	str("MCP_API_KEY", &cfg.Auth.APIKey)

	str("FALKORDB_HOST", &cfg.FalkorDB.Host)
	num("FALKORDB_PORT", &cfg.FalkorDB.Port)
	str("FALKORDB_USERNAME", &cfg.FalkorDB.Username)
	str("FALKORDB_PASSWORD", &cfg.FalkorDB.Password)
	str("FALKORDB_DEFAULT_GRAPH", &cfg.FalkorDB.DefaultGraph)

	str("CORS_ORIGIN", &cfg.CORS.Origin)

	dur("MCP_HEARTBEAT_INTERVAL", &cfg.Stream.HeartbeatInterval)
	num("MCP_MAX_SUBSCRIBERS", &cfg.Stream.MaxSubscribers)
	flag("MCP_ENFORCE_SUBSCRIBER_LIMIT", &cfg.Stream.EnforceLimit)
	dur("MCP_STREAM_SEND_TIMEOUT", &cfg.Stream.SendTimeout)

	num("MCP_RATE_LIMIT", &cfg.RateLimit.Requests)
	dur("MCP_RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	str("MCP_LOG_TAGS", &cfg.Log.Tags)

	return stderrors.Join(errs...)
}

// parseDuration accepts Go durations ("30s") and bare integers as
// milliseconds.
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not a duration", v)
	}
	return d, nil
}
