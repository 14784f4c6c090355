package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`

	// redis (contact rate limiter storage)
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// prometheus metrics server
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// browser origins allowed to call this API with credentials
	AllowedOrigins []string `toml:"allowed_origins"`

	// hostnames a captcha verdict may report for the contact form
	CaptchaHostnames []string `toml:"captcha_hostnames"`
	CaptchaVerifyURL string   `toml:"captcha_verify_url"`

	// outbound mail transport
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`

	// contact form rate limit: max accepted requests per address per window
	ContactRateLimitMax        int `toml:"contact_rate_limit_max"`
	ContactRateLimitWindowMins int `toml:"contact_rate_limit_window_mins"`
}

func (c *Config) IsProduction() bool {
	return strings.HasPrefix(strings.ToLower(c.Environment), "prod")
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

func Load(env, path string) (*Config, error) {
	var configs Toml
	if _, err := toml.DecodeFile(path, &configs); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	cfg, err := configs.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config section for env %s missing", env)
	}

	cfg.Environment = env
	return cfg, nil
}
