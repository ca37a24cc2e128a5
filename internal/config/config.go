// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config holds every setting read from the environment. Both binaries load the same struct
// and use the parts they need.
type Config struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	Env            string   `env:"LUDO_ENV" envDefault:"development"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string `env:"JWT_SECRET,notEmpty"`

	// SendTimeout bounds each websocket write during fan-out.
	SendTimeout time.Duration `env:"SEND_TIMEOUT" envDefault:"3s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

	MoveJournalQueue   string `env:"MOVE_JOURNAL_QUEUE" envDefault:"ludo_moves"`
	HistorianBatchSize int    `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	HistorianFlushMs   int    `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("parse config: DATABASE_URL is not set")
	}
	return &cfg, nil
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Origins returns the CORS origins to allow. Outside production any http(s) origin is accepted.
func (c *Config) Origins() []string {
	if c.Production() {
		return c.AllowedOrigins
	}
	return []string{"https://*", "http://*"}
}

// WebSocketOrigins returns host patterns for the websocket origin check, derived from Origins.
func (c *Config) WebSocketOrigins() []string {
	if !c.Production() {
		return []string{"*"}
	}
	hosts := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		o = strings.TrimSpace(o)
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		if o != "" {
			hosts = append(hosts, strings.TrimSuffix(o, "/"))
		}
	}
	return hosts
}

// Addr is the listen address for the HTTP server. Outside production it binds to localhost.
func (c *Config) Addr() string {
	if c.Production() {
		return ":" + c.Port
	}
	return "localhost:" + c.Port
}

// HistorianFlushDelay is the maximum time a journal batch waits before being flushed.
func (c *Config) HistorianFlushDelay() time.Duration {
	return time.Duration(c.HistorianFlushMs) * time.Millisecond
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using debug", c.LogLevel)
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	if c.Production() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
