package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	TLS       TLSConfig
	Database  DatabaseConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Payments  PaymentsConfig
	Workers   WorkersConfig
	AMQP      AMQPConfig
	Logger    LoggerConfig
}

type ServerConfig struct {
	Port                   string
	HTTPPort               string
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	CORSOrigin             string
	StaticDir              string
	MaxBodyBytes           int64
	AllowStaffRegistration bool
}

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type DatabaseConfig struct {
	URL            string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	MaxConns       int
	Migrate        bool
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type RateLimitConfig struct {
	Window     time.Duration
	Max        int
	TrustProxy bool
}

type PaymentsConfig struct {
	ListLimit    int
	MaxBatchSize int
}

type WorkersConfig struct {
	RelayInterval  time.Duration
	RelayBatchSize int
	SweepInterval  time.Duration
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

// Load reads config.env or .env when present, then the process environment.
// Variables already set in the environment win over file values.
func Load() (*Config, error) {
	_ = godotenv.Load(envFiles()...)

	cfg := &Config{
		Server: ServerConfig{
			Port:                   readString("HTTPS_PORT", "8443"),
			HTTPPort:               readString("HTTP_PORT", "8080"),
			ReadTimeout:            readDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:           readDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:            readDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			CORSOrigin:             readString("CORS_ORIGIN", "https://localhost:5173"),
			StaticDir:              readString("STATIC_DIR", "dist"),
			MaxBodyBytes:           int64(readInt("MAX_BODY_BYTES", 10<<10)),
			AllowStaffRegistration: readBool("ALLOW_STAFF_REGISTRATION", true),
		},
		TLS: TLSConfig{
			Enabled:  readBool("TLS_ENABLED", true),
			CertFile: readString("TLS_CERT_FILE", "certs/certificate.pem"),
			KeyFile:  readString("TLS_KEY_FILE", "certs/privatekey.pem"),
		},
		Database: DatabaseConfig{
			URL:            readString("DB_DSN", ""),
			ConnectTimeout: readDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
			QueryTimeout:   readDuration("DB_QUERY_TIMEOUT", 5*time.Second),
			MaxConns:       readInt("DB_MAX_CONNS", 10),
			Migrate:        readBool("DB_MIGRATE", true),
		},
		Session: SessionConfig{
			CookieName: readString("SESSION_COOKIE_NAME", "bank.sid"),
			TTL:        time.Duration(readInt("SESSION_TTL_HOURS", 24)) * time.Hour,
			Secure:     readBool("SESSION_COOKIE_SECURE", true),
		},
		RateLimit: RateLimitConfig{
			Window:     readDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			Max:        readInt("RATE_LIMIT_MAX", 120),
			TrustProxy: readBool("TRUST_PROXY", false),
		},
		Payments: PaymentsConfig{
			ListLimit:    readInt("PAYMENTS_LIST_LIMIT", 100),
			MaxBatchSize: readInt("MAX_BATCH_SIZE", 100),
		},
		Workers: WorkersConfig{
			RelayInterval:  readDuration("OUTBOX_POLL_INTERVAL", time.Second),
			RelayBatchSize: readInt("OUTBOX_BATCH_SIZE", 100),
			SweepInterval:  readDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		},
		AMQP: AMQPConfig{
			URL:      readString("AMQP_URL", ""),
			Exchange: readString("AMQP_EXCHANGE", "bank.payments"),
		},
		Logger: LoggerConfig{
			Level: strings.ToLower(readString("LOG_LEVEL", "info")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name cannot be empty")
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.Max <= 0 {
		return fmt.Errorf("rate limit window and max must be positive")
	}
	if c.Payments.ListLimit <= 0 || c.Payments.ListLimit > 100 {
		return fmt.Errorf("payments list limit must be between 1 and 100, got %d", c.Payments.ListLimit)
	}
	if c.Payments.MaxBatchSize <= 0 {
		return fmt.Errorf("max batch size must be positive")
	}
	if c.Database.QueryTimeout <= 0 || c.Database.ConnectTimeout <= 0 {
		return fmt.Errorf("database timeouts must be positive")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}
	return nil
}

// HTTPSAddress is the address of the main listener.
func (c *Config) HTTPSAddress() string {
	return ":" + c.Server.Port
}

// RedirectAddress is the address of the plain HTTP listener that redirects to HTTPS.
func (c *Config) RedirectAddress() string {
	return ":" + c.Server.HTTPPort
}

func envFiles() []string {
	var files []string
	for _, name := range []string{"config.env", ".env"} {
		if _, err := os.Stat(name); err == nil {
			files = append(files, name)
		}
	}
	return files
}

func readString(key, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return raw
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
