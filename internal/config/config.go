package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the placeholder signing key used when JWT_SECRET is unset.
const DefaultJWTSecret = "change-me-in-production"

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver   string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host         string
		Port         string
		CORSOrigins  []string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}

	GRPC struct {
		Host string
		Port string
	}

	Auth struct {
		JWTSecret   string
		TokenTTL    time.Duration
		IdleTimeout time.Duration
		BcryptCost  int
	}

	RateLimit struct {
		RPS   float64
		Burst int
	}

	Payments struct {
		FastPayURL          string
		OzowURL             string
		BankName            string
		BankAccountNumber   string
		BankBranchCode      string
		NotifyChannel       string
		WhatsAppNotifyPhone string
	}
}

// New builds the configuration from the environment. A .env file in the
// working directory is loaded first when present; real env vars win.
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "tembichat")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database: volatile in-memory sqlite unless mysql is asked for
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "sqlite"))
	switch cfg.DB.Driver {
	case "mysql":
		cfg.DB.DSN = os.Getenv("MYSQL_DSN")
		if cfg.DB.DSN == "" {
			cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
			cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
			cfg.DB.User = getEnvDefault("DB_USER", "root")
			cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
			cfg.DB.Name = getEnvDefault("DB_NAME", "tembichat")

			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	default:
		cfg.DB.Driver = "sqlite"
		cfg.DB.DSN = getEnvDefault("SQLITE_DSN", "file:tembichat?mode=memory&cache=shared")
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")
	cfg.HTTP.CORSOrigins = splitList(getEnvDefault("CORS_ORIGINS", "http://localhost:3000"))
	cfg.HTTP.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	cfg.HTTP.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second)

	// gRPC (health + reflection only)
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Auth
	cfg.Auth.JWTSecret = getEnvDefault("JWT_SECRET", DefaultJWTSecret)
	cfg.Auth.TokenTTL = getEnvDuration("TOKEN_TTL", 24*time.Hour)
	cfg.Auth.IdleTimeout = getEnvDuration("SESSION_IDLE_TIMEOUT", 10*time.Minute)
	cfg.Auth.BcryptCost = getEnvInt("BCRYPT_COST", 10)

	// Rate limiting of the public auth endpoints
	cfg.RateLimit.RPS = getEnvFloat("RATE_LIMIT_RPS", 5)
	cfg.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", 20)

	// Payments
	cfg.Payments.FastPayURL = getEnvDefault("FASTPAY_URL", "https://fastpay.co.za/pay")
	cfg.Payments.OzowURL = getEnvDefault("OZOW_URL", "https://pay.ozow.com")
	cfg.Payments.BankName = getEnvDefault("BANK_NAME", "Tymbank")
	cfg.Payments.BankAccountNumber = getEnvDefault("BANK_ACCOUNT_NUMBER", "0000000000")
	cfg.Payments.BankBranchCode = getEnvDefault("BANK_BRANCH_CODE", "678910")
	cfg.Payments.NotifyChannel = getEnvDefault("PAYMENT_NOTIFY_CHANNEL", "notifications:payments")
	cfg.Payments.WhatsAppNotifyPhone = getEnvDefault("WHATSAPP_NOTIFY_PHONE", "")

	return cfg
}

// IsDevelopment reports whether sample data may be seeded.
func (c *Config) IsDevelopment() bool {
	return c.App.ENV == "development"
}

// Validate rejects settings that are only acceptable on a developer machine.
func (c *Config) Validate() error {
	switch c.App.ENV {
	case "development", "test":
		return nil
	}
	if c.Auth.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", c.App.ENV)
	}
	return nil
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v, err := strconv.ParseFloat(getEnvDefault(k, ""), 64); err == nil {
		return v
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnvDefault(k, "")); err == nil && v > 0 {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
