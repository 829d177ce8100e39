package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	Email     EmailConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Google    GoogleConfig
	Outbox    OutboxConfig
	RateLimit RateLimitConfig

	UploadDir     string `env:"UPLOAD_DIR" envDefault:"uploads"`
	LogDir        string `env:"LOG_DIR" envDefault:"logs"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"gamershop-session-secret"`
	FrontendURL   string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

type ServerConfig struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	Env             string        `env:"ENV" envDefault:"development"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// IsProduction reports whether internal error details must be hidden
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

type DBConfig struct {
	Host         string        `env:"DB_HOST" envDefault:"localhost"`
	Port         int           `env:"DB_PORT" envDefault:"5432"`
	User         string        `env:"DB_USER" envDefault:"postgres"`
	Password     string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name         string        `env:"DB_NAME" envDefault:"gamershop"`
	SSLMode      string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// DSN returns the libpq style connection string used by the gorm postgres driver
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET,required"`
	Expiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
}

// EmailConfig selects and configures the outbound mail provider.
// Provider is one of smtp, postmark, sendgrid or log.
type EmailConfig struct {
	Provider       string `env:"EMAIL_PROVIDER" envDefault:"log"`
	From           string `env:"EMAIL_FROM" envDefault:"GamerShop <no-reply@gamershop.local>"`
	FromName       string `env:"EMAIL_FROM_NAME" envDefault:"GamerShop"`
	FromAddress    string `env:"EMAIL_FROM_ADDRESS" envDefault:"no-reply@gamershop.local"`
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername   string `env:"SMTP_USERNAME"`
	SMTPPassword   string `env:"SMTP_PASSWORD"`
	PostmarkToken  string `env:"POSTMARK_SERVER_TOKEN"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Enabled reports whether a Redis address was configured
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type RabbitMQConfig struct {
	URL string `env:"RABBITMQ_URL"`
}

// Enabled reports whether notifications go through the broker
func (c RabbitMQConfig) Enabled() bool { return c.URL != "" }

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/api/auth/google/callback"`
}

// Enabled reports whether Google login is configured
func (c GoogleConfig) Enabled() bool { return c.ClientID != "" && c.ClientSecret != "" }

type OutboxConfig struct {
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"5s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"20"`
	MaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`
	BaseBackoff  time.Duration `env:"OUTBOX_BASE_BACKOFF" envDefault:"10s"`
}

type RateLimitConfig struct {
	Requests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"120"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// LoadConfig loads configuration from an optional .env file and the environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
