package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable the service reads.
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
	Razorpay      RazorpayConfig
	Shiprocket    ShiprocketConfig
	Gemini        GeminiConfig
	Cache         CacheConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGRIAPP_APP_ENV" required:"true"`
	Port         string `envconfig:"AGRIAPP_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"AGRIAPP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGRIAPP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AGRIAPP_DB_DSN"`
	Driver string `envconfig:"AGRIAPP_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"AGRIAPP_DB_HOST"`
	Port     int    `envconfig:"AGRIAPP_DB_PORT" default:"5432"`
	User     string `envconfig:"AGRIAPP_DB_USER"`
	Password string `envconfig:"AGRIAPP_DB_PASSWORD"`
	Name     string `envconfig:"AGRIAPP_DB_NAME"`
	SSLMode  string `envconfig:"AGRIAPP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGRIAPP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGRIAPP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGRIAPP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGRIAPP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either AGRIAPP_DB_DSN or AGRIAPP_DB_HOST/USER/NAME must be set")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"AGRIAPP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGRIAPP_REDIS_ADDR"`
	Password     string        `envconfig:"AGRIAPP_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGRIAPP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGRIAPP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGRIAPP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGRIAPP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGRIAPP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGRIAPP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AGRIAPP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AGRIAPP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AGRIAPP_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AGRIAPP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AGRIAPP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AGRIAPP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AGRIAPP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AGRIAPP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AGRIAPP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AGRIAPP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AGRIAPP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AGRIAPP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AGRIAPP_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AGRIAPP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"AGRIAPP_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// RazorpayConfig carries the payment gateway credentials. WebhookSecret signs
// the raw webhook body with HMAC-SHA256.
type RazorpayConfig struct {
	KeyID         string `envconfig:"AGRIAPP_RAZORPAY_KEY_ID"`
	KeySecret     string `envconfig:"AGRIAPP_RAZORPAY_KEY_SECRET"`
	WebhookSecret string `envconfig:"AGRIAPP_RAZORPAY_WEBHOOK_SECRET"`
	CallbackURL   string `envconfig:"AGRIAPP_RAZORPAY_CALLBACK_URL"`
}

func (r RazorpayConfig) Configured() bool {
	return strings.TrimSpace(r.KeyID) != "" && strings.TrimSpace(r.KeySecret) != ""
}

// ShiprocketConfig carries shipping provider credentials. When Email/Password
// are empty the sandbox client is used instead of the live API.
type ShiprocketConfig struct {
	Email          string        `envconfig:"AGRIAPP_SHIPROCKET_EMAIL"`
	Password       string        `envconfig:"AGRIAPP_SHIPROCKET_PASSWORD"`
	BaseURL        string        `envconfig:"AGRIAPP_SHIPROCKET_BASE_URL" default:"https://apiv2.shiprocket.in/v1/external"`
	PickupLocation string        `envconfig:"AGRIAPP_SHIPROCKET_PICKUP_LOCATION" default:"Primary"`
	TokenTTL       time.Duration `envconfig:"AGRIAPP_SHIPROCKET_TOKEN_TTL" default:"216h"`
	HTTPTimeout    time.Duration `envconfig:"AGRIAPP_SHIPROCKET_HTTP_TIMEOUT" default:"30s"`
}

func (s ShiprocketConfig) Configured() bool {
	return strings.TrimSpace(s.Email) != "" && strings.TrimSpace(s.Password) != ""
}

type GeminiConfig struct {
	APIKey string `envconfig:"AGRIAPP_GEMINI_API_KEY"`
	Model  string `envconfig:"AGRIAPP_GEMINI_MODEL" default:"gemini-1.5-flash"`
}

// CacheConfig controls the analytics response cache TTL.
type CacheConfig struct {
	AnalyticsTTL time.Duration `envconfig:"AGRIAPP_CACHE_ANALYTICS_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AGRIAPP_AUTO_MIGRATE" default:"false"`
}
