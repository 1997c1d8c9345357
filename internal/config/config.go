package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Fixed authentication policy. These are part of the security design and
// deliberately not configurable.
const (
	OTPTTL           = 5 * time.Minute
	MaxAttempts      = 5
	IssuanceCooldown = 60 * time.Second
	SessionTTL       = time.Hour
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	Server     ServerConfig
	Redis      RedisConfig
	Scylla     ScyllaConfig
	Kafka      KafkaConfig
	Clickhouse ClickhouseConfig
	AWS        AWSConfig
	Auth       AuthConfig
	Delivery   DeliveryConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Port         int           `env:"SERVER_PORT" envDefault:"8080"`
	TLSPort      int           `env:"SERVER_TLS_PORT" envDefault:"8443"`
	EnableTLS    bool          `env:"SERVER_ENABLE_TLS" envDefault:"false"`
	AutoCert     bool          `env:"SERVER_AUTO_CERT" envDefault:"false"`
	Domain       string        `env:"SERVER_DOMAIN" envDefault:"localhost"`
	CertFile     string        `env:"SERVER_CERT_FILE"`
	KeyFile      string        `env:"SERVER_KEY_FILE"`
	AutoCertDir  string        `env:"SERVER_AUTOCERT_DIR" envDefault:"/var/lib/otp-auth/certs"`
	Email        string        `env:"SERVER_ACME_EMAIL"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
}

type RedisConfig struct {
	URL      string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"50"`
}

type ScyllaConfig struct {
	Nodes    []string `env:"SCYLLA_NODES" envDefault:"localhost:9042"`
	Keyspace string   `env:"SCYLLA_KEYSPACE" envDefault:"auth"`
	Username string   `env:"SCYLLA_USERNAME"`
	Password string   `env:"SCYLLA_PASSWORD"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_AUTH_EVENTS_TOPIC" envDefault:"auth-events"`
}

type ClickhouseConfig struct {
	URL      string `env:"CLICKHOUSE_URL"`
	Username string `env:"CLICKHOUSE_USERNAME" envDefault:"default"`
	Password string `env:"CLICKHOUSE_PASSWORD"`
	Database string `env:"CLICKHOUSE_DATABASE" envDefault:"auth"`
}

type AWSConfig struct {
	Region       string `env:"AWS_REGION" envDefault:"us-east-1"`
	OTPSecretARN string `env:"OTP_SECRET_ARN"`
	JWTSecretARN string `env:"JWT_SECRET_ARN"`
	// Direct values override the ARNs; meant for local development only.
	// Placeholder values are rejected by the secret cache.
	OTPSecret string `env:"OTP_SECRET"`
	JWTSecret string `env:"JWT_SECRET"`
}

type AuthConfig struct {
	// MaxAuthsPerDay bounds successful verifications per UTC day across all
	// identities. Zero disables the quota.
	MaxAuthsPerDay int `env:"MAX_AUTHS_PER_DAY" envDefault:"0"`
	// AllowedOrigin is reflected in CORS responses with credentials enabled,
	// so a wildcard is never valid here.
	AllowedOrigin string `env:"FRONTEND_ORIGIN" envDefault:"http://localhost:3000"`
}

type DeliveryConfig struct {
	SESFromAddress string `env:"SES_FROM_ADDRESS"`
	SNSSenderID    string `env:"SNS_SENDER_ID" envDefault:"Auth"`
	// DevMode routes codes to the log (masked) instead of SES/SNS.
	DevMode bool `env:"DELIVERY_DEV_MODE" envDefault:"false"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// LoadConfig reads configuration from the environment, loading a .env file
// first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
