package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Vehicle   VehicleConfig
	Webhook   WebhookConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig
}

type ServerConfig struct {
	HTTPPort    int           `mapstructure:"http_port"`
	MetricsPort int           `mapstructure:"metrics_port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type VehicleConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type WebhookConfig struct {
	URL           string        `mapstructure:"url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	BatchSize     int           `mapstructure:"batch_size"`
	DeliveryDelay time.Duration `mapstructure:"delivery_delay"`
}

type SchedulerConfig struct {
	IntervalSeconds int  `mapstructure:"interval_seconds"`
	PendingBatch    int  `mapstructure:"pending_batch"`
	AutoApprove     bool `mapstructure:"auto_approve"`
}

type RateLimitConfig struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/salesd/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("SALESD")
	viper.AutomaticEnv()

	viper.SetDefault("server.http_port", 3001)
	viper.SetDefault("server.metrics_port", 9091)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.database", "salesd")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.pool_size", 100)
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("vehicle.base_url", "http://localhost:3000")
	viper.SetDefault("vehicle.timeout", "10s")
	viper.SetDefault("webhook.url", "http://localhost:3000/api/webhook/pagamento")
	viper.SetDefault("webhook.timeout", "5s")
	viper.SetDefault("webhook.user_agent", "Servico-Vendas-Webhook/1.0")
	viper.SetDefault("webhook.max_attempts", 5)
	viper.SetDefault("webhook.batch_size", 50)
	viper.SetDefault("webhook.delivery_delay", "1s")
	viper.SetDefault("scheduler.interval_seconds", 10)
	viper.SetDefault("scheduler.pending_batch", 20)
	viper.SetDefault("scheduler.auto_approve", true)
	viper.SetDefault("rate_limit.window", "15m")
	viper.SetDefault("rate_limit.max_requests", 100)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
