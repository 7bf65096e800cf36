package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/messaging/redis"
	"github.com/jwalitptl/medsafe-api/pkg/worker"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	AccessToken   AccessTokenConfig   `mapstructure:"access_token"`
	Outbox        OutboxConfig        `mapstructure:"outbox"`
	OCR           OCRConfig           `mapstructure:"ocr"`
	Wearable      WearableConfig      `mapstructure:"wearable"`
	KnowledgeBase KnowledgeBaseConfig `mapstructure:"knowledge_base"`
	Log           LogConfig           `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	HealthPort      int           `mapstructure:"health_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	RequestsPerSecond      float64 `mapstructure:"requests_per_second"`
	Burst                  int     `mapstructure:"burst"`
	TokenRequestsPerSecond float64 `mapstructure:"token_requests_per_second"`
	TokenBurst             int     `mapstructure:"token_burst"`
}

type AccessTokenConfig struct {
	DefaultTTLMinutes int           `mapstructure:"default_ttl_minutes"`
	MaxTTLMinutes     int           `mapstructure:"max_ttl_minutes"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	Retention         time.Duration `mapstructure:"retention"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

type OCRConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type WearableConfig struct {
	Source     string        `mapstructure:"source"`
	ReadingTTL time.Duration `mapstructure:"reading_ttl"`
}

type KnowledgeBaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *Config) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.Redis.URL,
		MaxRetries:   c.Redis.MaxRetries,
		RetryBackoff: c.Redis.RetryBackoff,
		PoolSize:     c.Redis.PoolSize,
		MinIdleConns: c.Redis.MinIdleConns,
	}
}

func (c OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
	}
}

func (c AccessTokenConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLMinutes) * time.Minute
}

func (c AccessTokenConfig) MaxTTL() time.Duration {
	return time.Duration(c.MaxTTLMinutes) * time.Minute
}

func (c LogConfig) ToLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:  logger.ParseLevel(c.Level),
		Pretty: c.Pretty,
	}
}

// LoadConfig reads config.yml from the usual locations and overlays MEDSAFE_* env vars.
// A missing file is not an error; defaults and env vars are enough to run.
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvPrefix("MEDSAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "medsafe")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "medsafe")

	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("rate_limit.token_requests_per_second", 1)
	v.SetDefault("rate_limit.token_burst", 5)

	v.SetDefault("access_token.default_ttl_minutes", 30)
	v.SetDefault("access_token.max_ttl_minutes", 24*60)
	v.SetDefault("access_token.cleanup_interval", time.Hour)
	v.SetDefault("access_token.retention", 30*24*time.Hour)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", time.Second)

	v.SetDefault("ocr.endpoint", "")
	v.SetDefault("ocr.api_key", "")
	v.SetDefault("ocr.model", "google/gemini-2.5-flash")
	v.SetDefault("ocr.timeout", 30*time.Second)
	v.SetDefault("ocr.max_tokens", 1000)
	v.SetDefault("ocr.cache_ttl", time.Hour)

	v.SetDefault("wearable.source", "redis")
	v.SetDefault("wearable.reading_ttl", 24*time.Hour)

	v.SetDefault("knowledge_base.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.AccessToken.DefaultTTLMinutes <= 0 {
		return fmt.Errorf("access_token.default_ttl_minutes must be positive")
	}
	if c.AccessToken.MaxTTLMinutes < c.AccessToken.DefaultTTLMinutes {
		return fmt.Errorf("access_token.max_ttl_minutes must be at least default_ttl_minutes")
	}
	switch c.Wearable.Source {
	case "redis", "simulated":
	default:
		return fmt.Errorf("wearable.source must be redis or simulated, got %q", c.Wearable.Source)
	}
	return nil
}

// DSN builds a lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}
