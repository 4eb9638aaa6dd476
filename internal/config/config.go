package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the dashboard services.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Mail      MailConfig      `yaml:"mail"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	SES       SESConfig       `yaml:"ses"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Feeds     FeedsConfig     `yaml:"feeds"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the listen host, with container detection.
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifeMins int    `yaml:"conn_max_life_mins"`
}

// RedisConfig holds the Redis connection settings. Redis is optional; when
// Addr is empty, dedup and distributed locking degrade to per-process mode.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	TokenCookie string `yaml:"token_cookie"`
}

// MailConfig holds sender identity and transport selection.
type MailConfig struct {
	From      string `yaml:"from"`
	FromName  string `yaml:"from_name"`
	Transport string `yaml:"transport"` // "smtp" or "ses"
}

// SMTPConfig holds SMTP transport credentials.
type SMTPConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c SMTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES transport credentials.
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TrackingConfig holds the tracking endpoint settings. BaseURL is the public
// root used to build pixel and redirect links ("https://intel.example.com").
type TrackingConfig struct {
	BaseURL      string `yaml:"base_url"`
	QueueType    string `yaml:"queue_type"` // "memory" or "sqs"
	SQSQueueURL  string `yaml:"sqs_queue_url"`
	AWSRegion    string `yaml:"aws_region"`
	DedupTTLMins int    `yaml:"dedup_ttl_mins"`
}

// DedupTTL returns the dedup bucket TTL as a duration.
func (c TrackingConfig) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLMins) * time.Minute
}

// ArchiveConfig holds the optional S3 sent-body archive settings.
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	S3Bucket string `yaml:"s3_bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
}

// SchedulerConfig holds the due-email scheduler loop settings.
type SchedulerConfig struct {
	Enabled             bool `yaml:"enabled"`
	PollIntervalSeconds int  `yaml:"poll_interval_seconds"`
	BatchSize           int  `yaml:"batch_size"`
}

// PollInterval returns the scheduler poll interval as a duration.
func (c SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// FeedsConfig holds the RSS threat-feed ingestion settings.
type FeedsConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Sources         []string `yaml:"sources"`
	IntervalMinutes int      `yaml:"interval_minutes"`
}

// Interval returns the feed poll interval as a duration.
func (c FeedsConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Load reads and parses the configuration file, then applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifeMins == 0 {
		cfg.Database.ConnMaxLifeMins = 30
	}
	if cfg.Auth.TokenCookie == "" {
		cfg.Auth.TokenCookie = "token"
	}
	if cfg.Mail.Transport == "" {
		cfg.Mail.Transport = "smtp"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.TimeoutSeconds == 0 {
		cfg.SMTP.TimeoutSeconds = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.Tracking.QueueType == "" {
		cfg.Tracking.QueueType = "memory"
	}
	if cfg.Tracking.AWSRegion == "" {
		cfg.Tracking.AWSRegion = "us-east-1"
	}
	if cfg.Tracking.DedupTTLMins == 0 {
		cfg.Tracking.DedupTTLMins = 120
	}
	if cfg.Scheduler.PollIntervalSeconds == 0 {
		cfg.Scheduler.PollIntervalSeconds = 30
	}
	if cfg.Scheduler.BatchSize == 0 {
		cfg.Scheduler.BatchSize = 50
	}
	if cfg.Feeds.IntervalMinutes == 0 {
		cfg.Feeds.IntervalMinutes = 30
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars on the deployment host.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.SMTP.Port = p
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASS"); v != "" {
		cfg.SMTP.Password = v
	}
	if v := os.Getenv("MAIL_FROM"); v != "" {
		cfg.Mail.From = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("TRACKING_BASE_URL"); v != "" {
		cfg.Tracking.BaseURL = v
	}
	if v := os.Getenv("SQS_TRACKING_QUEUE_URL"); v != "" {
		cfg.Tracking.SQSQueueURL = v
		cfg.Tracking.QueueType = "sqs"
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
		cfg.Archive.Enabled = true
	}

	return cfg, nil
}
