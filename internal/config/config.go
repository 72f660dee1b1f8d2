package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/trogers1052/crop-price-monitor/internal/series"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Chart    ChartConfig    `yaml:"chart"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// BackendConfig holds the price backend REST API configuration
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Enabled  bool   `yaml:"enabled"`
}

// RedisConfig holds the application state store configuration. An empty
// Addr selects the in-memory store.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// KafkaConfig holds Kafka configuration. No brokers disables messaging.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	ReportsTopic string   `yaml:"reports_topic"`
	AlertsTopic  string   `yaml:"alerts_topic"`
	PricesTopic  string   `yaml:"prices_topic"`
	GroupID      string   `yaml:"group_id"`
}

// ScheduleConfig holds cron expressions with a leading seconds field
type ScheduleConfig struct {
	AlertCheckCron string        `yaml:"alert_check_cron"`
	SnapshotCron   string        `yaml:"snapshot_cron"`
	CleanupCron    string        `yaml:"cleanup_cron"`
	RetentionDays  int           `yaml:"retention_days"`
	JobTimeout     time.Duration `yaml:"job_timeout"`
}

// AlertsConfig holds price alert settings
type AlertsConfig struct {
	Cooldown time.Duration `yaml:"cooldown"`
}

// ChartConfig holds the chart point budget policy
type ChartConfig struct {
	Width  int           `yaml:"width"`
	Budget series.Budget `yaml:"budget"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "cropprices",
			SSLMode:  "disable",
			Enabled:  true,
		},
		Redis: RedisConfig{
			KeyPrefix: "cropwatch:",
		},
		Kafka: KafkaConfig{
			ReportsTopic: "price-reports",
			AlertsTopic:  "price-alerts",
			PricesTopic:  "price-snapshots",
			GroupID:      "crop-price-monitor",
		},
		Schedule: ScheduleConfig{
			AlertCheckCron: "0 */15 * * * *",
			SnapshotCron:   "0 0 * * * *",
			CleanupCron:    "0 30 3 * * *",
			RetentionDays:  730,
			JobTimeout:     time.Minute,
		},
		Alerts: AlertsConfig{
			Cooldown: 6 * time.Hour,
		},
		Chart: ChartConfig{
			Width:  360,
			Budget: series.DefaultBudget,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file at path, then environment variable overrides
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)

	c.Backend.BaseURL = getEnv("BACKEND_URL", c.Backend.BaseURL)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", c.Redis.KeyPrefix)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	c.Kafka.ReportsTopic = getEnv("KAFKA_REPORTS_TOPIC", c.Kafka.ReportsTopic)
	c.Kafka.AlertsTopic = getEnv("KAFKA_ALERTS_TOPIC", c.Kafka.AlertsTopic)
	c.Kafka.PricesTopic = getEnv("KAFKA_PRICES_TOPIC", c.Kafka.PricesTopic)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)

	c.Schedule.AlertCheckCron = getEnv("CRON_ALERT_CHECK", c.Schedule.AlertCheckCron)
	c.Schedule.SnapshotCron = getEnv("CRON_SNAPSHOT", c.Schedule.SnapshotCron)
	c.Schedule.CleanupCron = getEnv("CRON_CLEANUP", c.Schedule.CleanupCron)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	var err error
	if c.Backend.Timeout, err = getEnvDuration("BACKEND_TIMEOUT", c.Backend.Timeout); err != nil {
		return err
	}
	if c.Alerts.Cooldown, err = getEnvDuration("ALERT_COOLDOWN", c.Alerts.Cooldown); err != nil {
		return err
	}
	if c.Redis.DB, err = getEnvInt("REDIS_DB", c.Redis.DB); err != nil {
		return err
	}
	if c.Chart.Width, err = getEnvInt("CHART_WIDTH", c.Chart.Width); err != nil {
		return err
	}
	if c.Database.Enabled, err = getEnvBool("DB_ENABLED", c.Database.Enabled); err != nil {
		return err
	}
	if c.Log.Development, err = getEnvBool("LOG_DEVELOPMENT", c.Log.Development); err != nil {
		return err
	}
	return nil
}

// Validate checks that all required fields are set
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Enabled && (c.Database.Host == "" || c.Database.DBName == "") {
		return fmt.Errorf("database.host and database.dbname are required")
	}
	if len(c.Kafka.Brokers) > 0 && (c.Kafka.ReportsTopic == "" || c.Kafka.AlertsTopic == "" || c.Kafka.PricesTopic == "") {
		return fmt.Errorf("kafka topics are required when brokers are set")
	}
	if c.Chart.Width <= 0 {
		return fmt.Errorf("chart.width must be positive")
	}
	if c.Chart.Budget.PixelsPerPoint <= 0 {
		return fmt.Errorf("chart.budget.pixels_per_point must be positive")
	}
	if c.Alerts.Cooldown < 0 {
		return fmt.Errorf("alerts.cooldown must not be negative")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
