package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Engine        EngineConfig
	Notifications NotificationsConfig
	RateLimit     RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// EngineConfig bounds the evaluator's per-batch parallelism.
type EngineConfig struct {
	Workers int
}

// NotificationsConfig wires the dispatch channels. A channel with an empty
// endpoint is simply not configured; MinSeverity is the per-channel floor
// below which upserted alerts are not announced. Critical alerts always go to
// every configured channel regardless of the floor.
type NotificationsConfig struct {
	WebhookURL         string
	WebhookMinSeverity string
	ChatWebhookURL     string
	ChatMinSeverity    string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	EmailFrom          string
	EmailTo            string
	EmailMinSeverity   string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (n *NotificationsConfig) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", n.SMTPHost, n.SMTPPort)
}

// EmailRecipients splits the comma-separated NOTIFY_EMAIL_TO value.
func (n *NotificationsConfig) EmailRecipients() []string {
	var out []string
	for _, addr := range strings.Split(n.EmailTo, ",") {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "warden")
	v.SetDefault("DATABASE_PASSWORD", "warden_secret")
	v.SetDefault("DATABASE_NAME", "warden")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("ENGINE_WORKERS", 8)
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_WEBHOOK_MIN_SEVERITY", "high")
	v.SetDefault("NOTIFY_CHAT_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_CHAT_MIN_SEVERITY", "high")
	v.SetDefault("NOTIFY_SMTP_HOST", "")
	v.SetDefault("NOTIFY_SMTP_PORT", 587)
	v.SetDefault("NOTIFY_SMTP_USERNAME", "")
	v.SetDefault("NOTIFY_SMTP_PASSWORD", "")
	v.SetDefault("NOTIFY_EMAIL_FROM", "")
	v.SetDefault("NOTIFY_EMAIL_TO", "")
	v.SetDefault("NOTIFY_EMAIL_MIN_SEVERITY", "critical")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Engine: EngineConfig{
			Workers: v.GetInt("ENGINE_WORKERS"),
		},
		Notifications: NotificationsConfig{
			WebhookURL:         v.GetString("NOTIFY_WEBHOOK_URL"),
			WebhookMinSeverity: v.GetString("NOTIFY_WEBHOOK_MIN_SEVERITY"),
			ChatWebhookURL:     v.GetString("NOTIFY_CHAT_WEBHOOK_URL"),
			ChatMinSeverity:    v.GetString("NOTIFY_CHAT_MIN_SEVERITY"),
			SMTPHost:           v.GetString("NOTIFY_SMTP_HOST"),
			SMTPPort:           v.GetInt("NOTIFY_SMTP_PORT"),
			SMTPUsername:       v.GetString("NOTIFY_SMTP_USERNAME"),
			SMTPPassword:       v.GetString("NOTIFY_SMTP_PASSWORD"),
			EmailFrom:          v.GetString("NOTIFY_EMAIL_FROM"),
			EmailTo:            v.GetString("NOTIFY_EMAIL_TO"),
			EmailMinSeverity:   v.GetString("NOTIFY_EMAIL_MIN_SEVERITY"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	return cfg, nil
}
