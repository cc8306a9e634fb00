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
	Server   ServerConfig
	Scraper  ScraperConfig
	Netkeiba NetkeibaConfig
	Line     LineConfig
	Iris     IrisConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
	Archive  ArchiveConfig
	Mail     MailConfig
	Logging  LoggingConfig
	Bot      BotConfig
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type ScraperConfig struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	ChromePath        string
	Headless          bool
}

// NetkeibaConfig holds optional premium credentials; premium columns are scraped only
// when both are set.
type NetkeibaConfig struct {
	UserID   string
	Password string
}

type LineConfig struct {
	Enabled            bool
	ChannelAccessToken string
	ChannelSecret      string
}

type IrisConfig struct {
	Enabled bool
	BaseURL string
	WSURL   string
	// Rooms restricts the bot to these chat ids or room names; empty means all.
	Rooms []string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey         string
	Model          string
	EnableFallback bool
}

type ArchiveConfig struct {
	Enabled     bool
	Schedule    string
	Concurrency int
}

type MailConfig struct {
	Enabled    bool
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	From       string
	To         string
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

type BotConfig struct {
	Prefix string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr: getEnv("SERVER_ADDR", "localhost:8000"),
			AllowedOrigins: parseCommaSeparated(getEnv("CORS_ALLOWED_ORIGINS",
				"http://localhost,http://127.0.0.1,https://annko.jp")),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		},
		Scraper: ScraperConfig{
			UserAgent:         getEnv("SCRAPER_USER_AGENT", ""),
			Timeout:           getEnvDuration("SCRAPER_TIMEOUT", 15*time.Second),
			RequestsPerSecond: getEnvFloat("SCRAPER_RPS", 1),
			Burst:             getEnvInt("SCRAPER_BURST", 2),
			ChromePath:        getEnv("CHROME_PATH", ""),
			Headless:          getEnvBool("CHROME_HEADLESS", true),
		},
		Netkeiba: NetkeibaConfig{
			UserID:   getEnv("NETKEIBA_USER_ID", ""),
			Password: getEnv("NETKEIBA_PASSWORD", ""),
		},
		Line: LineConfig{
			Enabled:            getEnvBool("LINE_ENABLED", os.Getenv("LINE_CHANNEL_ACCESS_TOKEN") != ""),
			ChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
			ChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		},
		Iris: IrisConfig{
			Enabled: getEnvBool("IRIS_ENABLED", false),
			BaseURL: getEnv("IRIS_BASE_URL", "http://localhost:3000"),
			WSURL:   getEnv("IRIS_WS_URL", "ws://localhost:3000/ws"),
			Rooms:   parseCommaSeparated(getEnv("IRIS_ROOMS", "")),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			Enabled:  getEnvBool("POSTGRES_ENABLED", false),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "keiba"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "keiba"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-5-mini"),
			EnableFallback: getEnvBool("OPENAI_ENABLE_FALLBACK", true),
		},
		Archive: ArchiveConfig{
			Enabled:     getEnvBool("ARCHIVE_ENABLED", false),
			Schedule:    getEnv("ARCHIVE_SCHEDULE", "0 6 * * *"),
			Concurrency: getEnvInt("ARCHIVE_CONCURRENCY", 3),
		},
		Mail: MailConfig{
			Enabled:    getEnvBool("MAIL_ENABLED", false),
			SMTPServer: getEnv("SMTP_SERVER", ""),
			SMTPPort:   getEnvInt("SMTP_PORT", 587),
			SMTPUser:   getEnv("SMTP_USER", ""),
			SMTPPass:   getEnv("SMTP_PASSWORD", ""),
			From:       getEnv("MAIL_FROM", ""),
			To:         getEnv("MAIL_TO", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   getEnv("LOG_FILE", ""),
		},
		Bot: BotConfig{
			Prefix: getEnv("BOT_PREFIX", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("SERVER_ADDR is required")
	}
	if c.Scraper.RequestsPerSecond <= 0 {
		return fmt.Errorf("SCRAPER_RPS must be positive")
	}
	if c.Line.Enabled && c.Line.ChannelAccessToken == "" {
		return fmt.Errorf("LINE_CHANNEL_ACCESS_TOKEN is required when LINE is enabled")
	}
	if c.Iris.Enabled && (c.Iris.BaseURL == "" || c.Iris.WSURL == "") {
		return fmt.Errorf("IRIS_BASE_URL and IRIS_WS_URL are required when Iris is enabled")
	}
	if c.Archive.Enabled && !c.Postgres.Enabled {
		return fmt.Errorf("ARCHIVE_ENABLED requires POSTGRES_ENABLED")
	}
	if c.Mail.Enabled && (c.Mail.SMTPServer == "" || c.Mail.To == "") {
		return fmt.Errorf("SMTP_SERVER and MAIL_TO are required when mail is enabled")
	}
	return nil
}

// HasNetkeibaLogin reports whether premium credentials are configured.
func (c *Config) HasNetkeibaLogin() bool {
	return c.Netkeiba.UserID != "" && c.Netkeiba.Password != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
