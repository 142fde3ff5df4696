// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"amlguard/internal/repositories"
	"amlguard/internal/repositories/cache"
	"amlguard/internal/services/risk"
)

// Config is the typed view of every setting the server needs.
type Config struct {
	Env      string
	Port     string
	GRPCPort string

	LogLevel  string
	LogFormat string

	DBDriver        string
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBSSLMode       string
	SQLitePath      string
	DBMaxIdleConns  int
	DBMaxOpenConns  int
	DBConnLifetime  time.Duration
	DBConnIdleTime  time.Duration
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	CacheTTL        time.Duration
	RecipientWindow time.Duration

	JWTSecret     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AllowOrigins  string
	AuthRateLimit int

	KafkaBrokers []string
	KafkaTopic   string

	DiscordBotToken  string
	DiscordChannelID string
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file found")
	}
}

// Load builds a Config from the environment.
func Load() *Config {
	return &Config{
		Env:      GetEnv("ENV", "development"),
		Port:     GetEnv("PORT", "3000"),
		GRPCPort: GetEnv("GRPC_PORT", ""),

		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		LogFormat: GetEnv("LOG_FORMAT", ""),

		DBDriver:        GetEnv("DB_DRIVER", "postgres"),
		DBHost:          GetEnv("DB_HOST", "localhost"),
		DBPort:          GetEnv("DB_PORT", "5432"),
		DBUser:          GetEnv("DB_USER", "postgres"),
		DBPassword:      GetEnv("DB_PASSWORD", "postgres"),
		DBName:          GetEnv("DB_NAME", "amlguard"),
		DBSSLMode:       GetEnv("DB_SSLMODE", "disable"),
		SQLitePath:      GetEnv("SQLITE_PATH", "amlguard.db"),
		DBMaxIdleConns:  GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:  GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		DBConnLifetime:  GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		DBConnIdleTime:  GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		RedisHost:       GetEnv("REDIS_HOST", ""),
		RedisPort:       GetEnv("REDIS_PORT", "6379"),
		RedisPassword:   GetEnv("REDIS_PASSWORD", ""),
		RedisDB:         GetIntEnv("REDIS_DB", 0),
		CacheTTL:        GetDurationEnv("CACHE_TTL", 10*time.Minute),
		RecipientWindow: GetDurationEnv("RECIPIENT_WINDOW", 30*24*time.Hour),

		JWTSecret:     GetEnv("JWT_SECRET", ""),
		AccessTTL:     GetDurationEnv("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    GetDurationEnv("JWT_REFRESH_TTL", 7*24*time.Hour),
		AllowOrigins:  GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
		AuthRateLimit: GetIntEnv("AUTH_RATE_LIMIT", 5),

		KafkaBrokers: GetListEnv("KAFKA_BROKERS"),
		KafkaTopic:   GetEnv("KAFKA_TOPIC", "aml.assessments"),

		DiscordBotToken:  GetEnv("DISCORD_BOT_TOKEN", ""),
		DiscordChannelID: GetEnv("DISCORD_CHANNEL_ID", ""),
	}
}

// IsProduction reports whether the config targets production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Database returns the connection and pool settings.
func (c *Config) Database() repositories.DBConfig {
	return repositories.DBConfig{
		Driver:          c.DBDriver,
		Host:            c.DBHost,
		Port:            c.DBPort,
		User:            c.DBUser,
		Password:        c.DBPassword,
		Name:            c.DBName,
		SSLMode:         c.DBSSLMode,
		SQLitePath:      c.SQLitePath,
		MaxIdleConns:    c.DBMaxIdleConns,
		MaxOpenConns:    c.DBMaxOpenConns,
		ConnMaxLifetime: c.DBConnLifetime,
		ConnMaxIdleTime: c.DBConnIdleTime,
	}
}

// Redis returns the redis settings, or nil when REDIS_HOST is unset.
func (c *Config) Redis() *cache.RedisConfig {
	if c.RedisHost == "" {
		return nil
	}
	return &cache.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// RiskConfig returns the default rule constants with any RISK_* overrides applied.
func RiskConfig() risk.Config {
	cfg := risk.DefaultConfig()

	cfg.LargeAmount = GetDecimalEnv("RISK_LARGE_AMOUNT", cfg.LargeAmount)
	cfg.RepeatRecipientAmount = GetDecimalEnv("RISK_REPEAT_RECIPIENT_AMOUNT", cfg.RepeatRecipientAmount)
	cfg.UnusualTimingAmount = GetDecimalEnv("RISK_UNUSUAL_TIMING_AMOUNT", cfg.UnusualTimingAmount)
	cfg.RepeatRecipientMin = GetIntEnv("RISK_REPEAT_RECIPIENT_MIN", cfg.RepeatRecipientMin)
	cfg.SuspiciousAt = GetFloatEnv("RISK_SUSPICIOUS_AT", cfg.SuspiciousAt)
	cfg.FlaggedAt = GetFloatEnv("RISK_FLAGGED_AT", cfg.FlaggedAt)

	if watched := GetListEnv("RISK_WATCHED_RECIPIENTS"); len(watched) > 0 {
		cfg.WatchedRecipients = watched
	}
	if keywords := GetListEnv("RISK_KEYWORDS"); len(keywords) > 0 {
		cfg.Keywords = keywords
	}
	return cfg
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		log.Warn().Str("key", key).Str("value", val).Msg("invalid int, using default")
	}
	return defaultVal
}

// GetFloatEnv returns a float environment variable or a default value.
func GetFloatEnv(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", val).Msg("invalid float, using default")
	}
	return defaultVal
}

// GetDecimalEnv returns a decimal environment variable or a default value.
func GetDecimalEnv(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", val).Msg("invalid decimal, using default")
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", val).Msg("invalid duration, using default")
	}
	return defaultVal
}

// GetListEnv splits a comma separated variable, dropping blanks.
func GetListEnv(key string) []string {
	raw := GetEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}
