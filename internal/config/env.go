package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Addr        string
	DBDriver    string
	DatabaseURL string

	JWTSecret string
	TokenTTL  time.Duration

	CodeLength    int
	CodeSingleUse bool

	SendGridAPIKey string
	MailFrom       string

	CORSOrigins   []string
	AuthRateLimit float64
	AuthRateBurst int

	LogLevel  string
	LogFormat string

	SuperuserUsername string
	SuperuserEmail    string
}

func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn(".env file not found, relying on system environment variables")
	}
}

// Load reads the process environment. LoadEnv should run first so that
// values from .env are visible.
func Load() Config {
	return Config{
		Addr:              GetString("ADDR", ":8080"),
		DBDriver:          GetString("DB_DRIVER", "sqlite3"),
		DatabaseURL:       GetString("DATABASE_URL", "./yamdb.db"),
		JWTSecret:         GetJWTSecret(),
		TokenTTL:          GetDuration("TOKEN_TTL", 24*time.Hour),
		CodeLength:        GetInt("CONFIRMATION_CODE_LENGTH", 6),
		CodeSingleUse:     GetBool("CONFIRMATION_CODE_SINGLE_USE", false),
		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		MailFrom:          GetString("MAIL_FROM", "noreply@yamdb.local"),
		CORSOrigins:       GetList("CORS_ORIGINS", []string{"*"}),
		AuthRateLimit:     GetFloat("AUTH_RATE_LIMIT", 5),
		AuthRateBurst:     GetInt("AUTH_RATE_BURST", 10),
		LogLevel:          GetString("LOG_LEVEL", "info"),
		LogFormat:         GetString("LOG_FORMAT", "text"),
		SuperuserUsername: os.Getenv("SUPERUSER_USERNAME"),
		SuperuserEmail:    os.Getenv("SUPERUSER_EMAIL"),
	}
}

func GetJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET not set")
	}
	return secret
}

func GetString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logrus.WithField("key", key).Warn("invalid integer, using default")
	}
	return fallback
}

func GetFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		logrus.WithField("key", key).Warn("invalid number, using default")
	}
	return fallback
}

func GetBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		logrus.WithField("key", key).Warn("invalid boolean, using default")
	}
	return fallback
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		logrus.WithField("key", key).Warn("invalid duration, using default")
	}
	return fallback
}

// GetList splits a comma separated variable, dropping empty items.
func GetList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// NewLogger configures the standard logrus logger from cfg and returns it.
func NewLogger(cfg Config) *logrus.Logger {
	log := logrus.StandardLogger()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
