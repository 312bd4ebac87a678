// Package config resolves the runtime configuration from the environment
// into an explicit struct that gets handed to the managers and the router.
// Nothing outside this package reads environment variables for behavior.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const envFile = ".env"

// Config holds every runtime setting of the server.
type Config struct {
	Port        string
	LogLevel    string
	Environment string
	FrontendURL string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	MailgunDomain string
	MailgunAPIKey string
	MailFrom      string

	JWTAccessSecret  string
	JWTRefreshSecret string

	AccessTokenLifetime       time.Duration
	RefreshTokenLifetime      time.Duration
	VerificationTokenLifetime time.Duration
	ResendCooldown            time.Duration

	VerifyEmailMX bool
}

// Load reads the optional .env file and resolves the configuration.
// Database and JWT settings are mandatory, everything else has a default.
func Load() (*Config, error) {
	if err := godotenv.Load(envFile); err != nil {
		log.Info("No .env file found, using environment variables from system")
	} else {
		log.Info("Loaded environment variables from .env file")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		Environment: getEnv("ENVIRONMENT", "development"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASS"),
		DBName:     os.Getenv("DB_NAME"),

		MailgunDomain: getEnv("MAILGUN_DOMAIN", "mail.verso-cms.tech"),
		MailgunAPIKey: os.Getenv("MAILGUN_API_KEY"),
		MailFrom:      getEnv("MAIL_FROM", "Verso <team@mail.verso-cms.tech>"),

		JWTAccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),

		AccessTokenLifetime:       getDurationEnv("ACCESS_TOKEN_LIFETIME", 15*time.Minute),
		RefreshTokenLifetime:      getDurationEnv("REFRESH_TOKEN_LIFETIME", 7*24*time.Hour),
		VerificationTokenLifetime: getDurationEnv("VERIFICATION_TOKEN_LIFETIME", 15*time.Minute),
		ResendCooldown:            getDurationEnv("RESEND_COOLDOWN", 60*time.Second),

		VerifyEmailMX: getBoolEnv("VERIFY_EMAIL_MX", false),
	}

	if cfg.DBHost == "" || cfg.DBUser == "" || cfg.DBPassword == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("database environment variables not set")
	}

	if cfg.JWTAccessSecret == "" || cfg.JWTRefreshSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}

	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, fmt.Errorf("access and refresh secrets must differ")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Warnf("Invalid duration for %s, falling back to %s", key, fallback)
		return fallback
	}
	return parsed
}

func getBoolEnv(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Warnf("Invalid boolean for %s, falling back to %t", key, fallback)
		return fallback
	}
	return parsed
}
