package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once at startup from the environment (and .env).
type Config struct {
	Port   string
	AppEnv string

	DBDriver string // postgres, mysql, sqlite or memory
	DBURL    string

	JWTSecret      string
	JWTExpiryHours int

	DefaultTaxRate float64
	CORSOrigins    []string
	CacheTTL       time.Duration

	// ReconcileSchedule is a cron spec; "off" disables the job.
	ReconcileSchedule string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	NotifySMSTo      string
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		AppEnv:            getEnv("APP_ENV", "development"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBURL:             os.Getenv("DB_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTExpiryHours:    getEnvInt("JWT_EXPIRY_HOURS", 24),
		DefaultTaxRate:    getEnvFloat("DEFAULT_TAX_RATE", 16),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		CacheTTL:          time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "0 2 * * *"),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:  os.Getenv("TWILIO_FROM_NUMBER"),
		NotifySMSTo:       os.Getenv("NOTIFY_SMS_TO"),
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SMSEnabled reports whether every Twilio setting is present.
func (c *Config) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != "" && c.NotifySMSTo != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
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
