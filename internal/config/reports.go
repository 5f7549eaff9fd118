package config

import (
	"os"
	"strconv"
	"time"
)

// ReportConfig groups the tunables of the summary and export paths. The
// summary window defaults to 180 days (the historical 30*6 approximation of
// "six months"); it is deliberately a named setting rather than a literal so
// the non-calendar-accurate windowing stays visible.
type ReportConfig struct {
	SummaryWindowDays int
	PageSize          int
	CompanyName       string
	ReportTitle       string
}

func LoadReportConfig() *ReportConfig {
	return &ReportConfig{
		SummaryWindowDays: getEnvAsInt("REPORTS_SUMMARY_WINDOW_DAYS", 180),
		PageSize:          getEnvAsInt("PAGINATION_PAGE_SIZE", 3),
		CompanyName:       getEnv("REPORTS_COMPANY_NAME", "TRULY EXPENSE MANAGEMENT"),
		ReportTitle:       getEnv("REPORTS_TITLE", "Expenses Report"),
	}
}

// TokenConfig holds lifetimes for the signed one-shot tokens sent by email
// and for login sessions.
type TokenConfig struct {
	SessionTTL    time.Duration
	ActivationTTL time.Duration
	ResetTTL      time.Duration
}

func LoadTokenConfig() *TokenConfig {
	return &TokenConfig{
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		ActivationTTL: getEnvAsDuration("ACTIVATION_TOKEN_TTL", 24*time.Hour),
		ResetTTL:      getEnvAsDuration("RESET_TOKEN_TTL", time.Hour),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
