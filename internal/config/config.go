package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel string

	DBPath         string
	CatalogCSVPath string
	RawMailDir     string
	OutputDir      string

	HTTPAddr string

	SupplierAPIBaseURL   string
	SupplierAPIToken     string
	SupplierRateLimitRPS int
	SupplierTimeoutMs    int
	SupplierLookbackHrs  int

	MatchMinScore float64
	MatchMargin   float64

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailFetchMax     int
	MailProcessBatch int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBPath:         getEnv("DB_PATH", filepath.Join(cwd, "data", "intake.db")),
		CatalogCSVPath: getEnv("CATALOG_CSV_PATH", filepath.Join(cwd, "data", "product_catalog.csv")),
		RawMailDir:     getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:      getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		SupplierAPIBaseURL:   getEnv("SUPPLIER_API_BASE_URL", ""),
		SupplierAPIToken:     getEnv("SUPPLIER_API_TOKEN", ""),
		SupplierRateLimitRPS: getEnvInt("SUPPLIER_RATE_LIMIT_RPS", 5),
		SupplierTimeoutMs:    getEnvInt("SUPPLIER_TIMEOUT_MS", 30000),
		SupplierLookbackHrs:  getEnvInt("SUPPLIER_LOOKBACK_HOURS", 24),

		MatchMinScore: getEnvFloat("MATCH_MIN_SCORE", 0.60),
		MatchMargin:   getEnvFloat("MATCH_MARGIN", 0.15),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailFetchMax:     getEnvInt("MAIL_FETCH_MAX", 20),
		MailProcessBatch: getEnvInt("MAIL_PROCESS_BATCH", 20),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
