package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	DatabaseURL      string

	ChromeBin       string
	Headless        bool
	MaxRetries      int
	RetryBaseDelay  time.Duration
	PageLoadTimeout time.Duration
	DownloadWait    time.Duration
	MinPDFBytes     int64

	HTTPTimeout    time.Duration
	RateLimit      time.Duration
	MaxConcurrency int

	WorkDir         string
	AnalysesDir     string
	PdftotextBin    string
	EtuoviConverter string

	AnthropicAPIKey string
	AnalysisModel   string
	ExtractionModel string
	LLMMaxRetries   int

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getEnv("POSTGRES_DB", "asuntoanalyysi"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),

		ChromeBin:       getEnv("CHROME_BIN", ""),
		Headless:        getEnvBool("HEADLESS", true),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay:  getEnvDuration("RETRY_BASE_DELAY_MS", 2000, time.Millisecond),
		PageLoadTimeout: getEnvDuration("PAGE_LOAD_TIMEOUT_S", 20, time.Second),
		DownloadWait:    getEnvDuration("DOWNLOAD_WAIT_S", 45, time.Second),
		MinPDFBytes:     int64(getEnvInt("MIN_PDF_BYTES", 1024)),

		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT_S", 30, time.Second),
		RateLimit:      getEnvDuration("RATE_LIMIT_MS", 1000, time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),

		WorkDir:         getEnv("WORK_DIR", os.TempDir()),
		AnalysesDir:     getEnv("ANALYSES_DIR", "analyses"),
		PdftotextBin:    getEnv("PDFTOTEXT_BIN", "pdftotext"),
		EtuoviConverter: strings.ToLower(getEnv("ETUOVI_CONVERTER", "layout")),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnalysisModel:   getEnv("ANALYSIS_MODEL", "claude-sonnet-4-5"),
		ExtractionModel: getEnv("EXTRACTION_MODEL", "claude-haiku-4-5"),
		LLMMaxRetries:   getEnvInt("LLM_MAX_RETRIES", 3),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string. DATABASE_URL wins when set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration reads an integer count of unit.
func getEnvDuration(key string, fallback int, unit time.Duration) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * unit
}
