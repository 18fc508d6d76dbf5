package common

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Batch    BatchConfig
	Extract  ExtractConfig
	Ledger   LedgerConfig
	Logging  LoggingConfig
	Profiles ProfilesConfig
}

// BatchConfig holds input/output locations for a batch run
type BatchConfig struct {
	InputDir    string
	OutputDir   string
	Prefix      string
	Vendor      string
	SummaryXLSX string
}

// ExtractConfig holds text-extraction configuration
type ExtractConfig struct {
	Backend      string // "native" | "pdftotext"
	Segmenter    string // "columns" | "page"
	FooterMargin float64
	NoImageText  bool
	MaxPages     int
	Pdftotext    string
	Timeout      time.Duration
}

// LedgerConfig holds run-ledger database configuration. An empty DSN disables the ledger.
type LedgerConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// LoggingConfig holds slog handler configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// ProfilesConfig holds vendor profile locations
type ProfilesConfig struct {
	Dir string
}

// LoadDotEnv loads a .env file from the working directory when one exists.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Batch: BatchConfig{
			InputDir:    getEnv("INVOICE_INPUT_DIR", "./allinvoices"),
			OutputDir:   getEnv("INVOICE_OUTPUT_DIR", "./out"),
			Prefix:      getEnv("INVOICE_PREFIX", ""),
			Vendor:      getEnv("INVOICE_VENDOR", ""),
			SummaryXLSX: getEnv("INVOICE_SUMMARY_XLSX", ""),
		},
		Extract: ExtractConfig{
			Backend:      getEnv("INVOICE_BACKEND", "native"),
			Segmenter:    getEnv("INVOICE_SEGMENTER", "columns"),
			FooterMargin: getEnvAsFloat64("INVOICE_FOOTER_MARGIN", 50),
			NoImageText:  getEnvAsBool("INVOICE_NO_IMAGE_TEXT", true),
			MaxPages:     getEnvAsInt("INVOICE_MAX_PAGES", 0),
			Pdftotext:    getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Timeout:      getEnvAsDuration("INVOICE_EXTRACT_TIMEOUT", 2*time.Minute),
		},
		Ledger: LedgerConfig{
			DSN:             getEnv("LEDGER_DSN", ""),
			MaxConns:        getEnvAsInt32("LEDGER_MAX_CONNS", 4),
			MinConns:        getEnvAsInt32("LEDGER_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("LEDGER_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("LEDGER_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("LEDGER_DIAL_TIMEOUT", 3*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Profiles: ProfilesConfig{
			Dir: getEnv("INVOICE_PROFILES_DIR", ""),
		},
	}
}

// OutputDirs returns the text, json and validation directories under an output root.
func OutputDirs(root string) (text, json, validation string) {
	return filepath.Join(root, constants.TextDirName),
		filepath.Join(root, constants.JSONDirName),
		filepath.Join(root, constants.ValidationDirName)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("INVOICE_INPUT_DIR", c.Batch.InputDir, Required).
		Field("INVOICE_OUTPUT_DIR", c.Batch.OutputDir, Required).
		Field("INVOICE_BACKEND", c.Extract.Backend, OneOf("native", "pdftotext")).
		Field("INVOICE_SEGMENTER", c.Extract.Segmenter, OneOf("columns", "page")).
		Field("LOG_FORMAT", c.Logging.Format, OneOf("text", "json")).
		Field("LOG_LEVEL", c.Logging.Level, OneOf("debug", "info", "warn", "error"))
	if c.Extract.FooterMargin < 0 {
		v.Field("INVOICE_FOOTER_MARGIN", c.Extract.FooterMargin, func(name string, value interface{}) *ValidationError {
			return &ValidationError{Field: name, Value: value, Message: "must not be negative"}
		})
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
