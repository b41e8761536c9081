package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ExtractConfig defines extraction behavior and limits.
type ExtractConfig struct {
	ImagesDir      string
	RequestTimeout time.Duration
	JobMaxAttempts int
	RetryBaseDelay time.Duration
	PreviewDPI     int
}

// QueueConfig defines queue connectivity and names.
type QueueConfig struct {
	RedisURL     string
	Stream       string
	Group        string
	Consumer     string
	PollInterval time.Duration
}

// WorkerConfig defines background worker behavior.
type WorkerConfig struct {
	Enabled     bool
	Concurrency int
}

// StorageConfig defines optional S3 result upload.
type StorageConfig struct {
	Upload bool
	Bucket string
	Prefix string
	Region string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Server  ServerConfig
	Extract ExtractConfig
	Queue   QueueConfig
	Worker  WorkerConfig
	Storage StorageConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	// Logging defaults
	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdfextract.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	// Axiom defaults
	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdfextract",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	// Server defaults
	cfg.Server = ServerConfig{
		Addr:            getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:     parseDuration(getEnv("HTTP_READ_TIMEOUT", "30s"), 30*time.Second),
		WriteTimeout:    parseDuration(getEnv("HTTP_WRITE_TIMEOUT", "120s"), 120*time.Second),
		ShutdownTimeout: parseDuration(getEnv("HTTP_SHUTDOWN_TIMEOUT", "15s"), 15*time.Second),
	}

	// Extract defaults
	cfg.Extract = ExtractConfig{
		ImagesDir:      getEnv("IMAGES_DIR", "data/images"),
		RequestTimeout: parseDuration(getEnv("EXTRACT_TIMEOUT", "300s"), 300*time.Second),
		JobMaxAttempts: parseInt(getEnv("JOB_MAX_ATTEMPTS", "3"), 3),
		RetryBaseDelay: parseDuration(getEnv("RETRY_BASE_DELAY", "2s"), 2*time.Second),
		PreviewDPI:     parseInt(getEnv("PREVIEW_DPI", "150"), 150),
	}

	// Queue defaults
	cfg.Queue = QueueConfig{
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		Stream:       getEnv("QUEUE_STREAM", "jobs:pdf:extract"),
		Group:        getEnv("QUEUE_GROUP", "workers:extract"),
		Consumer:     getEnv("QUEUE_CONSUMER", hostnameDefault()),
		PollInterval: parseDuration(getEnv("QUEUE_POLL_INTERVAL", "100ms"), 100*time.Millisecond),
	}

	// Worker defaults
	cfg.Worker = WorkerConfig{
		Enabled:     parseBool(getEnv("WORKER_ENABLED", "true")),
		Concurrency: parseInt(getEnv("WORKER_CONCURRENCY", "4"), 4),
	}

	// Storage defaults
	cfg.Storage = StorageConfig{
		Upload: parseBool(getEnv("UPLOAD_RESULTS_TO_S3", "0")),
		Bucket: getEnv("S3_BUCKET", ""),
		Prefix: getEnv("S3_PREFIX", "pdfextract/results"),
		Region: getEnv("AWS_REGION", ""),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}

func hostnameDefault() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "worker-1"
}
