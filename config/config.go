package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	PreviewCacheSize int
	PreviewTTL       time.Duration
	ToastBuffer      int

	RedisEnabled       bool
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	RedisNotifyChannel string

	RabbitMQEnabled  bool
	RabbitMQURL      string
	RabbitMQHost     string
	RabbitMQPort     string
	RabbitMQUser     string
	RabbitMQPass     string
	RabbitMQVhost    string
	RabbitMQPrefetch int
	NotifyExchange   string
	NotifyQueue      string

	NotifyWorkerRate  float64
	NotifyWorkerBurst int
	UploadRate        float64
	UploadBurst       int

	LogLevel  slog.Level
	LogFormat string
}

var AppConfig Config

// getEnv returns the environment value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseLogLevel maps a level name to slog.Level, falling back to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitConfig loads configuration and initializes sub-configs.
func InitConfig() {
	rabbitHost := getEnv("RABBITMQ_HOST", "localhost")
	rabbitPort := getEnv("RABBITMQ_PORT", "5672")
	rabbitUser := getEnv("RABBITMQ_USER", "guest")
	rabbitPass := getEnv("RABBITMQ_PASSWORD", "guest")
	rabbitVhost := getEnv("RABBITMQ_VHOST", "/")
	rabbitURL := getEnv("RABBITMQ_URL", "")
	if rabbitURL == "" {
		rabbitURL = fmt.Sprintf(
			"amqp://%s:%s@%s:%s/%s",
			url.PathEscape(rabbitUser),
			url.PathEscape(rabbitPass),
			rabbitHost,
			rabbitPort,
			url.PathEscape(rabbitVhost),
		)
	}
	logFormat := strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if logFormat != "json" {
		logFormat = "text"
	}
	AppConfig = Config{
		HTTPAddr:           getEnv("HTTP_ADDR", "127.0.0.1:8000"),
		PreviewCacheSize:   getEnvInt("PREVIEW_CACHE_SIZE", 256),
		PreviewTTL:         getEnvDuration("PREVIEW_TTL", 10*time.Minute),
		ToastBuffer:        getEnvInt("TOAST_BUFFER", 64),
		RedisEnabled:       getEnvBool("REDIS_ENABLED", false),
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RedisNotifyChannel: getEnv("REDIS_NOTIFY_CHANNEL", "localvault:toasts"),
		RabbitMQEnabled:    getEnvBool("RABBITMQ_ENABLED", false),
		RabbitMQURL:        rabbitURL,
		RabbitMQHost:       rabbitHost,
		RabbitMQPort:       rabbitPort,
		RabbitMQUser:       rabbitUser,
		RabbitMQPass:       rabbitPass,
		RabbitMQVhost:      rabbitVhost,
		RabbitMQPrefetch:   getEnvInt("RABBITMQ_PREFETCH", 8),
		NotifyExchange:     getEnv("NOTIFY_EXCHANGE", "localvault.notify.exchange"),
		NotifyQueue:        getEnv("NOTIFY_QUEUE", "localvault.notify.queue"),
		NotifyWorkerRate:   getEnvFloat("NOTIFY_WORKER_RATE", 20),
		NotifyWorkerBurst:  getEnvInt("NOTIFY_WORKER_BURST", 10),
		UploadRate:         getEnvFloat("UPLOAD_RATE", 0),
		UploadBurst:        getEnvInt("UPLOAD_BURST", 4),
		LogLevel:           parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LogFormat:          logFormat,
	}

	InitStorageConfig()
}

// SetupLogger builds the process logger from AppConfig and installs it as the slog default.
func SetupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: AppConfig.LogLevel}

	var handler slog.Handler
	if AppConfig.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
