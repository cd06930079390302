package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP Configuration
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Model Configuration
	ModelName string
	ModelPath string

	// Audit Configuration
	LogsOutputPath string
	DBPath         string // empty disables the sqlite mirror

	// NATS Configuration (empty NatsURL disables the transport)
	NatsURL     string
	Stream      string
	Subject     string
	Durable     string
	MaxMsgs     int
	MaxAge      time.Duration
	Concurrency int

	// Logging Configuration
	LogLevel  string
	LogFormat string
}

func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			slog.Warn("Could not load env file", "file", envFile, "error", err)
		} else {
			slog.Info("Environment loaded", "file", envFile)
		}
	}

	modelName := getEnv("MODEL_NAME", "news-classifier")

	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", "15s"),
		ModelName:       modelName,
		ModelPath:       getEnv("MODEL_PATH", "data/news_classifier.json"),
		LogsOutputPath:  getEnv("LOGS_OUTPUT_PATH", "data/logs.out"),
		DBPath:          getEnv("DB_PATH", ""),
		NatsURL:         getEnv("NATS_URL", ""),
		Stream:          getEnv("STREAM_NAME", "PREDICT"),
		Subject:         getEnv("SUBJECT", "predict.request."+modelName),
		Durable:         getEnv("QUEUE_DURABLE", "predict-wq"),
		MaxMsgs:         getEnvInt("QUEUE_MAX_MSGS", 2000),
		MaxAge:          getEnvDuration("QUEUE_MAX_AGE", "30s"),
		Concurrency:     getEnvInt("WORKER_CONCURRENCY", 2),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that would prevent the service from starting.
func (c *Config) Validate() error {
	var errs []error
	if c.ModelPath == "" {
		errs = append(errs, errors.New("MODEL_PATH must not be empty"))
	}
	if c.LogsOutputPath == "" {
		errs = append(errs, errors.New("LOGS_OUTPUT_PATH must not be empty"))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key, defaultVal string) time.Duration {
	val := getEnv(key, defaultVal)
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaultVal)
	return d
}
