package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	LogLevel string

	// Invocation defaults; CLI flags override them.
	Engine     string
	OutputDir  string
	LogPath    string
	Timeout    time.Duration
	StagingDir string

	// EnginesFile optionally points at a YAML file overriding engine specs.
	EnginesFile  string
	OCRBinary    string
	TextBinary   string
	MaxTextBytes int64
	ProcessWait  time.Duration

	MetricsTextfile string

	// Optional Postgres mirror of the run log; empty disables it.
	PostgresDSN string

	APIPort           string
	APIRateLimitRPS   float64
	APIRateLimitBurst int
	UploadMaxBytes    int64
	UploadDir         string
	APIMaxInFlight    int
	APIQueueWait      time.Duration

	NATSURL           string
	NATSSubject       string
	WorkerMetricsPort string

	RetryMaxAttempts int
	BreakerEnabled   bool
}

func Load() Config {
	return Config{
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		Engine:     mustEnv("DOCROUTE_ENGINE", "both"),
		OutputDir:  mustEnv("DOCROUTE_OUTPUT_DIR", "out"),
		LogPath:    mustEnv("DOCROUTE_LOG_PATH", "runs_log.csv"),
		Timeout:    mustEnvSeconds("DOCROUTE_TIMEOUT_SECONDS", 120*time.Second),
		StagingDir: mustEnv("DOCROUTE_STAGING_DIR", ""),

		EnginesFile:  mustEnv("DOCROUTE_ENGINES_FILE", ""),
		OCRBinary:    mustEnv("DOCROUTE_OCR_BIN", ""),
		TextBinary:   mustEnv("DOCROUTE_TEXT_BIN", ""),
		MaxTextBytes: int64(mustEnvInt("DOCROUTE_MAX_TEXT_BYTES", 4<<20)),
		ProcessWait:  mustEnvSeconds("DOCROUTE_PROCESS_WAIT_SECONDS", 2*time.Second),

		MetricsTextfile: mustEnv("DOCROUTE_METRICS_TEXTFILE", ""),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		APIPort:           mustEnv("API_PORT", "8080"),
		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 2),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 4),
		UploadMaxBytes:    int64(mustEnvInt("UPLOAD_MAX_BYTES", 64<<20)),
		UploadDir:         mustEnv("UPLOAD_DIR", ""),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 4),
		APIQueueWait:      mustEnvSeconds("API_QUEUE_WAIT_SECONDS", 2*time.Second),

		NATSURL:           mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:       mustEnv("NATS_SUBJECT", "docroute.convert"),
		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),

		RetryMaxAttempts: mustEnvInt("RETRY_MAX_ATTEMPTS", 3),
		BreakerEnabled:   mustEnvBool("BREAKER_ENABLED", true),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvSeconds reads a whole or fractional number of seconds.
func mustEnvSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}
