// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-voice-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines JWT bearer authentication settings.
type AuthConfig struct {
	JWTSecret   string // JWT_SECRET (empty disables auth, demo mode)
	JWTRequired bool   // JWT_REQUIRED (reject anonymous requests)
}

// TextgenConfig selects and tunes the text generation backend.
type TextgenConfig struct {
	Backend       string        // TEXTGEN_BACKEND: template|gemini
	GeminiAPIKey  string        // GEMINI_API_KEY (required for gemini backend)
	MaxVariations int           // GENERATION_MAX_VARIATIONS (cap per request)
	Timeout       time.Duration // GENERATION_TIMEOUT (per-variation budget)
}

// ProfileConfig tunes voice profile synthesis.
type ProfileConfig struct {
	SampleWeight       float64 // CONFIDENCE_SAMPLE_WEIGHT
	RangeWeight        float64 // CONFIDENCE_RANGE_WEIGHT
	CompletenessWeight float64 // CONFIDENCE_COMPLETENESS_WEIGHT
}

// LearningConfig tunes the feedback-learning loop.
type LearningConfig struct {
	ResynthesisThreshold int    // LEARNING_RESYNTHESIS_THRESHOLD
	Schedule             string // LEARNING_SCHEDULE (asynq cron spec)
}

// WorkerConfig configures the background task worker.
type WorkerConfig struct {
	Enabled     bool   // WORKER_ENABLED
	RedisAddr   string // REDIS_ADDR (e.g. "localhost:6379")
	Concurrency int    // WORKER_CONCURRENCY
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath         string // SQLite path
	ScraperBaseURL string // scraper sidecar, e.g. "http://localhost:9102"

	// Domain tuning
	Textgen  TextgenConfig
	Profile  ProfileConfig
	Learning LearningConfig
	Worker   WorkerConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig
	Auth     AuthConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:         getenv("DB_PATH", "app.db"),
		ScraperBaseURL: getenv("SCRAPER_BASE_URL", "http://localhost:9102"),

		// Domain tuning
		Textgen: TextgenConfig{
			Backend:       strings.ToLower(getenv("TEXTGEN_BACKEND", "template")),
			GeminiAPIKey:  getenv("GEMINI_API_KEY", ""),
			MaxVariations: getint("GENERATION_MAX_VARIATIONS", 5),
			Timeout:       getdur("GENERATION_TIMEOUT", 30*time.Second),
		},
		Profile: ProfileConfig{
			SampleWeight:       getfloat("CONFIDENCE_SAMPLE_WEIGHT", 50),
			RangeWeight:        getfloat("CONFIDENCE_RANGE_WEIGHT", 30),
			CompletenessWeight: getfloat("CONFIDENCE_COMPLETENESS_WEIGHT", 20),
		},
		Learning: LearningConfig{
			ResynthesisThreshold: getint("LEARNING_RESYNTHESIS_THRESHOLD", 5),
			Schedule:             getenv("LEARNING_SCHEDULE", "@every 1h"),
		},
		Worker: WorkerConfig{
			Enabled:     getbool("WORKER_ENABLED", false),
			RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
			Concurrency: getint("WORKER_CONCURRENCY", 5),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret:   getenv("JWT_SECRET", ""),
			JWTRequired: getbool("JWT_REQUIRED", false),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-voice-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.ScraperBaseURL) == "" {
		return cfg, errors.New("SCRAPER_BASE_URL must not be empty")
	}
	switch cfg.Textgen.Backend {
	case "template":
	case "gemini":
		if strings.TrimSpace(cfg.Textgen.GeminiAPIKey) == "" {
			return cfg, errors.New("GEMINI_API_KEY is required when TEXTGEN_BACKEND=gemini")
		}
	default:
		return cfg, errors.New("TEXTGEN_BACKEND must be one of: template, gemini")
	}
	if cfg.Textgen.MaxVariations < 1 {
		return cfg, errors.New("GENERATION_MAX_VARIATIONS must be >= 1")
	}
	if cfg.Textgen.Timeout <= 0 {
		return cfg, errors.New("GENERATION_TIMEOUT must be > 0")
	}
	if cfg.Profile.SampleWeight < 0 || cfg.Profile.RangeWeight < 0 || cfg.Profile.CompletenessWeight < 0 {
		return cfg, errors.New("confidence weights must be >= 0")
	}
	if cfg.Profile.SampleWeight+cfg.Profile.RangeWeight+cfg.Profile.CompletenessWeight <= 0 {
		return cfg, errors.New("confidence weights must not all be zero")
	}
	if cfg.Learning.ResynthesisThreshold < 1 {
		return cfg, errors.New("LEARNING_RESYNTHESIS_THRESHOLD must be >= 1")
	}
	if cfg.Worker.Enabled && strings.TrimSpace(cfg.Worker.RedisAddr) == "" {
		return cfg, errors.New("REDIS_ADDR must not be empty when WORKER_ENABLED=true")
	}
	if cfg.Worker.Concurrency < 1 {
		return cfg, errors.New("WORKER_CONCURRENCY must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	// if cfg.APIBasePath == "" || cfg.APIBasePath[0] != '/' {
	// 	return cfg, errors.New("API_BASE_PATH must start with '/'")
	// }

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
