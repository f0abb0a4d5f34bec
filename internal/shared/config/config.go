package config

import (
	"os"
	"strconv"
	"strings"

	"esign-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	PublicBaseURL   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	S3Endpoint      string
	S3PublicBaseURL string
	SSEKMSKeyID     string

	PDFRendererURL    string
	PDFRendererToken  string
	PDFRenderTimeoutS int
	SigningTimezone   string

	MailProvider      string
	ResendAPIKey      string
	MailFrom          string
	AppBaseURL        string
	NotifyMode        string
	NotifySQSQueueURL string
	NotifySQSEndpoint string

	RedisURL      string
	SignRatePerS  float64
	SignRateBurst int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string

	ReconcileSchedule string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL", "env": env})
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		Env:                env,
		DatabaseURL:        dbURL,
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data"),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3PublicBaseURL:    getEnv("S3_PUBLIC_BASE_URL", ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		PDFRendererURL:     getEnv("PDF_RENDERER_URL", "https://production-sfo.browserless.io"),
		PDFRendererToken:   getEnv("PDF_RENDERER_TOKEN", ""),
		PDFRenderTimeoutS:  getEnvInt("PDF_RENDER_TIMEOUT_SECONDS", 60),
		SigningTimezone:    getEnv("SIGNING_TIMEZONE", "America/Sao_Paulo"),
		MailProvider:       normalizeMailProvider(getEnv("MAIL_PROVIDER", "log")),
		ResendAPIKey:       getEnv("RESEND_API_KEY", ""),
		MailFrom:           getEnv("MAIL_FROM", "Pacto Seguro <onboarding@resend.dev>"),
		AppBaseURL:         strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		NotifyMode:         normalizeNotifyMode(getEnv("NOTIFY_MODE", "inline")),
		NotifySQSQueueURL:  getEnv("NOTIFY_SQS_QUEUE_URL", ""),
		NotifySQSEndpoint:  getEnv("NOTIFY_SQS_ENDPOINT", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		SignRatePerS:       getEnvFloat("SIGN_RATE_PER_SEC", 0.5),
		SignRateBurst:      getEnvInt("SIGN_RATE_BURST", 10),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
		ReconcileSchedule:  getEnv("RECONCILE_SCHEDULE", "@every 10m"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "type": "int", "error": err})
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "type": "float", "error": err})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeMailProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "resend":
		return "resend"
	default:
		return "log"
	}
}

func normalizeNotifyMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queue", "sqs":
		return "queue"
	default:
		return "inline"
	}
}
