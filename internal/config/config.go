package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DedupeTTL     time.Duration

	// WhatsApp Cloud API
	WhatsAppToken       string
	WhatsAppPhoneID     string
	WhatsAppVerifyToken string
	WhatsAppAppSecret   string
	WhatsAppGraphBase   string

	// Attachment storage. MediaBucket wins over MediaDir when set.
	MediaDir            string
	MediaBucket         string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	AdminJWTSecret      string
	CORSAllowedOrigins  []string
	LookupRatePerMinute int

	// SendGrid Email Configuration
	SendGridAPIKey     string
	SendGridFromEmail  string
	SendGridFromName   string
	// CybercellDeskEmail receives an alert for every new complaint.
	CybercellDeskEmail string

	DirectoryFile string

	WorkerCount        int
	QueueBuffer        int
	OutboundTimeout    time.Duration
	MediaTimeout       time.Duration
	SessionIdleTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DedupeTTL:     getEnvAsDuration("DEDUPE_TTL", 24*time.Hour),

		WhatsAppToken:       getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneID:     getEnv("WHATSAPP_PHONE_ID", ""),
		WhatsAppVerifyToken: getEnv("WHATSAPP_VERIFY_TOKEN", "cybersathi_verify"),
		WhatsAppAppSecret:   getEnv("WHATSAPP_APP_SECRET", ""),
		WhatsAppGraphBase:   getEnv("WHATSAPP_GRAPH_BASE", "https://graph.facebook.com/v20.0"),

		MediaDir:            getEnv("MEDIA_DIR", "downloads"),
		MediaBucket:         getEnv("MEDIA_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AdminJWTSecret:      getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS"),
		LookupRatePerMinute: getEnvAsInt("LOOKUP_RATE_PER_MINUTE", 30),

		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:  getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:   getEnv("SENDGRID_FROM_NAME", "CyberSathi Helpline"),
		CybercellDeskEmail: getEnv("CYBERCELL_DESK_EMAIL", ""),

		DirectoryFile: strings.TrimSpace(getEnv("DIRECTORY_FILE", "")),

		WorkerCount:        getEnvAsInt("WORKER_COUNT", 4),
		QueueBuffer:        getEnvAsInt("QUEUE_BUFFER", 256),
		OutboundTimeout:    getEnvAsDuration("OUTBOUND_TIMEOUT", 10*time.Second),
		MediaTimeout:       getEnvAsDuration("MEDIA_TIMEOUT", 20*time.Second),
		SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", 0),
	}
}

// WhatsAppEnabled reports whether outbound Graph API credentials are present.
func (c *Config) WhatsAppEnabled() bool {
	return strings.TrimSpace(c.WhatsAppToken) != "" && strings.TrimSpace(c.WhatsAppPhoneID) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
