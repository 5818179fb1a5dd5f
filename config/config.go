package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DeliveryModeDirect = "direct"
	DeliveryModeQueue  = "queue"
)

type Config struct {
	AppEnv string

	HTTPHost    string
	HTTPPort    string
	GRPCHost    string
	GRPCPort    string
	StaticDir   string
	CORSOrigins []string
	BodyLimit   string
	RateLimit   int

	LogLevel  string
	LogFormat string

	SMTPHost               string
	SMTPPort               int
	SMTPAltPort            int
	SMTPSecure             bool
	SMTPUser               string
	SMTPPass               string
	SMTPAuth               string
	SMTPService            string
	SMTPTLSRelaxedFallback bool
	SMTPTimeout            time.Duration
	SMTPPoolMaxConnections int
	SMTPPoolMaxMessages    int
	SMTPHeloName           string
	EmailProvider          string
	TransportsFile         string
	AWSRegion              string
	SESAccessKeyID         string
	SESSecretAccessKey     string
	PostmarkServerToken    string
	PostmarkAccountToken   string
	ResendAPIKey           string

	EmailFrom     string
	EmailFromName string
	CompanyEmail  string
	CompanyName   string
	BrochurePath  string

	RetryMax         int
	RetryBaseDelay   time.Duration
	RetryFactor      float64
	DeliveryDeadline time.Duration
	DeliveryMode     string
	StrictDelivery   bool
	RecordCapacity   int

	DKIMSelector   string
	DKIMDomain     string
	DKIMKeyPath    string
	DKIMPrivateKey string

	MySQLDSN     string
	MySQLMaxOpen int
	MySQLMaxIdle int
	MySQLMaxLife time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI      string
	MongoDatabase string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		AppEnv: getEnv("APP_ENV", "development"),

		HTTPHost:    getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		GRPCHost:    getEnv("GRPC_HOST", "0.0.0.0"),
		GRPCPort:    getEnv("GRPC_PORT", "9090"),
		StaticDir:   getEnv("STATIC_DIR", "public"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),
		BodyLimit:   getEnv("BODY_LIMIT", "1M"),
		RateLimit:   getEnvInt("RATE_LIMIT_PER_MINUTE", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               getEnvInt("SMTP_PORT", 465),
		SMTPAltPort:            getEnvInt("SMTP_ALT_PORT", 587),
		SMTPSecure:             getEnvBool("SMTP_SECURE", true),
		SMTPUser:               getEnv("SMTP_USER", ""),
		SMTPPass:               getEnv("SMTP_PASS", ""),
		SMTPAuth:               getEnv("SMTP_AUTH", "plain"),
		SMTPService:            getEnv("SMTP_SERVICE", ""),
		SMTPTLSRelaxedFallback: getEnvBool("SMTP_TLS_RELAXED_FALLBACK", false),
		SMTPTimeout:            getEnvDuration("SMTP_TIMEOUT", 30*time.Second),
		SMTPPoolMaxConnections: getEnvInt("SMTP_POOL_MAX_CONNECTIONS", 5),
		SMTPPoolMaxMessages:    getEnvInt("SMTP_POOL_MAX_MESSAGES", 100),
		SMTPHeloName:           getEnv("SMTP_HELO_NAME", "localhost"),
		EmailProvider:          getEnv("EMAIL_PROVIDER", ""),
		TransportsFile:         getEnv("TRANSPORTS_FILE", ""),
		AWSRegion:              getEnv("AWS_REGION", ""),
		SESAccessKeyID:         getEnv("SES_ACCESS_KEY_ID", ""),
		SESSecretAccessKey:     getEnv("SES_SECRET_ACCESS_KEY", ""),
		PostmarkServerToken:    getEnv("POSTMARK_SERVER_TOKEN", ""),
		PostmarkAccountToken:   getEnv("POSTMARK_ACCOUNT_TOKEN", ""),
		ResendAPIKey:           getEnv("RESEND_API_KEY", ""),

		EmailFrom:     getEnv("EMAIL_FROM", ""),
		EmailFromName: getEnv("EMAIL_FROM_NAME", ""),
		CompanyEmail:  getEnv("COMPANY_EMAIL", ""),
		CompanyName:   getEnv("COMPANY_NAME", "Our Company"),
		BrochurePath:  getEnv("BROCHURE_PATH", ""),

		RetryMax:         getEnvInt("RETRY_MAX", 2),
		RetryBaseDelay:   getEnvDuration("RETRY_BASE_DELAY", 2*time.Second),
		RetryFactor:      getEnvFloat("RETRY_FACTOR", 1.5),
		DeliveryDeadline: getEnvDuration("DELIVERY_DEADLINE", 45*time.Second),
		DeliveryMode:     strings.ToLower(getEnv("DELIVERY_MODE", DeliveryModeDirect)),
		StrictDelivery:   getEnvBool("STRICT_DELIVERY", false),
		RecordCapacity:   getEnvInt("RECORD_CAPACITY", 100),

		DKIMSelector:   getEnv("DKIM_SELECTOR", ""),
		DKIMDomain:     getEnv("DKIM_DOMAIN", ""),
		DKIMKeyPath:    getEnv("DKIM_KEY_PATH", ""),
		DKIMPrivateKey: os.Getenv("DKIM_PRIVATE_KEY"),

		MySQLDSN:     getEnv("MYSQL_DSN", ""),
		MySQLMaxOpen: getEnvInt("MYSQL_MAX_OPEN", 10),
		MySQLMaxIdle: getEnvInt("MYSQL_MAX_IDLE", 5),
		MySQLMaxLife: getEnvDuration("MYSQL_MAX_LIFETIME", 5*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "website"),
	}, nil
}

// IsProduction reports whether the process runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SenderAddress formats the configured sender identity for a From header.
func (c *Config) SenderAddress() string {
	from := c.EmailFrom
	if from == "" {
		from = c.SMTPUser
	}
	if from == "" || c.EmailFromName == "" {
		return from
	}
	return c.EmailFromName + " <" + from + ">"
}

// NotificationRecipient returns the inbox that receives form notifications.
func (c *Config) NotificationRecipient() string {
	if c.CompanyEmail != "" {
		return c.CompanyEmail
	}
	if c.EmailFrom != "" {
		return c.EmailFrom
	}
	return c.SMTPUser
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration accepts Go durations ("2s") or plain milliseconds ("2000").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
