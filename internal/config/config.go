package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	MinIO      MinIOConfig
	CORS       CORSConfig
	Twilio     TwilioConfig
	FCM        FCMConfig
	Classifier ClassifierConfig
	Alert      AlertConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=Asia/Kolkata"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	PublicURL string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type CORSConfig struct {
	Origins []string
}

// TwilioConfig configures the outbound WhatsApp channel
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string // e.g. "whatsapp:+14155238886"
	CountryCode  string // prepended to bare contact numbers, e.g. "+91"
}

type FCMConfig struct {
	CredentialsFile string
}

// ClassifierConfig configures the external audio classifier process
type ClassifierConfig struct {
	Python        string
	Script        string
	Timeout       time.Duration
	MaxConcurrent int
}

// AlertConfig is the alert decision and dispatch policy.
// Danger labels and the confidence threshold are deployment policy,
// not code constants.
type AlertConfig struct {
	DangerLabels        []string
	ConfidenceThreshold float64
	Quorum              int
	ContactTimeout      time.Duration
	DispatchTimeout     time.Duration
	DismissPhrases      []string
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "raksha"),
			Password: getEnv("DB_PASSWORD", "raksha"),
			Name:     getEnv("DB_NAME", "raksha"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: getDuration("JWT_EXPIRY", 24*time.Hour),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "raksha-audio"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		CORS: CORSConfig{
			Origins: splitList(getEnv("CORS_ORIGINS", "http://localhost:19006")),
		},
		Twilio: TwilioConfig{
			AccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
			WhatsAppFrom: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
			CountryCode:  getEnv("TWILIO_COUNTRY_CODE", "+91"),
		},
		FCM: FCMConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Classifier: ClassifierConfig{
			Python:        getEnv("CLASSIFIER_PYTHON", "python3"),
			Script:        getEnv("CLASSIFIER_SCRIPT", "./python/classify_audio.py"),
			Timeout:       getDuration("CLASSIFIER_TIMEOUT", 30*time.Second),
			MaxConcurrent: getInt("CLASSIFIER_MAX_CONCURRENT", 4),
		},
		Alert: AlertConfig{
			DangerLabels:        splitList(getEnv("CLASSIFIER_DANGER_LABELS", "screaming,crying")),
			ConfidenceThreshold: getFloat("CLASSIFIER_THRESHOLD", 0.3),
			Quorum:              getInt("ALERT_FALSE_VOTE_QUORUM", 2),
			ContactTimeout:      getDuration("ALERT_CONTACT_TIMEOUT", 10*time.Second),
			DispatchTimeout:     getDuration("ALERT_DISPATCH_TIMEOUT", 60*time.Second),
			DismissPhrases:      splitList(getEnv("ALERT_DISMISS_PHRASES", "false alarm,ignore,not real,no danger,cancel")),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
