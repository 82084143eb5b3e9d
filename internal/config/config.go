package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Paystack PaystackConfig
	WhatsApp WhatsAppConfig
	R2       R2Config
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	URL      string // Full database URL
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SessionConfig struct {
	Secret string
	// Secret used to sign collaborator access tokens
	TokenSecret string
}

type PaystackConfig struct {
	SecretKey   string
	PublicKey   string
	Environment string
	WebhookURL  string
	CallbackURL string
	// Settlement currency for hosted checkouts. Paystack does not settle SAR,
	// so the catalog's SAR prices are charged in this currency.
	Currency string
}

type WhatsAppConfig struct {
	APIBaseURL  string
	AccessToken string
	SenderID    string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	Region          string
	Endpoint        string
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),
		},
		Database: parseDatabaseConfig(),
		Session: SessionConfig{
			Secret:      getEnv("SESSION_SECRET", "your-secret-key-change-in-production"),
			TokenSecret: getEnv("COLLABORATOR_TOKEN_SECRET", "collaborator-token-secret-change-in-production"),
		},
		Paystack: PaystackConfig{
			SecretKey:   getEnv("PAYSTACK_SECRET_KEY", ""),
			PublicKey:   getEnv("PAYSTACK_PUBLIC_KEY", ""),
			Environment: getEnv("PAYSTACK_ENVIRONMENT", "test"),
			WebhookURL:  getEnv("PAYSTACK_WEBHOOK_URL", "http://localhost:8080/webhooks/paystack"),
			CallbackURL: getEnv("PAYSTACK_CALLBACK_URL", "http://localhost:8080/payment/callback"),
			Currency:    getEnv("PAYSTACK_CURRENCY", "ZAR"),
		},
		WhatsApp: WhatsAppConfig{
			APIBaseURL:  getEnv("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v19.0"),
			AccessToken: getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			SenderID:    getEnv("WHATSAPP_SENDER_ID", ""),
		},
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", "invitation-cards"),
			PublicURL:       getEnv("R2_PUBLIC_URL", ""),
			Region:          getEnv("R2_REGION", "auto"),
			Endpoint:        getEnv("R2_ENDPOINT", ""),
		},
	}

	return config, nil
}

func parseDatabaseConfig() DatabaseConfig {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL != "" {
		return parseDatabaseURL(databaseURL)
	}

	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "invitation_platform"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

func parseDatabaseURL(databaseURL string) DatabaseConfig {
	config := DatabaseConfig{
		URL: databaseURL,
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return config
	}

	config.Host = u.Hostname()
	if u.Port() != "" {
		config.Port, _ = strconv.Atoi(u.Port())
	} else {
		config.Port = 5432
	}

	if u.User != nil {
		config.User = u.User.Username()
		config.Password, _ = u.User.Password()
	}

	config.DBName = strings.TrimPrefix(u.Path, "/")

	config.SSLMode = u.Query().Get("sslmode")
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
