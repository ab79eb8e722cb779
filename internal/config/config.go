// config.go
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	MongoURI    string
	MongoDBName string
	AuthURL     string
	RabbitURL   string

	// Payment provider
	ProviderEnv           string
	ProviderAPIKey        string
	ProviderSecretKey     string
	ProviderBaseURL       string
	ProviderWebhookSecret string
	PaymentCallbackURL    string

	// Ops / background jobs
	OpsJWTSecret   string
	OpsJWTIssuer   string
	PIICutoffDays  int
	PDFStorageBase string

	// Letter price in TRY, finalized onto every order at creation.
	PriceTRY float64
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "letter_orders_db"),
		AuthURL:     getEnv("AUTH_URL", "http://localhost:3000"),
		RabbitURL:   getEnv("RABBIT_URL", "amqp://localhost"),

		ProviderEnv:           getEnv("IYZICO_ENV", "sandbox"),
		ProviderAPIKey:        getEnv("IYZICO_API_KEY", "mock_api_key"),
		ProviderSecretKey:     getEnv("IYZICO_SECRET_KEY", "mock_secret_key"),
		ProviderBaseURL:       getEnv("IYZICO_BASE_URL", "https://sandbox-api.iyzipay.com"),
		ProviderWebhookSecret: getEnv("IYZICO_WEBHOOK_SECRET", "mock_webhook_secret"),
		PaymentCallbackURL:    getEnv("PAYMENT_CALLBACK_URL", "http://localhost:5173/pay/return"),

		OpsJWTSecret:   getEnv("OPS_JWT_SECRET", "dev-ops-secret"),
		OpsJWTIssuer:   getEnv("OPS_JWT_ISSUER", "letter-order-scheduler"),
		PIICutoffDays:  getEnvInt("PII_CUTOFF_DAYS", 30),
		PDFStorageBase: getEnv("PDF_STORAGE_BASE", "gs://letter-orders-sandbox"),

		PriceTRY: getEnvFloat("PRICE_TRY", 100.0),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
