package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	DB     DatabaseConfig
	JWT    JWTConfig
	PayPal PayPalConfig
	Resend ResendConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
}

type PayPalConfig struct {
	BaseURL   string
	ClientID  string
	Secret    string
	WebhookID string
	ReturnURL string
	CancelURL string
}

type ResendConfig struct {
	APIKey string
}

func Load() *Config {
	godotenv.Load() // .env dosyasını yükle

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
		},
		DB: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		PayPal: PayPalConfig{
			BaseURL:   getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
			ClientID:  getEnv("PAYPAL_CLIENT_ID", ""),
			Secret:    getEnv("PAYPAL_SECRET", ""),
			WebhookID: getEnv("PAYPAL_WEBHOOK_ID", ""),
			ReturnURL: getEnv("PAYPAL_RETURN_URL", "https://app.copydesk.io/billing/success"),
			CancelURL: getEnv("PAYPAL_CANCEL_URL", "https://app.copydesk.io/billing/cancelled"),
		},
		Resend: ResendConfig{
			APIKey: getEnv("RESEND_API_KEY", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
