package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL         string
	Port                string
	Env                 string
	JWTSecret           string
	GoogleClientID      string
	FacebookAppID       string
	FacebookAppSecret   string
	FacebookRedirectURL string
	FacebookAPIVersion  string
	WebhookVerifyToken  string
	CredentialSealKey   string
	OpenAIKey           string
	LLMProvider         string
	LLMModel            string
	LLMBaseURL          string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		Port:                os.Getenv("PORT"),
		Env:                 os.Getenv("ENV"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		FacebookAppID:       os.Getenv("FACEBOOK_APP_ID"),
		FacebookAppSecret:   os.Getenv("FACEBOOK_APP_SECRET"),
		FacebookRedirectURL: os.Getenv("FACEBOOK_REDIRECT_URL"),
		FacebookAPIVersion:  os.Getenv("FACEBOOK_API_VERSION"),
		WebhookVerifyToken:  os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		CredentialSealKey:   os.Getenv("CREDENTIAL_SEAL_KEY"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		LLMProvider:         os.Getenv("LLM_PROVIDER"),
		LLMModel:            os.Getenv("LLM_MODEL"),
		LLMBaseURL:          os.Getenv("LLM_BASE_URL"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.FacebookAPIVersion == "" {
		cfg.FacebookAPIVersion = "v19.0"
	}
	if cfg.WebhookVerifyToken == "" {
		cfg.WebhookVerifyToken = "minechat_webhook_verify_token"
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "openai"
	}

	return cfg
}
