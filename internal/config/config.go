package config

import (
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
)

const (
	defaultPort     = "8080"
	defaultCurrency = "TWD"
	sandboxBaseURL  = "https://sandbox-api-pay.line.me"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string
	LogLevel   string
	RedisAddr  string
	SecretKey  string

	LinePay LinePayConfig
}

// LinePayConfig holds the deployment defaults for the LINE Pay channel.
// Store-scoped rows in linepay_settings override the channel fields.
type LinePayConfig struct {
	ChannelID     string
	ChannelSecret string
	BaseURL       string
	Currency      string
	Locale        string
	PictureURL    string
	ConfirmURL    string
	CancelURL     string
	CompletedURL  string
}

var ErrEnvNotLoaded = errors.New("environment variables not loaded properly")

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    getEnv("APP_PORT", defaultPort),
		AppEnv:     os.Getenv("APP_ENV"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		SecretKey:  os.Getenv("SECRET_KEY"),
		LinePay: LinePayConfig{
			ChannelID:     os.Getenv("LINEPAY_CHANNEL_ID"),
			ChannelSecret: os.Getenv("LINEPAY_CHANNEL_SECRET"),
			BaseURL:       getEnv("LINEPAY_BASE_URL", sandboxBaseURL),
			Currency:      getEnv("LINEPAY_CURRENCY", defaultCurrency),
			Locale:        os.Getenv("LINEPAY_LOCALE"),
			PictureURL:    os.Getenv("LINEPAY_PICTURE_URL"),
			ConfirmURL:    os.Getenv("LINEPAY_CONFIRM_URL"),
			CancelURL:     os.Getenv("LINEPAY_CANCEL_URL"),
			CompletedURL:  getEnv("LINEPAY_COMPLETED_URL", "/checkout/completed"),
		},
	}

	if cfg.DBHost == "" {
		return nil, ErrEnvNotLoaded
	}

	return cfg, nil
}

func MustLoadConfig() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
