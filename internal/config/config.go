// Package config содержит логику чтения конфигурации портала оплаты обучения.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации портала.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	BaseURL     string `env:"BASE_URL"`
	SecretKey   string `env:"SECRET_KEY"`
	SeedDemo    bool   `env:"SEED_DEMO"`

	Stripe  StripeConfig
	Storage StorageConfig
	SMTP    SMTPConfig

	ReceiptFontPath string        `env:"RECEIPT_FONT_PATH"`
	ReceiptTimeout  time.Duration `env:"RECEIPT_TIMEOUT" envDefault:"30s"`
}

// StripeConfig содержит ключи платёжного шлюза.
type StripeConfig struct {
	SecretKey     string        `env:"STRIPE_SECRET_KEY"`
	PublicKey     string        `env:"STRIPE_PUBLIC_KEY"`
	WebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET"`
	Currency      string        `env:"STRIPE_CURRENCY" envDefault:"rub"`
	Timeout       time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
}

// StorageConfig описывает хранилище квитанций и отчётов.
// Если MinIOEndpoint пуст, файлы сохраняются в UploadFolder.
type StorageConfig struct {
	UploadFolder   string `env:"UPLOAD_FOLDER" envDefault:"./uploads"`
	MinIOEndpoint  string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOBucket    string `env:"MINIO_BUCKET" envDefault:"receipts"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL"`
}

// SMTPConfig описывает почтовый сервер для отправки квитанций.
// Пустой Host отключает отправку писем.
type SMTPConfig struct {
	Host      string `env:"SMTP_HOST"`
	Port      int    `env:"SMTP_PORT" envDefault:"587"`
	User      string `env:"SMTP_USER"`
	Password  string `env:"SMTP_PASS"`
	From      string `env:"SMTP_FROM" envDefault:"no-reply@vitte.example"`
	BillingTo string `env:"SMTP_TO_BILLING"`
}

const (
	defaultRunAddress = "localhost:8080"
	defaultBaseURL    = "http://localhost:8080"
)

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envBaseURL := cfg.BaseURL

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.BaseURL, "b", defaultBaseURL, "public base URL used in gateway redirects")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envBaseURL != "" {
		cfg.BaseURL = envBaseURL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	return cfg, nil
}
