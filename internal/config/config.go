package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Supabase (PostgREST destination)
	SupabaseURL string
	SupabaseKey string

	// imweb commerce API
	ImwebAccessToken string
	ImwebAPIKey      string
	ImwebSecretKey   string
	FirstOrderDate   string

	// WooCommerce store
	WooSiteURL        string
	WooConsumerKey    string
	WooConsumerSecret string
	WooTargetProduct  int

	// Sync tuning
	ImwebBatchSize int
	CSVBatchSize   int
	MaxRetries     int

	// Kafka run events (disabled when no brokers are set)
	KafkaBrokers string
	KafkaTopic   string

	// API Configuration
	APIPort string
	APIHost string

	// Environment
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		SupabaseURL:       getEnv("SUPABASE_URL", ""),
		SupabaseKey:       getEnv("SUPABASE_KEY", ""),
		ImwebAccessToken:  getEnv("ACCESS_TOKEN", ""),
		ImwebAPIKey:       getEnv("API_KEY", ""),
		ImwebSecretKey:    getEnv("SECRET_KEY", ""),
		FirstOrderDate:    getEnv("FIRST_ORDER_DATE", "2025-01-20"),
		WooSiteURL:        getEnv("WOO_SITE_URL", "https://dasdeutsch.com"),
		WooConsumerKey:    getEnv("DOK_WP_WOO_Consumer_KEY", ""),
		WooConsumerSecret: getEnv("DOK_WP_WOO_Consumer_SECRET", ""),
		WooTargetProduct:  getEnvAsInt("WOO_TARGET_PRODUCT", 237513),
		ImwebBatchSize:    getEnvAsInt("IMWEB_BATCH_SIZE", 10),
		CSVBatchSize:      getEnvAsInt("CSV_BATCH_SIZE", 50),
		MaxRetries:        getEnvAsInt("MAX_RETRIES", 3),
		KafkaBrokers:      getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "uzu-order-events"),
		APIPort:           getEnv("API_PORT", "8080"),
		APIHost:           getEnv("API_HOST", "0.0.0.0"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}, nil
}

// ValidateSupabase rejects missing or template credentials before any row is
// collected, so a misconfigured run fails fast instead of after the API sweep.
func (c *Config) ValidateSupabase() error {
	if c.SupabaseURL == "" || c.SupabaseURL == "your_supabase_url_here" {
		return fmt.Errorf("SUPABASE_URL is not configured")
	}
	if c.SupabaseKey == "" || c.SupabaseKey == "your_supabase_anon_key_here" {
		return fmt.Errorf("SUPABASE_KEY is not configured")
	}
	return nil
}

// ValidateImweb requires either a pre-issued access token or a key/secret
// pair for the token exchange.
func (c *Config) ValidateImweb() error {
	if c.ImwebAccessToken != "" && c.ImwebAccessToken != "your_access_token_here" {
		return nil
	}
	if c.ImwebAPIKey != "" && c.ImwebSecretKey != "" {
		return nil
	}
	return fmt.Errorf("imweb credentials missing: set ACCESS_TOKEN or API_KEY and SECRET_KEY")
}

// ValidateWoo requires real WooCommerce consumer credentials.
func (c *Config) ValidateWoo() error {
	if c.WooConsumerKey == "" || c.WooConsumerKey == "your_consumer_key" {
		return fmt.Errorf("DOK_WP_WOO_Consumer_KEY is not configured")
	}
	if c.WooConsumerSecret == "" || c.WooConsumerSecret == "your_consumer_secret" {
		return fmt.Errorf("DOK_WP_WOO_Consumer_SECRET is not configured")
	}
	return nil
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
