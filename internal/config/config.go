package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/joho/godotenv"
)

// Storage drivers
const (
	StorageFirestore = "firestore"
	StoragePostgres  = "postgres"
	StorageMemory    = "memory"
)

// Config holds application configuration
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	StorageDriver string
	DatabaseURL   string
	DevDataFile   string

	FirebaseProjectID string
	CredentialsFile   string

	Woo             WooConfig
	WooSyncInterval time.Duration
	WooSyncStatus   string

	RedisURL string
	NATSURL  string

	S3             S3Config
	LocalUploadDir string
	PublicBaseURL  string

	InviteSecret           string
	StoreID                string
	NotificationServiceURL string

	// BootstrapAdminUID creates the first admin user at startup when set.
	BootstrapAdminUID   string
	BootstrapAdminEmail string
}

// WooConfig holds WooCommerce REST credentials.
type WooConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	RequestsPerSec float64
	Timeout        time.Duration
}

// S3Config selects the asset bucket. An empty bucket means local storage.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
}

// New creates a new configuration from environment variables.
// A .env file is loaded first if present.
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "")),
		DevDataFile:   getEnv("DEV_DATA_FILE", ""),

		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
		CredentialsFile:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		Woo: WooConfig{
			BaseURL:        getEnv("WOO_BASE_URL", ""),
			ConsumerKey:    getEnv("WOO_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("WOO_CONSUMER_SECRET", ""),
			RequestsPerSec: getEnvAsFloat("WOO_REQUESTS_PER_SEC", 5),
			Timeout:        getEnvAsDuration("WOO_TIMEOUT", 30*time.Second),
		},
		WooSyncInterval: getEnvAsDuration("WOO_SYNC_INTERVAL", 0),
		WooSyncStatus:   getEnv("WOO_SYNC_STATUS", "processing"),

		RedisURL: getEnv("REDIS_URL", ""),
		NATSURL:  getEnv("NATS_URL", ""),

		S3: S3Config{
			Bucket:   getEnv("S3_BUCKET", ""),
			Region:   getEnv("S3_REGION", "us-east-1"),
			Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		LocalUploadDir: getEnv("LOCAL_UPLOAD_DIR", "./uploads"),

		InviteSecret:           getEnv("INVITE_SECRET", ""),
		StoreID:                getEnv("STORE_ID", "storybook"),
		NotificationServiceURL: getEnv("NOTIFICATION_SERVICE_URL", ""),

		BootstrapAdminUID:   getEnv("BOOTSTRAP_ADMIN_UID", ""),
		BootstrapAdminEmail: getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
	}

	cfg.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port), "/")

	if cfg.StorageDriver == "" {
		cfg.StorageDriver = defaultStorageDriver(cfg)
	}
	if cfg.StorageDriver == StoragePostgres {
		cfg.DatabaseURL = buildDatabaseURL()
	}

	if cfg.InviteSecret == "" && !cfg.IsProduction() {
		cfg.InviteSecret = "dev-invite-secret"
		log.Println("Warning: INVITE_SECRET not set, using development secret")
	}

	return cfg
}

// Validate reports settings that would stop the service from running correctly.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageFirestore, StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.StorageDriver == StorageFirestore && c.FirebaseProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required for firestore storage")
	}
	if c.InviteSecret == "" {
		return fmt.Errorf("INVITE_SECRET is required in production")
	}
	if c.IsProduction() && c.StorageDriver == StorageMemory {
		return fmt.Errorf("memory storage is not allowed in production")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// FirebaseEnabled reports whether Firebase credentials are configured.
func (c *Config) FirebaseEnabled() bool {
	return c.FirebaseProjectID != ""
}

// DevAuthEnabled allows X-User-* headers in place of ID tokens.
func (c *Config) DevAuthEnabled() bool {
	return !c.IsProduction() && !c.FirebaseEnabled()
}

// WooEnabled reports whether WooCommerce credentials are present.
func (c *Config) WooEnabled() bool {
	return c.Woo.BaseURL != "" && c.Woo.ConsumerKey != "" && c.Woo.ConsumerSecret != ""
}

func defaultStorageDriver(cfg *Config) string {
	if cfg.FirebaseEnabled() {
		return StorageFirestore
	}
	if os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != "" {
		return StoragePostgres
	}
	return StorageMemory
}

// buildDatabaseURL constructs the database URL from individual components
// Password is fetched from GCP Secret Manager if enabled
func buildDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	dbname := getEnv("DB_NAME", "storybook")
	sslmode := getEnv("DB_SSLMODE", "disable")

	password := getPasswordFromGCPOrEnv()

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode)
}

// getPasswordFromGCPOrEnv fetches the database password from GCP Secret Manager
// or falls back to environment variable
func getPasswordFromGCPOrEnv() string {
	if os.Getenv("USE_GCP_SECRET_MANAGER") != "true" {
		return getEnv("DB_PASSWORD", "password")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	secretFetcher, err := secrets.NewEnvSecretFetcher(ctx)
	if err != nil {
		log.Printf("Warning: Failed to initialize GCP Secret Manager: %v (using env var)", err)
		return getEnv("DB_PASSWORD", "password")
	}
	defer secretFetcher.Close()

	password := secrets.LoadDatabasePassword(ctx, secretFetcher)
	if password == "" || password == "password" {
		log.Printf("Warning: Got empty/default password from GCP Secret Manager, using env var")
		return getEnv("DB_PASSWORD", "password")
	}

	log.Printf("✓ Database password loaded from GCP Secret Manager")
	return password
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: invalid integer for %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Warning: invalid number for %s=%q, using %v", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("15m") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
