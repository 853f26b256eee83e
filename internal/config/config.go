package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the typed view of the environment the server runs with.
type Config struct {
	Env          string
	Port         string
	RealtimePort string
	StoreDriver  string // "postgres" or "memory"

	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBSSLMode       string
	DBMaxIdleConns  int
	DBMaxOpenConns  int
	DBConnMaxLife   time.Duration
	DBConnMaxIdle   time.Duration
	RedisEnabled    bool
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	RedisPoolSize   int
	CacheTTL        time.Duration
	JWTSecret       string
	AccessTokenTTL  time.Duration
	CORSOrigins     string
	FrontendURL     string
	PublicBaseURL   string
	DefaultGateway  string
	Currency        string
	PaystackSecret  string
	PaystackBaseURL string
	StripeSecret    string
	StripeWebhook   string
	PaymentTimeout  time.Duration

	ReconcileSchedule    string
	ReconcileMinAge      time.Duration
	ReconcileExpireAfter time.Duration
	ReconcileBatchSize   int

	NotificationQueueSize int
	NotificationWorkers   int
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// Load reads the .env file (if any) and returns the resolved configuration.
func Load() *Config {
	LoadEnv()

	return &Config{
		Env:          GetEnv("ENV", "development"),
		Port:         GetEnv("PORT", "3000"),
		RealtimePort: GetEnv("REALTIME_PORT", "3001"),
		StoreDriver:  GetEnv("STORE_DRIVER", "postgres"),

		DBHost:         GetEnv("DB_HOST", "localhost"),
		DBPort:         GetEnv("DB_PORT", "5432"),
		DBUser:         GetEnv("DB_USER", "postgres"),
		DBPassword:     GetEnv("DB_PASSWORD", "postgres"),
		DBName:         GetEnv("DB_NAME", "estatehub"),
		DBSSLMode:      GetEnv("DB_SSLMODE", "disable"),
		DBMaxIdleConns: GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		DBConnMaxLife:  GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		DBConnMaxIdle:  GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),

		RedisEnabled:  GetBoolEnv("REDIS_ENABLED", true),
		RedisHost:     GetEnv("REDIS_HOST", "localhost"),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetIntEnv("REDIS_DB", 0),
		RedisPoolSize: GetIntEnv("REDIS_POOL_SIZE", 10),
		CacheTTL:      GetDurationEnv("CACHE_TTL", 10*time.Minute),

		JWTSecret:      GetEnv("JWT_SECRET", "estatehub"),
		AccessTokenTTL: GetDurationEnv("ACCESS_TOKEN_TTL", 24*time.Hour),
		CORSOrigins:    GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		FrontendURL:    GetEnv("FRONTEND_URL", "http://localhost:5173"),
		PublicBaseURL:  GetEnv("PUBLIC_BASE_URL", "http://localhost:3000"),

		DefaultGateway:  GetEnv("PAYMENT_GATEWAY", "paystack"),
		Currency:        GetEnv("PAYMENT_CURRENCY", "NGN"),
		PaystackSecret:  GetEnv("PAYSTACK_SECRET_KEY", ""),
		PaystackBaseURL: GetEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		StripeSecret:    GetEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhook:   GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		PaymentTimeout:  GetDurationEnv("PAYMENT_HTTP_TIMEOUT", 15*time.Second),

		ReconcileSchedule:    GetEnv("RECONCILE_SCHEDULE", "@every 5m"),
		ReconcileMinAge:      GetDurationEnv("RECONCILE_MIN_AGE", 10*time.Minute),
		ReconcileExpireAfter: GetDurationEnv("RECONCILE_EXPIRE_AFTER", 24*time.Hour),
		ReconcileBatchSize:   GetIntEnv("RECONCILE_BATCH_SIZE", 50),

		NotificationQueueSize: GetIntEnv("NOTIFICATION_QUEUE_SIZE", 256),
		NotificationWorkers:   GetIntEnv("NOTIFICATION_WORKERS", 2),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Printf("invalid duration for %s, using default %s", key, defaultVal)
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode
}

// RedisAddr returns host:port for the redis client.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
