package config

import (
	"fmt"     // For DSN formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For cache TTL parsing

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort       string        // Application port
	DBDriver      string        // Database driver: mysql, postgres or sqlite
	DBUser        string        // Database user
	DBPassword    string        // Database password
	DBHost        string        // Database host
	DBPort        string        // Database port
	DBName        string        // Database name
	DBPath        string        // SQLite database file
	JWTSecret     string        // JWT secret key
	SessionCookie string        // Name of the session cookie
	RedisAddr     string        // Redis server address, empty disables caching
	RedisPass     string        // Redis password
	RedisDB       int           // Redis database number
	CacheTTL      time.Duration // Lifetime of cached listings
	LogLevel      string        // Logrus level name
	IsProd        bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	cacheTTL, err := time.ParseDuration(os.Getenv("CACHE_TTL"))
	if err != nil || cacheTTL <= 0 {
		cacheTTL = 60 * time.Second // Default cache lifetime
	}
	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),                  // Application port
		DBDriver:      getEnv("DB_DRIVER", "mysql"),                // Database driver
		DBUser:        os.Getenv("DB_USER"),                        // Database user
		DBPassword:    os.Getenv("DB_PASSWORD"),                    // Database password
		DBHost:        getEnv("DB_HOST", "127.0.0.1"),              // Database host
		DBPort:        os.Getenv("DB_PORT"),                        // Database port
		DBName:        os.Getenv("DB_NAME"),                        // Database name
		DBPath:        getEnv("DB_PATH", "data/catalog.db"),        // SQLite database file
		JWTSecret:     os.Getenv("JWT_SECRET"),                     // JWT secret key
		SessionCookie: getEnv("SESSION_COOKIE", "catalog_session"), // Session cookie name
		RedisAddr:     os.Getenv("REDIS_ADDR"),                     // Redis server address
		RedisPass:     os.Getenv("REDIS_PASS"),                     // Redis password
		RedisDB:       redisDB,                                     // Redis database number
		CacheTTL:      cacheTTL,                                    // Cache lifetime
		LogLevel:      getEnv("LOG_LEVEL", "info"),                 // Log level
		IsProd:        os.Getenv("IS_PROD") == "true",              // Is production environment
	}
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	switch c.DBDriver {
	case "postgres":
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, port)
	case "sqlite":
		return c.DBPath
	default:
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?charset=utf8mb4&parseTime=true"
	}
}

// getEnv returns the variable value or fallback when unset
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
