package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	DBDriver   string // postgres, mysql, sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	JWTSecret        string
	JWTExpire        time.Duration
	JWTCookieExpire  int // в днях
	CookieSecure     bool
	CORSAllowOrigins string

	UploadDir        string
	CertificateStore string // disk, gridfs
	MongoURI         string
	MongoDatabase    string

	SeedOnStart   bool
	AdminEmail    string
	AdminPassword string

	MaintenanceEnabled  bool
	MaintenanceSchedule string

	LogFormat string
	LogColors bool
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	jwtExpire, err := parseExpire(getEnv("JWT_EXPIRE", "30d"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRE: %w", err)
	}

	cookieDays, err := strconv.Atoi(getEnv("JWT_COOKIE_EXPIRE", "30"))
	if err != nil || cookieDays <= 0 {
		return nil, fmt.Errorf("JWT_COOKIE_EXPIRE must be a positive number of days")
	}

	cfg := &Config{
		ServerPort: getEnv("PORT", "5000"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "potato_learn_platform"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBPath:     getEnv("DB_PATH", "potato-learn.db"),

		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		JWTExpire:        jwtExpire,
		JWTCookieExpire:  cookieDays,
		CookieSecure:     getBool("COOKIE_SECURE", false),
		CORSAllowOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001"),

		UploadDir:        getEnv("UPLOAD_DIR", "public/uploads"),
		CertificateStore: strings.ToLower(getEnv("CERTIFICATE_STORE", "disk")),
		MongoURI:         getEnv("MONGODB_URI", "mongodb://localhost:27017/potato-learn-platform"),
		MongoDatabase:    getEnv("MONGODB_DATABASE", "potato-learn-platform"),

		SeedOnStart:   getBool("SEED_ON_START", true),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@potatolearn.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),

		MaintenanceEnabled:  getBool("MAINTENANCE_ENABLED", false),
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "@daily"),

		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogColors: getBool("LOG_COLORS", true),
	}

	switch cfg.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	switch cfg.CertificateStore {
	case "disk", "gridfs":
	default:
		return nil, fmt.Errorf("unsupported CERTIFICATE_STORE %q", cfg.CertificateStore)
	}

	return cfg, nil
}

// CookieMaxAge возвращает срок жизни cookie с токеном
func (c *Config) CookieMaxAge() time.Duration {
	return time.Duration(c.JWTCookieExpire) * 24 * time.Hour
}

// parseExpire понимает "30d" (дни) и обычный формат time.ParseDuration
func parseExpire(value string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return d, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
