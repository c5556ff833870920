package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory    = "memory"
	StorageFirestore = "firestore"

	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string

	StorageDriver              string
	MemorySeedFile             string
	FirebaseProject            string
	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string

	AuthProvider string
	JWTSecret    string
	JWTIssuer    string
	JWKSURL      string

	MessageRateLimit  int
	MessageRateWindow time.Duration

	WSAllowedOrigins []string
	WSSendBuffer     int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		StorageDriver:              strings.ToLower(getEnv("STORAGE_DRIVER", StorageMemory)),
		MemorySeedFile:             getEnv("MEMORY_SEED_FILE", ""),
		FirebaseProject:            getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),

		AuthProvider: strings.ToLower(getEnv("AUTH_PROVIDER", AuthJWT)),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", ""),
		JWKSURL:      getEnv("JWKS_URL", ""),

		MessageRateLimit:  getEnvAsInt("MESSAGE_RATE_LIMIT", 30),
		MessageRateWindow: getEnvAsDuration("MESSAGE_RATE_WINDOW", time.Minute),

		WSAllowedOrigins: getEnvAsList("WS_ALLOWED_ORIGINS"),
		WSSendBuffer:     getEnvAsInt("WS_SEND_BUFFER", 256),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StorageFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.AuthProvider {
	case AuthJWT:
		if c.JWTSecret == "" && c.JWKSURL == "" {
			return fmt.Errorf("JWT_SECRET or JWKS_URL is required for the jwt auth provider")
		}
	case AuthFirebase:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firebase auth provider")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	if c.MessageRateLimit <= 0 || c.MessageRateWindow <= 0 {
		return fmt.Errorf("MESSAGE_RATE_LIMIT and MESSAGE_RATE_WINDOW must be positive")
	}
	if c.WSSendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
