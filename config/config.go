package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port   string
	JWTKey string

	// Persistence gateway selection: "store" uses the local database,
	// "http" proxies to a remote progress store.
	GatewayMode string
	GatewayURL  string

	// Idle quiz sessions older than this are discarded by the janitor.
	SessionTTLMinutes int

	// Tick interval for quiz countdowns, in milliseconds. Configurable
	// so tests can run against simulated time.
	CountdownTickMs int
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:   getEnv("PORT", "3000"),
		JWTKey: getEnv("JWT_SECRET_KEY", "defaultSecret"),

		GatewayMode: getEnv("GATEWAY_MODE", "store"),
		GatewayURL:  getEnv("GATEWAY_URL", "http://localhost:9090"),

		SessionTTLMinutes: getEnvInt("SESSION_TTL_MINUTES", 120),
		CountdownTickMs:   getEnvInt("COUNTDOWN_TICK_MS", 1000),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.GatewayMode != "store" && AppConfig.GatewayMode != "http" {
		log.Printf("Warning: Unknown GATEWAY_MODE %q, falling back to store.", AppConfig.GatewayMode)
		AppConfig.GatewayMode = "store"
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
