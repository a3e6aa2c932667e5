package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port                   string
	Origin                 string
	Environment            string
	JWTSecret              string
	SocketTicketSecret     string
	SocketTicketTTLSeconds int
	Database               DatabaseConfig
	WebPush                WebPushConfig
	AppURL                 string
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// WebPushConfig holds the VAPID keys used by the push-delivery collaborator
type WebPushConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "social"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	// Load web push configuration
	webPushConfig := WebPushConfig{
		PublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		PrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
		Subject:    getEnv("VAPID_SUBJECT", "mailto:admin@localhost"),
	}

	socketTicketTTL, err := strconv.Atoi(getEnv("SOCKET_TICKET_TTL_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid SOCKET_TICKET_TTL_SECONDS: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:                   getEnv("PORT", "3001"),
		Origin:                 getEnv("ORIGIN", "http://localhost:4200"),
		Environment:            getEnv("APP_ENV", "development"),
		JWTSecret:              getEnv("JWT_SECRET", "default_jwt_secret"),
		SocketTicketSecret:     getEnv("SOCKET_TICKET_SECRET", "default_socket_ticket_secret"),
		SocketTicketTTLSeconds: socketTicketTTL,
		Database:               dbConfig,
		WebPush:                webPushConfig,
		AppURL:                 getEnv("APP_URL", "http://localhost:3001"),
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
