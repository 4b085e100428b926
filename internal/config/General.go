package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// LogLevel selects the global log level ("debug", "info", "warn", "error").
	LogLevel string

	// PersistenceEnabled switches end-of-run snapshot persistence on. It is
	// derived from DB_HOST being set; the simulation core never needs it.
	PersistenceEnabled bool

	// DBHost is the PostgreSQL host for snapshot persistence.
	DBHost string
	// DBPort is the PostgreSQL port.
	DBPort int
	// DBUser is the database user.
	DBUser string
	// DBPassword is the database password.
	DBPassword string
	// DBName is the database name.
	DBName string
	// DBSSLMode is the sslmode parameter ("disable", "require", ...).
	DBSSLMode string
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars. The log level defaults to "info"; database settings are
// only required when DB_HOST is present.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	DBHost = os.Getenv("DB_HOST")
	PersistenceEnabled = DBHost != ""
	if !PersistenceEnabled {
		log.Debug().Msg("DB_HOST not set, snapshot persistence disabled.")
		return nil
	}

	var err error

	DBPort, err = getEnvAsInt("DB_PORT")
	if err != nil {
		return err
	}

	DBUser, err = getEnv("DB_USER")
	if err != nil {
		return err
	}

	DBPassword, err = getEnv("DB_PASSWORD")
	if err != nil {
		return err
	}

	DBName, err = getEnv("DB_NAME")
	if err != nil {
		return err
	}

	DBSSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	log.Debug().
		Str("DBHost", DBHost).
		Int("DBPort", DBPort).
		Str("DBName", DBName).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable with a fallback.
func getEnvOrDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}
