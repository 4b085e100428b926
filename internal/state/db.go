package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
// Fixed-point values are stored as NUMERIC(78, 0), wide enough for any
// 256-bit integer, and converted back to Ints on load.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS run_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			run_name VARCHAR(255) NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			trades_executed INTEGER NOT NULL,

			balance_0 NUMERIC(78, 0) NOT NULL,
			balance_1 NUMERIC(78, 0) NOT NULL,
			invariant_d NUMERIC(78, 0) NOT NULL,
			price_scale NUMERIC(78, 0) NOT NULL,
			price_oracle NUMERIC(78, 0) NOT NULL,
			virtual_price NUMERIC(78, 0) NOT NULL,
			xcp_profit NUMERIC(78, 0) NOT NULL,
			xcp_profit_a NUMERIC(78, 0) NOT NULL,
			total_volume NUMERIC(78, 0) NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_run_snapshots_run_name ON run_snapshots(run_name, snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_run_snapshots_timestamp ON run_snapshots(snapshot_timestamp DESC);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// HealthCheck tests if the database connection is healthy.
func HealthCheck(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
