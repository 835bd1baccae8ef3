package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL/MariaDB in production
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL for ad hoc connectivity checks only
)

// New creates a new database connection. The driver is auto-detected from
// the URL, but the quotation store emits MySQL/MariaDB SQL (`?`
// placeholders, ON DUPLICATE KEY UPDATE); a postgres URL yields a
// connection usable for pings and ad hoc queries, not for the store.
func New(databaseURL string) (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	db, err := sqlx.Open(driverFor(databaseURL), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func driverFor(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "postgres") {
		return "postgres"
	}
	return "mysql"
}
