package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATE/TIMESTAMP -> time.Time | loc=UTC keeps dates at UTC midnight
	// clientFoundRows=true -> UPDATE reports matched rows, so 0 means "no such id"
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// schema is applied in order by Migrate.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
        id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        property_id VARCHAR(191)    NOT NULL,
        guest_name  VARCHAR(255)    NOT NULL,
        guest_email VARCHAR(255)    NOT NULL,
        start_date  DATE            NOT NULL,
        end_date    DATE            NOT NULL,
        status      ENUM('ACTIVE','CANCELED') NOT NULL DEFAULT 'ACTIVE',
        created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        KEY idx_bookings_property_range (property_id, start_date, end_date),
        CONSTRAINT chk_bookings_range CHECK (start_date < end_date)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS blocks (
        id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        property_id VARCHAR(191)    NOT NULL,
        reason      VARCHAR(255)    NOT NULL,
        start_date  DATE            NOT NULL,
        end_date    DATE            NOT NULL,
        created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        KEY idx_blocks_property_range (property_id, start_date, end_date),
        CONSTRAINT chk_blocks_range CHECK (start_date < end_date)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	// One row per property; reservation writers lock it FOR UPDATE.
	`CREATE TABLE IF NOT EXISTS property_locks (
        property_id VARCHAR(191) NOT NULL,
        PRIMARY KEY (property_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the reservation tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
