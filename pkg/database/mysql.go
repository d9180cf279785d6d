package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/sms-dispatch-service/environments"
	"github.com/onurcolak/sms-dispatch-service/pkg/logger"
)

func DSN(cfg environments.DatabaseConfig) string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)
}

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS gateways (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		base_url VARCHAR(255) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS account_balances (
		account_id BIGINT PRIMARY KEY,
		credits BIGINT NOT NULL DEFAULT 0,
		reserved BIGINT NOT NULL DEFAULT 0,
		version BIGINT NOT NULL DEFAULT 0,
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		CONSTRAINT chk_balance_non_negative CHECK (credits >= 0 AND reserved >= 0 AND reserved <= credits)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		account_id BIGINT NOT NULL,
		correlation_id CHAR(36) NOT NULL,
		kind VARCHAR(16) NOT NULL,
		amount BIGINT NOT NULL,
		credits_after BIGINT NOT NULL,
		reserved_after BIGINT NOT NULL,
		reason VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_ledger_account (account_id, id),
		INDEX idx_ledger_correlation (correlation_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS dispatch_batches (
		id CHAR(36) PRIMARY KEY,
		account_id BIGINT NOT NULL,
		segments INT NOT NULL,
		recipient_count INT NOT NULL,
		reserved_credits BIGINT NOT NULL,
		charged_credits BIGINT NULL,
		settled_at DATETIME(6) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_batches_unsettled (settled_at, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS messages (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		batch_id CHAR(36) NOT NULL,
		account_id BIGINT NOT NULL,
		recipient VARCHAR(20) NOT NULL,
		body TEXT NOT NULL,
		gateway_id BIGINT NOT NULL,
		sender_id VARCHAR(32) NOT NULL,
		encoding VARCHAR(16) NOT NULL,
		segments INT NOT NULL,
		status VARCHAR(20) NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		scheduled_for DATETIME(6) NULL,
		sent_at DATETIME(6) NULL,
		error_message VARCHAR(1024) NULL,
		remote_message_id VARCHAR(100) NULL,
		status_changed_at DATETIME(6) NOT NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_messages_due (status, scheduled_for),
		INDEX idx_messages_stale (status, status_changed_at),
		INDEX idx_messages_batch (batch_id, status),
		INDEX idx_messages_account (account_id, created_at),
		CONSTRAINT chk_messages_sent_at CHECK ((status = 'sent') = (sent_at IS NOT NULL))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

func RunMigrations(db *sqlx.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

// SeedTestData creates demo gateways and funded accounts on an empty database.
func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM gateways")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d gateways, skipping seed", count)
		return nil
	}

	gateways := []struct {
		name    string
		baseURL string
	}{
		{"primary", "http://localhost:9090"},
		{"fallback", "http://localhost:9091"},
	}

	for _, g := range gateways {
		if _, err := db.Exec("INSERT INTO gateways (name, base_url) VALUES (?, ?)", g.name, g.baseURL); err != nil {
			return fmt.Errorf("failed to seed gateways: %w", err)
		}
	}

	accounts := []struct {
		id      int64
		credits int64
	}{
		{1, 1000},
		{2, 50},
		{3, 5},
	}

	for _, a := range accounts {
		_, err := db.Exec(
			"INSERT IGNORE INTO account_balances (account_id, credits, reserved, version) VALUES (?, ?, 0, 0)",
			a.id, a.credits,
		)
		if err != nil {
			return fmt.Errorf("failed to seed accounts: %w", err)
		}
	}

	logger.Infof("Seeded %d gateways and %d accounts", len(gateways), len(accounts))
	return nil
}
