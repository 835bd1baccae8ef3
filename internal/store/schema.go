package store

import "fmt"

// EnsureTables creates the application tables if they do not exist.
// The unique index on reply_message_id backs the one-message-one-quotation
// invariant at the storage level.
func (s *Store) EnsureTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS quotations (
			id VARCHAR(36) PRIMARY KEY,
			supplier_name VARCHAR(255) NOT NULL,
			supplier_email VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			items TEXT NOT NULL,
			quoted_total DOUBLE NULL,
			delivery_days INT NULL,
			delivery_date VARCHAR(64) NULL,
			payment_terms TEXT NULL,
			notes TEXT NULL,
			suggested_action VARCHAR(16) NULL,
			reply_message_id VARCHAR(255) NULL,
			needs_manual_review BOOLEAN NOT NULL DEFAULT FALSE,
			raw_ai_response TEXT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (reply_message_id)
		)`,

		`CREATE TABLE IF NOT EXISTS audit_entries (
			id VARCHAR(26) PRIMARY KEY,
			entity_type VARCHAR(32) NOT NULL,
			entity_id VARCHAR(255) NOT NULL,
			action VARCHAR(64) NOT NULL,
			detail TEXT NOT NULL,
			actor VARCHAR(64) NOT NULL DEFAULT 'system',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS watch_checkpoint (
			id INT PRIMARY KEY,
			history_id BIGINT UNSIGNED NOT NULL DEFAULT 0,
			expiration TIMESTAMP NULL,
			renewed_at TIMESTAMP NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_quotations_status_created ON quotations(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_entries(entity_id)`,
	}

	for _, query := range indexes {
		if _, err := s.db.Exec(query); err != nil {
			// MySQL before 8.0.29 rejects IF NOT EXISTS on indexes;
			// a duplicate-index error here is harmless
			fmt.Printf("Warning: failed to create index (may already exist): %v\n", err)
		}
	}

	return nil
}
