// Package testutil opens the in-memory database used by ledger and service
// tests.
//
// SQLite gives columns declared decimal(32,18) REAL affinity, which would
// round-trip every monetary value through float64 and corrupt amounts beyond
// 15 digits. The schema here declares those columns TEXT so decimal values
// store in their exact string form, matching the lossless semantics of the
// production numeric(32,18) columns.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE accounts (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		username          TEXT NOT NULL UNIQUE,
		email             TEXT NOT NULL UNIQUE,
		password_hash     TEXT NOT NULL,
		wallet_address    TEXT NOT NULL UNIQUE,
		encrypted_secret  BLOB NOT NULL,
		credits           TEXT NOT NULL DEFAULT '0',
		version           INTEGER NOT NULL DEFAULT 0,
		referral_code     TEXT UNIQUE,
		referred_by       INTEGER,
		referral_earnings TEXT NOT NULL DEFAULT '0',
		is_active         NUMERIC NOT NULL DEFAULT true,
		is_admin          NUMERIC NOT NULL DEFAULT false,
		kyc_approved      NUMERIC NOT NULL DEFAULT false,
		created_at        DATETIME,
		updated_at        DATETIME,
		deleted_at        DATETIME
	)`,
	`CREATE TABLE credit_entries (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		amount     TEXT NOT NULL,
		reason     TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE stakes (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id    INTEGER NOT NULL,
		plan_id       TEXT NOT NULL,
		plan_name     TEXT NOT NULL,
		principal     TEXT NOT NULL,
		total_reward  TEXT NOT NULL,
		daily_reward  TEXT NOT NULL,
		duration_days INTEGER NOT NULL,
		days_paid     INTEGER NOT NULL DEFAULT 0,
		last_reward_at DATETIME NOT NULL,
		start_at       DATETIME NOT NULL,
		end_at         DATETIME NOT NULL,
		status         TEXT NOT NULL DEFAULT 'active',
		created_at     DATETIME,
		updated_at     DATETIME
	)`,
	`CREATE TABLE withdrawal_requests (
		id                  TEXT PRIMARY KEY,
		account_id          INTEGER NOT NULL,
		amount              TEXT NOT NULL,
		destination_address TEXT NOT NULL,
		status              TEXT NOT NULL DEFAULT 'pending',
		requested_at        DATETIME NOT NULL,
		settled_at          DATETIME,
		external_tx_ref     TEXT
	)`,
}

// OpenDB returns a fresh in-memory database with the full schema applied.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
