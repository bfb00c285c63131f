// Package testutil opens in-memory sqlite databases carrying the service schema.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sqlite rendition of migrations/000001_init.up.sql.
var schema = []string{
	`CREATE TABLE organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		business_email TEXT,
		phone TEXT,
		website TEXT,
		city TEXT,
		state TEXT,
		subscription_status TEXT NOT NULL DEFAULT 'trial',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE customers (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL REFERENCES organizations (id),
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		notes TEXT,
		lifetime_spend TEXT NOT NULL DEFAULT '0',
		visit_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE vehicles (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL REFERENCES organizations (id),
		customer_id TEXT NOT NULL REFERENCES customers (id),
		year INTEGER NOT NULL,
		make TEXT NOT NULL,
		model TEXT NOT NULL,
		color TEXT NOT NULL,
		vin TEXT UNIQUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE jobs (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL REFERENCES organizations (id),
		vehicle_id TEXT NOT NULL REFERENCES vehicles (id),
		customer_id TEXT NOT NULL REFERENCES customers (id),
		stage TEXT NOT NULL DEFAULT 'created',
		photos TEXT NOT NULL DEFAULT '[]',
		ai_assessment TEXT,
		ai_assessment_version INTEGER,
		detailer_adjustments TEXT,
		estimate_amount TEXT,
		final_amount TEXT,
		notes TEXT,
		stage_history TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL REFERENCES organizations (id),
		name TEXT NOT NULL,
		brand TEXT,
		category TEXT NOT NULL,
		purchase_price TEXT NOT NULL,
		unit_size TEXT NOT NULL,
		unit_measure TEXT NOT NULL,
		cost_per_unit TEXT NOT NULL,
		supplier TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE usage_logs (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL REFERENCES organizations (id),
		job_id TEXT NOT NULL REFERENCES jobs (id),
		product_id TEXT NOT NULL REFERENCES products (id),
		quantity_used TEXT NOT NULL,
		unit_measure TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		logged_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE api_keys (
		id INTEGER PRIMARY KEY,
		org_id TEXT NOT NULL REFERENCES organizations (id),
		key_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		key_hash TEXT NOT NULL UNIQUE,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_used_at DATETIME,
		expires_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// OpenDB returns an isolated in-memory database with the full schema applied.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// SeedOrg inserts an organization and returns its id.
func SeedOrg(t *testing.T, db *gorm.DB, name, slug string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO organizations (id, name, slug, subscription_status, created_at, updated_at) VALUES (?, ?, ?, 'trial', ?, ?)`,
		id, name, slug, now, now,
	).Error; err != nil {
		t.Fatalf("seed org: %v", err)
	}
	return id
}

// SeedJob inserts a customer, vehicle and job for org and returns the job id.
func SeedJob(t *testing.T, db *gorm.DB, orgID uuid.UUID) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	customerID, vehicleID, jobID := uuid.New(), uuid.New(), uuid.New()
	stmts := []struct {
		sql  string
		args []any
	}{
		{
			`INSERT INTO customers (id, org_id, first_name, last_name, email, phone, address, created_at, updated_at) VALUES (?, ?, 'Jane', 'Doe', 'jane@example.com', '555-0100', '', ?, ?)`,
			[]any{customerID, orgID, now, now},
		},
		{
			`INSERT INTO vehicles (id, org_id, customer_id, year, make, model, color, created_at, updated_at) VALUES (?, ?, ?, 2019, 'Honda', 'Civic', 'Blue', ?, ?)`,
			[]any{vehicleID, orgID, customerID, now, now},
		},
		{
			`INSERT INTO jobs (id, org_id, vehicle_id, customer_id, stage, photos, stage_history, created_at, updated_at) VALUES (?, ?, ?, ?, 'created', '[]', '[]', ?, ?)`,
			[]any{jobID, orgID, vehicleID, customerID, now, now},
		},
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt.sql, stmt.args...).Error; err != nil {
			t.Fatalf("seed job: %v", err)
		}
	}
	return jobID
}
