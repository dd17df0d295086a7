package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

var db *sql.DB

func initDB(path string) error {
	// Close previous connection if any (prevents goroutine leaks in tests)
	if db != nil {
		db.Close()
	}
	var err error
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err = sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=1")
	if err != nil {
		return err
	}

	// SQLite handles 1 writer + multiple readers with WAL mode
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	// Explicitly set WAL mode (some drivers don't parse connection string params correctly)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	return runMigrations()
}

func runMigrations() error {
	authTables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			display_name TEXT DEFAULT '',
			role TEXT DEFAULT 'user' CHECK(role IN ('admin','user','readonly')),
			active INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER DEFAULT 0,
			username TEXT DEFAULT '',
			action TEXT NOT NULL,
			module TEXT DEFAULT '',
			record_id TEXT DEFAULT '',
			summary TEXT DEFAULT '',
			before_value TEXT,
			after_value TEXT,
			ip_address TEXT DEFAULT '',
			user_agent TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, t := range authTables {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("auth migration: %w", err)
		}
	}

	crmTables := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			project_number TEXT DEFAULT '',
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			status TEXT DEFAULT 'planning' CHECK(status IN ('planning','active','on_hold','completed','cancelled')),
			priority TEXT DEFAULT 'medium' CHECK(priority IN ('low','medium','high','urgent')),
			client_id TEXT DEFAULT '',
			lead_id TEXT DEFAULT '',
			client_name TEXT DEFAULT '',
			client_email TEXT DEFAULT '',
			client_phone TEXT DEFAULT '',
			site_address TEXT DEFAULT '',
			address TEXT DEFAULT '',
			budget REAL DEFAULT 0,
			value REAL DEFAULT 0,
			module_source TEXT DEFAULT '',
			linked_requirement TEXT DEFAULT '',
			assigned_to TEXT DEFAULT '',
			created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS leads (
			id TEXT PRIMARY KEY,
			title TEXT DEFAULT '',
			name TEXT DEFAULT '',
			contact_name TEXT DEFAULT '',
			email TEXT DEFAULT '',
			phone TEXT DEFAULT '',
			mobile TEXT DEFAULT '',
			address TEXT DEFAULT '',
			status TEXT DEFAULT 'new' CHECK(status IN ('new','contacted','qualified','proposal','negotiation','converted','lost')),
			priority TEXT DEFAULT 'medium' CHECK(priority IN ('low','medium','high','urgent')),
			value REAL DEFAULT 0,
			budget REAL DEFAULT 0,
			assigned_to TEXT DEFAULT '',
			created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT DEFAULT '',
			phone TEXT DEFAULT '',
			mobile TEXT DEFAULT '',
			company TEXT DEFAULT '',
			designation TEXT DEFAULT '',
			address TEXT DEFAULT '',
			type TEXT DEFAULT 'customer' CHECK(type IN ('customer','vendor','partner','other')),
			tags TEXT DEFAULT '[]',
			is_active INTEGER DEFAULT 1,
			created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, t := range crmTables {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("crm migration: %w", err)
		}
	}

	moduleTables := []string{
		`CREATE TABLE IF NOT EXISTS requirements (
			id TEXT PRIMARY KEY,
			requirement_number TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL,
			project_id TEXT DEFAULT '',
			lead_id TEXT DEFAULT '',
			account_id TEXT DEFAULT '',
			customer_name TEXT DEFAULT '',
			customer_email TEXT DEFAULT '',
			customer_phone TEXT DEFAULT '',
			customer_address TEXT DEFAULT '',
			estimated_budget REAL DEFAULT 0,
			timeline TEXT DEFAULT 'flexible',
			status TEXT DEFAULT 'new' CHECK(status IN ('new','assessment','quoted','approved','in_production','installed','closed','cancelled')),
			stage TEXT DEFAULT '',
			priority TEXT DEFAULT 'medium' CHECK(priority IN ('low','medium','high','urgent')),
			source TEXT DEFAULT 'manual',
			synced_from_type TEXT DEFAULT '',
			synced_from_id TEXT DEFAULT '',
			synced_from_at DATETIME,
			crm_synced_at DATETIME,
			assigned_to TEXT DEFAULT '',
			is_active INTEGER DEFAULT 1,
			created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS requirement_status_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			requirement_id TEXT NOT NULL,
			status TEXT NOT NULL,
			notes TEXT DEFAULT '',
			changed_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (requirement_id) REFERENCES requirements(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS dw_contacts (
			id TEXT PRIMARY KEY,
			crm_contact_id TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			email TEXT DEFAULT '',
			phone TEXT DEFAULT '',
			company TEXT DEFAULT '',
			designation TEXT DEFAULT '',
			address TEXT DEFAULT '',
			type TEXT DEFAULT 'customer',
			tags TEXT DEFAULT '[]',
			last_synced_at DATETIME,
			is_active INTEGER DEFAULT 1,
			created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS dw_events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			entity_type TEXT DEFAULT '',
			entity_id TEXT DEFAULT '',
			data TEXT DEFAULT '{}',
			user_id TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sequences (
			name TEXT PRIMARY KEY,
			next INTEGER NOT NULL
		)`,
	}
	for _, t := range moduleTables {
		if _, err := db.Exec(t); err != nil {
			return fmt.Errorf("module migration: %w", err)
		}
	}

	indexes := []string{
		// One requirement per CRM source record; the empty-source guard keeps
		// manually created requirements out of the uniqueness constraint.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_requirements_synced_from
			ON requirements(synced_from_type, synced_from_id)
			WHERE synced_from_id != ''`,
		`CREATE INDEX IF NOT EXISTS idx_requirements_project ON requirements(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_requirements_status ON requirements(status)`,
		`CREATE INDEX IF NOT EXISTS idx_req_history_requirement ON requirement_status_history(requirement_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dw_events_type ON dw_events(type, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("index migration: %w", err)
		}
	}

	return nil
}

func seedDB() {
	// Always ensure admin user exists
	var userCount int
	db.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'admin'").Scan(&userCount)
	if userCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Failed to hash admin password: %v", err)
		} else {
			db.Exec("INSERT INTO users (username, password_hash, display_name, role) VALUES (?, ?, ?, ?)",
				"admin", string(hash), "Administrator", "admin")
		}
	}

	// Seed sales user
	var salesCount int
	db.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'sales'").Scan(&salesCount)
	if salesCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
		if err == nil {
			db.Exec("INSERT INTO users (username, password_hash, display_name, role, active) VALUES (?, ?, ?, ?, 1)",
				"sales", string(hash), "Sales", "user")
		}
	}
	// Seed viewer user
	var viewCount int
	db.QueryRow("SELECT COUNT(*) FROM users WHERE username = 'viewer'").Scan(&viewCount)
	if viewCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
		if err == nil {
			db.Exec("INSERT INTO users (username, password_hash, display_name, role, active) VALUES (?, ?, ?, ?, 1)",
				"viewer", string(hash), "Viewer", "readonly")
		}
	}
}
