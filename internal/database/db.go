package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

// NewDB creates a new database connection with optimized pooling
func NewDB(dataDir string) (*DB, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "launchcheck.db")

	// Configure connection string for better performance
	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pooling for better performance
	pool := NewConnectionPool(db, 25, 5, 5*time.Minute) // 25 max open, 5 idle, 5min lifetime

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	// Run migrations
	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Seed reference tables
	if err := database.seedReferenceData(); err != nil {
		return nil, fmt.Errorf("failed to seed reference data: %w", err)
	}

	// Initialize prepared statements
	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		// Users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			ip_address TEXT NOT NULL,
			user_agent TEXT,
			subscription_active BOOLEAN DEFAULT FALSE,
			fix_pack_uses INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		// Projects table
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id),
			UNIQUE(user_id, name)
		)`,

		// Builds table
		`CREATE TABLE IF NOT EXISTS builds (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			quick_score INTEGER NOT NULL,
			brotli_present BOOLEAN NOT NULL,
			gzip_present BOOLEAN NOT NULL,
			scan_result TEXT NOT NULL, -- JSON blob
			created_at DATETIME NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(id)
		)`,

		// Launch profiles table
		`CREATE TABLE IF NOT EXISTS launch_profiles (
			id TEXT PRIMARY KEY,
			build_id TEXT NOT NULL UNIQUE,
			platform_id TEXT,
			host_id TEXT,
			readiness_score INTEGER DEFAULT 0,
			score_detail TEXT, -- JSON breakdown
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (build_id) REFERENCES builds(id)
		)`,

		// Platform reference table
		`CREATE TABLE IF NOT EXISTS platforms (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			initial_download_max_mb REAL,
			total_build_max_mb REAL,
			max_single_file_mb REAL,
			max_file_count INTEGER,
			requires_compressed_build BOOLEAN NOT NULL,
			accepted_compression TEXT NOT NULL, -- JSON string array
			requires_sdk_injection BOOLEAN NOT NULL,
			sdk_type TEXT,
			notes TEXT
		)`,

		// Host reference table
		`CREATE TABLE IF NOT EXISTS hosts (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			supports_brotli BOOLEAN NOT NULL,
			supports_gzip BOOLEAN NOT NULL,
			requires_manual_header_config BOOLEAN NOT NULL,
			default_spa_fallback BOOLEAN NOT NULL,
			edge_network TEXT,
			notes TEXT
		)`,

		// Fix pack usage records
		`CREATE TABLE IF NOT EXISTS fix_pack_uses (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			build_id TEXT NOT NULL,
			host TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (build_id) REFERENCES builds(id)
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_users_ip ON users(ip_address)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_user_id ON projects(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_builds_project_id ON builds(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_builds_created_at ON builds(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_launch_profiles_build_id ON launch_profiles(build_id)`,
		`CREATE INDEX IF NOT EXISTS idx_fix_pack_uses_user_id ON fix_pack_uses(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"get_user_by_ip": `SELECT id, ip_address, user_agent, subscription_active, fix_pack_uses, created_at, updated_at
			FROM users WHERE ip_address = ? ORDER BY created_at DESC LIMIT 1`,

		"insert_build": `INSERT INTO builds (id, project_id, file_name, size_bytes, quick_score, brotli_present, gzip_present, scan_result, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		"get_build_by_id": `SELECT id, project_id, file_name, size_bytes, quick_score, brotli_present, gzip_present, scan_result, created_at
			FROM builds WHERE id = ?`,

		"upsert_launch_profile": `INSERT INTO launch_profiles (id, build_id, platform_id, host_id, readiness_score, score_detail, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(build_id) DO UPDATE SET
			platform_id = excluded.platform_id,
			host_id = excluded.host_id,
			readiness_score = excluded.readiness_score,
			score_detail = excluded.score_detail,
			updated_at = excluded.updated_at`,

		"get_platforms": `SELECT id, slug, name, initial_download_max_mb, total_build_max_mb, max_single_file_mb, max_file_count,
			requires_compressed_build, accepted_compression, requires_sdk_injection, sdk_type, COALESCE(notes, '')
			FROM platforms ORDER BY slug ASC`,

		"get_hosts": `SELECT id, slug, name, supports_brotli, supports_gzip, requires_manual_header_config, default_spa_fallback,
			edge_network, COALESCE(notes, '')
			FROM hosts ORDER BY slug ASC`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	// Close all prepared statements
	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	// Clear the map
	db.prepared = make(map[string]*sql.Stmt)

	// Close the database connection
	return db.DB.Close()
}
