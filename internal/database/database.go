package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tahcohcat/stride/internal/logger"
)

type DB struct {
	*sqlx.DB
	path string
}

// NewDB opens (creating if needed) the local sqlite store and initializes its schema.
func NewDB(path string) (*DB, error) {
	if path == "" {
		path = "stride.db"
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite serializes writers anyway; one connection keeps read-modify-write sequences consistent
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dbWrapper := &DB{DB: db, path: path}

	if err := dbWrapper.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Named("database").Debug(fmt.Sprintf("Local store ready at %s", path))
	return dbWrapper, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) createTables() error {
	stepsTable := `
	CREATE TABLE IF NOT EXISTS steps (
		formatted_date TEXT PRIMARY KEY,
		steps INTEGER NOT NULL CHECK (steps >= 0),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	// JSON values under string keys: profile, sync watermark, achievement flags
	stateTable := `
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`

	weatherTable := `
	CREATE TABLE IF NOT EXISTS weather_cache (
		date TEXT PRIMARY KEY,
		condition TEXT NOT NULL DEFAULT '',
		temp_max_c REAL NOT NULL DEFAULT 0,
		precipitation_mm REAL NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);`

	for _, query := range []string{stepsTable, stateTable, weatherTable} {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
