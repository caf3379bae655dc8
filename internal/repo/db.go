// Package repo implements the data persistence layer for the urge counter,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver, the dev/test default) and MySQL-compatible
// servers, plus schema migrations and pool/health introspection.
package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/qlzhou/go-urge-backend/internal/domain"
)

// Options control how Open builds the database handle and its connection
// pool. The pool is sized once at startup and shared by every request;
// handlers must never open their own connections.
type Options struct {
	Driver          string        // "sqlite" (default) or "mysql"
	Path            string        // SQLite file path
	DSN             string        // MySQL DSN, required when Driver == "mysql"
	MaxOpenConns    int           // <= 0 means 10
	MaxIdleConns    int           // <= 0 means 10
	ConnMaxIdleTime time.Duration // <= 0 means 5m
	ConnMaxLifetime time.Duration // <= 0 means 30m
}

// ErrUnknownDriver is returned by Open for an unsupported Options.Driver.
var ErrUnknownDriver = errors.New("unknown database driver")

// Open opens the configured database and applies pool settings. For SQLite
// it also applies the usual PRAGMAs for a small concurrent web workload.
func Open(opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch opts.Driver {
	case "", "sqlite":
		db, err = openSQLite(opts.Path)
	case "mysql":
		db, err = gorm.Open(mysql.Open(opts.DSN), &gorm.Config{})
	default:
		return nil, ErrUnknownDriver
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxOpen, maxIdle := opts.MaxOpenConns, opts.MaxIdleConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if maxIdle <= 0 {
		maxIdle = 10
	}
	idleTime, lifetime := opts.ConnMaxIdleTime, opts.ConnMaxLifetime
	if idleTime <= 0 {
		idleTime = 5 * time.Minute
	}
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxIdleTime(idleTime)
	sqlDB.SetConnMaxLifetime(lifetime)

	return db, nil
}

// openSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func openSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	return db, nil
}

// AutoMigrate creates or updates the three urge tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.UrgeCount{},
		&domain.UrgeHistory{},
		&domain.UrgeLimit{},
	)
}

// Ping verifies connectivity on the underlying pool. Used by the health
// endpoint; a failure here means reads and writes will fail too.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PoolStats is a snapshot of the shared connection pool, surfaced by the
// health endpoint.
type PoolStats struct {
	OpenConnections int `json:"openConnections"`
	InUse           int `json:"inUse"`
	Idle            int `json:"idle"`
	MaxOpen         int `json:"maxOpen"`
}

// Pool reports the current connection pool state. Errors retrieving the
// underlying handle yield a zero snapshot rather than failing the caller.
func Pool(db *gorm.DB) PoolStats {
	sqlDB, err := db.DB()
	if err != nil {
		return PoolStats{}
	}
	s := sqlDB.Stats()
	return PoolStats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		MaxOpen:         s.MaxOpenConnections,
	}
}
