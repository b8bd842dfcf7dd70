// Package db opens the MySQL pool behind the relational store backend.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

type Config struct {
	DSN string

	// Pool bounds; zero values fall back to defaults sized for one instance
	// carrying both API traffic and batch processing.
	MaxOpenConns int
	MaxIdleConns int
}

// Open normalizes the DSN before opening the pool: DATETIME columns must
// scan into time.Time, and every session reads and writes UTC so batch
// staleness comparisons never depend on the connection time zone.
func Open(cfg Config) (*sql.DB, error) {
	dsnCfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	dsnCfg.ParseTime = true
	dsnCfg.Loc = time.UTC

	pool, err := sql.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		return nil, err
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 20
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = maxOpen
	}
	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxIdle)
	pool.SetConnMaxLifetime(5 * time.Minute)

	return pool, nil
}
