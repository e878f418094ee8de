package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Config holds the connection parameters for the bridge's Postgres
// database, loaded by pkg/config from PG_-prefixed environment
// variables.
type Config struct {
	Host     string
	Port     uint16
	User     string
	Password string
	Database string
	SSLMode  string
}

func (c Config) descriptor() string {
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}

// Store wraps a bun.DB connection and hands out read/write sessions.
type Store struct {
	db         *bun.DB
	descriptor string
}

// Connect opens a connection pool to the database described by cfg and
// verifies it is reachable.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", cfg.descriptor(), err)
	}

	return &Store{db: db, descriptor: cfg.descriptor()}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) String() string {
	return fmt.Sprintf("Store(%s)", s.descriptor)
}

// DB exposes the underlying bun.DB, for migrations.
func (s *Store) DB() *bun.DB {
	return s.db
}

// ReadSession is a transaction opened READ ONLY; it may only run the
// read queries.
type ReadSession struct {
	tx bun.Tx
}

// WriteSession is a transaction opened READ WRITE; it may run both read
// and write queries, and must be explicitly committed.
type WriteSession struct {
	tx bun.Tx
}

// ReadTx opens a new read-only session.
func (s *Store) ReadTx(ctx context.Context) (*ReadSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "SET TRANSACTION READ ONLY"); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to set read only: %w", err)
	}
	return &ReadSession{tx: tx}, nil
}

// Discard rolls back the read session. Safe to call after a successful
// read; rollback on an already-committed/rolled-back tx is a no-op error
// that callers may ignore.
func (s *ReadSession) Discard() {
	_ = s.tx.Rollback()
}

// WriteTx opens a new read-write session.
func (s *Store) WriteTx(ctx context.Context) (*WriteSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin write transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "SET TRANSACTION READ WRITE"); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to set read write: %w", err)
	}
	return &WriteSession{tx: tx}, nil
}

// Commit commits the write session.
func (s *WriteSession) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write transaction: %w", err)
	}
	return nil
}

// Discard rolls back the write session, discarding any uncommitted
// writes.
func (s *WriteSession) Discard() {
	_ = s.tx.Rollback()
}
