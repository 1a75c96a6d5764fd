// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"bereal/internal/domain"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

var _ domain.UserRepository = (*DB)(nil)
var _ domain.PostRepository = (*DB)(nil)
var _ domain.CommentRepository = (*DB)(nil)
var _ domain.BlobStore = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// Open connects to PostgreSQL, pings, and applies pending migrations.
func Open(connStr string) (*DB, error) {
	s, err := connect(connStr)
	if err != nil {
		return nil, err
	}
	if err := up(s); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &DB{sql: s}, nil
}

// Migrate applies pending migrations without keeping the connection open.
func Migrate(connStr string) error {
	s, err := connect(connStr)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck
	return up(s)
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func connect(connStr string) (*sql.DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func up(s *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrate: source: %w", err)
	}
	driver, err := migratepg.WithInstance(s, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migrate: driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: up: %w", err)
	}
	return nil
}
