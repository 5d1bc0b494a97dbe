package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

// Open opens (creating the parent directory if needed) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, db.Ping()
}

// Migrate creates the garden tables in a SQLite database.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS users(
			email TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('admin','user')),
			last_active INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS sessions(
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL REFERENCES users(email) ON DELETE CASCADE,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS posts(
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL,
			excerpt TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			cover_image TEXT NOT NULL DEFAULT '',
			read_time TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK(status IN ('pending','approved')),
			version INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS moments(
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			content TEXT NOT NULL,
			date TEXT NOT NULL,
			likes INTEGER NOT NULL DEFAULT 0 CHECK(likes >= 0),
			images TEXT NOT NULL DEFAULT '[]',
			author TEXT NOT NULL DEFAULT '',
			author_email TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK(status IN ('pending','approved')),
			version INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS join_requests(
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL,
			date TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('pending','approved','rejected')),
			version INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS comments(
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			parent_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			text TEXT NOT NULL,
			date TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS reset_codes(
			email TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
	}
	ctx := context.Background()
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// OpenPostgres connects a pgx pool to url and verifies it with a ping.
func OpenPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// MigratePostgres creates the garden tables in a Postgres database.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users(
			email TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('admin','user')),
			last_active BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS sessions(
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL REFERENCES users(email) ON DELETE CASCADE,
			expires_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS posts(
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL,
			excerpt TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			date DATE NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			cover_image TEXT NOT NULL DEFAULT '',
			read_time TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK(status IN ('pending','approved')),
			version BIGINT NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS moments(
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			content TEXT NOT NULL,
			date DATE NOT NULL,
			likes INTEGER NOT NULL DEFAULT 0 CHECK(likes >= 0),
			images TEXT[] NOT NULL DEFAULT '{}',
			author TEXT NOT NULL DEFAULT '',
			author_email TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL CHECK(status IN ('pending','approved')),
			version BIGINT NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS join_requests(
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL,
			date DATE NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('pending','approved','rejected')),
			version BIGINT NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS comments(
			seq BIGSERIAL PRIMARY KEY,
			id TEXT UNIQUE NOT NULL,
			post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			parent_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			text TEXT NOT NULL,
			date DATE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reset_codes(
			email TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			expires_at BIGINT NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
