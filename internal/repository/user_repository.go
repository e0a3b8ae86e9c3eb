package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iconidentify/mediagrab/internal/domain"
)

// SQLiteUserRepository implements UserRepository on a SQLite file.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteUserRepository(path string) (*SQLiteUserRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			telegram_id INTEGER NOT NULL UNIQUE,
			username TEXT,
			first_name TEXT,
			created_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteUserRepository{db: db}, nil
}

// Register inserts user if no row with its TelegramID exists yet.
func (r *SQLiteUserRepository) Register(ctx context.Context, user *domain.User) (bool, error) {
	existing, err := r.Get(ctx, user.TelegramID)
	if err == nil {
		*user = *existing
		return false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return false, err
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (telegram_id, username, first_name, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(telegram_id) DO NOTHING`,
		user.TelegramID, user.Username, user.FirstName, user.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		user.ID = id
	}
	return true, nil
}

// Get retrieves a user by Telegram ID.
func (r *SQLiteUserRepository) Get(ctx context.Context, telegramID int64) (*domain.User, error) {
	var (
		u         domain.User
		username  sql.NullString
		firstName sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, username, first_name, created_at FROM users WHERE telegram_id = ?`,
		telegramID,
	).Scan(&u.ID, &u.TelegramID, &username, &firstName, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	u.Username = username.String
	u.FirstName = firstName.String
	return &u, nil
}

// Count returns the number of registered users.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (r *SQLiteUserRepository) Close() error {
	return r.db.Close()
}
