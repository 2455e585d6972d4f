// Package users serves the demo user directory behind the get_users tool.
package users

import (
	"context"
	"database/sql"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
)

// User is one row of the directory.
type User struct {
	ID        int
	Name      string
	Email     string
	CreatedAt time.Time
}

// Directory lists demo users from SQLite.
type Directory struct {
	db     *sql.DB
	logger logSDK.Logger
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL
)`

var seedUsers = []User{
	{ID: 1, Name: "Alice Johnson", Email: "alice@example.com", CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	{ID: 2, Name: "Bob Smith", Email: "bob@example.com", CreatedAt: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)},
	{ID: 3, Name: "Charlie Brown", Email: "charlie@example.com", CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
}

// NewDirectory migrates the users table and seeds it. Seeding is idempotent.
func NewDirectory(ctx context.Context, db *sql.DB, logger logSDK.Logger) (*Directory, error) {
	if db == nil {
		return nil, errors.New("sql db is required")
	}
	if logger == nil {
		logger = logSDK.Shared.Named("users_directory")
	}

	d := &Directory{db: db, logger: logger}
	if err := d.migrate(ctx); err != nil {
		return nil, errors.Wrap(err, "migrate users")
	}

	return d, nil
}

func (d *Directory) migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, createTableSQL); err != nil {
		return errors.Wrap(err, "create users table")
	}

	for _, u := range seedUsers {
		if _, err := d.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, u.CreatedAt,
		); err != nil {
			return errors.Wrapf(err, "seed user %q", u.Email)
		}
	}

	d.logger.Debug("users table ready", zap.Int("seed", len(seedUsers)))
	return nil
}

// List returns every user ordered by id.
func (d *Directory) List(ctx context.Context) ([]User, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, name, email, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query users")
	}
	defer rows.Close() // nolint: errcheck

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate users")
	}

	return out, nil
}
