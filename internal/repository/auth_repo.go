package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"smart_envi/internal/models"
)

// AuthSQLite stores the local bridge accounts that gate the LAN API. These
// are unrelated to the Envi cloud credentials.
type AuthSQLite struct {
	db *sql.DB
}

func NewAuthSQLite(db *sql.DB) *AuthSQLite { return &AuthSQLite{db: db} }

var _ Authorization = (*AuthSQLite)(nil)

const (
	insertAccountSQL = `INSERT INTO users (username, password_hash) VALUES (?, ?)`
	selectAccountSQL = `SELECT id, username, password_hash FROM users WHERE username = ?`
)

// Create inserts a bridge account and returns its id. The username carries a
// UNIQUE constraint, so re-registering an existing account fails here.
func (r *AuthSQLite) Create(username, passwordHash string) (int, error) {
	res, err := r.db.Exec(insertAccountSQL, username, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("create bridge account %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("bridge account id for %q: %w", username, err)
	}
	return int(id), nil
}

// GetByUsername looks an account up. A missing account is (nil, nil), not an
// error: the auth service turns it into its own not-found sentinel.
func (r *AuthSQLite) GetByUsername(username string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(selectAccountSQL, username).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup bridge account %q: %w", username, err)
	}
	return &u, nil
}
