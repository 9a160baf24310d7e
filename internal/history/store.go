// Package history persists user accounts and saved analysis results in
// PostgreSQL: register, login, save an analysis, list past analyses. The
// store is optional — the service runs without it when no database is
// configured.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"call-sentiment-go/internal/types"
)

// Schema is the DDL applied by Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT UNIQUE NOT NULL,
    email         TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_login    TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS analyses (
    id         BIGSERIAL PRIMARY KEY,
    user_id    BIGINT NOT NULL REFERENCES users(id),
    filename   TEXT NOT NULL DEFAULT '',
    result     JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_analyses_user ON analyses(user_id, created_at DESC);
`

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

var (
	ErrUserExists         = errors.New("history: user already exists")
	ErrInvalidCredentials = errors.New("history: invalid credentials")
)

// DB is the database interface used by Store. Both *pgxpool.Pool and
// *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the PostgreSQL-backed user/analysis store.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate applies Schema, creating the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// CreateUser registers a new account with a bcrypt password hash and returns
// the new user id. A taken username or email yields ErrUserExists.
func (s *Store) CreateUser(ctx context.Context, username, email, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("history: hash password: %w", err)
	}

	var id int64
	err = s.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
		username, email, string(hash),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrUserExists
		}
		return 0, fmt.Errorf("history: create user: %w", err)
	}
	return id, nil
}

// Authenticate checks the password for username and, on success, updates
// last_login and returns the user id. Unknown users and wrong passwords both
// come back as ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	var (
		id   int64
		hash string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, password_hash FROM users WHERE username = $1`, username,
	).Scan(&id, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInvalidCredentials
	}
	if err != nil {
		return 0, fmt.Errorf("history: authenticate: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return 0, ErrInvalidCredentials
	}
	if _, err := s.db.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, id); err != nil {
		return 0, fmt.Errorf("history: update last login: %w", err)
	}
	return id, nil
}

// Record is one saved analysis.
type Record struct {
	ID        int64                    `json:"id"`
	Filename  string                   `json:"filename"`
	Result    types.ConversationResult `json:"result"`
	CreatedAt time.Time                `json:"created_at"`
}

// SaveAnalysis stores one analysis result for a user as JSONB.
func (s *Store) SaveAnalysis(ctx context.Context, userID int64, filename string, result types.ConversationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("history: marshal result: %w", err)
	}
	if _, err := s.db.Exec(ctx,
		`INSERT INTO analyses (user_id, filename, result) VALUES ($1, $2, $3)`,
		userID, filename, data,
	); err != nil {
		return fmt.Errorf("history: save analysis: %w", err)
	}
	return nil
}

// ListAnalyses returns a user's saved analyses, newest first. A non-positive
// limit defaults to 20.
func (s *Store) ListAnalyses(ctx context.Context, userID int64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, filename, result, created_at FROM analyses
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: list analyses: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			rec  Record
			blob []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Filename, &blob, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan analysis: %w", err)
		}
		if err := json.Unmarshal(blob, &rec.Result); err != nil {
			return nil, fmt.Errorf("history: decode analysis %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list analyses: %w", err)
	}
	return out, nil
}
