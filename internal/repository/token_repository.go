package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
)

// TokenRepository stores single-use password reset tokens. Consume claims a
// token atomically; only one caller can ever redeem a given token.
type TokenRepository interface {
	Create(ctx context.Context, token string, kind domain.AccountKind, accountID int64, expiresAt time.Time) error
	Consume(ctx context.Context, token string) (domain.AccountKind, int64, error)
	DeleteForAccount(ctx context.Context, kind domain.AccountKind, accountID int64) error
}

type tokenRepository struct {
	db *pgxpool.Pool
}

func NewTokenRepository(db *pgxpool.Pool) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token string, kind domain.AccountKind, accountID int64, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (token, account_kind, account_id, expires_at)
		VALUES ($1, $2, $3, $4)`,
		token, kind, accountID, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

// Consume deletes an unexpired token and returns the account it was issued
// for. Returns ErrNotFound for unknown or already-consumed tokens and
// ErrExpired for expired ones.
func (r *tokenRepository) Consume(ctx context.Context, token string) (domain.AccountKind, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var kind domain.AccountKind
	var accountID int64
	var expiresAt time.Time

	err := r.db.QueryRow(ctx, `
		DELETE FROM password_reset_tokens
		WHERE token = $1
		RETURNING account_kind, account_id, expires_at`,
		token,
	).Scan(&kind, &accountID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, domain.ErrNotFound
		}
		return "", 0, fmt.Errorf("failed to consume reset token: %w", err)
	}

	if time.Now().After(expiresAt) {
		return "", 0, domain.ErrExpired
	}
	return kind, accountID, nil
}

// DeleteForAccount invalidates outstanding tokens, so issuing a new reset
// supersedes older ones.
func (r *tokenRepository) DeleteForAccount(ctx context.Context, kind domain.AccountKind, accountID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		DELETE FROM password_reset_tokens
		WHERE account_kind = $1 AND account_id = $2`,
		kind, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete reset tokens: %w", err)
	}
	return nil
}
