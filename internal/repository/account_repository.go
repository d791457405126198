package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
)

const queryTimeout = 3 * time.Second

// AccountRepository is the account directory. All lookups and writes are
// scoped by account kind; the same email may exist under different kinds.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, kind domain.AccountKind, id int64) (*domain.Account, error)
	FindByEmail(ctx context.Context, kind domain.AccountKind, email string) (*domain.Account, error)
	FindByIdentifier(ctx context.Context, kind domain.AccountKind, identifier string) (*domain.Account, error)
	MarkVerified(ctx context.Context, kind domain.AccountKind, id int64) error
	ConsumeVerificationToken(ctx context.Context, token string) (*domain.Account, error)
	SetPasswordHash(ctx context.Context, kind domain.AccountKind, id int64, passwordHash string) error
	ListByKind(ctx context.Context, kind domain.AccountKind, limit, offset int) ([]*domain.Account, error)
	UpdateKYC(ctx context.Context, ownerID int64, status domain.KYCStatus) error
	BumpOwnerTotals(ctx context.Context, ownerID int64, bookings, revenue int64) error
}

type accountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `
	a.id, a.kind, a.email, a.username, a.password_hash,
	a.first_name, a.last_name, a.phone, a.is_verified,
	a.verification_token, a.verification_expires_at,
	a.created_at, a.updated_at,
	o.business_name, o.business_type, o.business_phone,
	o.kyc_status, o.total_bookings, o.total_revenue`

const accountFrom = `
	FROM accounts a
	LEFT JOIN owner_profiles o ON o.account_id = a.id`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO accounts (
			kind, email, username, password_hash,
			first_name, last_name, phone, is_verified,
			verification_token, verification_expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, query,
		account.Kind, account.Email, account.Username, account.PasswordHash,
		account.FirstName, account.LastName, account.Phone, account.IsVerified,
		account.VerificationToken, account.VerificationExpiresAt,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIdentity
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	if account.Kind == domain.KindOwner && account.Owner != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO owner_profiles (account_id, business_name, business_type, business_phone, kyc_status)
			VALUES ($1, $2, $3, $4, $5)`,
			account.ID, account.Owner.BusinessName, account.Owner.BusinessType,
			account.Owner.BusinessPhone, account.Owner.KYCStatus,
		)
		if err != nil {
			return fmt.Errorf("failed to create owner profile: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *accountRepository) FindByID(ctx context.Context, kind domain.AccountKind, id int64) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT` + accountColumns + accountFrom + `
		WHERE a.kind = $1 AND a.id = $2`

	return r.scanAccount(r.db.QueryRow(ctx, query, kind, id))
}

func (r *accountRepository) FindByEmail(ctx context.Context, kind domain.AccountKind, email string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT` + accountColumns + accountFrom + `
		WHERE a.kind = $1 AND a.email = $2`

	return r.scanAccount(r.db.QueryRow(ctx, query, kind, email))
}

// FindByIdentifier tries the identifier as a username first, then as an
// email, within the given kind.
func (r *accountRepository) FindByIdentifier(ctx context.Context, kind domain.AccountKind, identifier string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT` + accountColumns + accountFrom + `
		WHERE a.kind = $1 AND a.username = $2`

	account, err := r.scanAccount(r.db.QueryRow(ctx, query, kind, identifier))
	if err != nil || account != nil {
		return account, err
	}

	query = `SELECT` + accountColumns + accountFrom + `
		WHERE a.kind = $1 AND a.email = $2`

	return r.scanAccount(r.db.QueryRow(ctx, query, kind, identifier))
}

// MarkVerified flips the account to verified and clears any pending link
// token. Idempotent; verifying an already-verified account is a no-op.
func (r *accountRepository) MarkVerified(ctx context.Context, kind domain.AccountKind, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET is_verified = TRUE,
		    verification_token = NULL,
		    verification_expires_at = NULL,
		    updated_at = NOW()
		WHERE kind = $1 AND id = $2`,
		kind, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark account verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ConsumeVerificationToken atomically claims an unexpired link token and
// verifies the account. A second call with the same token finds nothing.
func (r *accountRepository) ConsumeVerificationToken(ctx context.Context, token string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE accounts
		SET is_verified = TRUE,
		    verification_token = NULL,
		    verification_expires_at = NULL,
		    updated_at = NOW()
		WHERE verification_token = $1
		  AND verification_expires_at > NOW()
		  AND is_verified = FALSE
		RETURNING id, kind, email, username, first_name, last_name`

	account := &domain.Account{IsVerified: true}
	err := r.db.QueryRow(ctx, query, token).Scan(
		&account.ID, &account.Kind, &account.Email,
		&account.Username, &account.FirstName, &account.LastName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}
	return account, nil
}

func (r *accountRepository) SetPasswordHash(ctx context.Context, kind domain.AccountKind, id int64, passwordHash string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $1, updated_at = NOW()
		WHERE kind = $2 AND id = $3`,
		passwordHash, kind, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepository) ListByKind(ctx context.Context, kind domain.AccountKind, limit, offset int) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT` + accountColumns + accountFrom + `
		WHERE a.kind = $1
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := r.scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *accountRepository) UpdateKYC(ctx context.Context, ownerID int64, status domain.KYCStatus) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE owner_profiles SET kyc_status = $1, updated_at = NOW()
		WHERE account_id = $2`,
		status, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update kyc status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// BumpOwnerTotals adds to the owner's running booking and revenue counters.
func (r *accountRepository) BumpOwnerTotals(ctx context.Context, ownerID int64, bookings, revenue int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		UPDATE owner_profiles
		SET total_bookings = total_bookings + $1,
		    total_revenue = total_revenue + $2,
		    updated_at = NOW()
		WHERE account_id = $3`,
		bookings, revenue, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update owner totals: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *accountRepository) scanAccount(row rowScanner) (*domain.Account, error) {
	account, err := r.scanAccountRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) scanAccountRow(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	var businessName, businessType, businessPhone *string
	var kycStatus *string
	var totalBookings, totalRevenue *int64

	err := row.Scan(
		&account.ID, &account.Kind, &account.Email, &account.Username, &account.PasswordHash,
		&account.FirstName, &account.LastName, &account.Phone, &account.IsVerified,
		&account.VerificationToken, &account.VerificationExpiresAt,
		&account.CreatedAt, &account.UpdatedAt,
		&businessName, &businessType, &businessPhone,
		&kycStatus, &totalBookings, &totalRevenue,
	)
	if err != nil {
		return nil, err
	}

	if account.Kind == domain.KindOwner && businessName != nil {
		account.Owner = &domain.OwnerProfile{
			BusinessName: *businessName,
		}
		if businessType != nil {
			account.Owner.BusinessType = *businessType
		}
		if businessPhone != nil {
			account.Owner.BusinessPhone = *businessPhone
		}
		if kycStatus != nil {
			account.Owner.KYCStatus = domain.KYCStatus(*kycStatus)
		}
		if totalBookings != nil {
			account.Owner.TotalBookings = *totalBookings
		}
		if totalRevenue != nil {
			account.Owner.TotalRevenue = *totalRevenue
		}
	}

	return &account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
