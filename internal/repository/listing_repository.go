package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*domain.Listing, error)
	ListActive(ctx context.Context, limit, offset int) ([]*domain.Listing, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type listingRepository struct {
	db *pgxpool.Pool
}

func NewListingRepository(db *pgxpool.Pool) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO listings (owner_id, title, location, price, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		listing.OwnerID, listing.Title, listing.Location, listing.Price, listing.IsActive,
	).Scan(&listing.ID, &listing.CreatedAt, &listing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, owner_id, title, location, price, is_active, created_at, updated_at
		FROM listings WHERE id = $1`

	var l domain.Listing
	err := r.db.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Location, &l.Price, &l.IsActive,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &l, nil
}

func (r *listingRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*domain.Listing, error) {
	return r.list(ctx, `WHERE owner_id = $1`, ownerID, limit, offset)
}

func (r *listingRepository) ListActive(ctx context.Context, limit, offset int) ([]*domain.Listing, error) {
	return r.list(ctx, `WHERE is_active = $1`, true, limit, offset)
}

func (r *listingRepository) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, owner_id, title, location, price, is_active, created_at, updated_at
		FROM listings ` + where + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, arg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []*domain.Listing
	for rows.Next() {
		var l domain.Listing
		err := rows.Scan(
			&l.ID, &l.OwnerID, &l.Title, &l.Location, &l.Price, &l.IsActive,
			&l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}

func (r *listingRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE listings SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
