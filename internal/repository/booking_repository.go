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

// BookingRepository guards the non-overlap invariant: at most one confirmed
// booking per listing for any date range. Create and Confirm run inside a
// transaction holding a per-listing advisory lock, so the availability check
// and the write are atomic. A gist exclusion constraint on the bookings
// table backstops the lock.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	Confirm(ctx context.Context, id int64) (*domain.Booking, error)
	Cancel(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByGuest(ctx context.Context, guestID int64, limit, offset int) ([]*domain.Booking, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*domain.Booking, error)
	IsAvailable(ctx context.Context, listingID int64, checkIn, checkOut time.Time) (bool, error)
	ClaimConfirmationNotice(ctx context.Context, id int64) (bool, error)
}

type bookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `
	id, listing_id, guest_id, owner_id,
	guest_name, guest_email, guest_phone,
	check_in, check_out, guest_count, nights, total_price,
	status, payment_status, confirmation_notified,
	created_at, updated_at`

const overlapExists = `
	SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE listing_id = $1
		  AND status = 'confirmed'
		  AND id <> $2
		  AND check_in < $4
		  AND check_out > $3
	)`

// Create inserts a pending booking, refusing dates that overlap an existing
// confirmed booking on the listing.
func (r *bookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, booking.ListingID); err != nil {
		return fmt.Errorf("failed to lock listing: %w", err)
	}

	var conflict bool
	err = tx.QueryRow(ctx, overlapExists,
		booking.ListingID, int64(0), booking.CheckIn, booking.CheckOut,
	).Scan(&conflict)
	if err != nil {
		return fmt.Errorf("failed to check availability: %w", err)
	}
	if conflict {
		return domain.ErrConflict
	}

	query := `
		INSERT INTO bookings (
			listing_id, guest_id, owner_id,
			guest_name, guest_email, guest_phone,
			check_in, check_out, guest_count, nights, total_price,
			status, payment_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, query,
		booking.ListingID, booking.GuestID, booking.OwnerID,
		booking.Guest.Name, booking.Guest.Email, booking.Guest.Phone,
		booking.CheckIn, booking.CheckOut, booking.GuestCount,
		booking.Nights, booking.TotalPrice,
		booking.Status, booking.Payment,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return tx.Commit(ctx)
}

// Confirm transitions a pending booking to confirmed, re-checking the
// overlap invariant under the listing lock. The booking row is locked for
// the whole transaction and the update only touches pending rows, so a
// concurrent cancel can never be overwritten back to confirmed. Confirming
// an already-confirmed booking is a no-op; a cancelled one is a conflict.
func (r *bookingRepository) Confirm(ctx context.Context, id int64) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	booking, err := scanBooking(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking.Status == domain.BookingConfirmed {
		return booking, nil
	}
	if booking.Status == domain.BookingCancelled {
		return nil, domain.ErrConflict
	}

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, booking.ListingID); err != nil {
		return nil, fmt.Errorf("failed to lock listing: %w", err)
	}

	var conflict bool
	err = tx.QueryRow(ctx, overlapExists,
		booking.ListingID, booking.ID, booking.CheckIn, booking.CheckOut,
	).Scan(&conflict)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	if conflict {
		return nil, domain.ErrConflict
	}

	err = tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'confirmed', payment_status = 'paid', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING status, payment_status, updated_at`,
		id,
	).Scan(&booking.Status, &booking.Payment, &booking.UpdatedAt)
	if err != nil {
		// Zero rows means the status moved under us; never resurrect it.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConflict
		}
		if isExclusionViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isExclusionViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("failed to commit confirmation: %w", err)
	}
	return booking, nil
}

func (r *bookingRepository) Cancel(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled', payment_status = 'void', updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.getByID(ctx, r.db, id)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *bookingRepository) getByID(ctx context.Context, q querier, id int64) (*domain.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (r *bookingRepository) ListByGuest(ctx context.Context, guestID int64, limit, offset int) ([]*domain.Booking, error) {
	return r.list(ctx, `guest_id`, guestID, limit, offset)
}

func (r *bookingRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*domain.Booking, error) {
	return r.list(ctx, `owner_id`, ownerID, limit, offset)
}

func (r *bookingRepository) list(ctx context.Context, column string, id int64, limit, offset int) ([]*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT` + bookingColumns + ` FROM bookings
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// IsAvailable is the advisory read-only check. The authoritative check runs
// inside Create and Confirm under the listing lock.
func (r *bookingRepository) IsAvailable(ctx context.Context, listingID int64, checkIn, checkOut time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var conflict bool
	err := r.db.QueryRow(ctx, overlapExists, listingID, int64(0), checkIn, checkOut).Scan(&conflict)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return !conflict, nil
}

// ClaimConfirmationNotice flips the notified flag on a confirmed booking.
// Returns true for exactly one caller; concurrent claims lose the
// conditional update and get false.
func (r *bookingRepository) ClaimConfirmationNotice(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET confirmation_notified = TRUE, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed' AND confirmation_notified = FALSE`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim confirmation notice: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.ListingID, &b.GuestID, &b.OwnerID,
		&b.Guest.Name, &b.Guest.Email, &b.Guest.Phone,
		&b.CheckIn, &b.CheckOut, &b.GuestCount, &b.Nights, &b.TotalPrice,
		&b.Status, &b.Payment, &b.ConfirmationNotified,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
