package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
	"github.com/ManoharAnkathi/HUBILO/internal/mailer"
)

// In-memory stores backing the end-to-end handler tests.

type memAccountRepo struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[string]*domain.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[string]*domain.Account)}
}

func memKey(kind domain.AccountKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func (f *memAccountRepo) Create(_ context.Context, a *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Kind == a.Kind && (existing.Email == a.Email || existing.Username == a.Username) {
			return domain.ErrDuplicateIdentity
		}
	}
	f.nextID++
	a.ID = f.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.accounts[memKey(a.Kind, a.ID)] = a
	return nil
}

func (f *memAccountRepo) FindByID(_ context.Context, kind domain.AccountKind, id int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[memKey(kind, id)], nil
}

func (f *memAccountRepo) FindByEmail(_ context.Context, kind domain.AccountKind, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Kind == kind && a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (f *memAccountRepo) FindByIdentifier(_ context.Context, kind domain.AccountKind, identifier string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Kind == kind && a.Username == identifier {
			return a, nil
		}
	}
	for _, a := range f.accounts {
		if a.Kind == kind && a.Email == identifier {
			return a, nil
		}
	}
	return nil, nil
}

func (f *memAccountRepo) MarkVerified(_ context.Context, kind domain.AccountKind, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[memKey(kind, id)]
	if !ok {
		return domain.ErrNotFound
	}
	a.IsVerified = true
	a.VerificationToken = nil
	a.VerificationExpiresAt = nil
	return nil
}

func (f *memAccountRepo) ConsumeVerificationToken(_ context.Context, token string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.VerificationToken != nil && *a.VerificationToken == token {
			if a.VerificationExpiresAt == nil || time.Now().After(*a.VerificationExpiresAt) || a.IsVerified {
				return nil, nil
			}
			a.IsVerified = true
			a.VerificationToken = nil
			a.VerificationExpiresAt = nil
			return a, nil
		}
	}
	return nil, nil
}

func (f *memAccountRepo) SetPasswordHash(_ context.Context, kind domain.AccountKind, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[memKey(kind, id)]
	if !ok {
		return domain.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (f *memAccountRepo) ListByKind(_ context.Context, kind domain.AccountKind, limit, offset int) ([]*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Account
	for _, a := range f.accounts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *memAccountRepo) UpdateKYC(_ context.Context, ownerID int64, status domain.KYCStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[memKey(domain.KindOwner, ownerID)]
	if !ok || a.Owner == nil {
		return domain.ErrNotFound
	}
	a.Owner.KYCStatus = status
	return nil
}

func (f *memAccountRepo) BumpOwnerTotals(_ context.Context, ownerID int64, bookings, revenue int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[memKey(domain.KindOwner, ownerID)]
	if ok && a.Owner != nil {
		a.Owner.TotalBookings += bookings
		a.Owner.TotalRevenue += revenue
	}
	return nil
}

type memBookingRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*domain.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[int64]*domain.Booking)}
}

func (f *memBookingRepo) hasConflict(listingID, excludeID int64, in, out time.Time) bool {
	for _, b := range f.bookings {
		if b.ListingID == listingID && b.ID != excludeID && b.Status == domain.BookingConfirmed &&
			domain.Overlaps(b.CheckIn, b.CheckOut, in, out) {
			return true
		}
	}
	return false
}

func (f *memBookingRepo) Create(_ context.Context, b *domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasConflict(b.ListingID, 0, b.CheckIn, b.CheckOut) {
		return domain.ErrConflict
	}
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	clone := *b
	f.bookings[b.ID] = &clone
	return nil
}

func (f *memBookingRepo) Confirm(_ context.Context, id int64) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if b.Status == domain.BookingConfirmed {
		clone := *b
		return &clone, nil
	}
	if b.Status == domain.BookingCancelled {
		return nil, domain.ErrConflict
	}
	if f.hasConflict(b.ListingID, b.ID, b.CheckIn, b.CheckOut) {
		return nil, domain.ErrConflict
	}
	b.Status = domain.BookingConfirmed
	b.Payment = domain.PaymentPaid
	b.UpdatedAt = time.Now()
	clone := *b
	return &clone, nil
}

func (f *memBookingRepo) Cancel(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status == domain.BookingCancelled {
		return domain.ErrNotFound
	}
	b.Status = domain.BookingCancelled
	b.Payment = domain.PaymentVoid
	return nil
}

func (f *memBookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	clone := *b
	return &clone, nil
}

func (f *memBookingRepo) ListByGuest(_ context.Context, guestID int64, limit, offset int) ([]*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Booking
	for _, b := range f.bookings {
		if b.GuestID == guestID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *memBookingRepo) ListByOwner(_ context.Context, ownerID int64, limit, offset int) ([]*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Booking
	for _, b := range f.bookings {
		if b.OwnerID == ownerID {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *memBookingRepo) IsAvailable(_ context.Context, listingID int64, in, out time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.hasConflict(listingID, 0, in, out), nil
}

func (f *memBookingRepo) ClaimConfirmationNotice(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != domain.BookingConfirmed || b.ConfirmationNotified {
		return false, nil
	}
	b.ConfirmationNotified = true
	return true, nil
}

type memListingRepo struct {
	mu       sync.Mutex
	nextID   int64
	listings map[int64]*domain.Listing
}

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{listings: make(map[int64]*domain.Listing)}
}

func (f *memListingRepo) Create(_ context.Context, l *domain.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	l.ID = f.nextID
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt
	clone := *l
	f.listings[l.ID] = &clone
	return nil
}

func (f *memListingRepo) GetByID(_ context.Context, id int64) (*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, nil
	}
	clone := *l
	return &clone, nil
}

func (f *memListingRepo) ListByOwner(_ context.Context, ownerID int64, limit, offset int) ([]*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Listing
	for _, l := range f.listings {
		if l.OwnerID == ownerID {
			clone := *l
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *memListingRepo) ListActive(_ context.Context, limit, offset int) ([]*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Listing
	for _, l := range f.listings {
		if l.IsActive {
			clone := *l
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *memListingRepo) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.IsActive = active
	return nil
}

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]memToken
}

type memToken struct {
	kind      domain.AccountKind
	accountID int64
	expiresAt time.Time
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]memToken)}
}

func (f *memTokenRepo) Create(_ context.Context, token string, kind domain.AccountKind, accountID int64, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = memToken{kind: kind, accountID: accountID, expiresAt: expiresAt}
	return nil
}

func (f *memTokenRepo) Consume(_ context.Context, token string) (domain.AccountKind, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return "", 0, domain.ErrNotFound
	}
	delete(f.tokens, token)
	if time.Now().After(t.expiresAt) {
		return "", 0, domain.ErrExpired
	}
	return t.kind, t.accountID, nil
}

func (f *memTokenRepo) DeleteForAccount(_ context.Context, kind domain.AccountKind, accountID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, t := range f.tokens {
		if t.kind == kind && t.accountID == accountID {
			delete(f.tokens, token)
		}
	}
	return nil
}

// stubLimiter admits everything until tripped and records resets.
type stubLimiter struct {
	mu     sync.Mutex
	denied bool
	resets []string
}

func (l *stubLimiter) Allow(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.denied, nil
}

func (l *stubLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets = append(l.resets, key)
	return nil
}

func (l *stubLimiter) deny() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.denied = true
}

func (l *stubLimiter) resetKeys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.resets...)
}

// nullMailer drops everything.
type nullMailer struct{}

func (nullMailer) SendOTP(context.Context, string, string, string) error              { return nil }
func (nullMailer) SendVerificationLink(context.Context, string, string, string) error { return nil }
func (nullMailer) SendPasswordReset(context.Context, string, string, string) error    { return nil }
func (nullMailer) SendBookingConfirmation(context.Context, mailer.BookingSummary) error {
	return nil
}
func (nullMailer) SendBookingOwnerAlert(context.Context, mailer.BookingSummary) error { return nil }
