package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
	"github.com/ManoharAnkathi/HUBILO/internal/mailer"
)

// fakeAccountRepo is an in-memory account directory keyed by (kind, id).
type fakeAccountRepo struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[string]*domain.Account

	markVerifiedCalls int
	markVerifiedFails int
	ownerBookings     int64
	ownerRevenue      int64
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func accountKey(kind domain.AccountKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func (f *fakeAccountRepo) Create(_ context.Context, a *domain.Account) error {
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
	f.accounts[accountKey(a.Kind, a.ID)] = a
	return nil
}

func (f *fakeAccountRepo) FindByID(_ context.Context, kind domain.AccountKind, id int64) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[accountKey(kind, id)], nil
}

func (f *fakeAccountRepo) FindByEmail(_ context.Context, kind domain.AccountKind, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Kind == kind && a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAccountRepo) FindByIdentifier(_ context.Context, kind domain.AccountKind, identifier string) (*domain.Account, error) {
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

func (f *fakeAccountRepo) MarkVerified(_ context.Context, kind domain.AccountKind, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markVerifiedFails > 0 {
		f.markVerifiedFails--
		return fmt.Errorf("directory temporarily unavailable")
	}
	a, ok := f.accounts[accountKey(kind, id)]
	if !ok {
		return domain.ErrNotFound
	}
	a.IsVerified = true
	a.VerificationToken = nil
	a.VerificationExpiresAt = nil
	f.markVerifiedCalls++
	return nil
}

func (f *fakeAccountRepo) ConsumeVerificationToken(_ context.Context, token string) (*domain.Account, error) {
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

func (f *fakeAccountRepo) SetPasswordHash(_ context.Context, kind domain.AccountKind, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountKey(kind, id)]
	if !ok {
		return domain.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeAccountRepo) ListByKind(_ context.Context, kind domain.AccountKind, limit, offset int) ([]*domain.Account, error) {
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

func (f *fakeAccountRepo) UpdateKYC(_ context.Context, ownerID int64, status domain.KYCStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountKey(domain.KindOwner, ownerID)]
	if !ok || a.Owner == nil {
		return domain.ErrNotFound
	}
	a.Owner.KYCStatus = status
	return nil
}

func (f *fakeAccountRepo) BumpOwnerTotals(_ context.Context, ownerID int64, bookings, revenue int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ownerBookings += bookings
	f.ownerRevenue += revenue
	return nil
}

// fakeMailer records every send.
type fakeMailer struct {
	mu            sync.Mutex
	otps          []string
	links         []string
	resets        []string
	confirmations []mailer.BookingSummary
	ownerAlerts   []mailer.BookingSummary
}

func (m *fakeMailer) SendOTP(_ context.Context, _, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps = append(m.otps, code)
	return nil
}

func (m *fakeMailer) SendVerificationLink(_ context.Context, _, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, _, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, link)
	return nil
}

func (m *fakeMailer) SendBookingConfirmation(_ context.Context, s mailer.BookingSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations = append(m.confirmations, s)
	return nil
}

func (m *fakeMailer) SendBookingOwnerAlert(_ context.Context, s mailer.BookingSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerAlerts = append(m.ownerAlerts, s)
	return nil
}

func (m *fakeMailer) confirmationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.confirmations)
}

func (m *fakeMailer) ownerAlertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ownerAlerts)
}

// fakeBookingRepo enforces the confirmed-overlap invariant in memory.
type fakeBookingRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*domain.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[int64]*domain.Booking)}
}

func (f *fakeBookingRepo) hasConflict(listingID, excludeID int64, in, out time.Time) bool {
	for _, b := range f.bookings {
		if b.ListingID == listingID && b.ID != excludeID && b.Status == domain.BookingConfirmed &&
			domain.Overlaps(b.CheckIn, b.CheckOut, in, out) {
			return true
		}
	}
	return false
}

func (f *fakeBookingRepo) Create(_ context.Context, b *domain.Booking) error {
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

func (f *fakeBookingRepo) Confirm(_ context.Context, id int64) (*domain.Booking, error) {
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

func (f *fakeBookingRepo) Cancel(_ context.Context, id int64) error {
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

func (f *fakeBookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	clone := *b
	return &clone, nil
}

func (f *fakeBookingRepo) ListByGuest(_ context.Context, guestID int64, limit, offset int) ([]*domain.Booking, error) {
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

func (f *fakeBookingRepo) ListByOwner(_ context.Context, ownerID int64, limit, offset int) ([]*domain.Booking, error) {
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

func (f *fakeBookingRepo) IsAvailable(_ context.Context, listingID int64, in, out time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.hasConflict(listingID, 0, in, out), nil
}

func (f *fakeBookingRepo) ClaimConfirmationNotice(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != domain.BookingConfirmed || b.ConfirmationNotified {
		return false, nil
	}
	b.ConfirmationNotified = true
	return true, nil
}

// fakeListingRepo is an in-memory listing store.
type fakeListingRepo struct {
	mu       sync.Mutex
	nextID   int64
	listings map[int64]*domain.Listing
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[int64]*domain.Listing)}
}

func (f *fakeListingRepo) Create(_ context.Context, l *domain.Listing) error {
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

func (f *fakeListingRepo) GetByID(_ context.Context, id int64) (*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return nil, nil
	}
	clone := *l
	return &clone, nil
}

func (f *fakeListingRepo) ListByOwner(_ context.Context, ownerID int64, limit, offset int) ([]*domain.Listing, error) {
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

func (f *fakeListingRepo) ListActive(_ context.Context, limit, offset int) ([]*domain.Listing, error) {
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

func (f *fakeListingRepo) SetActive(_ context.Context, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.IsActive = active
	return nil
}

// fakeTokenRepo stores reset tokens in a map.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]fakeToken
}

type fakeToken struct {
	kind      domain.AccountKind
	accountID int64
	expiresAt time.Time
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]fakeToken)}
}

func (f *fakeTokenRepo) Create(_ context.Context, token string, kind domain.AccountKind, accountID int64, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = fakeToken{kind: kind, accountID: accountID, expiresAt: expiresAt}
	return nil
}

func (f *fakeTokenRepo) Consume(_ context.Context, token string) (domain.AccountKind, int64, error) {
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

func (f *fakeTokenRepo) DeleteForAccount(_ context.Context, kind domain.AccountKind, accountID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, t := range f.tokens {
		if t.kind == kind && t.accountID == accountID {
			delete(f.tokens, token)
		}
	}
	return nil
}
