package mailer

import "context"

// BookingSummary carries the fields the booking emails need, so the mailer
// stays decoupled from the storage types.
type BookingSummary struct {
	BookingID    int64
	ListingTitle string
	GuestName    string
	GuestEmail   string
	OwnerEmail   string
	CheckIn      string
	CheckOut     string
	Nights       int64
	TotalPrice   int64
}

// Mailer sends the transactional emails. All sends are best effort; callers
// fire them off request-path-asynchronously and log failures.
type Mailer interface {
	SendOTP(ctx context.Context, to, name, code string) error
	SendVerificationLink(ctx context.Context, to, name, link string) error
	SendPasswordReset(ctx context.Context, to, name, link string) error
	SendBookingConfirmation(ctx context.Context, summary BookingSummary) error
	SendBookingOwnerAlert(ctx context.Context, summary BookingSummary) error
}
