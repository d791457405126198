package mailer

import (
	"context"

	"github.com/ManoharAnkathi/HUBILO/pkg/logger"
)

// DevMailer logs instead of sending. Used in local development and tests;
// handlers additionally expose OTP codes in responses when dev mode is on.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (m *DevMailer) SendOTP(ctx context.Context, to, name, code string) error {
	logger.InfoContext(ctx, "dev mail: otp code", "to", to, "code", code)
	return nil
}

func (m *DevMailer) SendVerificationLink(ctx context.Context, to, name, link string) error {
	logger.InfoContext(ctx, "dev mail: verification link", "to", to, "link", link)
	return nil
}

func (m *DevMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	logger.InfoContext(ctx, "dev mail: password reset", "to", to, "link", link)
	return nil
}

func (m *DevMailer) SendBookingConfirmation(ctx context.Context, summary BookingSummary) error {
	logger.InfoContext(ctx, "dev mail: booking confirmation",
		"to", summary.GuestEmail, "booking_id", summary.BookingID)
	return nil
}

func (m *DevMailer) SendBookingOwnerAlert(ctx context.Context, summary BookingSummary) error {
	logger.InfoContext(ctx, "dev mail: booking owner alert",
		"to", summary.OwnerEmail, "booking_id", summary.BookingID)
	return nil
}
