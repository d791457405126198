package mailer

import (
	"context"
	"fmt"

	"github.com/mailersend/mailersend-go"
)

// MailerSendMailer delivers through the MailerSend transactional API.
type MailerSendMailer struct {
	client    *mailersend.Mailersend
	fromName  string
	fromEmail string
}

func NewMailerSendMailer(apiKey, fromName, fromEmail string) *MailerSendMailer {
	return &MailerSendMailer{
		client:    mailersend.NewMailersend(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (m *MailerSendMailer) send(ctx context.Context, toEmail, toName, subject, html, text string) error {
	message := m.client.Email.NewMessage()
	message.SetFrom(mailersend.From{Name: m.fromName, Email: m.fromEmail})
	message.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	message.SetSubject(subject)
	message.SetHTML(html)
	message.SetText(text)

	_, err := m.client.Email.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("mailersend send failed: %w", err)
	}
	return nil
}

func (m *MailerSendMailer) SendOTP(ctx context.Context, to, name, code string) error {
	subject := "Your verification code"
	html := fmt.Sprintf(`<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>. It expires in 10 minutes.</p>`, name, code)
	text := fmt.Sprintf("Hi %s, your verification code is %s. It expires in 10 minutes.", name, code)
	return m.send(ctx, to, name, subject, html, text)
}

func (m *MailerSendMailer) SendVerificationLink(ctx context.Context, to, name, link string) error {
	subject := "Verify your email"
	html := fmt.Sprintf(`<p>Hi %s,</p><p>Click <a href="%s">here</a> to verify your email. The link expires in 24 hours.</p>`, name, link)
	text := fmt.Sprintf("Hi %s, verify your email: %s (expires in 24 hours)", name, link)
	return m.send(ctx, to, name, subject, html, text)
}

func (m *MailerSendMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	subject := "Reset your password"
	html := fmt.Sprintf(`<p>Hi %s,</p><p>Click <a href="%s">here</a> to reset your password. The link expires in 2 hours.</p>`, name, link)
	text := fmt.Sprintf("Hi %s, reset your password: %s (expires in 2 hours)", name, link)
	return m.send(ctx, to, name, subject, html, text)
}

func (m *MailerSendMailer) SendBookingConfirmation(ctx context.Context, s BookingSummary) error {
	subject := fmt.Sprintf("Booking #%d confirmed", s.BookingID)
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your booking at <strong>%s</strong> is confirmed.</p>
		<p>%s to %s, %d night(s), total $%d.</p>`,
		s.GuestName, s.ListingTitle, s.CheckIn, s.CheckOut, s.Nights, s.TotalPrice)
	text := fmt.Sprintf("Hi %s, your booking at %s is confirmed. %s to %s, %d night(s), total $%d.",
		s.GuestName, s.ListingTitle, s.CheckIn, s.CheckOut, s.Nights, s.TotalPrice)
	return m.send(ctx, s.GuestEmail, s.GuestName, subject, html, text)
}

func (m *MailerSendMailer) SendBookingOwnerAlert(ctx context.Context, s BookingSummary) error {
	subject := fmt.Sprintf("New confirmed booking #%d", s.BookingID)
	html := fmt.Sprintf(
		`<p>%s booked <strong>%s</strong>.</p><p>%s to %s, %d night(s), total $%d.</p>`,
		s.GuestName, s.ListingTitle, s.CheckIn, s.CheckOut, s.Nights, s.TotalPrice)
	text := fmt.Sprintf("%s booked %s. %s to %s, %d night(s), total $%d.",
		s.GuestName, s.ListingTitle, s.CheckIn, s.CheckOut, s.Nights, s.TotalPrice)
	return m.send(ctx, s.OwnerEmail, "", subject, html, text)
}
