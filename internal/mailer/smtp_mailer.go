package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer sends plain-text mail over an SMTP relay. Used when no
// MailerSend key is configured.
type SMTPMailer struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPMailer(host string, port int, username, password, fromName, fromEmail string) *SMTPMailer {
	return &SMTPMailer{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (m *SMTPMailer) send(to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.fromName, m.fromEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := smtp.SendMail(addr, auth, m.fromEmail, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

func (m *SMTPMailer) SendOTP(_ context.Context, to, name, code string) error {
	body := fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires in 10 minutes.\n", name, code)
	return m.send(to, "Your verification code", body)
}

func (m *SMTPMailer) SendVerificationLink(_ context.Context, to, name, link string) error {
	body := fmt.Sprintf("Hi %s,\n\nVerify your email: %s\n\nThe link expires in 24 hours.\n", name, link)
	return m.send(to, "Verify your email", body)
}

func (m *SMTPMailer) SendPasswordReset(_ context.Context, to, name, link string) error {
	body := fmt.Sprintf("Hi %s,\n\nReset your password: %s\n\nThe link expires in 2 hours.\n", name, link)
	return m.send(to, "Reset your password", body)
}

func (m *SMTPMailer) SendBookingConfirmation(_ context.Context, s BookingSummary) error {
	body := fmt.Sprintf("Hi %s,\n\nYour booking at %s is confirmed.\n%s to %s, %d night(s), total $%d.\n",
		s.GuestName, s.ListingTitle, s.CheckIn, s.CheckOut, s.Nights, s.TotalPrice)
	return m.send(s.GuestEmail, fmt.Sprintf("Booking #%d confirmed", s.BookingID), body)
}

func (m *SMTPMailer) SendBookingOwnerAlert(_ context.Context, s BookingSummary) error {
	body := fmt.Sprintf("%s booked %s.\n%s to %s, %d night(s), total $%d.\n",
		s.GuestName, s.ListingTitle, s.CheckIn, s.CheckOut, s.Nights, s.TotalPrice)
	return m.send(s.OwnerEmail, fmt.Sprintf("New confirmed booking #%d", s.BookingID), body)
}
