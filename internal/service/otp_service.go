package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
	"github.com/ManoharAnkathi/HUBILO/internal/mailer"
	"github.com/ManoharAnkathi/HUBILO/internal/repository"
	"github.com/ManoharAnkathi/HUBILO/pkg/events"
	"github.com/ManoharAnkathi/HUBILO/pkg/logger"
)

// OTPService manages the single live email verification challenge per
// account. Codes are stored hashed; issuing replaces any previous
// challenge, and a successful verify consumes it.
type OTPService struct {
	otps     repository.OTPRepository
	accounts repository.AccountRepository
	mail     mailer.Mailer
	bus      events.Publisher

	window time.Duration
	now    func() time.Time
}

func NewOTPService(
	otps repository.OTPRepository,
	accounts repository.AccountRepository,
	mail mailer.Mailer,
	bus events.Publisher,
	window time.Duration,
) *OTPService {
	if window <= 0 {
		window = domain.OTPWindow
	}
	return &OTPService{
		otps:     otps,
		accounts: accounts,
		mail:     mail,
		bus:      bus,
		window:   window,
		now:      time.Now,
	}
}

// Issue generates a fresh six-digit code for the account, replacing any
// outstanding challenge, and mails it. The plaintext code is returned so
// dev mode can expose it in the response; production handlers discard it.
func (s *OTPService) Issue(ctx context.Context, account *domain.Account) (string, error) {
	code, err := newOTPCode()
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	challenge := &domain.OTPChallenge{
		AccountID: account.ID,
		Kind:      account.Kind,
		CodeHash:  string(hash),
		IssuedAt:  s.now(),
	}
	if err := s.otps.Put(ctx, challenge); err != nil {
		return "", mapStorageErr(err)
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := s.mail.SendOTP(sendCtx, account.Email, account.FullName(), code); err != nil {
			logger.Error("failed to send otp", "error", err, "account_id", account.ID)
		}
	}()

	return code, nil
}

// Verify checks the submitted code against the live challenge and, on
// success, consumes it and marks the account verified. Expired challenges
// are discarded on sight; a mismatched code leaves the challenge in place.
func (s *OTPService) Verify(ctx context.Context, account *domain.Account, code string) error {
	challenge, err := s.otps.Get(ctx, account.Kind, account.ID)
	if err != nil {
		return mapStorageErr(err)
	}
	if challenge == nil || challenge.AccountID != account.ID {
		return domain.ErrNoChallenge
	}

	if s.now().Sub(challenge.IssuedAt) > s.window {
		if err := s.otps.Delete(ctx, account.Kind, account.ID); err != nil {
			logger.ErrorContext(ctx, "failed to discard expired challenge", "error", err, "account_id", account.ID)
		}
		return domain.ErrExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return domain.ErrMismatch
		}
		return fmt.Errorf("failed to compare code: %w", err)
	}

	// Verify first, consume second. If the directory write fails the
	// challenge survives, so the guest can retry the same code.
	if err := s.accounts.MarkVerified(ctx, account.Kind, account.ID); err != nil {
		return mapStorageErr(err)
	}
	if err := s.otps.Delete(ctx, account.Kind, account.ID); err != nil {
		return mapStorageErr(err)
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.AccountVerified, events.AccountVerifiedEvent{
			AccountID:  account.ID,
			Kind:       string(account.Kind),
			Channel:    "otp",
			VerifiedAt: s.now(),
		}); err != nil {
			logger.ErrorContext(ctx, "failed to publish event", "subject", events.AccountVerified, "error", err)
		}
	}

	return nil
}

// newOTPCode draws uniformly from the full six-digit space, so codes are as
// likely to start with 9 as with 1.
func newOTPCode() (string, error) {
	span := big.NewInt(domain.OTPCodeMax - domain.OTPCodeMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+domain.OTPCodeMin, 10), nil
}
