package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
	"github.com/ManoharAnkathi/HUBILO/internal/mailer"
	"github.com/ManoharAnkathi/HUBILO/internal/repository"
	"github.com/ManoharAnkathi/HUBILO/pkg/auth"
	"github.com/ManoharAnkathi/HUBILO/pkg/events"
	"github.com/ManoharAnkathi/HUBILO/pkg/logger"
)

const sendTimeout = 10 * time.Second

// AccountService is the account directory plus the session identity
// resolver. Every operation is kind-scoped; the kind stored at registration
// is the kind a session resolves under.
type AccountService struct {
	accounts repository.AccountRepository
	tokens   repository.TokenRepository
	mail     mailer.Mailer
	bus      events.Publisher

	jwtSecret  string
	sessionTTL time.Duration
	linkTTL    time.Duration
	resetTTL   time.Duration
	baseURL    string
}

func NewAccountService(
	accounts repository.AccountRepository,
	tokens repository.TokenRepository,
	mail mailer.Mailer,
	bus events.Publisher,
	jwtSecret string,
	sessionTTL, linkTTL, resetTTL time.Duration,
	baseURL string,
) *AccountService {
	return &AccountService{
		accounts:   accounts,
		tokens:     tokens,
		mail:       mail,
		bus:        bus,
		jwtSecret:  jwtSecret,
		sessionTTL: sessionTTL,
		linkTTL:    linkTTL,
		resetTTL:   resetTTL,
		baseURL:    baseURL,
	}
}

// Register creates an unverified account under the given kind and sends the
// verification link. The OTP challenge is issued separately by the caller.
func (s *AccountService) Register(ctx context.Context, kind domain.AccountKind, req *domain.RegisterRequest) (*domain.Account, error) {
	req.Normalize()
	if err := req.Validate(kind); err != nil {
		return nil, err
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := newLinkToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.linkTTL)

	account := &domain.Account{
		Kind:                  kind,
		Email:                 req.Email,
		Username:              req.Username,
		PasswordHash:          passwordHash,
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		Phone:                 req.Phone,
		IsVerified:            false,
		VerificationToken:     &token,
		VerificationExpiresAt: &expiresAt,
	}
	if kind == domain.KindOwner {
		account.Owner = &domain.OwnerProfile{
			BusinessName:  req.BusinessName,
			BusinessType:  req.BusinessType,
			BusinessPhone: req.Phone,
			KYCStatus:     domain.KYCPending,
		}
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, mapStorageErr(err)
	}

	link := fmt.Sprintf("%s/auth/%s/verify-email?token=%s", s.baseURL, kind, token)
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := s.mail.SendVerificationLink(sendCtx, account.Email, account.FullName(), link); err != nil {
			logger.Error("failed to send verification link", "error", err, "account_id", account.ID)
		}
	}()

	s.publish(ctx, events.AccountRegistered, events.AccountRegisteredEvent{
		AccountID: account.ID,
		Kind:      string(account.Kind),
		Email:     account.Email,
		CreatedAt: account.CreatedAt,
	})

	return account, nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist.
// Admins never register through the public endpoints; this runs once at
// startup and is a no-op when the email is already taken under the admin
// kind. The account starts verified, there is no inbox to confirm.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, username, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || username == "" {
		return fmt.Errorf("admin email and username are required")
	}
	if len(password) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters")
	}

	existing, err := s.accounts.FindByEmail(ctx, domain.KindAdmin, email)
	if err != nil {
		return mapStorageErr(err)
	}
	if existing != nil {
		return nil
	}

	passwordHash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.accounts.Create(ctx, &domain.Account{
		Kind:         domain.KindAdmin,
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		IsVerified:   true,
	})
	if errors.Is(err, domain.ErrDuplicateIdentity) {
		// Lost a startup race with another instance; the account exists.
		return nil
	}
	return mapStorageErr(err)
}

// Login authenticates within a kind, trying the identifier as a username
// first and then as an email. Unverified accounts cannot log in.
func (s *AccountService) Login(ctx context.Context, kind domain.AccountKind, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByIdentifier(ctx, kind, req.Identifier)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if account == nil {
		return nil, domain.ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(req.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to compare password: %w", err)
	}
	if !match {
		return nil, domain.ErrInvalidCredentials
	}

	if !account.IsVerified {
		return nil, domain.ErrNotVerified
	}

	token, err := auth.NewSessionToken(account.ID, account.Email, string(account.Kind), s.jwtSecret, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &domain.LoginResponse{
		SessionToken: token,
		ExpiresIn:    int64(s.sessionTTL.Seconds()),
		Account:      account.ToAccountInfo(),
	}, nil
}

// Resolve maps session claims back to a live account. This is the only
// place kind dispatch happens; a claim whose account no longer exists is a
// dangling session, indistinguishable to the caller from no session at all.
func (s *AccountService) Resolve(ctx context.Context, kindStr string, id int64) (*domain.Account, error) {
	kind, ok := domain.ParseAccountKind(kindStr)
	if !ok {
		return nil, domain.ErrDanglingSession
	}

	account, err := s.accounts.FindByID(ctx, kind, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if account == nil {
		return nil, domain.ErrDanglingSession
	}
	return account, nil
}

// VerifyEmailToken redeems a verification link. The token is single use;
// unknown, already-used and expired tokens are all reported as expired.
func (s *AccountService) VerifyEmailToken(ctx context.Context, token string) (*domain.Account, error) {
	account, err := s.accounts.ConsumeVerificationToken(ctx, token)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if account == nil {
		return nil, domain.ErrExpired
	}

	s.publish(ctx, events.AccountVerified, events.AccountVerifiedEvent{
		AccountID:  account.ID,
		Kind:       string(account.Kind),
		Channel:    "link",
		VerifiedAt: time.Now(),
	})

	return account, nil
}

// RequestPasswordReset issues a reset token and mails the link. It reveals
// nothing about whether the email exists.
func (s *AccountService) RequestPasswordReset(ctx context.Context, kind domain.AccountKind, email string) error {
	account, err := s.accounts.FindByEmail(ctx, kind, email)
	if err != nil {
		return mapStorageErr(err)
	}
	if account == nil {
		return nil
	}

	token, err := newLinkToken()
	if err != nil {
		return err
	}

	if err := s.tokens.DeleteForAccount(ctx, kind, account.ID); err != nil {
		return mapStorageErr(err)
	}
	if err := s.tokens.Create(ctx, token, kind, account.ID, time.Now().Add(s.resetTTL)); err != nil {
		return mapStorageErr(err)
	}

	link := fmt.Sprintf("%s/auth/%s/reset-password?token=%s", s.baseURL, kind, token)
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := s.mail.SendPasswordReset(sendCtx, account.Email, account.FullName(), link); err != nil {
			logger.Error("failed to send password reset", "error", err, "account_id", account.ID)
		}
	}()

	return nil
}

// ResetPassword consumes a reset token and replaces the password.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	kind, accountID, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return mapStorageErr(err)
	}

	passwordHash, err := argon2id.CreateHash(newPassword, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return mapStorageErr(s.accounts.SetPasswordHash(ctx, kind, accountID, passwordHash))
}

// FindByEmail looks an account up within a kind. Used by the OTP endpoints,
// which identify the account by email because no session exists yet.
func (s *AccountService) FindByEmail(ctx context.Context, kind domain.AccountKind, email string) (*domain.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, kind, email)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return account, nil
}

func (s *AccountService) ListByKind(ctx context.Context, kind domain.AccountKind, limit, offset int) ([]*domain.Account, error) {
	accounts, err := s.accounts.ListByKind(ctx, kind, limit, offset)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return accounts, nil
}

func (s *AccountService) UpdateKYC(ctx context.Context, ownerID int64, status domain.KYCStatus) error {
	return mapStorageErr(s.accounts.UpdateKYC(ctx, ownerID, status))
}

func (s *AccountService) publish(ctx context.Context, subject string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.ErrorContext(ctx, "failed to publish event", "subject", subject, "error", err)
	}
}

// newLinkToken returns 20 random bytes, hex encoded. 160 bits keeps link
// tokens unguessable without making the URLs unwieldy.
func newLinkToken() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// mapStorageErr folds context deadline errors into the timeout sentinel;
// domain sentinels pass through untouched.
func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return err
}
