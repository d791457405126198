package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type AccountKind string

const (
	KindGuest AccountKind = "guest"
	KindOwner AccountKind = "owner"
	KindAdmin AccountKind = "admin"
)

func ParseAccountKind(s string) (AccountKind, bool) {
	switch AccountKind(s) {
	case KindGuest, KindOwner, KindAdmin:
		return AccountKind(s), true
	default:
		return "", false
	}
}

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

func ParseKYCStatus(s string) (KYCStatus, bool) {
	switch KYCStatus(s) {
	case KYCPending, KYCVerified, KYCRejected:
		return KYCStatus(s), true
	default:
		return "", false
	}
}

// OwnerProfile carries the owner-only fields. It is present exactly when
// Kind == KindOwner.
type OwnerProfile struct {
	BusinessName  string    `json:"business_name"`
	BusinessType  string    `json:"business_type"`
	BusinessPhone string    `json:"business_phone,omitempty"`
	KYCStatus     KYCStatus `json:"kyc_status"`
	TotalBookings int64     `json:"total_bookings"`
	TotalRevenue  int64     `json:"total_revenue"`
}

// Account is the tagged union over the three account kinds. Kind-specific
// fields live on the variant profile, never on subtypes.
type Account struct {
	ID           int64       `json:"id"`
	Kind         AccountKind `json:"kind"`
	Email        string      `json:"email"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"`
	FirstName    string      `json:"first_name,omitempty"`
	LastName     string      `json:"last_name,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	IsVerified   bool        `json:"is_verified"`

	// Verification-link channel state; both cleared when the account
	// becomes verified.
	VerificationToken     *string    `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`

	Owner *OwnerProfile `json:"owner,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Account) FullName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Username
	}
	return name
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`

	// Owner signup only
	BusinessName string `json:"business_name,omitempty"`
	BusinessType string `json:"business_type,omitempty"`
}

type LoginRequest struct {
	// Identifier is a username or an email; lookup tries username first.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	SessionToken string       `json:"session_token"`
	ExpiresIn    int64        `json:"expires_in"`
	Account      *AccountInfo `json:"account"`
}

// AccountInfo is the public view of an account, without credential or
// verification state internals.
type AccountInfo struct {
	ID         int64         `json:"id"`
	Kind       AccountKind   `json:"kind"`
	Email      string        `json:"email"`
	Username   string        `json:"username"`
	FirstName  string        `json:"first_name,omitempty"`
	LastName   string        `json:"last_name,omitempty"`
	Phone      string        `json:"phone,omitempty"`
	IsVerified bool          `json:"is_verified"`
	Owner      *OwnerProfile `json:"owner,omitempty"`
}

func (a *Account) ToAccountInfo() *AccountInfo {
	return &AccountInfo{
		ID:         a.ID,
		Kind:       a.Kind,
		Email:      a.Email,
		Username:   a.Username,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Phone:      a.Phone,
		IsVerified: a.IsVerified,
		Owner:      a.Owner,
	}
}

var validBusinessTypes = map[string]bool{
	"hotel": true, "bnb": true, "homestay": true, "apartment": true,
	"villa": true, "hostel": true, "resort": true,
}

func (r *RegisterRequest) Validate(kind AccountKind) error {
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !isValidEmail(r.Email) {
		return fmt.Errorf("invalid email format")
	}
	if r.Username == "" {
		return fmt.Errorf("username is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	if len(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if r.Phone != "" && !isValidPhone(r.Phone) {
		return fmt.Errorf("invalid phone format")
	}
	if kind == KindOwner {
		if r.BusinessName == "" {
			return fmt.Errorf("business name is required")
		}
		if !validBusinessTypes[r.BusinessType] {
			return fmt.Errorf("invalid business type")
		}
		if r.Phone == "" {
			return fmt.Errorf("phone is required")
		}
	}
	return nil
}

func (r *RegisterRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.BusinessName = strings.TrimSpace(r.BusinessName)
	r.BusinessType = strings.ToLower(strings.TrimSpace(r.BusinessType))
}

func (r *LoginRequest) Validate() error {
	if r.Identifier == "" {
		return fmt.Errorf("username or email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

func (r *LoginRequest) Normalize() {
	r.Identifier = strings.TrimSpace(r.Identifier)
}

// Helper functions
func isValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

func isValidPhone(phone string) bool {
	phoneRegex := regexp.MustCompile(`^[\+]?[\d\s\-\(\)]+$`)
	return phoneRegex.MatchString(phone) && len(phone) >= 7
}
