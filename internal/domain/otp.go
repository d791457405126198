package domain

import (
	"fmt"
	"regexp"
	"time"
)

// OTPWindow is how long an issued code stays valid. Expiry is checked at
// verify time, never by a background sweeper.
const OTPWindow = 10 * time.Minute

// Inclusive bounds of the six-digit code space. Every code in the range is
// equally likely, so codes may start with any digit from 1 to 9.
const (
	OTPCodeMin = 100000
	OTPCodeMax = 999999
)

// OTPChallenge is the single live verification challenge for an account.
// Issuing a new code replaces any previous challenge for the same account.
type OTPChallenge struct {
	AccountID int64       `json:"account_id"`
	Kind      AccountKind `json:"kind"`
	CodeHash  string      `json:"code_hash"`
	IssuedAt  time.Time   `json:"issued_at"`
}

func (c *OTPChallenge) ExpiredAt(now time.Time) bool {
	return now.Sub(c.IssuedAt) > OTPWindow
}

type VerifyOTPRequest struct {
	Code string `json:"code"`
}

var otpCodeRegex = regexp.MustCompile(`^\d{6}$`)

func (r *VerifyOTPRequest) Validate() error {
	if r.Code == "" {
		return fmt.Errorf("code is required")
	}
	if !otpCodeRegex.MatchString(r.Code) {
		return fmt.Errorf("code must be 6 digits")
	}
	return nil
}
