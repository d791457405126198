package handlers

import (
	"net/http"
	"strings"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
	"github.com/ManoharAnkathi/HUBILO/pkg/logger"
)

// Register creates an unverified account and issues the first OTP challenge.
// Admin accounts are provisioned out of band, never through this endpoint.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok || kind == domain.KindAdmin {
		writeError(w, http.StatusNotFound, "unknown account kind", "NOT_FOUND")
		return
	}

	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}

	account, err := h.accounts.Register(r.Context(), kind, &req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	code, err := h.otps.Issue(r.Context(), account)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to issue otp after registration", "error", err, "account_id", account.ID)
	}

	resp := map[string]interface{}{
		"account": account.ToAccountInfo(),
		"message": "verification code sent to your email",
	}
	if h.cfg.Email.DevMode && code != "" {
		resp["dev_otp"] = code
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown account kind", "NOT_FOUND")
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}

	resp, err := h.accounts.Login(r.Context(), kind, &req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// VerifyOTP checks a submitted code for the account identified by email
// within the kind. Success marks the account verified and consumes the
// challenge.
func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown account kind", "NOT_FOUND")
		return
	}

	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}
	verifyReq := domain.VerifyOTPRequest{Code: req.Code}
	if err := verifyReq.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}

	account, err := h.findByEmail(w, r, kind, req.Email)
	if account == nil || err != nil {
		return
	}

	if err := h.otps.Verify(r.Context(), account, req.Code); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	// Verified callers get their throttle buckets back.
	email := strings.ToLower(strings.TrimSpace(req.Email))
	for _, bucket := range []string{"otp_issue", "otp_verify"} {
		if err := h.limiter.Reset(r.Context(), otpLimitKey(bucket, string(kind), email)); err != nil {
			logger.ErrorContext(r.Context(), "failed to reset rate limit", "error", err, "bucket", bucket)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

// ResendOTP issues a fresh challenge, superseding any outstanding code.
func (h *Handlers) ResendOTP(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown account kind", "NOT_FOUND")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}

	account, err := h.findByEmail(w, r, kind, req.Email)
	if account == nil || err != nil {
		return
	}
	if account.IsVerified {
		writeError(w, http.StatusConflict, "account is already verified", "ALREADY_VERIFIED")
		return
	}

	code, err := h.otps.Issue(r.Context(), account)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := map[string]interface{}{"message": "verification code sent"}
	if h.cfg.Email.DevMode {
		resp["dev_otp"] = code
	}
	writeJSON(w, http.StatusOK, resp)
}

// VerifyEmail redeems the emailed verification link.
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if _, ok := parseKind(r); !ok {
		writeError(w, http.StatusNotFound, "unknown account kind", "NOT_FOUND")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required", "BAD_REQUEST")
		return
	}

	account, err := h.accounts.VerifyEmailToken(r.Context(), token)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "email verified",
		"account": account.ToAccountInfo(),
	})
}

func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown account kind", "NOT_FOUND")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.accounts.RequestPasswordReset(r.Context(), kind, email); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	// Same response whether or not the account exists.
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the email is registered, a reset link has been sent",
	})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if _, ok := parseKind(r); !ok {
		writeError(w, http.StatusNotFound, "unknown account kind", "NOT_FOUND")
		return
	}

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required", "BAD_REQUEST")
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())
	writeJSON(w, http.StatusOK, account.ToAccountInfo())
}

// findByEmail resolves an account within a kind, writing the error response
// itself. A nil account with nil error means the response was written.
func (h *Handlers) findByEmail(w http.ResponseWriter, r *http.Request, kind domain.AccountKind, email string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required", "BAD_REQUEST")
		return nil, nil
	}

	account, err := h.accounts.FindByEmail(r.Context(), kind, email)
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, err
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "account not found", "NOT_FOUND")
		return nil, nil
	}
	return account, nil
}
