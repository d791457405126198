package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
	"github.com/ManoharAnkathi/HUBILO/internal/repository"
	"github.com/ManoharAnkathi/HUBILO/internal/service"
	"github.com/ManoharAnkathi/HUBILO/pkg/auth"
	"github.com/ManoharAnkathi/HUBILO/pkg/config"
	"github.com/ManoharAnkathi/HUBILO/pkg/logger"
)

type contextKey string

const accountContextKey contextKey = "account"

// Handlers wires the HTTP surface to the services. Every authenticated
// route re-resolves the session claims against the account directory, so a
// deleted account is indistinguishable from no session.
type Handlers struct {
	accounts *service.AccountService
	otps     *service.OTPService
	bookings *service.BookingService
	listings *service.ListingService
	limiter  repository.RateLimitRepository
	cfg      *config.Config
}

func New(
	accounts *service.AccountService,
	otps *service.OTPService,
	bookings *service.BookingService,
	listings *service.ListingService,
	limiter repository.RateLimitRepository,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		accounts: accounts,
		otps:     otps,
		bookings: bookings,
		listings: listings,
		limiter:  limiter,
		cfg:      cfg,
	}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Route("/auth/{kind}", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/verify-email", h.VerifyEmail)
		r.With(h.limitOTPVerify).Post("/verify-otp", h.VerifyOTP)
		r.With(h.limitOTPIssue).Post("/resend-otp", h.ResendOTP)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/auth/me", h.Me)

		r.Get("/listings", h.ListListings)
		r.Get("/listings/{id}", h.GetListing)
		r.With(h.RequireKind(domain.KindOwner)).Post("/listings", h.CreateListing)
		r.With(h.RequireKind(domain.KindOwner, domain.KindAdmin)).Patch("/listings/{id}/active", h.SetListingActive)

		r.Get("/bookings/quote", h.QuoteBooking)
		r.With(h.RequireKind(domain.KindGuest)).Post("/bookings", h.CreateBooking)
		r.Get("/bookings", h.ListBookings)
		r.Get("/bookings/{id}", h.GetBooking)
		r.With(h.RequireKind(domain.KindOwner, domain.KindAdmin)).Post("/bookings/{id}/confirm", h.ConfirmBooking)
		r.Post("/bookings/{id}/cancel", h.CancelBooking)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireKind(domain.KindAdmin))
			r.Get("/accounts/{kind}", h.ListAccounts)
			r.Patch("/owners/{id}/kyc", h.UpdateKYC)
		})
	})
}

// RequireAuth parses the bearer token and resolves the claims against the
// directory. Stale or dangling sessions get a 401, never a 500.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing or invalid authorization header", "UNAUTHENTICATED")
			return
		}

		claims, err := auth.Parse(strings.TrimPrefix(header, "Bearer "), h.cfg.Auth.JWTSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired session token", "UNAUTHENTICATED")
			return
		}

		account, err := h.accounts.Resolve(r.Context(), claims.Kind, claims.Sub)
		if err != nil {
			if errors.Is(err, domain.ErrDanglingSession) {
				writeError(w, http.StatusUnauthorized, "session is no longer valid", "UNAUTHENTICATED")
				return
			}
			h.writeDomainError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey, account)
		ctx = context.WithValue(ctx, logger.AccountIDKey, strconv.FormatInt(account.ID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) RequireKind(kinds ...domain.AccountKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := accountFrom(r.Context())
			if account == nil {
				writeError(w, http.StatusUnauthorized, "authentication required", "UNAUTHENTICATED")
				return
			}
			for _, kind := range kinds {
				if account.Kind == kind {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient permissions", "FORBIDDEN")
		})
	}
}

func accountFrom(ctx context.Context) *domain.Account {
	account, _ := ctx.Value(accountContextKey).(*domain.Account)
	return account
}

// limitOTPIssue throttles code issuance per (kind, email). Limiter outages
// fail open; throttling never blocks legitimate verification outright.
func (h *Handlers) limitOTPIssue(next http.Handler) http.Handler {
	return h.limitOTP(next, "otp_issue", h.cfg.RateLimit.OTPIssueMax, h.cfg.RateLimit.OTPIssueWindow)
}

func (h *Handlers) limitOTPVerify(next http.Handler) http.Handler {
	return h.limitOTP(next, "otp_verify", h.cfg.RateLimit.OTPVerifyMax, h.cfg.RateLimit.OTPVerifyWindow)
}

func (h *Handlers) limitOTP(next http.Handler, bucket string, max int, window time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := chi.URLParam(r, "kind")

		var body struct {
			Email string `json:"email"`
		}
		raw, err := peekBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		_ = json.Unmarshal(raw, &body)

		subject := strings.ToLower(strings.TrimSpace(body.Email))
		if subject == "" {
			subject = getClientIP(r)
		}

		key := otpLimitKey(bucket, kind, subject)
		allowed, err := h.limiter.Allow(r.Context(), key, max, window)
		if err != nil {
			logger.ErrorContext(r.Context(), "rate limiter unavailable", "error", err, "key", key)
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many attempts, try again later", "RATE_LIMITED")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		writeError(w, status, "internal server error", code)
		return
	}
	writeError(w, status, err.Error(), code)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrDuplicateIdentity):
		return http.StatusConflict, "DUPLICATE_IDENTITY"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrNoChallenge):
		return http.StatusBadRequest, "NO_CHALLENGE"
	case errors.Is(err, domain.ErrExpired):
		return http.StatusBadRequest, "EXPIRED"
	case errors.Is(err, domain.ErrMismatch):
		return http.StatusBadRequest, "CODE_MISMATCH"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "DATE_CONFLICT"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, domain.ErrNotVerified):
		return http.StatusForbidden, "NOT_VERIFIED"
	case errors.Is(err, domain.ErrDanglingSession):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"code":    code,
		},
	})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body")
	}
	return nil
}

func parseKind(r *http.Request) (domain.AccountKind, bool) {
	return domain.ParseAccountKind(chi.URLParam(r, "kind"))
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// parseDate accepts RFC 3339 timestamps and bare dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func otpLimitKey(bucket, kind, subject string) string {
	return fmt.Sprintf("%s:%s:%s", bucket, kind, subject)
}

// peekBody reads the request body and puts it back, so the rate limiter
// can key on the email without consuming the handler's input.
func peekBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, nil
}

func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
