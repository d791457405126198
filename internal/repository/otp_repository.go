package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManoharAnkathi/HUBILO/internal/domain"
)

// otpKeyTTL keeps a challenge in the store well past its validity window,
// so verification can tell an expired code apart from a missing one.
const otpKeyTTL = time.Hour

// OTPRepository holds at most one live challenge per (kind, account).
// Put replaces any existing challenge; Delete consumes it.
type OTPRepository interface {
	Put(ctx context.Context, challenge *domain.OTPChallenge) error
	Get(ctx context.Context, kind domain.AccountKind, accountID int64) (*domain.OTPChallenge, error)
	Delete(ctx context.Context, kind domain.AccountKind, accountID int64) error
}

type otpRepository struct {
	client *redis.Client
}

func NewOTPRepository(client *redis.Client) OTPRepository {
	return &otpRepository{client: client}
}

func otpKey(kind domain.AccountKind, accountID int64) string {
	return fmt.Sprintf("otp:%s:%d", kind, accountID)
}

func (r *otpRepository) Put(ctx context.Context, challenge *domain.OTPChallenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	key := otpKey(challenge.Kind, challenge.AccountID)
	if err := r.client.Set(ctx, key, payload, otpKeyTTL).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (r *otpRepository) Get(ctx context.Context, kind domain.AccountKind, accountID int64) (*domain.OTPChallenge, error) {
	payload, err := r.client.Get(ctx, otpKey(kind, accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	var challenge domain.OTPChallenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	return &challenge, nil
}

func (r *otpRepository) Delete(ctx context.Context, kind domain.AccountKind, accountID int64) error {
	if err := r.client.Del(ctx, otpKey(kind, accountID)).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}
