package repository

import (
	"context"
	"sync/atomic"
	"time"

	"eyegic/internal/domain"
	"eyegic/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverOTPRepository sends calls to the primary store and switches to the
// fallback after a primary error. The primary is retried once per recoveryInterval.
type FailoverOTPRepository struct {
	primary   domain.OTPRepository
	fallback  domain.OTPRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverOTPRepository(primary, fallback domain.OTPRepository, logger *zerolog.Logger) *FailoverOTPRepository {
	return &FailoverOTPRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should try the primary store.
func (r *FailoverOTPRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	if r.now().Sub(last) > recoveryInterval {
		r.lastCheck.Store(r.now().UnixNano())
		return true
	}
	return false
}

func (r *FailoverOTPRepository) observe(err error) {
	if err == nil {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Primary OTP store recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary OTP store failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverOTPRepository) GetChallenge(ctx context.Context, mobile string) (*models.OTPChallenge, error) {
	if r.usePrimary() {
		challenge, err := r.primary.GetChallenge(ctx, mobile)
		r.observe(err)
		if err == nil {
			return challenge, nil
		}
	}
	return r.fallback.GetChallenge(ctx, mobile)
}

func (r *FailoverOTPRepository) SetChallenge(ctx context.Context, challenge *models.OTPChallenge) error {
	if r.usePrimary() {
		err := r.primary.SetChallenge(ctx, challenge)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetChallenge(ctx, challenge)
}

func (r *FailoverOTPRepository) ClearChallenge(ctx context.Context, mobile string) error {
	// Clears both stores; a challenge may have been written to either.
	fallbackErr := r.fallback.ClearChallenge(ctx, mobile)
	if r.usePrimary() {
		err := r.primary.ClearChallenge(ctx, mobile)
		r.observe(err)
		if err == nil {
			return fallbackErr
		}
	}
	return fallbackErr
}

func (r *FailoverOTPRepository) AddAttempt(ctx context.Context, mobile string) (int, error) {
	if r.usePrimary() {
		n, err := r.primary.AddAttempt(ctx, mobile)
		r.observe(err)
		if err == nil {
			return n, nil
		}
	}
	return r.fallback.AddAttempt(ctx, mobile)
}

func (r *FailoverOTPRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.observe(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
