package repository

import (
	"context"
	"sync"
	"time"

	"eyegic/internal/models"
)

// MemoryOTPRepository keeps challenges in process memory. It backs the Redis store
// when Redis is unreachable and serves single-instance deployments.
type MemoryOTPRepository struct {
	mu         sync.Mutex
	challenges map[string]*models.OTPChallenge
	rateLimits map[string]*rateLimitEntry
	now        func() time.Time
}

func NewMemoryOTPRepository() *MemoryOTPRepository {
	return &MemoryOTPRepository{
		challenges: make(map[string]*models.OTPChallenge),
		rateLimits: make(map[string]*rateLimitEntry),
		now:        time.Now,
	}
}

// live returns the unexpired challenge for mobile. Callers hold r.mu.
func (r *MemoryOTPRepository) live(mobile string) (*models.OTPChallenge, bool) {
	c, ok := r.challenges[mobile]
	if !ok {
		return nil, false
	}
	if r.now().After(c.ExpiresAt) {
		delete(r.challenges, mobile)
		return nil, false
	}
	return c, true
}

func (r *MemoryOTPRepository) GetChallenge(ctx context.Context, mobile string) (*models.OTPChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.live(mobile)
	if !ok {
		return nil, nil
	}
	challenge := *c
	return &challenge, nil
}

func (r *MemoryOTPRepository) SetChallenge(ctx context.Context, challenge *models.OTPChallenge) error {
	stored := *challenge

	r.mu.Lock()
	r.challenges[challenge.MobileNumber] = &stored
	r.mu.Unlock()
	return nil
}

func (r *MemoryOTPRepository) ClearChallenge(ctx context.Context, mobile string) error {
	r.mu.Lock()
	delete(r.challenges, mobile)
	r.mu.Unlock()
	return nil
}

// AddAttempt counts a failed guess and returns the new total, or 0 when no
// challenge is pending.
func (r *MemoryOTPRepository) AddAttempt(ctx context.Context, mobile string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.live(mobile)
	if !ok {
		return 0, nil
	}
	c.Attempts++
	return c.Attempts, nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// CheckRateLimit counts a hit for key and reports whether it is within limit for
// the current fixed window.
func (r *MemoryOTPRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}
