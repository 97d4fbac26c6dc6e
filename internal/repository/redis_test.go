package repository

import (
	"context"
	"testing"
	"time"

	"eyegic/internal/config"
	"eyegic/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOTPRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	repo := NewRedisOTPRepository(client)
	ctx := context.Background()

	require.NoError(t, Ping(ctx, client))

	t.Run("SetAndGetChallenge", func(t *testing.T) {
		challenge := &models.OTPChallenge{
			ID:           "c-1",
			MobileNumber: "9876543210",
			Code:         "4321",
			Attempts:     1,
			ExpiresAt:    time.Now().Add(5 * time.Minute).Truncate(time.Second),
		}
		require.NoError(t, repo.SetChallenge(ctx, challenge))

		got, err := repo.GetChallenge(ctx, "9876543210")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "4321", got.Code)
		assert.Equal(t, 1, got.Attempts)
		assert.True(t, challenge.ExpiresAt.Equal(got.ExpiresAt))

		ttl := s.TTL("otp:challenge:9876543210")
		assert.Greater(t, ttl, 4*time.Minute)
	})

	t.Run("ChallengeExpires", func(t *testing.T) {
		s.FastForward(6 * time.Minute)
		got, err := repo.GetChallenge(ctx, "9876543210")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearChallenge", func(t *testing.T) {
		require.NoError(t, repo.SetChallenge(ctx, &models.OTPChallenge{
			MobileNumber: "9123456789",
			Code:         "1111",
			ExpiresAt:    time.Now().Add(time.Minute),
		}))
		require.NoError(t, repo.ClearChallenge(ctx, "9123456789"))
		got, err := repo.GetChallenge(ctx, "9123456789")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("AddAttempt", func(t *testing.T) {
		n, err := repo.AddAttempt(ctx, "9000000001")
		require.NoError(t, err)
		assert.Zero(t, n)

		require.NoError(t, repo.SetChallenge(ctx, &models.OTPChallenge{
			MobileNumber: "9000000001",
			Code:         "2222",
			ExpiresAt:    time.Now().Add(time.Minute),
		}))
		for want := 1; want <= 3; want++ {
			n, err := repo.AddAttempt(ctx, "9000000001")
			require.NoError(t, err)
			assert.Equal(t, want, n)
		}

		got, err := repo.GetChallenge(ctx, "9000000001")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 3, got.Attempts)
		assert.Greater(t, s.TTL("otp:attempts:9000000001"), time.Duration(0))

		require.NoError(t, repo.SetChallenge(ctx, &models.OTPChallenge{
			MobileNumber: "9000000001",
			Code:         "3333",
			ExpiresAt:    time.Now().Add(time.Minute),
		}))
		got, err = repo.GetChallenge(ctx, "9000000001")
		require.NoError(t, err)
		assert.Zero(t, got.Attempts, "a new challenge starts over")

		require.NoError(t, repo.ClearChallenge(ctx, "9000000001"))
		assert.False(t, s.Exists("otp:attempts:9000000001"))
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "9876543210"
		for i := 0; i < 3; i++ {
			allowed, err := repo.CheckRateLimit(ctx, key, 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := repo.CheckRateLimit(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(2 * time.Minute)
		allowed, err = repo.CheckRateLimit(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		nilRepo := NewRedisOTPRepository(nil)
		_, err := nilRepo.GetChallenge(ctx, "x")
		assert.Error(t, err)
		_, err = nilRepo.CheckRateLimit(ctx, "x", 1, time.Second)
		assert.Error(t, err)
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.Close()
		_, err := repo.GetChallenge(ctx, "9876543210")
		assert.Error(t, err)
	})
}
