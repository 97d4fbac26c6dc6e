package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"eyegic/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetChallenge(ctx context.Context, mobile string) (*models.OTPChallenge, error) {
	args := m.Called(ctx, mobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OTPChallenge), args.Error(1)
}

func (m *mockRepo) SetChallenge(ctx context.Context, challenge *models.OTPChallenge) error {
	args := m.Called(ctx, challenge)
	return args.Error(0)
}

func (m *mockRepo) ClearChallenge(ctx context.Context, mobile string) error {
	args := m.Called(ctx, mobile)
	return args.Error(0)
}

func (m *mockRepo) AddAttempt(ctx context.Context, mobile string) (int, error) {
	args := m.Called(ctx, mobile)
	return args.Int(0), args.Error(1)
}

func (m *mockRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverOTPRepository(t *testing.T) {
	primary := new(mockRepo)
	fallback := new(mockRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverOTPRepository(primary, fallback, &logger)
	ctx := context.Background()

	clock := time.Now()
	repo.now = func() time.Time { return clock }

	t.Run("PrimarySuccess", func(t *testing.T) {
		challenge := &models.OTPChallenge{MobileNumber: "9876543210"}
		primary.On("GetChallenge", ctx, "9876543210").Return(challenge, nil).Once()

		got, err := repo.GetChallenge(ctx, "9876543210")
		assert.NoError(t, err)
		assert.Equal(t, challenge, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailure_UsesFallback", func(t *testing.T) {
		challenge := &models.OTPChallenge{MobileNumber: "9876543210", Code: "1234"}
		primary.On("SetChallenge", ctx, challenge).Return(errors.New("connection refused")).Once()
		fallback.On("SetChallenge", ctx, challenge).Return(nil).Once()

		require.NoError(t, repo.SetChallenge(ctx, challenge))
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("WhileDown_SkipsPrimary", func(t *testing.T) {
		fallback.On("CheckRateLimit", ctx, "k", 3, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		primary.AssertNotCalled(t, "CheckRateLimit", ctx, "k", 3, time.Minute)
	})

	t.Run("ClearTouchesBoth", func(t *testing.T) {
		clock = clock.Add(2 * time.Minute)
		fallback.On("ClearChallenge", ctx, "9876543210").Return(nil).Once()
		primary.On("ClearChallenge", ctx, "9876543210").Return(nil).Once()

		require.NoError(t, repo.ClearChallenge(ctx, "9876543210"))
		assert.False(t, repo.isDown.Load(), "primary recovered")
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}

func TestFailoverOTPRepository_WithMemory(t *testing.T) {
	primary := new(mockRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverOTPRepository(primary, NewMemoryOTPRepository(), &logger)
	ctx := context.Background()

	primary.On("SetChallenge", ctx, mock.Anything).Return(errors.New("down")).Once()

	challenge := &models.OTPChallenge{MobileNumber: "9876543210", Code: "9999", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, repo.SetChallenge(ctx, challenge))

	got, err := repo.GetChallenge(ctx, "9876543210")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "9999", got.Code)
	primary.AssertNumberOfCalls(t, "GetChallenge", 0)
}
