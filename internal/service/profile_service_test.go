package service

import (
	"context"
	"testing"

	"eyegic/internal/domain"
	"eyegic/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveCallerUserProfile(t *testing.T) {
	s := NewProfileService(setupDB(t), nopLogger())
	ctx := context.Background()

	_, found, err := s.GetCallerUserProfile(ctx, alice)
	require.NoError(t, err)
	assert.False(t, found)

	gender := models.GenderFemale
	saved, err := s.SaveCallerUserProfile(ctx, models.UserProfile{
		Owner:            "someone-else",
		Name:             "Alice",
		Age:              31,
		Gender:           &gender,
		Phone:            "98765 43210",
		Email:            "alice@example.com",
		FramePreferences: []models.FrameShape{models.FrameRound},
	}, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", saved.Owner)
	assert.Equal(t, "9876543210", saved.Phone)

	got, found, err := s.GetCallerUserProfile(ctx, alice)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, []models.FrameShape{models.FrameRound}, got.FramePreferences)

	_, found, err = s.GetCallerUserProfile(ctx, bob)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveCallerUserProfile_Validation(t *testing.T) {
	s := NewProfileService(setupDB(t), nopLogger())
	ctx := context.Background()

	_, err := s.SaveCallerUserProfile(ctx, models.UserProfile{Name: "x"}, guest)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = s.SaveCallerUserProfile(ctx, models.UserProfile{Phone: "123"}, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)

	_, err = s.SaveCallerUserProfile(ctx, models.UserProfile{Email: "nope"}, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = s.SaveCallerUserProfile(ctx, models.UserProfile{Age: 151}, alice)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.SaveCallerUserProfile(ctx, models.UserProfile{Age: -1}, alice)
	assert.ErrorIs(t, err, domain.ErrValidation)

	g := models.Gender("unknown")
	_, err = s.SaveCallerUserProfile(ctx, models.UserProfile{Gender: &g}, alice)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.SaveCallerUserProfile(ctx, models.UserProfile{Name: "Only name"}, alice)
	assert.NoError(t, err, "empty phone and email are allowed")
}

func TestCalculateProfileCompletion(t *testing.T) {
	s := NewProfileService(setupDB(t), nopLogger())
	ctx := context.Background()

	score, err := s.CalculateProfileCompletion(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(0), score)

	_, err = s.SaveCallerUserProfile(ctx, models.UserProfile{Name: "Alice", Age: 30, Address: "Home"}, alice)
	require.NoError(t, err)
	score, err = s.CalculateProfileCompletion(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(33), score)

	_, err = s.UpdatePicture(ctx, models.PictureProfile, "blob://face", alice)
	require.NoError(t, err)
	score, err = s.CalculateProfileCompletion(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(44), score)
}

func TestGetUserProfile_Access(t *testing.T) {
	s := NewProfileService(setupDB(t), nopLogger())
	ctx := context.Background()
	_, err := s.SaveCallerUserProfile(ctx, models.UserProfile{Name: "Alice"}, alice)
	require.NoError(t, err)

	_, _, err = s.GetUserProfile(ctx, "alice", bob)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	p, found, err := s.GetUserProfile(ctx, "alice", alice)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Alice", p.Name)

	_, found, err = s.GetUserProfile(ctx, "alice", admin)
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = s.GetUserProfile(ctx, "nobody", admin)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpdateFramePreferencesAndPictures(t *testing.T) {
	s := NewProfileService(setupDB(t), nopLogger())
	ctx := context.Background()

	p, err := s.UpdateFramePreferences(ctx, []models.FrameShape{models.FrameAviator, models.FrameCatEye}, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Owner)

	_, err = s.UpdateFramePreferences(ctx, []models.FrameShape{"triangle"}, alice)
	assert.ErrorIs(t, err, domain.ErrValidation)

	p, err = s.UpdatePicture(ctx, models.PicturePrescription, "blob://rx", alice)
	require.NoError(t, err)
	require.NotNil(t, p.PrescriptionPicture)
	assert.Equal(t, "blob://rx", *p.PrescriptionPicture)

	p, err = s.UpdatePicture(ctx, models.PicturePrescription, "", alice)
	require.NoError(t, err)
	assert.Nil(t, p.PrescriptionPicture)

	_, err = s.UpdatePicture(ctx, "avatar", "x", alice)
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, _, err := s.GetCallerUserProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []models.FrameShape{models.FrameAviator, models.FrameCatEye}, got.FramePreferences)

	_, err = s.UpdateFramePreferences(ctx, nil, guest)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
