package service

import (
	"context"
	"errors"
	"strings"

	"eyegic/internal/completion"
	"eyegic/internal/domain"
	"eyegic/internal/models"
	"eyegic/internal/validation"

	"github.com/rs/zerolog"
)

type ProfileService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewProfileService(repo domain.Repository, logger *zerolog.Logger) *ProfileService {
	return &ProfileService{repo: repo, logger: logger}
}

// GetCallerUserProfile returns found=false when the caller has not saved a profile.
func (s *ProfileService) GetCallerUserProfile(ctx context.Context, actor models.Actor) (*models.UserProfile, bool, error) {
	if err := requireRegistered(actor); err != nil {
		return nil, false, err
	}
	return s.lookup(ctx, actor.ID)
}

// SaveCallerUserProfile replaces the caller's profile. The owner is always the caller.
func (s *ProfileService) SaveCallerUserProfile(ctx context.Context, profile models.UserProfile, actor models.Actor) (*models.UserProfile, error) {
	if err := requireRegistered(actor); err != nil {
		return nil, err
	}
	if err := checkProfile(&profile); err != nil {
		return nil, err
	}

	profile.Owner = actor.ID
	if err := s.repo.SaveProfile(ctx, &profile); err != nil {
		return nil, err
	}
	s.logger.Info().Str("owner", actor.ID).Int64("completion", completion.Score(&profile)).Msg("Profile saved")
	return &profile, nil
}

// CalculateProfileCompletion is 0 for callers without a profile.
func (s *ProfileService) CalculateProfileCompletion(ctx context.Context, actor models.Actor) (int64, error) {
	if err := requireRegistered(actor); err != nil {
		return 0, err
	}
	p, found, err := s.lookup(ctx, actor.ID)
	if err != nil || !found {
		return 0, err
	}
	return completion.Score(p), nil
}

func (s *ProfileService) GetUserProfile(ctx context.Context, user string, actor models.Actor) (*models.UserProfile, bool, error) {
	if actor.ID != user && !actor.IsAdmin() {
		return nil, false, domain.Forbidden("can only view your own profile")
	}
	return s.lookup(ctx, user)
}

func (s *ProfileService) UpdateFramePreferences(ctx context.Context, prefs []models.FrameShape, actor models.Actor) (*models.UserProfile, error) {
	for _, f := range prefs {
		if !f.IsValid() {
			return nil, domain.InvalidInput("unknown frame shape %q", f)
		}
	}
	return s.modify(ctx, actor, func(p *models.UserProfile) {
		p.FramePreferences = append([]models.FrameShape(nil), prefs...)
	})
}

// UpdatePicture stores a blob reference for kind. An empty reference clears it.
func (s *ProfileService) UpdatePicture(ctx context.Context, kind models.PictureKind, ref string, actor models.Actor) (*models.UserProfile, error) {
	var value *string
	if ref = strings.TrimSpace(ref); ref != "" {
		value = &ref
	}

	switch kind {
	case models.PictureProfile:
		return s.modify(ctx, actor, func(p *models.UserProfile) { p.ProfilePicture = value })
	case models.PicturePrescription:
		return s.modify(ctx, actor, func(p *models.UserProfile) { p.PrescriptionPicture = value })
	default:
		return nil, domain.InvalidInput("unknown picture kind %q", kind)
	}
}

// modify applies fn to the caller's profile, starting from an empty one when the
// caller has none yet.
func (s *ProfileService) modify(ctx context.Context, actor models.Actor, fn func(*models.UserProfile)) (*models.UserProfile, error) {
	if err := requireRegistered(actor); err != nil {
		return nil, err
	}
	p, found, err := s.lookup(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		p = &models.UserProfile{Owner: actor.ID}
	}
	fn(p)
	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) lookup(ctx context.Context, owner string) (*models.UserProfile, bool, error) {
	p, err := s.repo.GetProfile(ctx, owner)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func checkProfile(p *models.UserProfile) error {
	if p.Age < 0 || p.Age > models.MaxProfileAge {
		return domain.InvalidInput("Age must be between 0 and %d", models.MaxProfileAge)
	}
	if strings.TrimSpace(p.Phone) != "" {
		if err := validation.ValidatePhone(p.Phone).Err(); err != nil {
			return err
		}
		p.Phone = validation.SanitizePhone(p.Phone)
	}
	if strings.TrimSpace(p.Email) != "" {
		if err := validation.ValidateEmail(p.Email).Err(); err != nil {
			return err
		}
		p.Email = strings.TrimSpace(p.Email)
	}
	if p.Gender != nil && !p.Gender.IsValid() {
		return domain.InvalidInput("unknown gender %q", *p.Gender)
	}
	for _, f := range p.FramePreferences {
		if !f.IsValid() {
			return domain.InvalidInput("unknown frame shape %q", f)
		}
	}
	return nil
}
