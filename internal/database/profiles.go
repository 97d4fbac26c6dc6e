package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eyegic/internal/domain"
	"eyegic/internal/models"
)

func (db *DB) GetProfile(ctx context.Context, owner string) (*models.UserProfile, error) {
	var (
		p      models.UserProfile
		gender *string
		frames string
	)
	query := `SELECT owner, name, age, gender, address, phone, email, frame_preferences,
	                 profile_picture, prescription_picture, updated_at
              FROM profiles WHERE owner = ?`
	err := db.QueryRowContext(ctx, query, owner).Scan(
		&p.Owner, &p.Name, &p.Age, &gender, &p.Address, &p.Phone, &p.Email, &frames,
		&p.ProfilePicture, &p.PrescriptionPicture, &p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("profile for %s not found", owner)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if gender != nil {
		g := models.Gender(*gender)
		p.Gender = &g
	}
	if err := json.Unmarshal([]byte(frames), &p.FramePreferences); err != nil {
		return nil, fmt.Errorf("failed to decode frame preferences: %w", err)
	}
	return &p, nil
}

// SaveProfile creates or replaces the owner's profile.
func (db *DB) SaveProfile(ctx context.Context, p *models.UserProfile) error {
	frames := p.FramePreferences
	if frames == nil {
		frames = []models.FrameShape{}
	}
	encoded, err := json.Marshal(frames)
	if err != nil {
		return fmt.Errorf("failed to encode frame preferences: %w", err)
	}

	var gender *string
	if p.Gender != nil {
		g := string(*p.Gender)
		gender = &g
	}

	now := time.Now()
	query := `INSERT INTO profiles (owner, name, age, gender, address, phone, email, frame_preferences,
	                                profile_picture, prescription_picture, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(owner) DO UPDATE SET
                  name = excluded.name,
                  age = excluded.age,
                  gender = excluded.gender,
                  address = excluded.address,
                  phone = excluded.phone,
                  email = excluded.email,
                  frame_preferences = excluded.frame_preferences,
                  profile_picture = excluded.profile_picture,
                  prescription_picture = excluded.prescription_picture,
                  updated_at = excluded.updated_at`
	_, err = db.ExecContext(ctx, query,
		p.Owner, p.Name, p.Age, gender, p.Address, p.Phone, p.Email, string(encoded),
		p.ProfilePicture, p.PrescriptionPicture, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	p.UpdatedAt = now
	return nil
}
