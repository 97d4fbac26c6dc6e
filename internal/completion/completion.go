// Package completion scores how much of a user profile has been filled in.
package completion

import (
	"strings"

	"eyegic/internal/models"
)

const totalFields = 9

// Score returns the percentage of populated profile fields, rounded half up.
// A nil profile scores 0.
func Score(p *models.UserProfile) int64 {
	if p == nil {
		return 0
	}
	checks := [totalFields]bool{
		filled(p.Name),
		p.Age > 0,
		p.Gender != nil,
		filled(p.Address),
		filled(p.Phone),
		filled(p.Email),
		len(p.FramePreferences) > 0,
		p.ProfilePicture != nil && filled(*p.ProfilePicture),
		p.PrescriptionPicture != nil && filled(*p.PrescriptionPicture),
	}
	var populated int64
	for _, c := range checks {
		if c {
			populated++
		}
	}
	return clamp(roundHalfUp(100*populated, totalFields))
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}

func roundHalfUp(num, den int64) int64 {
	return (2*num + den) / (2 * den)
}

func clamp(v int64) int64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
