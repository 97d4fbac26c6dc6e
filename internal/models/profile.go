package models

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type FrameShape string

const (
	FrameRectangular FrameShape = "rectangular"
	FrameOval        FrameShape = "oval"
	FrameSquare      FrameShape = "square"
	FrameAviator     FrameShape = "aviator"
	FrameWayfarer    FrameShape = "wayfarer"
	FrameCatEye      FrameShape = "catEye"
	FrameRound       FrameShape = "round"
)

func (f FrameShape) IsValid() bool {
	switch f {
	case FrameRectangular, FrameOval, FrameSquare, FrameAviator, FrameWayfarer, FrameCatEye, FrameRound:
		return true
	}
	return false
}

// UserProfile belongs to exactly one principal. Pictures are stored as references
// to externally hosted blobs.
type UserProfile struct {
	Owner               string       `json:"owner"`
	Name                string       `json:"name"`
	Age                 int64        `json:"age"`
	Gender              *Gender      `json:"gender,omitempty"`
	Address             string       `json:"address"`
	Phone               string       `json:"phone"`
	Email               string       `json:"email"`
	FramePreferences    []FrameShape `json:"framePreferences,omitempty"`
	ProfilePicture      *string      `json:"profilePicture,omitempty"`
	PrescriptionPicture *string      `json:"prescriptionPicture,omitempty"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

type PictureKind string

const (
	PictureProfile      PictureKind = "profile"
	PicturePrescription PictureKind = "prescription"
)
