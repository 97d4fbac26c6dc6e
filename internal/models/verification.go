package models

import "time"

// MobileNumberVerification is an append-only record of a verified mobile number.
type MobileNumberVerification struct {
	ID           int64     `json:"id"`
	MobileNumber string    `json:"mobileNumber"`
	VerifiedAt   time.Time `json:"verifiedAt"`
	VerifiedBy   string    `json:"verifiedBy,omitempty"`
}

// OTPChallenge is a pending one-time code for a mobile number.
type OTPChallenge struct {
	ID           string    `json:"id"`
	MobileNumber string    `json:"mobile_number"`
	Code         string    `json:"code"`
	Attempts     int       `json:"attempts"`
	ExpiresAt    time.Time `json:"expires_at"`
}
