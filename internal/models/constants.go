package models

const (
	// OTPCodeLength is the number of digits in a verification code.
	OTPCodeLength = 4

	// DefaultOTPTTL is how long a code stays valid, in seconds.
	DefaultOTPTTL = 5 * 60

	// DefaultOTPMaxAttempts wrong guesses before a challenge is dropped.
	DefaultOTPMaxAttempts = 5

	// OTPRateLimitRequests per mobile number in the rate limit window.
	OTPRateLimitRequests = 3

	// OTPRateLimitWindow in seconds.
	OTPRateLimitWindow = 10 * 60

	// WorkerQueueSize in-memory buffer of the sheets worker.
	WorkerQueueSize = 128

	// ProviderCacheSize entries kept in the provider read cache.
	ProviderCacheSize = 256

	// MaxProfileAge upper bound accepted for UserProfile.Age.
	MaxProfileAge = 150

	// MaxRentalDays longest rental a single booking may cover.
	MaxRentalDays = 365
)
