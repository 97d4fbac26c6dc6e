package domain

import (
	"context"
	"time"

	"eyegic/internal/models"
)

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, from, to models.Status) error
	AssignProviderWithVersion(ctx context.Context, id, version int64, providerID string) error
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	ListBookingsByCustomer(ctx context.Context, customer string) ([]*models.Booking, error)
	ListBookingsByProvider(ctx context.Context, provider string) ([]*models.Booking, error)
}

type ProviderRepository interface {
	CreateProvider(ctx context.Context, provider *models.Provider) error
	GetProvider(ctx context.Context, id string) (*models.Provider, error)
	ListProviders(ctx context.Context, activeOnly bool) ([]*models.Provider, error)
	SetProviderActive(ctx context.Context, id string, active bool) error
}

type ProfileRepository interface {
	GetProfile(ctx context.Context, owner string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
}

type RoleRepository interface {
	GetRole(ctx context.Context, principal string) (models.UserRole, error)
	SetRole(ctx context.Context, principal string, role models.UserRole) error
	RegisterPrincipal(ctx context.Context, principal string) (models.UserRole, error)
}

type CatalogRepository interface {
	UpsertRentalItem(ctx context.Context, item *models.RentalItem) error
	GetRentalItem(ctx context.Context, id int64) (*models.RentalItem, error)
	ListRentalItems(ctx context.Context, availableOnly bool) ([]*models.RentalItem, error)
}

type VerificationRepository interface {
	AppendVerification(ctx context.Context, v *models.MobileNumberVerification) error
	ListVerifications(ctx context.Context) ([]*models.MobileNumberVerification, error)
}

// Repository is everything the persistent store offers.
type Repository interface {
	BookingRepository
	ProviderRepository
	ProfileRepository
	RoleRepository
	CatalogRepository
	VerificationRepository
	Ping(ctx context.Context) error
}

type SyncQueue interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// OTPRepository keeps pending verification challenges keyed by mobile number.
type OTPRepository interface {
	GetChallenge(ctx context.Context, mobile string) (*models.OTPChallenge, error)
	SetChallenge(ctx context.Context, challenge *models.OTPChallenge) error
	ClearChallenge(ctx context.Context, mobile string) error
	// AddAttempt atomically counts a failed guess and returns the new total,
	// or 0 when no challenge is pending.
	AddAttempt(ctx context.Context, mobile string) (int, error)
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// CodeSender delivers a one-time code to a mobile number.
type CodeSender interface {
	SendCode(ctx context.Context, mobile, code string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
}
