package api

import (
	"time"

	"eyegic/internal/models"
	"eyegic/internal/service"
)

// Requests. Shape checks live in validate tags; domain rules stay in the services.

type contactRequest struct {
	Address       *string `json:"address"`
	PreferredTime *string `json:"preferredTime"`
	Details       *string `json:"details"`
	MobileNumber  *string `json:"mobileNumber"`
}

func (c contactRequest) contact() service.Contact {
	return service.Contact{
		Address:       c.Address,
		PreferredTime: c.PreferredTime,
		Details:       c.Details,
		MobileNumber:  c.MobileNumber,
	}
}

type opticianBookingRequest struct {
	ServiceType models.ServiceType `json:"serviceType" validate:"required,oneof=eyeTest frameTryOn combined"`
	contactRequest
}

type repairBookingRequest struct {
	RepairTypes []models.RepairType `json:"repairTypes" validate:"dive,oneof=adjustment screwTightening lensReplacement other"`
	contactRequest
}

type rentalBookingRequest struct {
	RentalItemID int64 `json:"rentalItemId" validate:"required"`
	RentalDays   int64 `json:"rentalDays"`
	contactRequest
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type assignProviderRequest struct {
	Provider string `json:"provider" validate:"required"`
}

type onboardRequest struct {
	Name         string               `json:"name"`
	Phone        string               `json:"phone"`
	Email        string               `json:"email"`
	ServiceAreas string               `json:"serviceAreas"`
	Services     []models.ServiceType `json:"services" validate:"dive,oneof=eyeTest frameTryOn combined"`
	Availability string               `json:"availability"`
}

type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type profileRequest struct {
	Name                string              `json:"name"`
	Age                 int64               `json:"age" validate:"gte=0"`
	Gender              *models.Gender      `json:"gender" validate:"omitempty,oneof=male female other"`
	Address             string              `json:"address"`
	Phone               string              `json:"phone"`
	Email               string              `json:"email"`
	FramePreferences    []models.FrameShape `json:"framePreferences"`
	ProfilePicture      *string             `json:"profilePicture"`
	PrescriptionPicture *string             `json:"prescriptionPicture"`
}

func (p profileRequest) profile() models.UserProfile {
	return models.UserProfile{
		Name:                p.Name,
		Age:                 p.Age,
		Gender:              p.Gender,
		Address:             p.Address,
		Phone:               p.Phone,
		Email:               p.Email,
		FramePreferences:    p.FramePreferences,
		ProfilePicture:      p.ProfilePicture,
		PrescriptionPicture: p.PrescriptionPicture,
	}
}

type framesRequest struct {
	FramePreferences []models.FrameShape `json:"framePreferences"`
}

type pictureRequest struct {
	Ref string `json:"ref"`
}

type mobileRequest struct {
	MobileNumber string `json:"mobileNumber"`
}

type otpVerifyRequest struct {
	MobileNumber string `json:"mobileNumber"`
	Code         string `json:"code" validate:"required"`
}

type roleRequest struct {
	User string          `json:"user" validate:"required"`
	Role models.UserRole `json:"role" validate:"required,oneof=admin user guest"`
}

// Responses carry timestamps as Unix nanoseconds.

type bookingView struct {
	ID            int64               `json:"id"`
	BookingType   models.BookingType  `json:"bookingType"`
	Customer      string              `json:"customer"`
	Provider      *string             `json:"provider,omitempty"`
	Status        models.Status       `json:"status"`
	ServiceType   *models.ServiceType `json:"serviceType,omitempty"`
	RepairTypes   []models.RepairType `json:"repairTypes,omitempty"`
	RentalItemID  *int64              `json:"rentalItemId,omitempty"`
	RentalDays    *int64              `json:"rentalDays,omitempty"`
	Address       *string             `json:"address,omitempty"`
	PreferredTime *string             `json:"preferredTime,omitempty"`
	Details       *string             `json:"details,omitempty"`
	MobileNumber  *string             `json:"mobileNumber,omitempty"`
	Price         models.PriceInfo    `json:"price"`
	CreatedAt     int64               `json:"createdAt"`
	UpdatedAt     int64               `json:"updatedAt"`
	Version       int64               `json:"version"`
}

func newBookingView(b *models.Booking) bookingView {
	return bookingView{
		ID:            b.ID,
		BookingType:   b.BookingType,
		Customer:      b.Customer,
		Provider:      b.Provider,
		Status:        b.Status,
		ServiceType:   b.ServiceType,
		RepairTypes:   b.RepairTypes,
		RentalItemID:  b.RentalItemID,
		RentalDays:    b.RentalDays,
		Address:       b.Address,
		PreferredTime: b.PreferredTime,
		Details:       b.Details,
		MobileNumber:  b.MobileNumber,
		Price:         b.Price,
		CreatedAt:     nanos(b.CreatedAt),
		UpdatedAt:     nanos(b.UpdatedAt),
		Version:       b.Version,
	}
}

func newBookingViews(list []*models.Booking) []bookingView {
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, newBookingView(b))
	}
	return out
}

type providerView struct {
	ID           string               `json:"id"`
	Active       bool                 `json:"active"`
	Name         string               `json:"name"`
	Phone        string               `json:"phone"`
	Email        string               `json:"email"`
	ServiceAreas string               `json:"serviceAreas"`
	Services     []models.ServiceType `json:"services"`
	Availability string               `json:"availability"`
	CreatedAt    int64                `json:"createdAt"`
	UpdatedAt    int64                `json:"updatedAt"`
}

func newProviderView(p *models.Provider) providerView {
	return providerView{
		ID:           p.ID,
		Active:       p.Active,
		Name:         p.Name,
		Phone:        p.Phone,
		Email:        p.Email,
		ServiceAreas: p.ServiceAreas,
		Services:     p.Services,
		Availability: p.Availability,
		CreatedAt:    nanos(p.CreatedAt),
		UpdatedAt:    nanos(p.UpdatedAt),
	}
}

func newProviderViews(list []*models.Provider) []providerView {
	out := make([]providerView, 0, len(list))
	for _, p := range list {
		out = append(out, newProviderView(p))
	}
	return out
}

type rentalItemView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	PricePerDay int64  `json:"pricePerDay"`
	Deposit     int64  `json:"deposit"`
	Available   bool   `json:"available"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

func newRentalItemView(it *models.RentalItem) rentalItemView {
	return rentalItemView{
		ID:          it.ID,
		Name:        it.Name,
		Category:    it.Category,
		Description: it.Description,
		PricePerDay: it.PricePerDay,
		Deposit:     it.Deposit,
		Available:   it.Available,
		CreatedAt:   nanos(it.CreatedAt),
		UpdatedAt:   nanos(it.UpdatedAt),
	}
}

func newRentalItemViews(list []*models.RentalItem) []rentalItemView {
	out := make([]rentalItemView, 0, len(list))
	for _, it := range list {
		out = append(out, newRentalItemView(it))
	}
	return out
}

type profileView struct {
	Owner               string              `json:"owner"`
	Name                string              `json:"name"`
	Age                 int64               `json:"age"`
	Gender              *models.Gender      `json:"gender,omitempty"`
	Address             string              `json:"address"`
	Phone               string              `json:"phone"`
	Email               string              `json:"email"`
	FramePreferences    []models.FrameShape `json:"framePreferences"`
	ProfilePicture      *string             `json:"profilePicture,omitempty"`
	PrescriptionPicture *string             `json:"prescriptionPicture,omitempty"`
	UpdatedAt           int64               `json:"updatedAt"`
}

// newProfileView returns nil for a missing profile so it encodes as null.
func newProfileView(p *models.UserProfile) *profileView {
	if p == nil {
		return nil
	}
	frames := p.FramePreferences
	if frames == nil {
		frames = []models.FrameShape{}
	}
	return &profileView{
		Owner:               p.Owner,
		Name:                p.Name,
		Age:                 p.Age,
		Gender:              p.Gender,
		Address:             p.Address,
		Phone:               p.Phone,
		Email:               p.Email,
		FramePreferences:    frames,
		ProfilePicture:      p.ProfilePicture,
		PrescriptionPicture: p.PrescriptionPicture,
		UpdatedAt:           nanos(p.UpdatedAt),
	}
}

type verificationView struct {
	ID           int64  `json:"id"`
	MobileNumber string `json:"mobileNumber"`
	VerifiedAt   int64  `json:"verifiedAt"`
	VerifiedBy   string `json:"verifiedBy,omitempty"`
}

func newVerificationView(v *models.MobileNumberVerification) verificationView {
	return verificationView{
		ID:           v.ID,
		MobileNumber: v.MobileNumber,
		VerifiedAt:   nanos(v.VerifiedAt),
		VerifiedBy:   v.VerifiedBy,
	}
}

func newVerificationViews(list []*models.MobileNumberVerification) []verificationView {
	out := make([]verificationView, 0, len(list))
	for _, v := range list {
		out = append(out, newVerificationView(v))
	}
	return out
}

type otpChallengeView struct {
	ChallengeID string `json:"challengeId"`
	ExpiresAt   int64  `json:"expiresAt"`
	Code        string `json:"code,omitempty"`
}

func newOTPChallengeView(r *service.OTPRequestResult) otpChallengeView {
	return otpChallengeView{
		ChallengeID: r.ChallengeID,
		ExpiresAt:   nanos(r.ExpiresAt),
		Code:        r.Code,
	}
}

type idResponse struct {
	ID int64 `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
