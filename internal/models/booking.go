package models

import "time"

type BookingType string

const (
	BookingTypeMobileOptician BookingType = "mobileOptician"
	BookingTypeRepair         BookingType = "repair"
	BookingTypeRental         BookingType = "rental"
)

func (t BookingType) IsValid() bool {
	switch t {
	case BookingTypeMobileOptician, BookingTypeRepair, BookingTypeRental:
		return true
	}
	return false
}

type ServiceType string

const (
	ServiceEyeTest    ServiceType = "eyeTest"
	ServiceFrameTryOn ServiceType = "frameTryOn"
	ServiceCombined   ServiceType = "combined"
)

// ServiceTypes lists every offered mobile optician service in display order.
var ServiceTypes = []ServiceType{ServiceEyeTest, ServiceFrameTryOn, ServiceCombined}

func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceEyeTest, ServiceFrameTryOn, ServiceCombined:
		return true
	}
	return false
}

type RepairType string

const (
	RepairAdjustment      RepairType = "adjustment"
	RepairScrewTightening RepairType = "screwTightening"
	RepairLensReplacement RepairType = "lensReplacement"
	RepairOther           RepairType = "other"
)

var RepairTypes = []RepairType{RepairAdjustment, RepairScrewTightening, RepairLensReplacement, RepairOther}

func (r RepairType) IsValid() bool {
	switch r {
	case RepairAdjustment, RepairScrewTightening, RepairLensReplacement, RepairOther:
		return true
	}
	return false
}

// PriceInfo is frozen into a booking at creation time.
type PriceInfo struct {
	BaseFee int64 `json:"baseFee"`
	AddOns  int64 `json:"addOns"`
	Total   int64 `json:"total"`
}

// Consistent reports whether all parts are non-negative and Total = BaseFee + AddOns.
func (p PriceInfo) Consistent() bool {
	return p.BaseFee >= 0 && p.AddOns >= 0 && p.Total == p.BaseFee+p.AddOns
}

type Booking struct {
	ID          int64       `json:"id"`
	BookingType BookingType `json:"bookingType"`
	Customer    string      `json:"customer"`
	Provider    *string     `json:"provider,omitempty"`
	Status      Status      `json:"status"`

	// Exactly one group below is populated, selected by BookingType.
	ServiceType  *ServiceType `json:"serviceType,omitempty"`
	RepairTypes  []RepairType `json:"repairTypes,omitempty"`
	RentalItemID *int64       `json:"rentalItemId,omitempty"`
	RentalDays   *int64       `json:"rentalDays,omitempty"`

	Address       *string `json:"address,omitempty"`
	PreferredTime *string `json:"preferredTime,omitempty"`
	Details       *string `json:"details,omitempty"`
	MobileNumber  *string `json:"mobileNumber,omitempty"`

	Price     PriceInfo `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int64     `json:"version"`
}

// HasProvider reports whether principal is the booking's assigned provider.
func (b *Booking) HasProvider(principal string) bool {
	return b.Provider != nil && principal != "" && *b.Provider == principal
}

// StringPtr marks a value as provided, even when it is empty.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
