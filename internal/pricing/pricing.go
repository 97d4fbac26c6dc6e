// Package pricing quotes bookings from a fee table. Amounts are whole rupees.
package pricing

import (
	"fmt"
	"math"

	"eyegic/internal/domain"
	"eyegic/internal/models"
)

// Table holds base fees per service and repair type.
type Table struct {
	Services map[models.ServiceType]int64
	Repairs  map[models.RepairType]int64
}

// DefaultTable returns the standard fee schedule.
func DefaultTable() *Table {
	return &Table{
		Services: map[models.ServiceType]int64{
			models.ServiceEyeTest:    50,
			models.ServiceFrameTryOn: 30,
			models.ServiceCombined:   70,
		},
		Repairs: map[models.RepairType]int64{
			models.RepairAdjustment:      20,
			models.RepairScrewTightening: 15,
			models.RepairLensReplacement: 60,
			models.RepairOther:           25,
		},
	}
}

// NewTable starts from the default schedule and applies overrides keyed by
// service or repair type name. Unknown names and negative fees are rejected.
func NewTable(overrides map[string]int64) (*Table, error) {
	t := DefaultTable()
	for name, fee := range overrides {
		if fee < 0 {
			return nil, fmt.Errorf("negative fee for %q: %d", name, fee)
		}
		switch {
		case models.ServiceType(name).IsValid():
			t.Services[models.ServiceType(name)] = fee
		case models.RepairType(name).IsValid():
			t.Repairs[models.RepairType(name)] = fee
		default:
			return nil, fmt.Errorf("unknown fee %q", name)
		}
	}
	return t, nil
}

func (t *Table) QuoteOptician(service models.ServiceType) (models.PriceInfo, error) {
	fee, ok := t.Services[service]
	if !ok {
		return models.PriceInfo{}, domain.InvalidInput("unknown service type %q", service)
	}
	return quote(fee, 0), nil
}

// QuoteRepair sums the fees of the distinct repair types. An empty selection is
// quoted as a general inspection at the "other" fee.
func (t *Table) QuoteRepair(repairs []models.RepairType) (models.PriceInfo, error) {
	if len(repairs) == 0 {
		return quote(t.Repairs[models.RepairOther], 0), nil
	}
	seen := make(map[models.RepairType]struct{}, len(repairs))
	var base int64
	for _, r := range repairs {
		fee, ok := t.Repairs[r]
		if !ok {
			return models.PriceInfo{}, domain.InvalidInput("unknown repair type %q", r)
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		base += fee
	}
	return quote(base, 0), nil
}

// QuoteRental charges the daily price for every day and adds the refundable deposit.
// Amounts that do not fit in an int64 are rejected rather than wrapped.
func (t *Table) QuoteRental(item *models.RentalItem, days int64) (models.PriceInfo, error) {
	if err := CheckRentalDays(days); err != nil {
		return models.PriceInfo{}, err
	}
	if item == nil {
		return models.PriceInfo{}, domain.InvalidInput("rental item is required")
	}
	if item.PricePerDay < 0 || item.Deposit < 0 {
		return models.PriceInfo{}, domain.InvalidInput("rental item %d has a negative price", item.ID)
	}
	if item.PricePerDay > 0 && days > math.MaxInt64/item.PricePerDay {
		return models.PriceInfo{}, domain.InvalidInput("rental of %d days at %d per day overflows", days, item.PricePerDay)
	}
	base := item.PricePerDay * days
	if base > math.MaxInt64-item.Deposit {
		return models.PriceInfo{}, domain.InvalidInput("rental total overflows with deposit %d", item.Deposit)
	}
	return quote(base, item.Deposit), nil
}

// CheckRentalDays accepts durations from 1 to models.MaxRentalDays.
func CheckRentalDays(days int64) error {
	if days < 1 {
		return domain.Validation(domain.CodeInvalidDuration, "Rental duration must be at least 1 day")
	}
	if days > models.MaxRentalDays {
		return domain.Validation(domain.CodeInvalidDuration,
			fmt.Sprintf("Rental duration must not exceed %d days", models.MaxRentalDays))
	}
	return nil
}

func quote(base, addOns int64) models.PriceInfo {
	return models.PriceInfo{BaseFee: base, AddOns: addOns, Total: base + addOns}
}

// FormatINR renders an amount for display.
func FormatINR(amount int64) string {
	return fmt.Sprintf("Rs. %d", amount)
}
