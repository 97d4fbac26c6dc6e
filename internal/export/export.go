// Package export renders bookings as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"eyegic/internal/models"
	"eyegic/internal/pricing"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Bookings"

// Headers names the columns produced by Row.
var Headers = []string{
	"ID", "Type", "Status", "Customer", "Provider", "Service",
	"Mobile", "Address", "Preferred time", "Base fee", "Add-ons", "Total",
	"Created", "Updated",
}

// WriteBookings streams a workbook with one row per booking to w.
func WriteBookings(w io.Writer, bookings []*models.Booking) error {
	f, err := build(bookings)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveBookings writes the workbook into dir and returns the file path.
func SaveBookings(dir string, bookings []*models.Booking, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f, err := build(bookings)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, fmt.Sprintf("bookings_%s.xlsx", now.Format("2006-01-02_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func build(bookings []*models.Booking) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		lastCell, _ := excelize.CoordinatesToCellName(len(Headers), 1)
		_ = f.SetCellStyle(SheetName, "A1", lastCell, headerStyle)
	}

	for i, b := range bookings {
		row := i + 2
		values := Row(b)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 8)
	_ = f.SetColWidth(SheetName, "B", "I", 20)
	_ = f.SetColWidth(SheetName, "J", "N", 16)
	return f, nil
}

// Row flattens a booking into cell values in header order.
func Row(b *models.Booking) []interface{} {
	return []interface{}{
		b.ID,
		string(b.BookingType),
		string(b.Status),
		b.Customer,
		models.Deref(b.Provider),
		Subject(b),
		models.Deref(b.MobileNumber),
		models.Deref(b.Address),
		models.Deref(b.PreferredTime),
		pricing.FormatINR(b.Price.BaseFee),
		pricing.FormatINR(b.Price.AddOns),
		pricing.FormatINR(b.Price.Total),
		b.CreatedAt.Format("2006-01-02 15:04"),
		b.UpdatedAt.Format("2006-01-02 15:04"),
	}
}

// Subject describes what was booked: the optician service, the repair list or
// the rental item and duration.
func Subject(b *models.Booking) string {
	switch b.BookingType {
	case models.BookingTypeMobileOptician:
		if b.ServiceType != nil {
			return string(*b.ServiceType)
		}
	case models.BookingTypeRepair:
		parts := make([]string, 0, len(b.RepairTypes))
		for _, r := range b.RepairTypes {
			parts = append(parts, string(r))
		}
		if len(parts) == 0 {
			return "inspection"
		}
		return strings.Join(parts, ", ")
	case models.BookingTypeRental:
		if b.RentalItemID != nil && b.RentalDays != nil {
			return fmt.Sprintf("item %d x %d days", *b.RentalItemID, *b.RentalDays)
		}
	}
	return ""
}
