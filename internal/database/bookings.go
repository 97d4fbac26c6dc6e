package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"eyegic/internal/domain"
	"eyegic/internal/models"
)

const bookingColumns = `id, booking_type, customer, provider, status, service_type, repair_types,
	rental_item_id, rental_days, address, preferred_time, details, mobile_number,
	base_fee, add_ons, total, created_at, updated_at, version`

// CreateBooking inserts a booking as pending and fills in its id, timestamps and
// version. A rental booking reserves its item in the same transaction.
// The price is stored as given; BookingService always quotes it from the fee table.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if err := checkBooking(booking); err != nil {
		return err
	}

	repairTypes, err := json.Marshal(nonNilRepairs(booking.RepairTypes))
	if err != nil {
		return fmt.Errorf("failed to encode repair types: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	if booking.BookingType == models.BookingTypeRental {
		if err := reserveRentalItem(ctx, tx, *booking.RentalItemID, now); err != nil {
			return err
		}
	}

	var serviceType *string
	if booking.ServiceType != nil {
		s := string(*booking.ServiceType)
		serviceType = &s
	}

	query := `INSERT INTO bookings (
				booking_type, customer, provider, status, service_type, repair_types,
				rental_item_id, rental_days, address, preferred_time, details, mobile_number,
				base_fee, add_ons, total, created_at, updated_at, version
			) VALUES (?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	result, err := tx.ExecContext(ctx, query,
		booking.BookingType,
		booking.Customer,
		models.StatusPending,
		serviceType,
		string(repairTypes),
		booking.RentalItemID,
		booking.RentalDays,
		booking.Address,
		booking.PreferredTime,
		booking.Details,
		booking.MobileNumber,
		booking.Price.BaseFee,
		booking.Price.AddOns,
		booking.Price.Total,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.Provider = nil
	booking.Status = models.StatusPending
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func checkBooking(b *models.Booking) error {
	if b == nil {
		return domain.InvalidInput("booking is required")
	}
	if b.Customer == "" {
		return domain.InvalidInput("booking customer is required")
	}
	if !b.Price.Consistent() {
		return domain.InvalidInput("price total %d does not equal base fee %d plus add-ons %d",
			b.Price.Total, b.Price.BaseFee, b.Price.AddOns)
	}
	switch b.BookingType {
	case models.BookingTypeMobileOptician:
		if b.ServiceType == nil || !b.ServiceType.IsValid() {
			return domain.InvalidInput("mobile optician booking needs a valid service type")
		}
	case models.BookingTypeRepair:
		for _, r := range b.RepairTypes {
			if !r.IsValid() {
				return domain.InvalidInput("unknown repair type %q", r)
			}
		}
	case models.BookingTypeRental:
		if b.RentalItemID == nil {
			return domain.InvalidInput("rental booking needs a rental item")
		}
		if b.RentalDays == nil || *b.RentalDays < 1 || *b.RentalDays > models.MaxRentalDays {
			return domain.Validation(domain.CodeInvalidDuration,
				fmt.Sprintf("Rental duration must be between 1 and %d days", models.MaxRentalDays))
		}
	default:
		return domain.InvalidInput("unknown booking type %q", b.BookingType)
	}
	return nil
}

func reserveRentalItem(ctx context.Context, tx *sql.Tx, itemID int64, now time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE rental_items SET available = 0, updated_at = ? WHERE id = ? AND available = 1`, now, itemID)
	if err != nil {
		return fmt.Errorf("failed to reserve rental item: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 1 {
		return nil
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM rental_items WHERE id = ?`, itemID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check rental item: %w", err)
	}
	if exists == 0 {
		return domain.NotFound("rental item %d not found", itemID)
	}
	return ErrNotAvailable
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("booking %d not found", id)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// UpdateBookingStatusWithVersion moves a booking from one status to another only if
// nobody changed it since version was read. Reaching a terminal status releases a
// rented item.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, from, to models.Status) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status = ?`
	result, err := tx.ExecContext(ctx, query, to, now, id, fromVersion, from)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrConcurrentModification
	}

	if to.IsTerminal() {
		release := `UPDATE rental_items SET available = 1, updated_at = ?
                    WHERE id = (SELECT rental_item_id FROM bookings WHERE id = ? AND booking_type = ?)`
		if _, err := tx.ExecContext(ctx, release, now, id, models.BookingTypeRental); err != nil {
			return fmt.Errorf("failed to release rental item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}
	return nil
}

// AssignProviderWithVersion sets the provider of a non-terminal booking.
func (db *DB) AssignProviderWithVersion(ctx context.Context, id, fromVersion int64, providerID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE bookings SET provider = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status NOT IN (?, ?)`
		result, err := tx.ExecContext(ctx, query, providerID, time.Now(), id, fromVersion,
			models.StatusCompleted, models.StatusCancelled)
		if err != nil {
			return fmt.Errorf("failed to assign provider: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return ErrConcurrentModification
		}
		return nil
	})
}

func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY id ASC`)
}

func (db *DB) ListBookingsByCustomer(ctx context.Context, customer string) ([]*models.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE customer = ? ORDER BY id ASC`, customer)
}

func (db *DB) ListBookingsByProvider(ctx context.Context, provider string) ([]*models.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE provider = ? ORDER BY id ASC`, provider)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b           models.Booking
		serviceType *string
		repairTypes string
	)
	err := row.Scan(
		&b.ID, &b.BookingType, &b.Customer, &b.Provider, &b.Status, &serviceType, &repairTypes,
		&b.RentalItemID, &b.RentalDays, &b.Address, &b.PreferredTime, &b.Details, &b.MobileNumber,
		&b.Price.BaseFee, &b.Price.AddOns, &b.Price.Total, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	if serviceType != nil {
		st := models.ServiceType(*serviceType)
		b.ServiceType = &st
	}
	if err := json.Unmarshal([]byte(repairTypes), &b.RepairTypes); err != nil {
		return nil, fmt.Errorf("failed to decode repair types: %w", err)
	}
	return &b, nil
}

func nonNilRepairs(r []models.RepairType) []models.RepairType {
	if r == nil {
		return []models.RepairType{}
	}
	return r
}
