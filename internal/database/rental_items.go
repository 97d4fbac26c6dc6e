package database

import (
	"context"
	"fmt"
	"time"

	"eyegic/internal/domain"
	"eyegic/internal/models"
)

const rentalItemColumns = `id, name, category, description, price_per_day, deposit, available, created_at, updated_at`

// UpsertRentalItem creates an item or refreshes its catalog details. Availability of
// an existing item is left untouched.
func (db *DB) UpsertRentalItem(ctx context.Context, item *models.RentalItem) error {
	if item.PricePerDay < 0 || item.Deposit < 0 {
		return domain.InvalidInput("rental item %q has a negative price", item.Name)
	}

	var id any
	if item.ID > 0 {
		id = item.ID
	}

	now := time.Now()
	query := `INSERT INTO rental_items (` + rentalItemColumns + `) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  category = excluded.category,
                  description = excluded.description,
                  price_per_day = excluded.price_per_day,
                  deposit = excluded.deposit,
                  updated_at = excluded.updated_at`
	result, err := db.ExecContext(ctx, query,
		id, item.Name, item.Category, item.Description, item.PricePerDay, item.Deposit, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rental item: %w", err)
	}
	if item.ID == 0 {
		newID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		item.ID = newID
	}

	stored, err := db.GetRentalItem(ctx, item.ID)
	if err != nil {
		return err
	}
	*item = *stored
	return nil
}

func (db *DB) GetRentalItem(ctx context.Context, id int64) (*models.RentalItem, error) {
	query := `SELECT ` + rentalItemColumns + ` FROM rental_items WHERE id = ?`
	item, err := scanRentalItem(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("rental item %d not found", id)
		}
		return nil, fmt.Errorf("failed to get rental item: %w", err)
	}
	return item, nil
}

func (db *DB) ListRentalItems(ctx context.Context, availableOnly bool) ([]*models.RentalItem, error) {
	query := `SELECT ` + rentalItemColumns + ` FROM rental_items`
	if availableOnly {
		query += ` WHERE available = 1`
	}
	query += ` ORDER BY id ASC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rental items: %w", err)
	}
	defer rows.Close()

	items := []*models.RentalItem{}
	for rows.Next() {
		item, err := scanRentalItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rental item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanRentalItem(row rowScanner) (*models.RentalItem, error) {
	var item models.RentalItem
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Description, &item.PricePerDay,
		&item.Deposit, &item.Available, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
