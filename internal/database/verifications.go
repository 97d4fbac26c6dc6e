package database

import (
	"context"
	"fmt"

	"eyegic/internal/models"
)

// AppendVerification adds an entry to the verification log. Entries are never
// updated or removed.
func (db *DB) AppendVerification(ctx context.Context, v *models.MobileNumberVerification) error {
	query := `INSERT INTO verifications (mobile_number, verified_at, verified_by) VALUES (?, ?, ?)`
	result, err := db.ExecContext(ctx, query, v.MobileNumber, v.VerifiedAt, v.VerifiedBy)
	if err != nil {
		return fmt.Errorf("failed to append verification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	v.ID = id
	return nil
}

// ListVerifications returns the log in insertion order.
func (db *DB) ListVerifications(ctx context.Context) ([]*models.MobileNumberVerification, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, mobile_number, verified_at, verified_by FROM verifications ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	defer rows.Close()

	entries := []*models.MobileNumberVerification{}
	for rows.Next() {
		var v models.MobileNumberVerification
		if err := rows.Scan(&v.ID, &v.MobileNumber, &v.VerifiedAt, &v.VerifiedBy); err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}
		entries = append(entries, &v)
	}
	return entries, rows.Err()
}
