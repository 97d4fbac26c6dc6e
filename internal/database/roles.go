package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eyegic/internal/models"
)

// GetRole returns the stored role of principal, or guest when it is unknown.
func (db *DB) GetRole(ctx context.Context, principal string) (models.UserRole, error) {
	if principal == "" {
		return models.RoleGuest, nil
	}
	var role models.UserRole
	err := db.QueryRowContext(ctx, `SELECT role FROM roles WHERE principal = ?`, principal).Scan(&role)
	if err != nil {
		if isNoRows(err) {
			return models.RoleGuest, nil
		}
		return "", fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

func (db *DB) SetRole(ctx context.Context, principal string, role models.UserRole) error {
	query := `INSERT INTO roles (principal, role, created_at) VALUES (?, ?, ?)
              ON CONFLICT(principal) DO UPDATE SET role = excluded.role`
	if _, err := db.ExecContext(ctx, query, principal, role, time.Now()); err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	return nil
}

// RegisterPrincipal records principal if it is new. The first principal in a store
// without an admin becomes admin, later ones become users. Known principals keep
// their role.
func (db *DB) RegisterPrincipal(ctx context.Context, principal string) (models.UserRole, error) {
	var role models.UserRole
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT OR IGNORE INTO roles (principal, role, created_at)
              SELECT ?, CASE WHEN EXISTS (SELECT 1 FROM roles WHERE role = ?) THEN ? ELSE ? END, ?`
		_, err := tx.ExecContext(ctx, query, principal, models.RoleAdmin, models.RoleUser, models.RoleAdmin, time.Now())
		if err != nil {
			return fmt.Errorf("failed to register principal: %w", err)
		}
		return tx.QueryRowContext(ctx, `SELECT role FROM roles WHERE principal = ?`, principal).Scan(&role)
	})
	if err != nil {
		return "", err
	}
	return role, nil
}
