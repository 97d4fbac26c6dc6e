package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eyegic/internal/domain"
	"eyegic/internal/models"
)

const providerColumns = `id, active, name, phone, email, service_areas, services, availability, created_at, updated_at`

// CreateProvider registers a provider keyed by principal. A second registration of
// the same principal fails with AlreadyRegistered.
func (db *DB) CreateProvider(ctx context.Context, p *models.Provider) error {
	services, err := json.Marshal(p.Services)
	if err != nil {
		return fmt.Errorf("failed to encode services: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO providers (` + providerColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, query,
		p.ID, p.Active, p.Name, p.Phone, p.Email, p.ServiceAreas, string(services), p.Availability, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.AlreadyRegistered("provider %s is already registered", p.ID)
		}
		return fmt.Errorf("failed to create provider: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (db *DB) GetProvider(ctx context.Context, id string) (*models.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = ?`
	p, err := scanProvider(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("provider %s not found", id)
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return p, nil
}

// ListProviders returns providers in registration order.
func (db *DB) ListProviders(ctx context.Context, activeOnly bool) ([]*models.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY rowid ASC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	providers := []*models.Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

func (db *DB) SetProviderActive(ctx context.Context, id string, active bool) error {
	result, err := db.ExecContext(ctx, `UPDATE providers SET active = ?, updated_at = ? WHERE id = ?`, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.NotFound("provider %s not found", id)
	}
	return nil
}

func scanProvider(row rowScanner) (*models.Provider, error) {
	var (
		p        models.Provider
		services string
	)
	err := row.Scan(&p.ID, &p.Active, &p.Name, &p.Phone, &p.Email, &p.ServiceAreas, &services,
		&p.Availability, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(services), &p.Services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	return &p, nil
}
