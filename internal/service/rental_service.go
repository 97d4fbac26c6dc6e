package service

import (
	"context"
	"fmt"
	"os"

	"eyegic/internal/domain"
	"eyegic/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type RentalService struct {
	repo   domain.CatalogRepository
	logger *zerolog.Logger
}

func NewRentalService(repo domain.CatalogRepository, logger *zerolog.Logger) *RentalService {
	return &RentalService{repo: repo, logger: logger}
}

func (s *RentalService) GetRentalCatalog(ctx context.Context) ([]*models.RentalItem, error) {
	return s.repo.ListRentalItems(ctx, false)
}

func (s *RentalService) FindAvailableRentalItems(ctx context.Context) ([]*models.RentalItem, error) {
	return s.repo.ListRentalItems(ctx, true)
}

func (s *RentalService) GetRentalItem(ctx context.Context, id int64) (*models.RentalItem, error) {
	return s.repo.GetRentalItem(ctx, id)
}

// SeedCatalog upserts items by id. Availability of existing items is preserved.
func (s *RentalService) SeedCatalog(ctx context.Context, items []models.RentalItem) error {
	seen := make(map[int64]bool, len(items))
	for i := range items {
		item := items[i]
		if item.ID <= 0 {
			return domain.InvalidInput("catalog item %q needs a positive id", item.Name)
		}
		if seen[item.ID] {
			return domain.InvalidInput("duplicate catalog item id %d", item.ID)
		}
		seen[item.ID] = true

		if err := s.repo.UpsertRentalItem(ctx, &item); err != nil {
			return fmt.Errorf("seed item %d: %w", item.ID, err)
		}
	}
	s.logger.Info().Int("items", len(items)).Msg("Rental catalog seeded")
	return nil
}

type catalogFile struct {
	Items []models.RentalItem `yaml:"items"`
}

// LoadCatalog reads rental items from a YAML file.
func LoadCatalog(path string) ([]models.RentalItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return file.Items, nil
}
