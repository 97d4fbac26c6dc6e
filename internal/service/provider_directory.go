package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"eyegic/internal/domain"
	"eyegic/internal/events"
	"eyegic/internal/models"
	"eyegic/internal/validation"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

type OnboardRequest struct {
	Name         string
	Phone        string
	Email        string
	ServiceAreas string
	Services     []models.ServiceType
	Availability string
}

// ProviderDirectory registers providers and serves cached lookups by principal.
type ProviderDirectory struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	cache    *lru.Cache[string, *models.Provider]
	logger   *zerolog.Logger

	// gens counts writes per provider. A read only fills the cache when no
	// write happened between its generation snapshot and the fill.
	mu   sync.Mutex
	gens map[string]uint64
}

func NewProviderDirectory(repo domain.Repository, eventBus domain.EventPublisher, cacheSize int, logger *zerolog.Logger) (*ProviderDirectory, error) {
	if cacheSize <= 0 {
		cacheSize = models.ProviderCacheSize
	}
	cache, err := lru.New[string, *models.Provider](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create provider cache: %w", err)
	}
	return &ProviderDirectory{
		repo:     repo,
		eventBus: eventBus,
		cache:    cache,
		logger:   logger,
		gens:     make(map[string]uint64),
	}, nil
}

func (d *ProviderDirectory) Onboard(ctx context.Context, req OnboardRequest, actor models.Actor) (*models.Provider, error) {
	if err := requireRegistered(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, domain.InvalidInput("Name is required")
	}
	if err := validation.ValidatePhone(req.Phone).Err(); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(req.Email).Err(); err != nil {
		return nil, err
	}
	if err := validation.ValidatePinCodes(req.ServiceAreas).Err(); err != nil {
		return nil, err
	}
	if len(req.Services) == 0 {
		return nil, domain.InvalidInput("Select at least one service")
	}
	services := make([]models.ServiceType, 0, len(req.Services))
	for _, s := range req.Services {
		if !s.IsValid() {
			return nil, domain.InvalidInput("unknown service type %q", s)
		}
		if !containsService(services, s) {
			services = append(services, s)
		}
	}

	provider := &models.Provider{
		ID:           actor.ID,
		Active:       true,
		Name:         strings.TrimSpace(req.Name),
		Phone:        validation.SanitizePhone(req.Phone),
		Email:        strings.TrimSpace(req.Email),
		ServiceAreas: validation.NormalizePinCodes(req.ServiceAreas),
		Services:     services,
		Availability: strings.TrimSpace(req.Availability),
	}
	if err := d.repo.CreateProvider(ctx, provider); err != nil {
		return nil, err
	}
	d.invalidate(provider.ID)

	d.logger.Info().Str("provider", provider.ID).Strs("areas", validation.PinCodes(provider.ServiceAreas)).Msg("Provider onboarded")
	d.publish(events.EventProviderOnboarded, provider, actor.ID)
	return provider, nil
}

// GetProvider reports found=false for an unknown principal instead of an error.
func (d *ProviderDirectory) GetProvider(ctx context.Context, id string) (*models.Provider, bool, error) {
	if p, ok := d.cache.Get(id); ok {
		return copyProvider(p), true, nil
	}

	gen := d.generation(id)
	p, err := d.repo.GetProvider(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	d.fill(id, gen, p)
	return copyProvider(p), true, nil
}

func (d *ProviderDirectory) generation(id string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gens[id]
}

func (d *ProviderDirectory) fill(id string, gen uint64, p *models.Provider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gens[id] == gen {
		d.cache.Add(id, p)
	}
}

// invalidate runs after every store write to a provider.
func (d *ProviderDirectory) invalidate(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gens[id]++
	d.cache.Remove(id)
}

func (d *ProviderDirectory) ListActive(ctx context.Context) ([]*models.Provider, error) {
	return d.repo.ListProviders(ctx, true)
}

func (d *ProviderDirectory) SetActive(ctx context.Context, id string, active bool, actor models.Actor) (*models.Provider, error) {
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("only admins can change provider status")
	}
	if err := d.repo.SetProviderActive(ctx, id, active); err != nil {
		return nil, err
	}
	d.invalidate(id)

	p, err := d.repo.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}

	d.logger.Info().Str("provider", id).Bool("active", active).Str("by", actor.ID).Msg("Provider status changed")
	d.publish(events.EventProviderActiveChanged, p, actor.ID)
	return p, nil
}

// MatchProviders returns active providers that offer service and cover pin.
func (d *ProviderDirectory) MatchProviders(ctx context.Context, service models.ServiceType, pin string) ([]*models.Provider, error) {
	if !service.IsValid() {
		return nil, domain.InvalidInput("unknown service type %q", service)
	}
	if err := validation.ValidatePinCodes(pin).Err(); err != nil {
		return nil, err
	}
	pin = strings.TrimSpace(pin)

	active, err := d.repo.ListProviders(ctx, true)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Provider, 0, len(active))
	for _, p := range active {
		if p.Offers(service) && coversPin(p, pin) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func (d *ProviderDirectory) publish(eventType string, p *models.Provider, changedBy string) {
	if d.eventBus == nil {
		return
	}
	payload := events.ProviderEventPayload{
		ProviderID: p.ID,
		Name:       p.Name,
		Active:     p.Active,
		ChangedBy:  changedBy,
	}
	if err := d.eventBus.PublishJSON(eventType, payload); err != nil {
		d.logger.Error().Err(err).Str("event_type", eventType).Str("provider", p.ID).Msg("publish event error")
	}
}

func coversPin(p *models.Provider, pin string) bool {
	for _, area := range validation.PinCodes(p.ServiceAreas) {
		if area == pin {
			return true
		}
	}
	return false
}

func containsService(list []models.ServiceType, s models.ServiceType) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func copyProvider(p *models.Provider) *models.Provider {
	c := *p
	c.Services = append([]models.ServiceType(nil), p.Services...)
	return &c
}
