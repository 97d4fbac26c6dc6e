package service

import (
	"context"
	"strings"

	"eyegic/internal/domain"
	"eyegic/internal/models"

	"github.com/rs/zerolog"
)

// AccessService resolves caller roles and manages role assignment.
type AccessService struct {
	repo   domain.RoleRepository
	logger *zerolog.Logger
}

func NewAccessService(repo domain.RoleRepository, logger *zerolog.Logger) *AccessService {
	return &AccessService{repo: repo, logger: logger}
}

// SeedAdmins grants admin to every listed principal, typically from configuration.
func (s *AccessService) SeedAdmins(ctx context.Context, principals []string) error {
	for _, p := range principals {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := s.repo.SetRole(ctx, p, models.RoleAdmin); err != nil {
			return err
		}
		s.logger.Info().Str("principal", p).Msg("Admin seeded")
	}
	return nil
}

// Resolve builds the actor for principal. An empty principal is anonymous.
func (s *AccessService) Resolve(ctx context.Context, principal string) (models.Actor, error) {
	if principal == "" {
		return models.Anonymous(), nil
	}
	role, err := s.repo.GetRole(ctx, principal)
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{ID: principal, Role: role}, nil
}

// Initialize registers the caller. The first caller in a store without an admin
// becomes admin. Calling it again returns the existing role.
func (s *AccessService) Initialize(ctx context.Context, actor models.Actor) (models.UserRole, error) {
	if actor.ID == "" {
		return "", domain.Forbidden("anonymous callers cannot register")
	}
	role, err := s.repo.RegisterPrincipal(ctx, actor.ID)
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("principal", actor.ID).Str("role", string(role)).Msg("Principal initialized")
	return role, nil
}

func (s *AccessService) GetCallerUserRole(ctx context.Context, actor models.Actor) (models.UserRole, error) {
	return s.repo.GetRole(ctx, actor.ID)
}

func (s *AccessService) IsCallerAdmin(ctx context.Context, actor models.Actor) (bool, error) {
	role, err := s.repo.GetRole(ctx, actor.ID)
	if err != nil {
		return false, err
	}
	return role == models.RoleAdmin, nil
}

func (s *AccessService) AssignCallerUserRole(ctx context.Context, user string, role models.UserRole, actor models.Actor) error {
	if !actor.IsAdmin() {
		return domain.Forbidden("only admins can assign roles")
	}
	if strings.TrimSpace(user) == "" {
		return domain.InvalidInput("user is required")
	}
	if !role.IsValid() {
		return domain.InvalidInput("unknown role %q", role)
	}
	if err := s.repo.SetRole(ctx, user, role); err != nil {
		return err
	}
	s.logger.Info().Str("principal", user).Str("role", string(role)).Str("by", actor.ID).Msg("Role assigned")
	return nil
}
