package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/pkg/eventbus"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type OrganizationService struct {
	repo      organization.Repository
	publisher eventbus.EventBus
}

func NewOrganizationService(repo organization.Repository, publisher eventbus.EventBus) *OrganizationService {
	return &OrganizationService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *OrganizationService) GetByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isOrganizationMissing(err) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return org, nil
}

func (s *OrganizationService) List(ctx context.Context) ([]*organization.Organization, error) {
	return s.repo.List(ctx)
}

type CreateOrganizationParams struct {
	Name      string
	Slug      string
	Subdomain string
}

func (s *OrganizationService) Create(ctx context.Context, params CreateOrganizationParams) (*organization.Organization, error) {
	name := strings.TrimSpace(params.Name)
	slug := strings.ToLower(strings.TrimSpace(params.Slug))
	subdomain := strings.ToLower(strings.TrimSpace(params.Subdomain))

	if name == "" {
		return nil, ErrValidation.WithMessage("name is required")
	}
	if !slugPattern.MatchString(slug) {
		return nil, ErrValidation.WithMessage("slug must be lowercase alphanumeric with dashes")
	}

	if exists, err := s.repo.SlugExists(ctx, slug); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrValidation.WithMessage("slug is already taken")
	}

	opts := []organization.Option{}
	if subdomain != "" {
		available, err := s.CheckSubdomainAvailable(ctx, subdomain)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, ErrValidation.WithMessage("subdomain is reserved or already taken")
		}
		opts = append(opts, organization.WithSubdomain(subdomain))
	}

	created, err := s.repo.Create(ctx, organization.New(name, slug, opts...))
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Delete refuses to remove an organization that still owns live infrastructure.
func (s *OrganizationService) Delete(ctx context.Context, id uuid.UUID) error {
	org, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch org.InfrastructureStatus() {
	case organization.StatusPending:
	default:
		return ErrValidation.WithMessage("organization infrastructure must be deprovisioned first")
	}
	return s.repo.Delete(ctx, id)
}

// CheckSubdomainAvailable returns false for reserved names without touching
// the store.
func (s *OrganizationService) CheckSubdomainAvailable(ctx context.Context, subdomain string) (bool, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return false, nil
	}
	if organization.IsReservedSubdomain(subdomain) {
		return false, nil
	}
	exists, err := s.repo.SubdomainExists(ctx, subdomain)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
