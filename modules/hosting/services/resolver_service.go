package services

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/modules/hosting/infrastructure/persistence"
	"github.com/storekit/platform/pkg/composables"
)

type ResolverConfig struct {
	BaseDomain string
	// AllowQueryParam enables the development-only ?org= fallback.
	AllowQueryParam bool
}

// ResolverService turns request attributes into the tenant the request is
// addressed to. Sources are tried in a fixed precedence order and the first
// one that yields a candidate wins: a candidate that fails to resolve is an
// error, never a fallthrough to the next source.
type ResolverService struct {
	repo        organization.Repository
	memberships organization.MembershipReader
	config      ResolverConfig
}

func NewResolverService(
	repo organization.Repository,
	memberships organization.MembershipReader,
	config ResolverConfig,
) *ResolverService {
	return &ResolverService{
		repo:        repo,
		memberships: memberships,
		config:      config,
	}
}

// ResolveParams carries the raw request attributes the resolver inspects.
type ResolveParams struct {
	// RouteOrgID and RouteUserID come from path variables on scoped routes.
	RouteOrgID  string
	RouteUserID string
	// Header is the explicit tenant header value, if sent.
	Header string
	// Host is the request host, possibly with a port.
	Host string
	// QueryOrg is the ?org= value, honored only when AllowQueryParam is on.
	QueryOrg string

	// AuthenticatedUserID is the principal from the session, if any.
	AuthenticatedUserID *uuid.UUID
}

type candidate struct {
	source string
	lookup func(ctx context.Context) (*organization.Organization, error)
}

// Resolve picks the tenant for a request. Precedence: route path, header,
// platform subdomain, custom domain, query parameter. A request carrying no
// tenant signal at all resolves to (nil, nil); handlers that require a tenant
// reject that themselves.
func (s *ResolverService) Resolve(ctx context.Context, params ResolveParams) (*composables.Organization, error) {
	cand, err := s.pickCandidate(params)
	if err != nil {
		return nil, err
	}
	if cand == nil {
		return nil, nil
	}

	org, err := cand.lookup(ctx)
	if err != nil {
		if isOrganizationMissing(err) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}

	resolved := &composables.Organization{
		ID:   org.ID(),
		Slug: org.Slug(),
	}
	if sub := org.Subdomain(); sub != nil {
		resolved.Subdomain = *sub
	}
	if domain := org.CustomDomain(); domain != nil {
		resolved.CustomDomain = *domain
	}

	if params.AuthenticatedUserID != nil {
		if err := s.attachRole(ctx, resolved, *params.AuthenticatedUserID); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func (s *ResolverService) pickCandidate(params ResolveParams) (*candidate, error) {
	if params.RouteOrgID != "" {
		// Route-scoped user ids must match the authenticated principal;
		// otherwise any member could read another member's scoped resources.
		if params.RouteUserID != "" {
			routeUser, err := uuid.Parse(params.RouteUserID)
			if err != nil {
				return nil, ErrValidation.WithMessage("invalid user id in route")
			}
			if params.AuthenticatedUserID == nil || *params.AuthenticatedUserID != routeUser {
				return nil, ErrAccessDenied
			}
		}
		orgID, err := uuid.Parse(params.RouteOrgID)
		if err != nil {
			return nil, ErrValidation.WithMessage("invalid organization id in route")
		}
		return &candidate{source: "route", lookup: func(ctx context.Context) (*organization.Organization, error) {
			return s.repo.GetByID(ctx, orgID)
		}}, nil
	}

	if header := strings.TrimSpace(params.Header); header != "" {
		orgID, err := uuid.Parse(header)
		if err != nil {
			return nil, ErrValidation.WithMessage("invalid organization id in header")
		}
		return &candidate{source: "header", lookup: func(ctx context.Context) (*organization.Organization, error) {
			return s.repo.GetByID(ctx, orgID)
		}}, nil
	}

	// The bare platform domain and its www variant carry no tenant signal.
	host := normalizeHost(params.Host)
	if host != "" && host != s.config.BaseDomain && host != "www."+s.config.BaseDomain {
		if sub, ok := s.platformSubdomain(host); ok {
			if organization.IsReservedSubdomain(sub) {
				return nil, ErrOrganizationNotFound.WithMessage("reserved subdomain")
			}
			return &candidate{source: "subdomain", lookup: func(ctx context.Context) (*organization.Organization, error) {
				return s.repo.GetBySubdomain(ctx, sub)
			}}, nil
		}
		if !isLocalHost(host) {
			return &candidate{source: "custom-domain", lookup: func(ctx context.Context) (*organization.Organization, error) {
				return s.repo.GetByCustomDomain(ctx, host)
			}}, nil
		}
	}

	if s.config.AllowQueryParam && params.QueryOrg != "" {
		slug := strings.ToLower(params.QueryOrg)
		return &candidate{source: "query", lookup: func(ctx context.Context) (*organization.Organization, error) {
			return s.repo.GetBySlug(ctx, slug)
		}}, nil
	}

	return nil, nil
}

// attachRole annotates the resolved tenant with the principal's membership
// role. Non-members stay role-less; storefront routes are public.
func (s *ResolverService) attachRole(ctx context.Context, org *composables.Organization, userID uuid.UUID) error {
	role, err := s.memberships.RoleInOrganization(ctx, userID, org.ID)
	if err != nil {
		if errors.Is(err, persistence.ErrMembershipNotFound) {
			return nil
		}
		return err
	}
	org.Role = role
	switch role {
	case "owner":
		org.IsOwner = true
		org.IsAdmin = true
	case "admin":
		org.IsAdmin = true
	}
	return nil
}

// platformSubdomain extracts the single label under the base domain, e.g.
// "shop" from "shop.example.com". Multi-label prefixes are not tenant
// subdomains.
func (s *ResolverService) platformSubdomain(host string) (string, bool) {
	suffix := "." + s.config.BaseDomain
	if !strings.HasSuffix(host, suffix) {
		return "", false
	}
	sub := strings.TrimSuffix(host, suffix)
	if sub == "" || strings.Contains(sub, ".") {
		return "", false
	}
	return sub, true
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

func isLocalHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	return net.ParseIP(host) != nil
}
