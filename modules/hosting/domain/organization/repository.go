package organization

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*Organization, error)
	GetByCustomDomain(ctx context.Context, domain string) (*Organization, error)
	Create(ctx context.Context, org *Organization) (*Organization, error)
	Update(ctx context.Context, org *Organization) (*Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Organization, error)
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// MembershipReader is the narrow read surface onto the RBAC collaborator this
// subsystem needs: the role a principal holds within an organization.
type MembershipReader interface {
	RoleInOrganization(ctx context.Context, userID, orgID uuid.UUID) (string, error)
}
