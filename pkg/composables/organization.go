package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/storekit/platform/pkg/constants"
)

var ErrNoOrganization = errors.New("no organization found in context")

// Organization is the request-scoped view of the resolved tenant. The
// resolver middleware attaches it once per request; business handlers read
// it through UseOrganization and must not mutate it.
type Organization struct {
	ID           uuid.UUID
	Slug         string
	Subdomain    string
	CustomDomain string

	// Role context, populated only when an authenticated principal id was
	// present at resolution time.
	Role    string
	IsOwner bool
	IsAdmin bool
}

func WithOrganization(ctx context.Context, org *Organization) context.Context {
	return context.WithValue(ctx, constants.OrganizationKey, org)
}

func UseOrganization(ctx context.Context) (*Organization, error) {
	org, ok := ctx.Value(constants.OrganizationKey).(*Organization)
	if !ok || org == nil {
		return nil, ErrNoOrganization
	}
	return org, nil
}

// TryUseOrganization is the non-failing variant for handlers that can serve
// tenant-less requests.
func TryUseOrganization(ctx context.Context) (*Organization, bool) {
	org, ok := ctx.Value(constants.OrganizationKey).(*Organization)
	return org, ok && org != nil
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.UserIDKey, id)
}

// UseUserID returns the authenticated principal id, if any.
func UseUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(constants.UserIDKey).(uuid.UUID)
	return id, ok
}
