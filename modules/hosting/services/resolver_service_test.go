package services_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/modules/hosting/services"
)

func newResolverFixture(t *testing.T, allowQuery bool) (*services.ResolverService, *memoryRepo, *memoryMemberships) {
	t.Helper()
	repo := newMemoryRepo()
	memberships := newMemoryMemberships()
	resolver := services.NewResolverService(repo, memberships, services.ResolverConfig{
		BaseDomain:      "storekit.app",
		AllowQueryParam: allowQuery,
	})
	return resolver, repo, memberships
}

func TestResolve_HeaderBeatsSubdomain(t *testing.T) {
	ctx := testContext(t)
	resolver, repo, _ := newResolverFixture(t, false)
	first := organization.New("First", "first", organization.WithSubdomain("shop1"))
	second := organization.New("Second", "second", organization.WithSubdomain("shop2"))
	repo.Create(ctx, first)
	repo.Create(ctx, second)

	org, err := resolver.Resolve(ctx, services.ResolveParams{
		Header: second.ID().String(),
		Host:   "shop1.storekit.app",
	})
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, second.ID(), org.ID)
}

func TestResolve_SubdomainHost(t *testing.T) {
	ctx := testContext(t)
	resolver, repo, _ := newResolverFixture(t, false)
	acme := organization.New("Acme", "acme", organization.WithSubdomain("acme"))
	repo.Create(ctx, acme)

	for _, host := range []string{"acme.storekit.app", "ACME.storekit.app:443"} {
		org, err := resolver.Resolve(ctx, services.ResolveParams{Host: host})
		require.NoError(t, err, "host %q", host)
		require.NotNil(t, org)
		assert.Equal(t, acme.ID(), org.ID)
		assert.Equal(t, "acme", org.Subdomain)
	}
}

func TestResolve_CustomDomainUsesFullHost(t *testing.T) {
	ctx := testContext(t)
	resolver, repo, _ := newResolverFixture(t, false)
	acme := organization.New("Acme", "acme", organization.WithCustomDomain("www.acmestore.com"))
	repo.Create(ctx, acme)

	org, err := resolver.Resolve(ctx, services.ResolveParams{Host: "www.acmestore.com"})
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, acme.ID(), org.ID)
}

func TestResolve_ReservedSubdomainNeverResolves(t *testing.T) {
	ctx := testContext(t)
	resolver, repo, _ := newResolverFixture(t, false)
	// Even a row that somehow carries a reserved name must not resolve.
	rogue := organization.New("Rogue", "rogue", organization.WithSubdomain("api"))
	repo.Create(ctx, rogue)

	_, err := resolver.Resolve(ctx, services.ResolveParams{Host: "api.storekit.app"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrOrganizationNotFound))
}

func TestResolve_WWWPlatformHostCarriesNoSignal(t *testing.T) {
	ctx := testContext(t)
	resolver, _, _ := newResolverFixture(t, false)

	// The marketing host behaves like the bare platform domain.
	org, err := resolver.Resolve(ctx, services.ResolveParams{Host: "www.storekit.app"})
	require.NoError(t, err)
	assert.Nil(t, org)
}

func TestResolve_BadCandidateDoesNotFallThrough(t *testing.T) {
	ctx := testContext(t)
	resolver, repo, _ := newResolverFixture(t, false)
	acme := organization.New("Acme", "acme", organization.WithSubdomain("acme"))
	repo.Create(ctx, acme)

	// The header names a missing org; the valid subdomain must not rescue it.
	_, err := resolver.Resolve(ctx, services.ResolveParams{
		Header: uuid.NewString(),
		Host:   "acme.storekit.app",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrOrganizationNotFound))

	// A malformed header is a validation error, not a fallthrough either.
	_, err = resolver.Resolve(ctx, services.ResolveParams{
		Header: "not-a-uuid",
		Host:   "acme.storekit.app",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrValidation))
}

func TestResolve_RouteUserMustMatchPrincipal(t *testing.T) {
	ctx := testContext(t)
	resolver, repo, _ := newResolverFixture(t, false)
	acme := organization.New("Acme", "acme")
	repo.Create(ctx, acme)
	principal := uuid.New()

	_, err := resolver.Resolve(ctx, services.ResolveParams{
		RouteOrgID:          acme.ID().String(),
		RouteUserID:         uuid.NewString(),
		AuthenticatedUserID: &principal,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrAccessDenied))

	org, err := resolver.Resolve(ctx, services.ResolveParams{
		RouteOrgID:          acme.ID().String(),
		RouteUserID:         principal.String(),
		AuthenticatedUserID: &principal,
	})
	require.NoError(t, err)
	assert.Equal(t, acme.ID(), org.ID)
}

func TestResolve_QueryParamOnlyWhenEnabled(t *testing.T) {
	ctx := testContext(t)
	acme := organization.New("Acme", "acme")

	resolver, repo, _ := newResolverFixture(t, false)
	repo.Create(ctx, acme)
	org, err := resolver.Resolve(ctx, services.ResolveParams{QueryOrg: "acme"})
	require.NoError(t, err)
	assert.Nil(t, org)

	resolver, repo, _ = newResolverFixture(t, true)
	repo.Create(ctx, acme)
	org, err = resolver.Resolve(ctx, services.ResolveParams{QueryOrg: "acme"})
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, acme.ID(), org.ID)
}

func TestResolve_AttachesMembershipRole(t *testing.T) {
	ctx := testContext(t)
	resolver, repo, memberships := newResolverFixture(t, false)
	acme := organization.New("Acme", "acme", organization.WithSubdomain("acme"))
	repo.Create(ctx, acme)

	owner := uuid.New()
	admin := uuid.New()
	visitor := uuid.New()
	memberships.add(owner, acme.ID(), "owner")
	memberships.add(admin, acme.ID(), "admin")

	org, err := resolver.Resolve(ctx, services.ResolveParams{Host: "acme.storekit.app", AuthenticatedUserID: &owner})
	require.NoError(t, err)
	assert.True(t, org.IsOwner)
	assert.True(t, org.IsAdmin)

	org, err = resolver.Resolve(ctx, services.ResolveParams{Host: "acme.storekit.app", AuthenticatedUserID: &admin})
	require.NoError(t, err)
	assert.False(t, org.IsOwner)
	assert.True(t, org.IsAdmin)

	// Non-members still resolve: storefronts are public.
	org, err = resolver.Resolve(ctx, services.ResolveParams{Host: "acme.storekit.app", AuthenticatedUserID: &visitor})
	require.NoError(t, err)
	assert.Empty(t, org.Role)
	assert.False(t, org.IsAdmin)
}

func TestResolve_NoSignalResolvesToNothing(t *testing.T) {
	ctx := testContext(t)
	resolver, _, _ := newResolverFixture(t, false)

	for _, host := range []string{"storekit.app", "localhost:3200", "127.0.0.1"} {
		org, err := resolver.Resolve(ctx, services.ResolveParams{Host: host})
		require.NoError(t, err, "host %q", host)
		assert.Nil(t, org, "host %q", host)
	}
}
