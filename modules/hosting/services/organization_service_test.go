package services_test

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/modules/hosting/services"
	"github.com/storekit/platform/pkg/eventbus"
)

func newOrganizationService(t *testing.T, orgs ...*organization.Organization) (*services.OrganizationService, *memoryRepo) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	repo := newMemoryRepo(orgs...)
	return services.NewOrganizationService(repo, eventbus.NewEventPublisher(logger)), repo
}

func TestCreateOrganization(t *testing.T) {
	ctx := testContext(t)
	svc, _ := newOrganizationService(t)

	org, err := svc.Create(ctx, services.CreateOrganizationParams{
		Name:      "Acme Store",
		Slug:      "Acme-Store",
		Subdomain: "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme-store", org.Slug())
	require.NotNil(t, org.Subdomain())
	assert.Equal(t, "acme", *org.Subdomain())
	assert.Equal(t, organization.StatusPending, org.InfrastructureStatus())
}

func TestCreateOrganization_Validation(t *testing.T) {
	ctx := testContext(t)
	existing := organization.New("Taken", "taken", organization.WithSubdomain("taken"))
	svc, _ := newOrganizationService(t, existing)

	cases := []struct {
		name   string
		params services.CreateOrganizationParams
	}{
		{"empty name", services.CreateOrganizationParams{Slug: "acme"}},
		{"bad slug", services.CreateOrganizationParams{Name: "Acme", Slug: "Not A Slug!"}},
		{"taken slug", services.CreateOrganizationParams{Name: "Acme", Slug: "taken"}},
		{"taken subdomain", services.CreateOrganizationParams{Name: "Acme", Slug: "acme", Subdomain: "taken"}},
		{"reserved subdomain", services.CreateOrganizationParams{Name: "Acme", Slug: "acme", Subdomain: "admin"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, services.ErrValidation))
		})
	}
}

func TestDeleteOrganization_RefusesLiveInfrastructure(t *testing.T) {
	ctx := testContext(t)
	active := organization.New("Acme", "acme",
		organization.WithInfrastructureStatus(organization.StatusActive),
	)
	svc, repo := newOrganizationService(t, active)

	err := svc.Delete(ctx, active.ID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrValidation))

	// Still present.
	_, err = repo.GetByID(ctx, active.ID())
	require.NoError(t, err)
}

func TestCheckSubdomainAvailable(t *testing.T) {
	ctx := testContext(t)
	existing := organization.New("Taken", "taken", organization.WithSubdomain("taken"))
	svc, _ := newOrganizationService(t, existing)

	cases := []struct {
		subdomain string
		available bool
	}{
		{"fresh", true},
		{"taken", false},
		{"www", false},
		{"admin", false},
		{"", false},
	}
	for _, tc := range cases {
		available, err := svc.CheckSubdomainAvailable(ctx, tc.subdomain)
		require.NoError(t, err)
		assert.Equal(t, tc.available, available, "subdomain %q", tc.subdomain)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	ctx := testContext(t)
	svc, _ := newOrganizationService(t)

	_, err := svc.GetByID(ctx, organization.New("x", "x").ID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrOrganizationNotFound))
}
