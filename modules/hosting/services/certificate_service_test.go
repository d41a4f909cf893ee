package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/platform/modules/hosting/domain/cloud"
	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/modules/hosting/services"
	"github.com/storekit/platform/pkg/eventbus"
	"github.com/storekit/platform/pkg/serrors"
)

type certificateFixture struct {
	service *services.CertificateService
	repo    *memoryRepo
	certs   *fakeCerts
	cdn     *fakeCDN
	bus     eventbus.EventBus
}

func newCertificateFixture(t *testing.T, orgs ...*organization.Organization) *certificateFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	f := &certificateFixture{
		repo:  newMemoryRepo(orgs...),
		certs: newFakeCerts(),
		cdn:   newFakeCDN(),
		bus:   eventbus.NewEventPublisher(logger),
	}
	f.service = services.NewCertificateService(
		f.repo, f.certs, f.cdn, f.bus,
		services.CertificateConfig{
			BaseDomain:       "storekit.app",
			DescribeInterval: time.Millisecond,
			DescribeAttempts: 2,
		},
	)
	return f
}

func TestRequestCustomDomainCertificate_CoversApexAndWWW(t *testing.T) {
	ctx := testContext(t)
	org := organization.New("Acme", "acme")
	f := newCertificateFixture(t, org)

	result, err := f.service.RequestCustomDomainCertificate(ctx, org.ID(), "WWW.AcmeStore.com")
	require.NoError(t, err)

	assert.Equal(t, "acmestore.com", f.certs.lastRequest.DomainName)
	assert.Equal(t, []string{"www.acmestore.com"}, f.certs.lastRequest.SubjectAlternativeNames)

	assert.Equal(t, cloud.CertStatusPendingValidation, result.Status)
	require.Len(t, result.ValidationRecords, 1)
	assert.Equal(t, "CNAME", result.ValidationRecords[0].Type)

	// The host is stored as submitted so Host-header lookups keep working;
	// only the certificate itself is anchored at the apex.
	require.NotNil(t, org.CustomDomain())
	assert.Equal(t, "www.acmestore.com", *org.CustomDomain())
	assert.False(t, org.DomainVerified())
	require.NotNil(t, org.CertificateARN())
	assert.Len(t, org.ValidationRecords(), 1)
}

func TestRequestCustomDomainCertificate_RejectsPlatformDomain(t *testing.T) {
	ctx := testContext(t)
	org := organization.New("Acme", "acme")
	f := newCertificateFixture(t, org)

	for _, domain := range []string{"storekit.app", "www.storekit.app"} {
		_, err := f.service.RequestCustomDomainCertificate(ctx, org.ID(), domain)
		require.Error(t, err, "domain %q", domain)
		assert.True(t, errors.Is(err, services.ErrValidation), "domain %q", domain)
	}

	// Hosts merely under the platform domain belong to their owners.
	_, err := f.service.RequestCustomDomainCertificate(ctx, org.ID(), "shop.storekit.app")
	require.NoError(t, err)
	assert.Equal(t, "shop.storekit.app", f.certs.lastRequest.DomainName)
}

func TestRequestCustomDomainCertificate_RejectsGarbage(t *testing.T) {
	ctx := testContext(t)
	org := organization.New("Acme", "acme")
	f := newCertificateFixture(t, org)

	for _, domain := range []string{"", "not a domain", "nodots", "-bad.example.com"} {
		_, err := f.service.RequestCustomDomainCertificate(ctx, org.ID(), domain)
		assert.True(t, errors.Is(err, services.ErrValidation), "domain %q", domain)
	}
}

func TestAttachCustomDomain_RefusedUntilIssued(t *testing.T) {
	ctx := testContext(t)
	org := organization.New("Acme", "acme", organization.WithSubdomain("acme"))
	f := newCertificateFixture(t, org)
	f.setupCustomDomain(t, ctx, org, "acmestore.com")

	_, err := f.service.AttachCustomDomainToDistribution(ctx, org.ID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrCertificateNotReady))

	var coded *serrors.Error
	require.True(t, errors.As(err, &coded))
	assert.Contains(t, coded.Message, cloud.CertStatusPendingValidation)
	assert.Equal(t, cloud.CertStatusPendingValidation, coded.Meta["status"])

	assert.False(t, org.DomainVerified())
	assert.Zero(t, f.cdn.updateCalls)
}

func TestAttachCustomDomain_AddsAliasesOnce(t *testing.T) {
	ctx := testContext(t)
	org := organization.New("Acme", "acme", organization.WithSubdomain("acme"))
	f := newCertificateFixture(t, org)
	f.setupCustomDomain(t, ctx, org, "acmestore.com")
	f.certs.status = cloud.CertStatusIssued

	var issued *organization.CertificateIssuedEvent
	f.bus.Subscribe(func(e *organization.CertificateIssuedEvent) {
		issued = e
	})

	attached, err := f.service.AttachCustomDomainToDistribution(ctx, org.ID())
	require.NoError(t, err)
	assert.NotEmpty(t, attached.CloudfrontDomain)

	assert.ElementsMatch(t,
		[]string{"acme.storekit.app", "acmestore.com", "www.acmestore.com"},
		f.cdn.lastUpdate.Aliases,
	)
	assert.Equal(t, *org.CertificateARN(), f.cdn.lastUpdate.CertificateARN)
	assert.True(t, org.DomainVerified())

	require.NotNil(t, issued)
	assert.Equal(t, "acmestore.com", issued.CustomDomain)

	// A second attach does not duplicate aliases.
	_, err = f.service.AttachCustomDomainToDistribution(ctx, org.ID())
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"acme.storekit.app", "acmestore.com", "www.acmestore.com"},
		f.cdn.lastUpdate.Aliases,
	)
}

func TestAttachCustomDomain_WWWSubmissionCoversApexToo(t *testing.T) {
	ctx := testContext(t)
	org := organization.New("Acme", "acme", organization.WithSubdomain("acme"))
	f := newCertificateFixture(t, org)
	f.setupCustomDomain(t, ctx, org, "www.acmestore.com")
	f.certs.status = cloud.CertStatusIssued

	_, err := f.service.AttachCustomDomainToDistribution(ctx, org.ID())
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"acme.storekit.app", "acmestore.com", "www.acmestore.com"},
		f.cdn.lastUpdate.Aliases,
	)
	require.NotNil(t, org.CustomDomain())
	assert.Equal(t, "www.acmestore.com", *org.CustomDomain())
}

func TestAttachCustomDomain_RequiresDistribution(t *testing.T) {
	ctx := testContext(t)
	org := organization.New("Acme", "acme")
	f := newCertificateFixture(t, org)

	_, err := f.service.RequestCustomDomainCertificate(ctx, org.ID(), "acmestore.com")
	require.NoError(t, err)

	_, err = f.service.AttachCustomDomainToDistribution(ctx, org.ID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrValidation))
}

func TestCheckCertificateStatus_WithoutCertificate(t *testing.T) {
	ctx := testContext(t)
	org := organization.New("Acme", "acme")
	f := newCertificateFixture(t, org)

	_, err := f.service.CheckCertificateStatus(ctx, org.ID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrNoCertificate))
}

func TestGetDomainStatus_AggregatesEverything(t *testing.T) {
	ctx := testContext(t)
	org := organization.New("Acme", "acme", organization.WithSubdomain("acme"))
	f := newCertificateFixture(t, org)
	f.setupCustomDomain(t, ctx, org, "acmestore.com")

	status, err := f.service.GetDomainStatus(ctx, org.ID())
	require.NoError(t, err)

	assert.Equal(t, "https://acme.storekit.app", status.SubdomainURL)
	require.NotNil(t, status.CustomDomain)
	assert.Equal(t, "acmestore.com", *status.CustomDomain)
	assert.Equal(t, cloud.CertStatusPendingValidation, status.CertificateStatus)
	assert.Len(t, status.ValidationRecords, 1)
	assert.Equal(t, organization.StatusPending, status.InfrastructureStatus)
}

// setupCustomDomain provisions a distribution and requests a certificate so
// attach tests start from a realistic record.
func (f *certificateFixture) setupCustomDomain(t *testing.T, ctx context.Context, org *organization.Organization, domain string) {
	t.Helper()
	dist, err := f.cdn.CreateDistribution(ctx, cloud.CreateDistributionRequest{
		Aliases: []string{"acme.storekit.app"},
	})
	require.NoError(t, err)
	org.SetCloudfrontDistribution(dist.ID, dist.DomainName)

	_, err = f.service.RequestCustomDomainCertificate(ctx, org.ID(), domain)
	require.NoError(t, err)
}
