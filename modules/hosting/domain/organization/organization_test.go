package organization_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/platform/modules/hosting/domain/organization"
)

func TestInfrastructureStatusTransitions(t *testing.T) {
	legal := []struct {
		from, to organization.InfrastructureStatus
	}{
		{organization.StatusPending, organization.StatusProvisioning},
		{organization.StatusProvisioning, organization.StatusActive},
		{organization.StatusProvisioning, organization.StatusFailed},
		{organization.StatusActive, organization.StatusDeleting},
		{organization.StatusFailed, organization.StatusDeleting},
		{organization.StatusDeleting, organization.StatusPending},
		{organization.StatusDeleting, organization.StatusFailed},
	}
	for _, tc := range legal {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	illegal := []struct {
		from, to organization.InfrastructureStatus
	}{
		{organization.StatusPending, organization.StatusActive},
		{organization.StatusPending, organization.StatusDeleting},
		{organization.StatusActive, organization.StatusProvisioning},
		{organization.StatusActive, organization.StatusPending},
		{organization.StatusFailed, organization.StatusProvisioning},
		{organization.StatusDeleting, organization.StatusActive},
		{organization.StatusProvisioning, organization.StatusPending},
	}
	for _, tc := range illegal {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSetInfrastructureStatus_RejectsIllegalTransition(t *testing.T) {
	org := organization.New("Acme", "acme")

	assert.False(t, org.SetInfrastructureStatus(organization.StatusActive))
	assert.Equal(t, organization.StatusPending, org.InfrastructureStatus())

	assert.True(t, org.SetInfrastructureStatus(organization.StatusProvisioning))
	assert.True(t, org.SetInfrastructureStatus(organization.StatusActive))
}

func TestReservedSubdomains(t *testing.T) {
	for _, sub := range []string{"www", "app", "api", "admin", "mail", "ftp", "blog", "shop", "store"} {
		assert.True(t, organization.IsReservedSubdomain(sub), sub)
	}
	assert.False(t, organization.IsReservedSubdomain("acme"))
}

func TestClearInfrastructure(t *testing.T) {
	org := organization.New("Acme", "acme",
		organization.WithSubdomain("acme"),
		organization.WithCustomDomain("acmestore.com"),
		organization.WithDomainVerified(true),
	)
	org.SetS3BucketName("acme-storefront")
	org.SetCloudfrontDistribution("E1", "d1.cloudfront.net")
	org.SetRoute53RecordID("acme.storekit.app")
	org.SetCertificate("arn:aws:acm:::certificate/c1", []organization.ValidationRecord{
		{Name: "_abc.acmestore.com", Type: "CNAME", Value: "_abc.acm-validations.aws."},
	})

	org.ClearInfrastructure()

	assert.Nil(t, org.S3BucketName())
	assert.Nil(t, org.CloudfrontDistributionID())
	assert.Nil(t, org.CloudfrontDomainName())
	assert.Nil(t, org.Route53RecordID())
	assert.Nil(t, org.CertificateARN())
	assert.Empty(t, org.ValidationRecords())
	assert.False(t, org.DomainVerified())

	// The domain assignment itself survives teardown.
	require.NotNil(t, org.CustomDomain())
	assert.Equal(t, "acmestore.com", *org.CustomDomain())
}

func TestSetCertificateResetsVerification(t *testing.T) {
	org := organization.New("Acme", "acme", organization.WithDomainVerified(true))
	org.SetCertificate("arn:aws:acm:::certificate/c1", nil)
	assert.False(t, org.DomainVerified())
}
