package organization

import "github.com/google/uuid"

// Lifecycle events published on the application event bus.

type ProvisionedEvent struct {
	OrganizationID uuid.UUID
	BucketName     string
	DistributionID string
}

type DeprovisionedEvent struct {
	OrganizationID uuid.UUID
}

type ProvisioningFailedEvent struct {
	OrganizationID uuid.UUID
	Step           string
	Err            error
}

type CertificateIssuedEvent struct {
	OrganizationID uuid.UUID
	CustomDomain   string
	CertificateARN string
}
