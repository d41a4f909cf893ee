package persistence

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/modules/hosting/infrastructure/persistence/models"
	"github.com/storekit/platform/pkg/mapping"
)

func toDomainOrganization(row *models.Organization) (*organization.Organization, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid organization id")
	}

	var records []organization.ValidationRecord
	if len(row.ValidationRecords) > 0 {
		if err := json.Unmarshal(row.ValidationRecords, &records); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal validation records")
		}
	}

	opts := []organization.Option{
		organization.WithID(id),
		organization.WithDomainVerified(row.DomainVerified),
		organization.WithS3BucketName(mapping.SQLNullStringToPointer(row.S3BucketName)),
		organization.WithCloudfrontDistributionID(mapping.SQLNullStringToPointer(row.CloudfrontDistributionID)),
		organization.WithCloudfrontDomainName(mapping.SQLNullStringToPointer(row.CloudfrontDomainName)),
		organization.WithRoute53RecordID(mapping.SQLNullStringToPointer(row.Route53RecordID)),
		organization.WithCertificateARN(mapping.SQLNullStringToPointer(row.CertificateARN)),
		organization.WithValidationRecords(records),
		organization.WithInfrastructureStatus(organization.InfrastructureStatus(row.InfrastructureStatus)),
		organization.WithSettings(json.RawMessage(row.Settings)),
		organization.WithCreatedAt(row.CreatedAt),
		organization.WithUpdatedAt(row.UpdatedAt),
	}
	if row.Subdomain.Valid {
		opts = append(opts, organization.WithSubdomain(row.Subdomain.String))
	}
	if row.CustomDomain.Valid {
		opts = append(opts, organization.WithCustomDomain(row.CustomDomain.String))
	}

	return organization.New(row.Name, row.Slug, opts...), nil
}
