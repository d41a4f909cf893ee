package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/modules/hosting/infrastructure/persistence/models"
	"github.com/storekit/platform/pkg/composables"
	"github.com/storekit/platform/pkg/mapping"
)

var (
	ErrOrganizationNotFound = fmt.Errorf("organization not found")
)

const (
	organizationFindQuery = `
		SELECT id, name, slug, subdomain, custom_domain, domain_verified,
		       s3_bucket_name, cloudfront_distribution_id, cloudfront_domain_name, route53_record_id,
		       certificate_arn, certificate_validation_records, infrastructure_status, settings,
		       created_at, updated_at
		FROM organizations`
)

type OrganizationRepository struct{}

func NewOrganizationRepository() organization.Repository {
	return &OrganizationRepository{}
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	return r.getOne(ctx, organizationFindQuery+" WHERE id = $1", id.String())
}

func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*organization.Organization, error) {
	return r.getOne(ctx, organizationFindQuery+" WHERE slug = $1", strings.ToLower(slug))
}

func (r *OrganizationRepository) GetBySubdomain(ctx context.Context, subdomain string) (*organization.Organization, error) {
	return r.getOne(ctx, organizationFindQuery+" WHERE subdomain = $1", strings.ToLower(subdomain))
}

func (r *OrganizationRepository) GetByCustomDomain(ctx context.Context, domain string) (*organization.Organization, error) {
	return r.getOne(ctx, organizationFindQuery+" WHERE custom_domain = $1", strings.ToLower(domain))
}

func (r *OrganizationRepository) getOne(ctx context.Context, query string, args ...interface{}) (*organization.Organization, error) {
	orgs, err := r.queryOrganizations(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, ErrOrganizationNotFound
	}
	return orgs[0], nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org *organization.Organization) (*organization.Organization, error) {
	query := `
		INSERT INTO organizations (
			id, name, slug, subdomain, custom_domain, domain_verified,
			s3_bucket_name, cloudfront_distribution_id, cloudfront_domain_name, route53_record_id,
			certificate_arn, certificate_validation_records, infrastructure_status, settings,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	records, err := validationRecordsJSON(org.ValidationRecords())
	if err != nil {
		return nil, err
	}

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		org.ID().String(),
		org.Name(),
		strings.ToLower(org.Slug()),
		lowerNullString(org.Subdomain()),
		lowerNullString(org.CustomDomain()),
		org.DomainVerified(),
		mapping.PointerToSQLNullString(org.S3BucketName()),
		mapping.PointerToSQLNullString(org.CloudfrontDistributionID()),
		mapping.PointerToSQLNullString(org.CloudfrontDomainName()),
		mapping.PointerToSQLNullString(org.Route53RecordID()),
		mapping.PointerToSQLNullString(org.CertificateARN()),
		records,
		string(org.InfrastructureStatus()),
		settingsJSON(org.Settings()),
		org.CreatedAt(),
		org.UpdatedAt(),
	).Scan(&idStr); err != nil {
		return nil, errors.Wrap(err, "failed to insert organization")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *OrganizationRepository) Update(ctx context.Context, org *organization.Organization) (*organization.Organization, error) {
	query := `
		UPDATE organizations
		SET name = $1, slug = $2, subdomain = $3, custom_domain = $4, domain_verified = $5,
		    s3_bucket_name = $6, cloudfront_distribution_id = $7, cloudfront_domain_name = $8,
		    route53_record_id = $9, certificate_arn = $10, certificate_validation_records = $11,
		    infrastructure_status = $12, settings = $13, updated_at = $14
		WHERE id = $15
		RETURNING id
	`
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	records, err := validationRecordsJSON(org.ValidationRecords())
	if err != nil {
		return nil, err
	}

	var idStr string
	if err := tx.QueryRow(
		ctx,
		query,
		org.Name(),
		strings.ToLower(org.Slug()),
		lowerNullString(org.Subdomain()),
		lowerNullString(org.CustomDomain()),
		org.DomainVerified(),
		mapping.PointerToSQLNullString(org.S3BucketName()),
		mapping.PointerToSQLNullString(org.CloudfrontDistributionID()),
		mapping.PointerToSQLNullString(org.CloudfrontDomainName()),
		mapping.PointerToSQLNullString(org.Route53RecordID()),
		mapping.PointerToSQLNullString(org.CertificateARN()),
		records,
		string(org.InfrastructureStatus()),
		settingsJSON(org.Settings()),
		org.UpdatedAt(),
		org.ID().String(),
	).Scan(&idStr); err != nil {
		return nil, errors.Wrap(err, "failed to update organization")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *OrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id.String())
	return err
}

func (r *OrganizationRepository) List(ctx context.Context) ([]*organization.Organization, error) {
	return r.queryOrganizations(ctx, organizationFindQuery+" ORDER BY created_at")
}

func (r *OrganizationRepository) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE subdomain = $1)`, strings.ToLower(subdomain))
}

func (r *OrganizationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE slug = $1)`, strings.ToLower(slug))
}

func (r *OrganizationRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "failed to execute exists query")
	}
	return exists, nil
}

func (r *OrganizationRepository) queryOrganizations(ctx context.Context, query string, args ...interface{}) ([]*organization.Organization, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var orgs []*organization.Organization
	for rows.Next() {
		var row models.Organization
		if err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Slug,
			&row.Subdomain,
			&row.CustomDomain,
			&row.DomainVerified,
			&row.S3BucketName,
			&row.CloudfrontDistributionID,
			&row.CloudfrontDomainName,
			&row.Route53RecordID,
			&row.CertificateARN,
			&row.ValidationRecords,
			&row.InfrastructureStatus,
			&row.Settings,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan organization row")
		}
		org, err := toDomainOrganization(&row)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}

	return orgs, nil
}

func lowerNullString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return strings.ToLower(strings.TrimSpace(*v))
}

func validationRecordsJSON(records []organization.ValidationRecord) ([]byte, error) {
	if len(records) == 0 {
		return []byte("[]"), nil
	}
	out, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal validation records")
	}
	return out, nil
}

func settingsJSON(settings json.RawMessage) []byte {
	if len(settings) == 0 {
		return []byte("{}")
	}
	return settings
}
