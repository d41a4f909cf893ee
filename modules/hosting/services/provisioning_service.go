package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/storekit/platform/modules/hosting/domain/cloud"
	"github.com/storekit/platform/modules/hosting/domain/organization"
	awsinfra "github.com/storekit/platform/modules/hosting/infrastructure/aws"
	"github.com/storekit/platform/pkg/composables"
	"github.com/storekit/platform/pkg/eventbus"
)

type ProvisioningConfig struct {
	Region                 string
	BaseDomain             string
	TemplateBucket         string
	BucketSuffix           string
	WildcardCertificateARN string
}

// ProvisioningService drives the end-to-end create/destroy sequence for a
// tenant's cloud resource set. Failed runs are reported, not compensated:
// resources created by earlier steps stay behind as visible partial state so
// operators can inspect and re-run deprovision.
type ProvisioningService struct {
	repo      organization.Repository
	store     cloud.ObjectStore
	cdn       cloud.CDN
	dns       cloud.DNSZone
	certs     cloud.CertificateAuthority
	publisher eventbus.EventBus
	config    ProvisioningConfig

	// locks serializes infrastructure runs per organization. Two overlapping
	// runs for one tenant would race on the same resource identifier fields.
	locks sync.Map
}

func NewProvisioningService(
	repo organization.Repository,
	store cloud.ObjectStore,
	cdn cloud.CDN,
	dns cloud.DNSZone,
	certs cloud.CertificateAuthority,
	publisher eventbus.EventBus,
	config ProvisioningConfig,
) *ProvisioningService {
	return &ProvisioningService{
		repo:      repo,
		store:     store,
		cdn:       cdn,
		dns:       dns,
		certs:     certs,
		publisher: publisher,
		config:    config,
	}
}

// ProvisionResult mirrors what the admin API reports back after a run.
type ProvisionResult struct {
	S3BucketName             string
	CloudfrontDistributionID string
	CloudfrontDomain         string
	Route53RecordID          string
}

type provisionState struct {
	org       *organization.Organization
	bucket    string
	oacID     string
	dist      *cloud.Distribution
	dnsRecord string
}

type provisionStep struct {
	name string
	run  func(ctx context.Context, st *provisionState) error
}

func (s *ProvisioningService) Provision(ctx context.Context, orgID uuid.UUID) (*ProvisionResult, error) {
	unlock, ok := s.tryLock(orgID)
	if !ok {
		return nil, ErrProvisioningConflict
	}
	defer unlock()

	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	// Nothing is touched until configuration is known to be complete.
	if s.config.WildcardCertificateARN == "" {
		return nil, ErrConfiguration.WithMessage("no wildcard certificate configured for subdomain hosting")
	}

	if !org.SetInfrastructureStatus(organization.StatusProvisioning) {
		return nil, ErrValidation.WithMessage(
			fmt.Sprintf("cannot provision infrastructure in status %q", org.InfrastructureStatus()),
		)
	}
	if err := s.save(ctx, org); err != nil {
		return nil, err
	}

	st := &provisionState{
		org:    org,
		bucket: s.BucketName(org.Slug()),
	}

	steps := []provisionStep{
		{"create-bucket", s.stepCreateBucket},
		{"block-public-access", s.stepBlockPublicAccess},
		{"deploy-template", s.stepDeployTemplate},
		{"create-origin-access-control", s.stepCreateOAC},
		{"create-distribution", s.stepCreateDistribution},
		{"set-bucket-policy", s.stepSetBucketPolicy},
		{"create-dns-alias", s.stepCreateDNSAlias},
	}

	for _, step := range steps {
		if err := step.run(ctx, st); err != nil {
			return nil, s.fail(ctx, st.org, step.name, err)
		}
	}

	st.org.SetInfrastructureStatus(organization.StatusActive)
	if err := s.save(ctx, st.org); err != nil {
		return nil, err
	}

	s.publisher.Publish(&organization.ProvisionedEvent{
		OrganizationID: org.ID(),
		BucketName:     st.bucket,
		DistributionID: st.dist.ID,
	})

	return &ProvisionResult{
		S3BucketName:             st.bucket,
		CloudfrontDistributionID: st.dist.ID,
		CloudfrontDomain:         st.dist.DomainName,
		Route53RecordID:          st.dnsRecord,
	}, nil
}

func (s *ProvisioningService) stepCreateBucket(ctx context.Context, st *provisionState) error {
	if err := s.store.CreateBucket(ctx, cloud.CreateBucketRequest{
		Bucket: st.bucket,
		Region: s.config.Region,
	}); err != nil {
		return err
	}
	st.org.SetS3BucketName(st.bucket)
	return s.save(ctx, st.org)
}

func (s *ProvisioningService) stepBlockPublicAccess(ctx context.Context, st *provisionState) error {
	// Object access must flow only through the CDN.
	return s.store.BlockPublicAccess(ctx, st.bucket)
}

// stepDeployTemplate is best-effort: an empty storefront bucket is
// recoverable later with a re-sync, a dead run is not.
func (s *ProvisioningService) stepDeployTemplate(ctx context.Context, st *provisionState) error {
	result, err := s.DeployTemplateMarket(ctx, st.bucket)
	if err != nil || !result.Success {
		composables.UseLogger(ctx).
			WithError(err).
			WithField("bucket", st.bucket).
			Warn("template market copy failed; continuing with empty bucket")
	}
	return nil
}

func (s *ProvisioningService) stepCreateOAC(ctx context.Context, st *provisionState) error {
	id, err := s.cdn.CreateOriginAccessControl(ctx, cloud.CreateOACRequest{
		Name:        fmt.Sprintf("%s-oac", st.bucket),
		Description: fmt.Sprintf("Origin access control for %s", st.bucket),
	})
	if err != nil {
		return err
	}
	st.oacID = id
	return nil
}

func (s *ProvisioningService) stepCreateDistribution(ctx context.Context, st *provisionState) error {
	var aliases []string
	if sub := st.org.Subdomain(); sub != nil {
		aliases = append(aliases, fmt.Sprintf("%s.%s", *sub, s.config.BaseDomain))
	}

	dist, err := s.cdn.CreateDistribution(ctx, cloud.CreateDistributionRequest{
		Comment:               fmt.Sprintf("Storefront for %s", st.org.Slug()),
		OriginBucket:          s.bucketOriginDomain(st.bucket),
		OriginAccessControlID: st.oacID,
		Aliases:               aliases,
		CertificateARN:        s.config.WildcardCertificateARN,
		DefaultRootObject:     "index.html",
		SPAFallback:           true,
	})
	if err != nil {
		return err
	}
	st.dist = dist
	st.org.SetCloudfrontDistribution(dist.ID, dist.DomainName)
	return s.save(ctx, st.org)
}

// stepSetBucketPolicy grants read access to the CDN service principal scoped
// to this one distribution; combined with the public access block this keeps
// the bucket private yet servable.
func (s *ProvisioningService) stepSetBucketPolicy(ctx context.Context, st *provisionState) error {
	return s.store.SetBucketPolicy(ctx, cloud.SetBucketPolicyRequest{
		Bucket: st.bucket,
		Policy: distributionBucketPolicy(st.bucket, st.dist.ARN),
	})
}

func (s *ProvisioningService) stepCreateDNSAlias(ctx context.Context, st *provisionState) error {
	sub := st.org.Subdomain()
	if sub == nil {
		return nil
	}
	recordID, err := s.dns.UpsertAlias(ctx, cloud.AliasRequest{
		Name:   fmt.Sprintf("%s.%s", *sub, s.config.BaseDomain),
		Target: st.dist.DomainName,
	})
	if err != nil {
		return err
	}
	st.dnsRecord = recordID
	st.org.SetRoute53RecordID(recordID)
	return s.save(ctx, st.org)
}

// Deprovision reverses provisioning. Every delete tolerates resources that
// are already gone, so re-running after a partial failure is safe.
func (s *ProvisioningService) Deprovision(ctx context.Context, orgID uuid.UUID) error {
	unlock, ok := s.tryLock(orgID)
	if !ok {
		return ErrProvisioningConflict
	}
	defer unlock()

	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return err
	}

	// A second deprovision on an already clean tenant is a no-op.
	if org.InfrastructureStatus() == organization.StatusPending && org.S3BucketName() == nil {
		return nil
	}

	if !org.SetInfrastructureStatus(organization.StatusDeleting) {
		return ErrValidation.WithMessage(
			fmt.Sprintf("cannot deprovision infrastructure in status %q", org.InfrastructureStatus()),
		)
	}
	if err := s.save(ctx, org); err != nil {
		return err
	}

	if org.Route53RecordID() != nil && org.CloudfrontDomainName() != nil {
		if err := s.dns.DeleteAlias(ctx, cloud.AliasRequest{
			Name:   *org.Route53RecordID(),
			Target: *org.CloudfrontDomainName(),
		}); err != nil {
			return s.fail(ctx, org, "delete-dns-alias", err)
		}
	}

	if distID := org.CloudfrontDistributionID(); distID != nil {
		if err := s.teardownDistribution(ctx, *distID); err != nil {
			return s.fail(ctx, org, "delete-distribution", err)
		}
	}

	if bucket := org.S3BucketName(); bucket != nil {
		if err := s.emptyBucket(ctx, *bucket); err != nil {
			return s.fail(ctx, org, "empty-bucket", err)
		}
		if err := s.store.DeleteBucket(ctx, *bucket); err != nil && !isGone(err) {
			return s.fail(ctx, org, "delete-bucket", err)
		}
	}

	if arn := org.CertificateARN(); arn != nil {
		if err := s.certs.DeleteCertificate(ctx, *arn); err != nil && !isGone(err) {
			return s.fail(ctx, org, "delete-certificate", err)
		}
	}

	org.ClearInfrastructure()
	org.SetInfrastructureStatus(organization.StatusPending)
	if err := s.save(ctx, org); err != nil {
		return err
	}

	s.publisher.Publish(&organization.DeprovisionedEvent{OrganizationID: org.ID()})
	return nil
}

func (s *ProvisioningService) teardownDistribution(ctx context.Context, distID string) error {
	dist, err := s.cdn.GetDistribution(ctx, distID)
	if err != nil {
		if isGone(err) {
			return nil
		}
		return err
	}
	if dist.Enabled {
		// Disabling propagates asynchronously on the provider side; the
		// delete below may still be rejected until propagation finishes.
		if err := s.cdn.DisableDistribution(ctx, distID); err != nil {
			return err
		}
	}
	if err := s.cdn.DeleteDistribution(ctx, distID); err != nil && !isGone(err) {
		return err
	}
	return nil
}

func (s *ProvisioningService) emptyBucket(ctx context.Context, bucket string) error {
	token := ""
	for {
		page, err := s.store.ListObjects(ctx, cloud.ListObjectsRequest{
			Bucket:            bucket,
			ContinuationToken: token,
			MaxKeys:           1000,
		})
		if err != nil {
			if isGone(err) {
				return nil
			}
			return err
		}
		if len(page.Keys) > 0 {
			if err := s.store.DeleteObjects(ctx, bucket, page.Keys); err != nil {
				return err
			}
		}
		if !page.IsTruncated {
			return nil
		}
		token = page.NextContinuationToken
	}
}

const templateCopyConcurrency = 8

// TemplateDeployResult reports a template market copy.
type TemplateDeployResult struct {
	Success     bool
	FilesCopied int
}

// DeployTemplateMarket copies the shared template bucket into the given
// tenant bucket, a few objects at a time. An empty source is reported, not
// raised, so callers can decide whether it matters.
func (s *ProvisioningService) DeployTemplateMarket(ctx context.Context, bucket string) (*TemplateDeployResult, error) {
	var copied atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(templateCopyConcurrency)

	token := ""
	for {
		page, err := s.store.ListObjects(ctx, cloud.ListObjectsRequest{
			Bucket:            s.config.TemplateBucket,
			ContinuationToken: token,
			MaxKeys:           1000,
		})
		if err != nil {
			return nil, err
		}
		for _, key := range page.Keys {
			key := key
			g.Go(func() error {
				if err := s.store.CopyObject(gctx, cloud.CopyObjectRequest{
					SourceBucket: s.config.TemplateBucket,
					SourceKey:    key,
					DestBucket:   bucket,
					DestKey:      key,
				}); err != nil {
					return err
				}
				copied.Add(1)
				return nil
			})
		}
		if !page.IsTruncated {
			break
		}
		token = page.NextContinuationToken
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := int(copied.Load())
	return &TemplateDeployResult{Success: n > 0, FilesCopied: n}, nil
}

// BucketName derives the deterministic bucket name for a tenant slug.
func (s *ProvisioningService) BucketName(slug string) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(slug), s.config.BucketSuffix)
}

func (s *ProvisioningService) bucketOriginDomain(bucket string) string {
	return fmt.Sprintf("%s.s3.%s.amazonaws.com", bucket, s.config.Region)
}

func (s *ProvisioningService) getOrganization(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isOrganizationMissing(err) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return org, nil
}

func (s *ProvisioningService) save(ctx context.Context, org *organization.Organization) error {
	_, err := s.repo.Update(ctx, org)
	return err
}

// fail parks the record at failed and reports which step broke. Resources
// created by earlier steps are left in place on purpose.
func (s *ProvisioningService) fail(ctx context.Context, org *organization.Organization, step string, cause error) error {
	composables.UseLogger(ctx).
		WithError(cause).
		WithField("organization_id", org.ID()).
		WithField("step", step).
		Error("infrastructure operation failed")

	org.SetInfrastructureStatus(organization.StatusFailed)
	if saveErr := s.save(ctx, org); saveErr != nil {
		composables.UseLogger(ctx).WithError(saveErr).Error("failed to persist failed status")
	}

	s.publisher.Publish(&organization.ProvisioningFailedEvent{
		OrganizationID: org.ID(),
		Step:           step,
		Err:            cause,
	})

	return ErrProvisioningFailed.WithMeta(map[string]string{
		"step":  step,
		"error": cause.Error(),
	})
}

func (s *ProvisioningService) tryLock(orgID uuid.UUID) (func(), bool) {
	actual, _ := s.locks.LoadOrStore(orgID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}

func distributionBucketPolicy(bucket, distributionARN string) string {
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Sid": "AllowCloudFrontServicePrincipal",
      "Effect": "Allow",
      "Principal": {"Service": "cloudfront.amazonaws.com"},
      "Action": "s3:GetObject",
      "Resource": "arn:aws:s3:::%s/*",
      "Condition": {"StringEquals": {"AWS:SourceArn": "%s"}}
    }
  ]
}`, bucket, distributionARN)
}

func isGone(err error) bool {
	return awsinfra.IsNotFound(err)
}
