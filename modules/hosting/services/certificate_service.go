package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/storekit/platform/modules/hosting/domain/cloud"
	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/pkg/composables"
	"github.com/storekit/platform/pkg/eventbus"
)

var domainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

type CertificateConfig struct {
	BaseDomain string
	// DescribeInterval / DescribeAttempts control the short poll after a
	// certificate request while the authority populates validation records.
	DescribeInterval time.Duration
	DescribeAttempts int
	// ReconcileInterval gates the background loop that attaches certificates
	// once they issue. Zero disables it.
	ReconcileInterval time.Duration
}

// CertificateService manages custom-domain certificates: requesting them,
// surfacing the DNS validation records the tenant must publish, and attaching
// issued certificates to the tenant's distribution.
type CertificateService struct {
	repo      organization.Repository
	certs     cloud.CertificateAuthority
	cdn       cloud.CDN
	publisher eventbus.EventBus
	config    CertificateConfig
}

func NewCertificateService(
	repo organization.Repository,
	certs cloud.CertificateAuthority,
	cdn cloud.CDN,
	publisher eventbus.EventBus,
	config CertificateConfig,
) *CertificateService {
	if config.DescribeInterval == 0 {
		config.DescribeInterval = 2 * time.Second
	}
	if config.DescribeAttempts == 0 {
		config.DescribeAttempts = 5
	}
	return &CertificateService{
		repo:      repo,
		certs:     certs,
		cdn:       cdn,
		publisher: publisher,
		config:    config,
	}
}

// CustomDomainResult is returned after a certificate request so the caller
// can publish the validation CNAMEs at their DNS provider.
type CustomDomainResult struct {
	CertificateARN    string
	Status            string
	ValidationRecords []organization.ValidationRecord
}

// RequestCustomDomainCertificate requests a DNS-validated certificate that
// covers the apex and its www variant, then records the domain and the
// validation CNAMEs on the organization.
func (s *CertificateService) RequestCustomDomainCertificate(ctx context.Context, orgID uuid.UUID, domain string) (*CustomDomainResult, error) {
	domain, err := s.normalizeDomain(domain)
	if err != nil {
		return nil, err
	}

	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	apex, www := domainPair(domain)
	arn, err := s.certs.RequestCertificate(ctx, cloud.RequestCertificateRequest{
		DomainName:              apex,
		SubjectAlternativeNames: []string{www},
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.describeWithRecords(ctx, arn)
	if err != nil {
		return nil, err
	}
	records := toValidationRecords(detail.ValidationRecords)

	org.SetCustomDomain(domain)
	org.SetCertificate(arn, records)
	if _, err := s.repo.Update(ctx, org); err != nil {
		return nil, err
	}

	return &CustomDomainResult{
		CertificateARN:    arn,
		Status:            detail.Status,
		ValidationRecords: records,
	}, nil
}

// describeWithRecords polls until the authority reports validation records.
// They appear within seconds of the request but not always on the first read.
func (s *CertificateService) describeWithRecords(ctx context.Context, arn string) (*cloud.CertificateDetail, error) {
	var detail *cloud.CertificateDetail
	for attempt := 0; attempt < s.config.DescribeAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.config.DescribeInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		var err error
		detail, err = s.certs.DescribeCertificate(ctx, arn)
		if err != nil {
			return nil, err
		}
		if len(detail.ValidationRecords) > 0 {
			return detail, nil
		}
	}
	return detail, nil
}

// CheckCertificateStatus re-reads the certificate from the authority and
// refreshes the stored validation record statuses.
func (s *CertificateService) CheckCertificateStatus(ctx context.Context, orgID uuid.UUID) (*CustomDomainResult, error) {
	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	arn := org.CertificateARN()
	if arn == nil {
		return nil, ErrNoCertificate
	}

	detail, err := s.certs.DescribeCertificate(ctx, *arn)
	if err != nil {
		return nil, err
	}
	records := toValidationRecords(detail.ValidationRecords)
	org.SetCertificate(*arn, records)
	if _, err := s.repo.Update(ctx, org); err != nil {
		return nil, err
	}

	return &CustomDomainResult{
		CertificateARN:    *arn,
		Status:            detail.Status,
		ValidationRecords: records,
	}, nil
}

// AttachResult reports the distribution that now serves the custom domain.
type AttachResult struct {
	CloudfrontDomain string
}

// AttachCustomDomainToDistribution adds the custom domain and its www variant
// as distribution aliases backed by the issued certificate. Refused while the
// certificate has any other status.
func (s *CertificateService) AttachCustomDomainToDistribution(ctx context.Context, orgID uuid.UUID) (*AttachResult, error) {
	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	domain := org.CustomDomain()
	if domain == nil {
		return nil, ErrValidation.WithMessage("organization has no custom domain configured")
	}
	arn := org.CertificateARN()
	if arn == nil {
		return nil, ErrNoCertificate
	}
	distID := org.CloudfrontDistributionID()
	if distID == nil {
		return nil, ErrValidation.WithMessage("organization has no distribution; provision infrastructure first")
	}

	detail, err := s.certs.DescribeCertificate(ctx, *arn)
	if err != nil {
		return nil, err
	}
	if detail.Status != cloud.CertStatusIssued {
		return nil, ErrCertificateNotReady.
			WithMessage(fmt.Sprintf("certificate is not issued yet (status: %s)", detail.Status)).
			WithMeta(map[string]string{"status": detail.Status})
	}

	dist, err := s.cdn.GetDistribution(ctx, *distID)
	if err != nil {
		return nil, err
	}
	apex, www := domainPair(*domain)
	aliases := lo.Uniq(append(dist.Aliases, apex, www))
	if err := s.cdn.UpdateDistribution(ctx, cloud.UpdateDistributionRequest{
		ID:             *distID,
		Aliases:        aliases,
		CertificateARN: *arn,
	}); err != nil {
		return nil, err
	}

	org.MarkDomainVerified()
	if _, err := s.repo.Update(ctx, org); err != nil {
		return nil, err
	}

	s.publisher.Publish(&organization.CertificateIssuedEvent{
		OrganizationID: org.ID(),
		CertificateARN: *arn,
		CustomDomain:   *domain,
	})
	return &AttachResult{CloudfrontDomain: dist.DomainName}, nil
}

// DomainStatus is the aggregated hosting view for one tenant.
type DomainStatus struct {
	Subdomain            *string
	SubdomainURL         string
	CustomDomain         *string
	CloudfrontDomain     *string
	DomainVerified       bool
	CertificateARN       *string
	CertificateStatus    string
	ValidationRecords    []organization.ValidationRecord
	InfrastructureStatus organization.InfrastructureStatus
}

// GetDomainStatus reports everything the dashboard needs about a tenant's
// domains in one call. The certificate status is read live when a
// certificate exists.
func (s *CertificateService) GetDomainStatus(ctx context.Context, orgID uuid.UUID) (*DomainStatus, error) {
	org, err := s.getOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	status := &DomainStatus{
		Subdomain:            org.Subdomain(),
		CustomDomain:         org.CustomDomain(),
		CloudfrontDomain:     org.CloudfrontDomainName(),
		DomainVerified:       org.DomainVerified(),
		CertificateARN:       org.CertificateARN(),
		ValidationRecords:    org.ValidationRecords(),
		InfrastructureStatus: org.InfrastructureStatus(),
	}
	if sub := org.Subdomain(); sub != nil {
		status.SubdomainURL = fmt.Sprintf("https://%s.%s", *sub, s.config.BaseDomain)
	}
	if arn := org.CertificateARN(); arn != nil {
		detail, err := s.certs.DescribeCertificate(ctx, *arn)
		if err != nil {
			return nil, err
		}
		status.CertificateStatus = detail.Status
		status.ValidationRecords = toValidationRecords(detail.ValidationRecords)
	}
	return status, nil
}

// RunReconciler attaches certificates as they issue so tenants do not need to
// click attach after publishing their CNAMEs. Blocks until ctx is done.
func (s *CertificateService) RunReconciler(ctx context.Context) {
	if s.config.ReconcileInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.ReconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcileOnce(ctx)
		}
	}
}

func (s *CertificateService) reconcileOnce(ctx context.Context) {
	logger := composables.UseLogger(ctx)
	orgs, err := s.repo.List(ctx)
	if err != nil {
		logger.WithError(err).Error("certificate reconciler: listing organizations failed")
		return
	}
	for _, org := range orgs {
		if org.CertificateARN() == nil || org.DomainVerified() {
			continue
		}
		detail, err := s.certs.DescribeCertificate(ctx, *org.CertificateARN())
		if err != nil {
			logger.WithError(err).
				WithField("organization_id", org.ID()).
				Warn("certificate reconciler: describe failed")
			continue
		}
		if detail.Status != cloud.CertStatusIssued {
			continue
		}
		if _, err := s.AttachCustomDomainToDistribution(ctx, org.ID()); err != nil {
			logger.WithError(err).
				WithField("organization_id", org.ID()).
				Warn("certificate reconciler: attach failed")
		}
	}
}

// normalizeDomain lowercases the submitted host but keeps it otherwise
// intact: the stored value must match the Host header tenants will hit.
func (s *CertificateService) normalizeDomain(domain string) (string, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if !domainPattern.MatchString(domain) {
		return "", ErrValidation.WithMessage(fmt.Sprintf("invalid custom domain %q", domain))
	}
	if strings.TrimPrefix(domain, "www.") == s.config.BaseDomain {
		return "", ErrValidation.WithMessage("custom domain cannot be the platform domain")
	}
	return domain, nil
}

// domainPair returns the apex and www variants regardless of which form the
// tenant submitted; certificates and aliases always cover both.
func domainPair(domain string) (apex, www string) {
	apex = strings.TrimPrefix(domain, "www.")
	return apex, "www." + apex
}

func (s *CertificateService) getOrganization(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isOrganizationMissing(err) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return org, nil
}

func toValidationRecords(records []cloud.CertificateValidationRecord) []organization.ValidationRecord {
	return lo.Map(records, func(r cloud.CertificateValidationRecord, _ int) organization.ValidationRecord {
		return organization.ValidationRecord{
			Name:   r.Name,
			Type:   r.Type,
			Value:  r.Value,
			Status: r.Status,
		}
	})
}
