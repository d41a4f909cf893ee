package dtos

import (
	"time"

	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/modules/hosting/services"
)

type CreateOrganizationRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=255"`
	Slug      string `json:"slug" validate:"required,min=2,max=63"`
	Subdomain string `json:"subdomain" validate:"omitempty,min=2,max=63"`
}

type CustomDomainRequest struct {
	Domain string `json:"domain" validate:"required,fqdn"`
}

type OrganizationResponse struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	Slug                     string    `json:"slug"`
	Subdomain                *string   `json:"subdomain,omitempty"`
	CustomDomain             *string   `json:"customDomain,omitempty"`
	DomainVerified           bool      `json:"domainVerified"`
	S3BucketName             *string   `json:"s3BucketName,omitempty"`
	CloudfrontDistributionID *string   `json:"cloudfrontDistributionId,omitempty"`
	CloudfrontDomainName     *string   `json:"cloudfrontDomainName,omitempty"`
	InfrastructureStatus     string    `json:"infrastructureStatus"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

func NewOrganizationResponse(org *organization.Organization) *OrganizationResponse {
	return &OrganizationResponse{
		ID:                       org.ID().String(),
		Name:                     org.Name(),
		Slug:                     org.Slug(),
		Subdomain:                org.Subdomain(),
		CustomDomain:             org.CustomDomain(),
		DomainVerified:           org.DomainVerified(),
		S3BucketName:             org.S3BucketName(),
		CloudfrontDistributionID: org.CloudfrontDistributionID(),
		CloudfrontDomainName:     org.CloudfrontDomainName(),
		InfrastructureStatus:     string(org.InfrastructureStatus()),
		CreatedAt:                org.CreatedAt(),
		UpdatedAt:                org.UpdatedAt(),
	}
}

// MessageResponse is the body for operations whose outcome is the status
// change itself.
type MessageResponse struct {
	Message string `json:"message"`
}

type ProvisionResponse struct {
	Message                  string `json:"message"`
	S3BucketName             string `json:"s3BucketName"`
	CloudfrontDistributionID string `json:"cloudfrontDistributionId"`
	CloudfrontDomain         string `json:"cloudfrontDomain"`
	Route53RecordID          string `json:"route53RecordId,omitempty"`
}

func NewProvisionResponse(result *services.ProvisionResult) *ProvisionResponse {
	return &ProvisionResponse{
		Message:                  "infrastructure provisioned",
		S3BucketName:             result.S3BucketName,
		CloudfrontDistributionID: result.CloudfrontDistributionID,
		CloudfrontDomain:         result.CloudfrontDomain,
		Route53RecordID:          result.Route53RecordID,
	}
}

type AttachCustomDomainResponse struct {
	Message          string `json:"message"`
	CloudfrontDomain string `json:"cloudfrontDomain"`
}

func NewAttachCustomDomainResponse(result *services.AttachResult) *AttachCustomDomainResponse {
	return &AttachCustomDomainResponse{
		Message:          "custom domain attached",
		CloudfrontDomain: result.CloudfrontDomain,
	}
}

type ValidationRecordResponse struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Value  string `json:"value"`
	Status string `json:"status,omitempty"`
}

type CustomDomainResponse struct {
	CertificateARN    string                     `json:"certificateArn"`
	Status            string                     `json:"status"`
	ValidationRecords []ValidationRecordResponse `json:"validationRecords"`
}

func NewCustomDomainResponse(result *services.CustomDomainResult) *CustomDomainResponse {
	return &CustomDomainResponse{
		CertificateARN:    result.CertificateARN,
		Status:            result.Status,
		ValidationRecords: newValidationRecords(result.ValidationRecords),
	}
}

type DomainStatusResponse struct {
	Subdomain            *string                    `json:"subdomain,omitempty"`
	SubdomainURL         string                     `json:"subdomainUrl,omitempty"`
	CustomDomain         *string                    `json:"customDomain,omitempty"`
	CloudfrontDomain     *string                    `json:"cloudfrontDomain,omitempty"`
	DomainVerified       bool                       `json:"domainVerified"`
	CertificateARN       *string                    `json:"certificateArn,omitempty"`
	CertificateStatus    string                     `json:"certificateStatus,omitempty"`
	ValidationRecords    []ValidationRecordResponse `json:"validationRecords,omitempty"`
	InfrastructureStatus string                     `json:"infrastructureStatus"`
}

func NewDomainStatusResponse(status *services.DomainStatus) *DomainStatusResponse {
	return &DomainStatusResponse{
		Subdomain:            status.Subdomain,
		SubdomainURL:         status.SubdomainURL,
		CustomDomain:         status.CustomDomain,
		CloudfrontDomain:     status.CloudfrontDomain,
		DomainVerified:       status.DomainVerified,
		CertificateARN:       status.CertificateARN,
		CertificateStatus:    status.CertificateStatus,
		ValidationRecords:    newValidationRecords(status.ValidationRecords),
		InfrastructureStatus: string(status.InfrastructureStatus),
	}
}

type SubdomainAvailabilityResponse struct {
	Subdomain string `json:"subdomain"`
	Available bool   `json:"available"`
}

func newValidationRecords(records []organization.ValidationRecord) []ValidationRecordResponse {
	out := make([]ValidationRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, ValidationRecordResponse{
			Name:   r.Name,
			Type:   r.Type,
			Value:  r.Value,
			Status: r.Status,
		})
	}
	return out
}
