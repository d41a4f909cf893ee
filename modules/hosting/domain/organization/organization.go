package organization

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InfrastructureStatus tracks the lifecycle of a tenant's cloud resource set.
// Happy path: pending -> provisioning -> active. Failure parks the record at
// failed; teardown goes active|failed -> deleting -> pending with all
// resource identifiers cleared.
type InfrastructureStatus string

const (
	StatusPending      InfrastructureStatus = "pending"
	StatusProvisioning InfrastructureStatus = "provisioning"
	StatusActive       InfrastructureStatus = "active"
	StatusFailed       InfrastructureStatus = "failed"
	StatusDeleting     InfrastructureStatus = "deleting"
)

func (s InfrastructureStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProvisioning, StatusActive, StatusFailed, StatusDeleting:
		return true
	}
	return false
}

// CanTransitionTo enforces the status state machine.
func (s InfrastructureStatus) CanTransitionTo(next InfrastructureStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProvisioning
	case StatusProvisioning:
		return next == StatusActive || next == StatusFailed
	case StatusActive, StatusFailed:
		return next == StatusDeleting
	case StatusDeleting:
		// A teardown step can break partway; failed keeps the retry path open.
		return next == StatusPending || next == StatusFailed
	}
	return false
}

// ValidationRecord is a DNS CNAME the certificate authority requires to be
// published before issuing a custom-domain certificate.
type ValidationRecord struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Value  string `json:"value"`
	Status string `json:"status"`
}

// reservedSubdomains are never assignable regardless of database state.
var reservedSubdomains = map[string]struct{}{
	"www":   {},
	"app":   {},
	"api":   {},
	"admin": {},
	"mail":  {},
	"ftp":   {},
	"blog":  {},
	"shop":  {},
	"store": {},
}

func IsReservedSubdomain(sub string) bool {
	_, ok := reservedSubdomains[sub]
	return ok
}

type Organization struct {
	id             uuid.UUID
	name           string
	slug           string
	subdomain      *string
	customDomain   *string
	domainVerified bool

	s3BucketName             *string
	cloudfrontDistributionID *string
	cloudfrontDomainName     *string
	route53RecordID          *string

	certificateARN    *string
	validationRecords []ValidationRecord

	infrastructureStatus InfrastructureStatus
	settings             json.RawMessage

	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Organization)

func WithID(id uuid.UUID) Option {
	return func(o *Organization) {
		o.id = id
	}
}

func WithSubdomain(subdomain string) Option {
	return func(o *Organization) {
		o.subdomain = &subdomain
	}
}

func WithCustomDomain(domain string) Option {
	return func(o *Organization) {
		o.customDomain = &domain
	}
}

func WithDomainVerified(verified bool) Option {
	return func(o *Organization) {
		o.domainVerified = verified
	}
}

func WithS3BucketName(name *string) Option {
	return func(o *Organization) {
		o.s3BucketName = name
	}
}

func WithCloudfrontDistributionID(id *string) Option {
	return func(o *Organization) {
		o.cloudfrontDistributionID = id
	}
}

func WithCloudfrontDomainName(name *string) Option {
	return func(o *Organization) {
		o.cloudfrontDomainName = name
	}
}

func WithRoute53RecordID(id *string) Option {
	return func(o *Organization) {
		o.route53RecordID = id
	}
}

func WithCertificateARN(arn *string) Option {
	return func(o *Organization) {
		o.certificateARN = arn
	}
}

func WithValidationRecords(records []ValidationRecord) Option {
	return func(o *Organization) {
		o.validationRecords = records
	}
}

func WithInfrastructureStatus(status InfrastructureStatus) Option {
	return func(o *Organization) {
		o.infrastructureStatus = status
	}
}

func WithSettings(settings json.RawMessage) Option {
	return func(o *Organization) {
		o.settings = settings
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(o *Organization) {
		o.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(o *Organization) {
		o.updatedAt = updatedAt
	}
}

func New(name, slug string, opts ...Option) *Organization {
	o := &Organization{
		id:                   uuid.New(),
		name:                 name,
		slug:                 slug,
		infrastructureStatus: StatusPending,
		createdAt:            time.Now(),
		updatedAt:            time.Now(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Organization) ID() uuid.UUID                              { return o.id }
func (o *Organization) Name() string                               { return o.name }
func (o *Organization) Slug() string                               { return o.slug }
func (o *Organization) Subdomain() *string                         { return o.subdomain }
func (o *Organization) CustomDomain() *string                      { return o.customDomain }
func (o *Organization) DomainVerified() bool                       { return o.domainVerified }
func (o *Organization) S3BucketName() *string                      { return o.s3BucketName }
func (o *Organization) CloudfrontDistributionID() *string          { return o.cloudfrontDistributionID }
func (o *Organization) CloudfrontDomainName() *string              { return o.cloudfrontDomainName }
func (o *Organization) Route53RecordID() *string                   { return o.route53RecordID }
func (o *Organization) CertificateARN() *string                    { return o.certificateARN }
func (o *Organization) ValidationRecords() []ValidationRecord      { return o.validationRecords }
func (o *Organization) InfrastructureStatus() InfrastructureStatus { return o.infrastructureStatus }
func (o *Organization) Settings() json.RawMessage                  { return o.settings }
func (o *Organization) CreatedAt() time.Time                       { return o.createdAt }
func (o *Organization) UpdatedAt() time.Time                       { return o.updatedAt }

func (o *Organization) touch() {
	o.updatedAt = time.Now()
}

// SetInfrastructureStatus applies a transition, reporting whether it is legal.
func (o *Organization) SetInfrastructureStatus(next InfrastructureStatus) bool {
	if !o.infrastructureStatus.CanTransitionTo(next) {
		return false
	}
	o.infrastructureStatus = next
	o.touch()
	return true
}

func (o *Organization) SetS3BucketName(name string) {
	o.s3BucketName = &name
	o.touch()
}

func (o *Organization) SetCloudfrontDistribution(id, domainName string) {
	o.cloudfrontDistributionID = &id
	o.cloudfrontDomainName = &domainName
	o.touch()
}

func (o *Organization) SetRoute53RecordID(id string) {
	o.route53RecordID = &id
	o.touch()
}

func (o *Organization) SetCustomDomain(domain string) {
	o.customDomain = &domain
	o.domainVerified = false
	o.touch()
}

func (o *Organization) SetCertificate(arn string, records []ValidationRecord) {
	o.certificateARN = &arn
	o.validationRecords = records
	o.domainVerified = false
	o.touch()
}

func (o *Organization) MarkDomainVerified() {
	o.domainVerified = true
	o.touch()
}

// ClearInfrastructure wipes every resource identifier after a teardown.
func (o *Organization) ClearInfrastructure() {
	o.s3BucketName = nil
	o.cloudfrontDistributionID = nil
	o.cloudfrontDomainName = nil
	o.route53RecordID = nil
	o.certificateARN = nil
	o.validationRecords = nil
	o.domainVerified = false
	o.touch()
}
