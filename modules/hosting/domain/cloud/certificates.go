package cloud

import "context"

// Certificate statuses as reported by the certificate authority.
const (
	CertStatusPendingValidation = "PENDING_VALIDATION"
	CertStatusIssued            = "ISSUED"
	CertStatusFailed            = "FAILED"
)

// CertificateAuthority requests and inspects DNS-validated certificates.
type CertificateAuthority interface {
	RequestCertificate(ctx context.Context, req RequestCertificateRequest) (string, error)
	DescribeCertificate(ctx context.Context, arn string) (*CertificateDetail, error)
	DeleteCertificate(ctx context.Context, arn string) error
}

type RequestCertificateRequest struct {
	DomainName              string
	SubjectAlternativeNames []string
}

type CertificateDetail struct {
	ARN    string
	Status string
	// ValidationRecords are the CNAMEs the caller must publish. The authority
	// populates them asynchronously after the request; they may be empty on
	// an immediate describe.
	ValidationRecords []CertificateValidationRecord
}

type CertificateValidationRecord struct {
	Domain string
	Name   string
	Type   string
	Value  string
	Status string
}
