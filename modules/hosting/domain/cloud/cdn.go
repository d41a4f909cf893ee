package cloud

import "context"

// CDN is the capability surface over the distribution backend.
type CDN interface {
	CreateOriginAccessControl(ctx context.Context, req CreateOACRequest) (string, error)
	CreateDistribution(ctx context.Context, req CreateDistributionRequest) (*Distribution, error)
	GetDistribution(ctx context.Context, id string) (*Distribution, error)
	UpdateDistribution(ctx context.Context, req UpdateDistributionRequest) error
	// DisableDistribution flips the enabled flag; propagation is asynchronous
	// on the provider side and is not awaited.
	DisableDistribution(ctx context.Context, id string) error
	DeleteDistribution(ctx context.Context, id string) error
	CreateInvalidation(ctx context.Context, distributionID string, paths []string) error
}

type CreateOACRequest struct {
	Name        string
	Description string
}

type CreateDistributionRequest struct {
	Comment string
	// OriginBucket is the regional S3 domain of the tenant bucket.
	OriginBucket          string
	OriginAccessControlID string
	Aliases               []string
	CertificateARN        string
	// DefaultRootObject is served at the distribution root, e.g. index.html.
	DefaultRootObject string
	// SPAFallback rewrites 403/404 responses to /index.html with a 200 so
	// client-side routing works on deep links.
	SPAFallback bool
}

type Distribution struct {
	ID         string
	ARN        string
	DomainName string
	Aliases    []string
	Enabled    bool
	// CertificateARN is the viewer certificate currently attached.
	CertificateARN string
	Status         string
}

type UpdateDistributionRequest struct {
	ID             string
	Aliases        []string
	CertificateARN string
}
