package cloud

import "context"

// DNSZone manages alias records in the platform hosted zone.
type DNSZone interface {
	UpsertAlias(ctx context.Context, req AliasRequest) (string, error)
	// DeleteAlias tolerates records that are already absent.
	DeleteAlias(ctx context.Context, req AliasRequest) error
}

type AliasRequest struct {
	// Name is the fully qualified record name, e.g. shop.storekit.app.
	Name string
	// Target is the distribution domain the alias points at.
	Target string
}
