package services

import (
	"errors"

	"github.com/storekit/platform/modules/hosting/infrastructure/persistence"
	"github.com/storekit/platform/pkg/serrors"
)

var (
	ErrOrganizationNotFound = serrors.NewError("ORG_NOT_FOUND", "organization not found", nil)
	ErrValidation           = serrors.NewError("VALIDATION_ERROR", "invalid input", nil)
	ErrAccessDenied         = serrors.NewError("ACCESS_DENIED", "access denied", nil)
	// ErrProvisioningConflict guards against two overlapping infrastructure
	// runs for the same organization.
	ErrProvisioningConflict = serrors.NewError("PROVISIONING_CONFLICT", "an infrastructure operation is already running for this organization", nil)
	ErrProvisioningFailed   = serrors.NewError("PROVISIONING_FAILED", "infrastructure provisioning failed", nil)
	// ErrConfiguration aborts provisioning before any resource is touched.
	ErrConfiguration       = serrors.NewError("CONFIGURATION_ERROR", "hosting configuration is incomplete", nil)
	ErrCertificateNotReady = serrors.NewError("CERTIFICATE_NOT_READY", "certificate is not issued yet", nil)
	ErrNoCertificate       = serrors.NewError("NO_CERTIFICATE", "no certificate has been requested for this organization", nil)
)

func isOrganizationMissing(err error) bool {
	return errors.Is(err, persistence.ErrOrganizationNotFound)
}
