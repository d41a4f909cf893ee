package hosting

import (
	"github.com/storekit/platform/modules/hosting/domain/cloud"
	"github.com/storekit/platform/modules/hosting/infrastructure/persistence"
	"github.com/storekit/platform/modules/hosting/presentation/controllers"
	hostingmw "github.com/storekit/platform/modules/hosting/presentation/middleware"
	"github.com/storekit/platform/modules/hosting/services"
	"github.com/storekit/platform/pkg/application"
	"github.com/storekit/platform/pkg/configuration"
)

// Gateways bundles the cloud adapters this module needs. Production wiring
// passes the AWS implementations; tests pass fakes.
type Gateways struct {
	ObjectStore cloud.ObjectStore
	CDN         cloud.CDN
	DNS         cloud.DNSZone
	Certs       cloud.CertificateAuthority
}

func NewModule(gateways Gateways) application.Module {
	return &Module{gateways: gateways}
}

type Module struct {
	gateways Gateways
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	repo := persistence.NewOrganizationRepository()
	memberships := persistence.NewMembershipRepository()

	resolver := services.NewResolverService(repo, memberships, services.ResolverConfig{
		BaseDomain:      conf.Resolver.BaseDomain,
		AllowQueryParam: conf.Resolver.AllowQueryParam,
	})

	app.RegisterServices(
		services.NewOrganizationService(repo, app.EventPublisher()),
		services.NewProvisioningService(
			repo,
			m.gateways.ObjectStore,
			m.gateways.CDN,
			m.gateways.DNS,
			m.gateways.Certs,
			app.EventPublisher(),
			services.ProvisioningConfig{
				Region:                 conf.AWS.Region,
				BaseDomain:             conf.Resolver.BaseDomain,
				TemplateBucket:         conf.AWS.TemplateBucket,
				BucketSuffix:           conf.AWS.BucketSuffix,
				WildcardCertificateARN: conf.AWS.WildcardCertificateARN,
			},
		),
		services.NewCertificateService(
			repo,
			m.gateways.Certs,
			m.gateways.CDN,
			app.EventPublisher(),
			services.CertificateConfig{
				BaseDomain:        conf.Resolver.BaseDomain,
				ReconcileInterval: conf.CertReconciler.Interval,
			},
		),
		resolver,
	)

	app.RegisterMiddleware(
		hostingmw.TenantResolver(resolver, conf.Resolver.OrgHeader),
	)

	app.RegisterControllers(
		controllers.NewOrganizationController(app),
		controllers.NewInfrastructureController(app),
	)

	return nil
}

func (m *Module) Name() string {
	return "hosting"
}
