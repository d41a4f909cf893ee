package modules

import (
	"github.com/storekit/platform/modules/hosting"
	"github.com/storekit/platform/pkg/application"
)

// BuiltIn returns every module this binary ships. Gateways are injected so
// tests and local tooling can swap the cloud backends.
func BuiltIn(gateways hosting.Gateways) []application.Module {
	return []application.Module{
		hosting.NewModule(gateways),
	}
}

// Load registers the built-in modules plus any externally provided ones.
func Load(app application.Application, gateways hosting.Gateways, external ...application.Module) error {
	mods := append(BuiltIn(gateways), external...)
	return application.Load(app, mods...)
}
