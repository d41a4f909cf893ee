package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/storekit/platform/modules/hosting/presentation/controllers/dtos"
	"github.com/storekit/platform/modules/hosting/services"
	"github.com/storekit/platform/pkg/application"
	"github.com/storekit/platform/pkg/configuration"
	"github.com/storekit/platform/pkg/httpapi"
	"github.com/storekit/platform/pkg/middleware"
)

// InfrastructureController exposes the admin surface for provisioning tenant
// infrastructure and managing custom domains.
type InfrastructureController struct {
	app          application.Application
	provisioning *services.ProvisioningService
	certificates *services.CertificateService
	basePath     string
}

func NewInfrastructureController(app application.Application) application.Controller {
	return &InfrastructureController{
		app:          app,
		provisioning: app.Service(services.ProvisioningService{}).(*services.ProvisioningService),
		certificates: app.Service(services.CertificateService{}).(*services.CertificateService),
		basePath:     "/api/organizations/{organizationId}",
	}
}

func (c *InfrastructureController) Key() string {
	return c.basePath
}

func (c *InfrastructureController) Register(r *mux.Router) {
	conf := configuration.Use()
	router := r.PathPrefix(c.basePath).Subrouter()

	// Provisioning drives slow cloud mutations, so it gets a tighter limit
	// than the rest of the API.
	provisionLimit := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerPeriod: conf.RateLimit.ProvisioningRequests,
		Period:            conf.RateLimit.ProvisioningPeriod,
		KeyFunc:           middleware.EndpointKeyFunc("infrastructure"),
	})
	provisioning := router.NewRoute().Subrouter()
	provisioning.Use(provisionLimit)
	provisioning.HandleFunc("/provision", c.Provision).Methods(http.MethodPost)
	provisioning.HandleFunc("/deprovision", c.Deprovision).Methods(http.MethodDelete)

	router.HandleFunc("/custom-domain", c.RequestCustomDomain).Methods(http.MethodPost)
	router.HandleFunc("/attach-custom-domain", c.AttachCustomDomain).Methods(http.MethodPost)
	router.HandleFunc("/certificate-status", c.CertificateStatus).Methods(http.MethodGet)
	router.HandleFunc("/domain-status", c.DomainStatus).Methods(http.MethodGet)
}

func (c *InfrastructureController) Provision(w http.ResponseWriter, r *http.Request) {
	id, ok := organizationID(w, r)
	if !ok {
		return
	}
	result, err := c.provisioning.Provision(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewProvisionResponse(result))
}

func (c *InfrastructureController) Deprovision(w http.ResponseWriter, r *http.Request) {
	id, ok := organizationID(w, r)
	if !ok {
		return
	}
	if err := c.provisioning.Deprovision(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.MessageResponse{Message: "infrastructure deprovisioned"})
}

func (c *InfrastructureController) RequestCustomDomain(w http.ResponseWriter, r *http.Request) {
	id, ok := organizationID(w, r)
	if !ok {
		return
	}
	var req dtos.CustomDomainRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := c.certificates.RequestCustomDomainCertificate(r.Context(), id, req.Domain)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewCustomDomainResponse(result))
}

func (c *InfrastructureController) AttachCustomDomain(w http.ResponseWriter, r *http.Request) {
	id, ok := organizationID(w, r)
	if !ok {
		return
	}
	result, err := c.certificates.AttachCustomDomainToDistribution(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewAttachCustomDomainResponse(result))
}

func (c *InfrastructureController) CertificateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := organizationID(w, r)
	if !ok {
		return
	}
	result, err := c.certificates.CheckCertificateStatus(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewCustomDomainResponse(result))
}

func (c *InfrastructureController) DomainStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := organizationID(w, r)
	if !ok {
		return
	}
	status, err := c.certificates.GetDomainStatus(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewDomainStatusResponse(status))
}
