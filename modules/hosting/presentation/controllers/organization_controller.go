package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/storekit/platform/modules/hosting/domain/organization"
	"github.com/storekit/platform/modules/hosting/presentation/controllers/dtos"
	"github.com/storekit/platform/modules/hosting/services"
	"github.com/storekit/platform/pkg/application"
	"github.com/storekit/platform/pkg/httpapi"
)

type OrganizationController struct {
	app      application.Application
	service  *services.OrganizationService
	basePath string
}

func NewOrganizationController(app application.Application) application.Controller {
	return &OrganizationController{
		app:      app,
		service:  app.Service(services.OrganizationService{}).(*services.OrganizationService),
		basePath: "/api/organizations",
	}
}

func (c *OrganizationController) Key() string {
	return c.basePath
}

func (c *OrganizationController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/check-subdomain", c.CheckSubdomain).Methods(http.MethodGet)
	router.HandleFunc("/{organizationId}", c.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/{organizationId}", c.Delete).Methods(http.MethodDelete)
}

func (c *OrganizationController) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := c.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, lo.Map(orgs, func(org *organization.Organization, _ int) *dtos.OrganizationResponse {
		return dtos.NewOrganizationResponse(org)
	}))
}

func (c *OrganizationController) Create(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreateOrganizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	org, err := c.service.Create(r.Context(), services.CreateOrganizationParams{
		Name:      req.Name,
		Slug:      req.Slug,
		Subdomain: req.Subdomain,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, dtos.NewOrganizationResponse(org))
}

func (c *OrganizationController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := organizationID(w, r)
	if !ok {
		return
	}
	org, err := c.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewOrganizationResponse(org))
}

func (c *OrganizationController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := organizationID(w, r)
	if !ok {
		return
	}
	if err := c.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *OrganizationController) CheckSubdomain(w http.ResponseWriter, r *http.Request) {
	subdomain := r.URL.Query().Get("subdomain")
	if subdomain == "" {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "subdomain query parameter is required", nil)
		return
	}
	available, err := c.service.CheckSubdomainAvailable(r.Context(), subdomain)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, &dtos.SubdomainAvailabilityResponse{
		Subdomain: subdomain,
		Available: available,
	})
}

func organizationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["organizationId"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid organization id", nil)
		return uuid.Nil, false
	}
	return id, true
}
