package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/storekit/platform/modules/hosting/services"
	"github.com/storekit/platform/pkg/composables"
	"github.com/storekit/platform/pkg/httpapi"
)

var resolveStatusByCode = map[string]int{
	"ORG_NOT_FOUND":    http.StatusNotFound,
	"VALIDATION_ERROR": http.StatusBadRequest,
	"ACCESS_DENIED":    http.StatusForbidden,
}

// TenantResolver resolves the organization a request targets and attaches it
// to the context. Requests carrying no tenant signal pass through untouched;
// a bad or forbidden tenant reference is rejected here before any handler
// runs.
func TenantResolver(resolver *services.ResolverService, headerName string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			vars := mux.Vars(r)
			params := services.ResolveParams{
				RouteOrgID:  vars["organizationId"],
				RouteUserID: vars["userId"],
				Header:      r.Header.Get(headerName),
				Host:        r.Host,
				QueryOrg:    r.URL.Query().Get("org"),
			}
			if userID, ok := composables.UseUserID(r.Context()); ok {
				params.AuthenticatedUserID = &userID
			}

			org, err := resolver.Resolve(r.Context(), params)
			if err != nil {
				_ = httpapi.WriteServiceError(w, err, resolveStatusByCode)
				return
			}
			if org == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithOrganization(r.Context(), org)))
		})
	}
}

// RequireTenant rejects requests the resolver left tenant-less. Mount it
// after TenantResolver on routes that only make sense inside an organization.
func RequireTenant() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := composables.TryUseOrganization(r.Context()); !ok {
				_ = httpapi.WriteError(
					w, http.StatusNotFound,
					"ORG_NOT_FOUND", "request does not identify an organization", nil,
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
