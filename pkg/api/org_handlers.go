package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/loginlab/loginlab/pkg/httputil"
	"github.com/loginlab/loginlab/pkg/identity"
	"github.com/loginlab/loginlab/pkg/observability"
)

// OrgHandlers serves organization lookups against the identity provider.
type OrgHandlers struct {
	identity identity.Service
}

// NewOrgHandlers creates organization handlers
func NewOrgHandlers(idsvc identity.Service) *OrgHandlers {
	return &OrgHandlers{identity: idsvc}
}

// RegisterRoutes registers organization routes
func (h *OrgHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/organization/name/{name}", h.getByName).Methods("GET")
	router.HandleFunc("/organization/{id}/connections", h.getConnections).Methods("GET")
	router.HandleFunc("/organization/{id}/internal-connection", h.getInternalConnection).Methods("GET")
	router.HandleFunc("/organization/{id}/invitations", h.createInvitation).Methods("POST")
}

// getByName handles GET /organization/name/{name}
func (h *OrgHandlers) getByName(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	org, err := h.identity.OrganizationByName(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if org == nil {
		httputil.WriteNotFound(w, "organization not found")
		return
	}
	httputil.WriteSuccess(w, org)
}

// getConnections handles GET /organization/{id}/connections
func (h *OrgHandlers) getConnections(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithOrgID(r.Context(), orgID))

	connections, err := h.identity.OrganizationConnections(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if connections == nil {
		connections = []identity.ConnectionRef{}
	}
	httputil.WriteSuccess(w, connections)
}

// getInternalConnection handles GET /organization/{id}/internal-connection
func (h *OrgHandlers) getInternalConnection(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithOrgID(r.Context(), orgID))

	conn, err := h.identity.InternalAdminConnection(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if conn == nil {
		httputil.WriteNotFound(w, "internal admin connection is not enabled for this organization")
		return
	}
	httputil.WriteSuccess(w, conn)
}

// createInvitation handles POST /organization/{id}/invitations
func (h *OrgHandlers) createInvitation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithOrgID(r.Context(), orgID))

	var req struct {
		Email string `json:"email"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	invitation, err := h.identity.CreateOrganizationInvitation(r.Context(), orgID, req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, invitation)
}
