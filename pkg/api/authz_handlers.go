package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/loginlab/loginlab/pkg/authz"
	"github.com/loginlab/loginlab/pkg/httputil"
)

// AuthzHandlers serves tuple checks, reads, writes and role sync against
// the authorization store.
type AuthzHandlers struct {
	store authz.Service
	sync  *authz.Synchronizer
}

// NewAuthzHandlers creates authorization handlers
func NewAuthzHandlers(store authz.Service, sync *authz.Synchronizer) *AuthzHandlers {
	return &AuthzHandlers{store: store, sync: sync}
}

// RegisterRoutes registers authorization routes
func (h *AuthzHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/check", h.check).Methods("POST")
	router.HandleFunc("/read-relations", h.readRelations).Methods("POST")
	router.HandleFunc("/write-tuples", h.writeTuples).Methods("POST")
	router.HandleFunc("/sync-role", h.syncRole).Methods("POST")
}

// check handles POST /check
func (h *AuthzHandlers) check(w http.ResponseWriter, r *http.Request) {
	var req authz.Tuple
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.User, "user") ||
		!httputil.RequireNonEmpty(w, req.Relation, "relation") ||
		!httputil.RequireNonEmpty(w, req.Object, "object") {
		return
	}

	allowed, err := h.store.Check(r.Context(), req.User, req.Relation, req.Object)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"allowed": allowed})
}

// readRelations handles POST /read-relations
func (h *AuthzHandlers) readRelations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User   string `json:"user"`
		Object string `json:"object"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.User, "user") ||
		!httputil.RequireNonEmpty(w, req.Object, "object") {
		return
	}

	tuples, err := h.store.ReadRelations(r.Context(), req.User, req.Object)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if tuples == nil {
		tuples = []authz.Tuple{}
	}
	httputil.WriteSuccess(w, map[string]interface{}{"tuples": tuples})
}

// writeTuples handles POST /write-tuples
func (h *AuthzHandlers) writeTuples(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Writes  []authz.Tuple `json:"writes"`
		Deletes []authz.Tuple `json:"deletes"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	outcome, err := h.store.Write(r.Context(), req.Writes, req.Deletes)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{
		"message": "tuples written",
		"outcome": outcome.String(),
	})
}

// syncRole handles POST /sync-role
func (h *AuthzHandlers) syncRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		OrgID  string `json:"org_id"`
		Role   string `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.UserID, "user_id") ||
		!httputil.RequireNonEmpty(w, req.OrgID, "org_id") {
		return
	}
	if req.Role != "" && !authz.IsManagedRole(req.Role) {
		httputil.WriteBadRequest(w, "role is not a managed role")
		return
	}

	result, err := h.sync.SyncRole(r.Context(), req.UserID, req.OrgID, req.Role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}
