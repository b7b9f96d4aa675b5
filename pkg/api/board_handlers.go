package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/loginlab/loginlab/pkg/board"
	"github.com/loginlab/loginlab/pkg/httputil"
	"github.com/loginlab/loginlab/pkg/observability"
)

// BoardHandlers serves the demo message board. Routes are registered only
// when the board feature is enabled.
type BoardHandlers struct {
	store board.Store
}

// NewBoardHandlers creates message-board handlers
func NewBoardHandlers(store board.Store) *BoardHandlers {
	return &BoardHandlers{store: store}
}

// RegisterRoutes registers message-board routes
func (h *BoardHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/posts/{orgId}", h.listPosts).Methods("GET")
	router.HandleFunc("/posts/{orgId}", h.createPost).Methods("POST")
	router.HandleFunc("/posts/{orgId}/{postKey}", h.deletePost).Methods("DELETE")
}

// listPosts handles GET /posts/{orgId}
func (h *BoardHandlers) listPosts(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "orgId")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithOrgID(r.Context(), orgID))

	posts, err := h.store.Posts(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if posts == nil {
		posts = []board.Post{}
	}
	httputil.WriteSuccess(w, posts)
}

// createPost handles POST /posts/{orgId}
func (h *BoardHandlers) createPost(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "orgId")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithOrgID(r.Context(), orgID))

	var req struct {
		Author  string `json:"author"`
		Content string `json:"content"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Author, "author") {
		return
	}

	post, err := h.store.CreatePost(r.Context(), orgID, req.Author, req.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, post)
}

// deletePost handles DELETE /posts/{orgId}/{postKey}
func (h *BoardHandlers) deletePost(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "orgId")
	if !ok {
		return
	}
	postKey, ok := httputil.ParsePathStringOrError(w, r, "postKey")
	if !ok {
		return
	}
	r = r.WithContext(observability.WithOrgID(r.Context(), orgID))

	if err := h.store.DeletePost(r.Context(), orgID, postKey); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "post deleted"})
}
