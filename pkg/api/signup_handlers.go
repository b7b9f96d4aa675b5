package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/loginlab/loginlab/pkg/httputil"
	"github.com/loginlab/loginlab/pkg/signup"
)

// SignupHandlers serves the sign-up workflow.
type SignupHandlers struct {
	signup *signup.Service
}

// NewSignupHandlers creates sign-up handlers
func NewSignupHandlers(svc *signup.Service) *SignupHandlers {
	return &SignupHandlers{signup: svc}
}

// RegisterRoutes registers sign-up routes
func (h *SignupHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/signup", h.signUp).Methods("POST")
}

// signUp handles POST /signup
func (h *SignupHandlers) signUp(w http.ResponseWriter, r *http.Request) {
	var req signup.Request
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.signup.SignUp(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, result)
}
