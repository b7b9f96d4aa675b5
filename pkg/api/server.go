package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/loginlab/loginlab/pkg/authz"
	"github.com/loginlab/loginlab/pkg/board"
	"github.com/loginlab/loginlab/pkg/config"
	"github.com/loginlab/loginlab/pkg/httputil"
	"github.com/loginlab/loginlab/pkg/identity"
	"github.com/loginlab/loginlab/pkg/middleware"
	"github.com/loginlab/loginlab/pkg/observability"
	"github.com/loginlab/loginlab/pkg/signup"
)

// Dependencies carries the wired service components the HTTP surface
// exposes. Board may be nil when the message board is disabled; its
// routes are then not registered.
type Dependencies struct {
	Identity identity.Service
	Authz    authz.Service
	Sync     *authz.Synchronizer
	Signup   *signup.Service
	Board    board.Store
}

// NewHandler builds the full HTTP handler: all routes plus the
// middleware chain (request ID, logging, panic recovery, CORS) and the
// operational endpoints.
func NewHandler(cfg config.ServerConfig, logger *observability.Logger, metrics *observability.Metrics, deps Dependencies) http.Handler {
	router := mux.NewRouter()

	NewOrgHandlers(deps.Identity).RegisterRoutes(router)
	NewAuthzHandlers(deps.Authz, deps.Sync).RegisterRoutes(router)
	NewSignupHandlers(deps.Signup).RegisterRoutes(router)
	if deps.Board != nil {
		NewBoardHandlers(deps.Board).RegisterRoutes(router)
	}

	router.HandleFunc("/", healthCheck).Methods("GET")
	router.HandleFunc("/health", healthCheck).Methods("GET")
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	var handler http.Handler = router
	handler = middleware.CORS(cfg.AllowedOrigins)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Logging(logger, metrics)(handler)
	handler = middleware.RequestID(logger)(handler)
	return otelhttp.NewHandler(handler, "loginlab")
}

// healthCheck handles GET /health
func healthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}
