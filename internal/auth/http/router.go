package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/metrics"
	"github.com/aussiebroadwan/techauth/internal/auth/service"
	"github.com/aussiebroadwan/techauth/internal/auth/store"
	"github.com/aussiebroadwan/techauth/pkg/httpx"
	"github.com/aussiebroadwan/techauth/pkg/jwtx"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/aussiebroadwan/techauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	codec        *jwtx.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AccountService      *service.AccountService
	SessionService      *service.SessionService
	InvitationService   *service.InvitationService
	ProvisioningService *service.ProvisioningService
}

func NewRouter(codec *jwtx.Codec, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ApplyRoutes registers every route. Services must be set before calling it.
func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerSessions()
	r.registerPasswords()
	r.registerProjects()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())

	// Metrics sit directly on the mux so the matched pattern is visible.
	r.handler = httpx.Chain(metrics.HTTPMetricsMiddleware(r.Mux), r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			techauth API
//	@version		0.1.0
//	@description	Multi-tenant authentication and project provisioning service.
//	@description
//	@description				Tenant-scoped endpoints take the project API key in the X-API-Key header or the request body.
//	@description				Access and refresh tokens are HS256 JWTs signed with separate secrets.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/techauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) authenticated(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h, httpx.AuthnMiddleware(r.codec))
}

func (r *Router) registerAccounts() {
	h := &AccountHandler{AccountService: r.AccountService}

	r.Mux.HandleFunc("POST /v1/auth/register", h.HandleRegister)
	r.Mux.HandleFunc("POST /v1/auth/verify-email", h.HandleVerifyEmail)
	r.Mux.HandleFunc("GET /v1/auth/verify-email", h.HandleVerifyEmailPage)
	r.Mux.HandleFunc("POST /v1/auth/resend-verification", h.HandleResendVerification)
}

func (r *Router) registerSessions() {
	h := &SessionHandler{SessionService: r.SessionService}

	r.Mux.HandleFunc("POST /v1/auth/login", h.HandleLogin)
	r.Mux.HandleFunc("POST /v1/auth/refresh", h.HandleRefresh)
	r.Mux.HandleFunc("POST /v1/auth/logout", h.HandleLogout)
	r.Mux.Handle("POST /v1/auth/logout-all", r.authenticated(h.HandleLogoutAll))
}

func (r *Router) registerPasswords() {
	h := &PasswordHandler{AccountService: r.AccountService}

	r.Mux.HandleFunc("POST /v1/auth/forgot-password", h.HandleForgotPassword)
	r.Mux.HandleFunc("POST /v1/auth/reset-password", h.HandleResetPassword)
	r.Mux.Handle("POST /v1/auth/change-password", r.authenticated(h.HandleChangePassword))
}

func (r *Router) registerProjects() {
	h := &ProjectsHandler{
		InvitationService:   r.InvitationService,
		ProvisioningService: r.ProvisioningService,
	}

	// Invitation minting: verify JWT, then re-read the admin flag from storage.
	r.Mux.Handle("POST /v1/projects/invitations",
		httpx.Chain(http.HandlerFunc(h.HandleCreateInvitation),
			httpx.AuthnMiddleware(r.codec),
			httpx.RequireGlobalAdmin(storeAdmins{store: r.store}),
		),
	)

	// Public, gated by the invitation key in the body.
	r.Mux.HandleFunc("POST /v1/projects", h.HandleCreateProject)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
