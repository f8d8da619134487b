package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/copperlane/gatehouse/internal/auth/metrics"
	"github.com/copperlane/gatehouse/internal/auth/service"
	"github.com/copperlane/gatehouse/internal/auth/store"
	"github.com/copperlane/gatehouse/pkg/httpx"
	"github.com/copperlane/gatehouse/pkg/jwtx"
	"github.com/copperlane/gatehouse/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	accessCodec  *jwtx.Codec
	accessTTL    time.Duration
	refreshTTL   time.Duration
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store     store.Store
	collector *metrics.Collector

	AuthService *service.AuthService
}

func NewRouter(
	accessCodec *jwtx.Codec,
	accessTTL, refreshTTL time.Duration,
	buildVersion string,
	st store.Store,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		accessCodec:  accessCodec,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		collector:    collector,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	if collector != nil {
		r.middlewares = append(r.middlewares, collector.HTTPMiddleware)
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSessions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService: r.AuthService,
		AccessTTL:   r.accessTTL,
		RefreshTTL:  r.refreshTTL,
	}

	// POST /register - strict rate limit by IP (account creation)
	r.Mux.Handle("POST /api/v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /login - strict rate limit by IP to slow credential stuffing
	r.Mux.Handle("POST /api/v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /refresh-token - moderate rate limit (legitimate clients refresh often)
	r.Mux.Handle("POST /api/v1/auth/refresh-token",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /logout - requires a valid access token
	r.Mux.Handle("POST /api/v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			RequireAuth(r.accessCodec),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// POST /verify-email - strict rate limit by IP (prevents code guessing)
	r.Mux.Handle("POST /api/v1/auth/verify-email",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyEmail),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /forgot-password - strict rate limit by IP on top of the
	// per-user window enforced by the service
	r.Mux.Handle("POST /api/v1/auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /reset-password - strict rate limit by IP (prevents code guessing)
	r.Mux.Handle("POST /api/v1/auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionHandler{AuthService: r.AuthService}

	securedList := httpx.Chain(http.HandlerFunc(h.HandleList),
		RequireAuth(r.accessCodec),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	securedRevoke := httpx.Chain(http.HandlerFunc(h.HandleRevoke),
		RequireAuth(r.accessCodec),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /api/v1/sessions", securedList)
	r.Mux.Handle("DELETE /api/v1/sessions/{id}", securedRevoke)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	if r.collector != nil {
		r.Mux.Handle("GET /metrics", r.collector.Handler())
	}
}
