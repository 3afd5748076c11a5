package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/internal/auth/store"
	"github.com/voluntree/voluntree/pkg/httpx"
	"github.com/voluntree/voluntree/pkg/jwtx"
	"github.com/voluntree/voluntree/pkg/slogx"
)

// Router holds shared dependencies for the HTTP handlers and wires
// routes, rate limits, and the authn middleware together.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store      store.Store
	challenges store.Challenges
	cookies    CookieCodec

	Credentials *service.CredentialsService
	Challenges  *service.ChallengeService
	Sessions    *service.SessionService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	challenges store.Challenges,
	cookies CookieCodec,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		challenges:   challenges,
		cookies:      cookies,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAccount()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware
// chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// registerAuth wires the unauthenticated flows. Everything here takes
// credentials or secrets, so the strict per-IP limit applies across the
// board.
func (r *Router) registerAuth() {
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(&RegisterHandler{Credentials: r.Credentials},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{Credentials: r.Credentials, Challenges: r.Challenges},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/verify-otp",
		httpx.Chain(&VerifyOTPHandler{
			Accounts:   r.store.Accounts(),
			Challenges: r.Challenges,
			Sessions:   r.Sessions,
			Cookies:    r.cookies,
		},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh-access-token",
		httpx.Chain(&RefreshHandler{Sessions: r.Sessions, Cookies: r.cookies},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(&LogoutHandler{Sessions: r.Sessions, Cookies: r.cookies},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

// registerAccount wires the authenticated account endpoints. The token
// can arrive as a bearer header (API clients) or the access cookie
// (browsers).
func (r *Router) registerAccount() {
	authn := httpx.AuthnMiddleware(r.verifier,
		httpx.BearerTokenSource,
		httpx.CookieTokenSource(AccessCookieName),
	)

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(&MeHandler{Accounts: r.store.Accounts()},
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /v1/auth/sessions",
		httpx.Chain(&SessionsHandler{Sessions: r.Sessions, Cookies: r.cookies},
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout-all",
		httpx.Chain(&LogoutAllHandler{Sessions: r.Sessions, Cookies: r.cookies},
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.challenges),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
