package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"creatorfin/internal/identity"
	"creatorfin/internal/log"
	"creatorfin/internal/middleware/ratelimit"
	"creatorfin/internal/middleware/security"
	"creatorfin/internal/middleware/trace"
)

// Config holds the HTTP surface settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	RateLimitRPM   int
	// FrontendURL receives the browser after the OAuth callback.
	FrontendURL string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// Deps are the collaborators behind the routes. YouTube may be nil when
// Google credentials are not configured.
type Deps struct {
	Tax       TaxQueries
	Ledger    Ledger
	Dashboard Dashboard
	YouTube   YouTube
	Ready     ReadinessChecker
	Verifier  identity.Verifier
	Logger    *log.Logger
}

type Server struct {
	http.Server

	tax         TaxQueries
	ledger      Ledger
	dashboard   Dashboard
	youtube     YouTube
	ready       ReadinessChecker
	frontendURL string

	logger      *log.Logger
	events      *log.StructuredLogger
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		tax:         deps.Tax,
		ledger:      deps.Ledger,
		dashboard:   deps.Dashboard,
		youtube:     deps.YouTube,
		ready:       deps.Ready,
		frontendURL: cfg.FrontendURL,
		logger:      logger,
		events:      log.NewStructuredLogger(logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM}),
		detector:    security.NewDetector(logger),
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	verifier := deps.Verifier
	if verifier == nil {
		verifier = identity.BearerVerifier{}
	}
	authed := identity.Require(verifier)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// The callback is a browser redirect from Google; the state parameter
	// identifies the user instead of a bearer token.
	mux.HandleFunc("GET /api/youtube/callback", s.handleYouTubeCallback)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/tax/quarterly-estimate", s.handleQuarterlyEstimate)
	api.HandleFunc("GET /api/tax/deductions", s.handleDeductions)
	api.HandleFunc("GET /api/tax/breakdown", s.handleBreakdown)

	api.HandleFunc("GET /api/earnings", s.handleListEarnings)
	api.HandleFunc("POST /api/earnings", s.handleCreateEarning)
	api.HandleFunc("GET /api/expenses", s.handleListExpenses)
	api.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	api.HandleFunc("GET /api/dashboard/summary", s.handleDashboardSummary)

	api.HandleFunc("GET /api/youtube/auth-url", s.requireYouTube(s.handleYouTubeAuthURL))
	api.HandleFunc("POST /api/youtube/connect", s.requireYouTube(s.handleYouTubeConnect))
	api.HandleFunc("POST /api/youtube/sync", s.requireYouTube(s.handleYouTubeSync))
	api.HandleFunc("GET /api/youtube/status", s.requireYouTube(s.handleYouTubeStatus))
	api.HandleFunc("DELETE /api/youtube/disconnect", s.requireYouTube(s.handleYouTubeDisconnect))

	mux.Handle("/api/", authed(api))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, true, s.handleRateLimited)(handler)
	handler = security.NewCORS(security.DefaultCORSConfig(cfg.AllowedOrigins)).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: orDefault(cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       orDefault(cfg.ReadTimeout, 15*time.Second),
		// Sync makes outbound calls, so writes get more room than reads.
		WriteTimeout: orDefault(cfg.WriteTimeout, 90*time.Second),
		IdleTimeout:  orDefault(cfg.IdleTimeout, 120*time.Second),
		BaseContext: func(net.Listener) context.Context {
			return log.NewContext(context.Background(), logger)
		},
	}
	return s
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// requireYouTube answers 503 when the integration is not configured.
func (s *Server) requireYouTube(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.youtube == nil {
			ErrorResponse(http.StatusServiceUnavailable, "YouTube integration is not configured").Write(w)
			return
		}
		next(w, r)
	}
}

// writeServiceError logs err and writes the mapped error response.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op, fallback string) {
	status, msg := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		fields := log.NewFields().WithRequestID(trace.GetRequestID(r.Context()))
		s.events.LogError(r.Context(), fallback, err, log.ComponentHTTP, op, fields)
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldStatusCode, status, log.FieldOperation, op, log.FieldError, err.Error())
	}
	ErrorResponse(status, msg).Write(w)
}
