package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	requestIDHeader      = "X-Request-ID"
	cacheCleanupInterval = time.Minute
	limiterCleanup       = 5 * time.Minute
	readyTimeout         = 5 * time.Second
)

// Options configures NewServer. Zero values fall back to sensible defaults.
type Options struct {
	Addr      string
	RateLimit int
	CacheSize int
	CacheTTL  time.Duration
	// Now is the clock used for "today"; defaults to time.Now.
	Now    func() time.Time
	Logger *applog.Logger
	// Ready reports storage health for /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	ledger      *services.LedgerService
	dashboards  *cache.LRUCache[core.Dashboard]
	caches      *cache.Manager
	rateLimiter *rateLimiter
	now         func() time.Time
	ready       func(context.Context) error
	logger      *applog.Logger
	started     time.Time
	suspicious  atomic.Int64

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around svc and starts the cleanup loops.
// Call Shutdown to stop them.
func NewServer(svc *services.LedgerService, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.FromContext(context.Background())
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	s := &Server{
		ledger:      svc,
		dashboards:  cache.NewLRUCache[core.Dashboard](opts.CacheSize, opts.CacheTTL).WithClock(opts.Now),
		caches:      cache.NewManager(),
		rateLimiter: newRateLimiter(opts.RateLimit, opts.Now),
		now:         opts.Now,
		ready:       opts.Ready,
		logger:      opts.Logger.WithComponent(applog.ComponentHTTP),
		started:     opts.Now(),
	}
	s.caches.Register(s.dashboards)
	s.caches.StartCleanup(cacheCleanupInterval)
	go s.rateLimiter.startCleanup(limiterCleanup)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	const user = "/api/users/{user}"

	mux.HandleFunc("GET "+user+"/state", s.handleGetState)
	mux.HandleFunc("POST "+user+"/state", s.handlePutState)

	mux.HandleFunc("GET "+user+"/dashboard", s.handleDashboard)
	mux.HandleFunc("GET "+user+"/transactions", s.handleListTransactions)
	mux.HandleFunc("GET "+user+"/debts", s.handleListDebts)
	mux.HandleFunc("GET "+user+"/recurring", s.handleListRecurring)
	mux.HandleFunc("GET "+user+"/categories", s.handleCategories)
	mux.HandleFunc("GET "+user+"/settings", s.handleGetSettings)

	mux.HandleFunc("POST "+user+"/transactions", s.handleAddTransaction)
	mux.HandleFunc("DELETE "+user+"/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("PUT "+user+"/budgets", s.handleUpsertBudget)
	mux.HandleFunc("DELETE "+user+"/budgets/{id}", s.handleDeleteBudget)
	mux.HandleFunc("POST "+user+"/debts", s.handleAddDebt)
	mux.HandleFunc("POST "+user+"/debts/{id}/payments", s.handleAddPayment)
	mux.HandleFunc("POST "+user+"/debts/{id}/toggle", s.handleToggleDebt)
	mux.HandleFunc("DELETE "+user+"/debts/{id}", s.handleDeleteDebt)
	mux.HandleFunc("POST "+user+"/recurring", s.handleAddRecurring)
	mux.HandleFunc("DELETE "+user+"/recurring/{id}", s.handleDeleteRecurring)
	mux.HandleFunc("POST "+user+"/recurring/{id}/post", s.handlePostRecurring)
	mux.HandleFunc("PUT "+user+"/settings", s.handleUpdateSettings)
	mux.HandleFunc("POST "+user+"/reset", s.handleReset)
}

// withMiddleware assigns the request id, attaches the request logger, applies
// security headers, rate limits mutating methods and logs completion.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		applySecurityHeaders(w, r)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		logger := applog.FromContext(r.Context())

		if detectSuspicious(r) {
			s.suspicious.Add(1)
			logger.WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			_ = NewJSONResponse().
				Header("Retry-After", "60").
				Error(http.StatusTooManyRequests, CodeRateLimited).
				Send(rw)
		} else {
			next.ServeHTTP(rw, r)
		}

		applog.NewStructuredLogger(logger).LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})

	withID := applog.RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get(requestIDHeader)
	})(inner)
	chain := applog.Middleware(s.logger)(withID)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = generateRequestID()
		}
		r.Header.Set(requestIDHeader, id)
		w.Header().Set(requestIDHeader, id)
		chain.ServeHTTP(w, r)
	})
}

// responseWriter captures the status code for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown stops the cleanup loops and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// today is the calendar date of the server clock.
func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// userKeyPrefix escapes user so one user's prefix never matches another's keys.
func userKeyPrefix(user string) string {
	return url.PathEscape(user) + "|"
}

func dashboardKey(user string, p core.Period, today core.Date, version uint64) string {
	return userKeyPrefix(user) + p.String() + "|" + today.String() + "|" + strconv.FormatUint(version, 10)
}

// invalidateUser drops every cached dashboard of user.
func (s *Server) invalidateUser(ctx context.Context, user string) {
	prefix := userKeyPrefix(user)
	n := s.dashboards.DeleteFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
	if n > 0 {
		applog.FromContext(ctx).DebugContext(ctx, "Dashboard cache invalidated",
			applog.FieldUserID, user, "entries", n)
	}
}
