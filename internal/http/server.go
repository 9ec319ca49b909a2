package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "fingestor/internal/log"
	"fingestor/internal/middleware/ratelimit"
	"fingestor/internal/middleware/security"
	"fingestor/internal/services"
)

// Options tunes the server. The zero value is usable.
type Options struct {
	// Logger is the base of the request-scoped loggers.
	Logger *applog.Logger
	// WritesPerMinute bounds mutating requests per client.
	WritesPerMinute int
	// TrustedProxies are CIDRs whose forwarding headers are honoured.
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type Server struct {
	http.Server
	svc        *services.FinanceService
	ops        *operations
	limiter    *ratelimit.Limiter
	clientIPs  *security.ClientIPResolver
	metrics    *Metrics
	logger     *applog.Logger
	requestLog *applog.RequestLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc *services.FinanceService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	clientIPs := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := clientIPs.AddTrustedProxy(cidr); err != nil {
			logger.WithComponent(applog.ComponentSecurity).Warn("Ignoring invalid trusted proxy",
				"cidr", cidr, applog.FieldError, err)
		}
	}

	s := &Server{
		svc:        svc,
		ops:        newOperations(),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.WritesPerMinute}),
		clientIPs:  clientIPs,
		metrics:    NewMetrics(),
		logger:     logger.WithComponent(applog.ComponentHTTP),
		requestLog: applog.NewRequestLogger(logger),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withRequestLogging)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.clientIPs.ClientIP, ratelimit.WritesOnly, s.onRateLimited))

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Get("/{id}", s.handleGetAccount)
			r.Put("/{id}", s.handleUpdateAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.handleListCards)
			r.Post("/", s.handleCreateCard)
			r.Get("/summaries", s.handleCardSummaries)
			r.Get("/{id}", s.handleGetCard)
			r.Put("/{id}", s.handleUpdateCard)
			r.Delete("/{id}", s.handleDeleteCard)
			r.Get("/{id}/summary", s.handleCardSummary)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Get("/{id}", s.handleGetCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Get("/", s.handleListGoals)
			r.Post("/", s.handleCreateGoal)
			r.Get("/{id}", s.handleGetGoal)
			r.Put("/{id}", s.handleUpdateGoal)
			r.Delete("/{id}", s.handleDeleteGoal)
			r.Post("/{id}/progress", s.handleAddGoalProgress)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateEntry)
			r.Post("/{id}/pay", s.handleMarkPaid)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})
		r.Post("/purchases", s.handleRegisterPurchase)

		r.Get("/invoices", s.handlePayableInvoices)
		r.Post("/invoices/pay", s.handlePayInvoice)

		r.Get("/dashboard", s.handleDashboard)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/cash-flow", s.handleCashFlow)
			r.Get("/expenses-by-category", s.handleExpensesByCategory)
			r.Get("/debts", s.handleDebts)
		})

		r.Route("/operations", func(r chi.Router) {
			r.Post("/", s.handleStartOperation)
			r.Get("/{opID}", s.handleGetOperation)
			r.Put("/{opID}", s.handleConfigureOperation)
			r.Post("/{opID}/submit", s.handleSubmitOperation)
			r.Post("/{opID}/cancel", s.handleCancelOperation)
		})

		r.Get("/backup", s.handleExport)
		r.Post("/backup", s.handleImport)
	})

	return r
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
