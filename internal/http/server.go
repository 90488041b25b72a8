package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanz/internal/cache"
	"finanz/internal/core"
	"finanz/internal/log"
	"finanz/internal/mailer"
	"finanz/internal/services"
	"finanz/internal/storage"
)

// Server is the JSON API. It owns the summary cache and its invalidation:
// every ledger write clears the written scope's cached months.
type Server struct {
	http.Server

	store         storage.Store
	transactions  *services.TransactionService
	ledger        *services.LedgerService
	ranking       *services.RankingService
	families      *services.FamilyService
	notifications *services.NotificationService
	cards         *services.CardService
	mailer        *mailer.Client
	inviteLink    string

	rateLimiter  *rateLimiter
	summaryCache *cache.LRUCache[core.MonthSummary]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
	logger           *log.Logger
}

// Deps bundles what the server needs. Publisher and Mailer may be nil; the
// corresponding features degrade gracefully.
type Deps struct {
	Store           storage.Store
	Publisher       services.DeletionPublisher
	Mailer          *mailer.Client
	InviteLink      string
	SummaryCacheTTL time.Duration
	Logger          *log.Logger
}

// NewServer configures routes and services, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	ttl := deps.SummaryCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:            deps.Store,
		transactions:     services.NewTransactionService(deps.Store, deps.Publisher, nil),
		ledger:           services.NewLedgerService(deps.Store, nil),
		ranking:          services.NewRankingService(deps.Store, nil),
		families:         services.NewFamilyService(deps.Store, nil),
		notifications:    services.NewNotificationService(deps.Store, nil),
		cards:            services.NewCardService(deps.Store, nil),
		mailer:           deps.Mailer,
		inviteLink:       deps.InviteLink,
		rateLimiter:      newRateLimiter(),
		summaryCache:     cache.NewLRUCache[core.MonthSummary](200, ttl),
		stopCacheCleanup: make(chan struct{}),
		logger:           logger,
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.withSecurityHeaders(s.handleListTransactions))
	mux.HandleFunc("PUT /api/transactions/{id}", s.withSecurityHeaders(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSecurityHeaders(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/reset/month", s.withSecurityHeaders(s.handleResetMonth))
	mux.HandleFunc("POST /api/reset/future", s.withSecurityHeaders(s.handleResetFuture))
	mux.HandleFunc("POST /api/reset/all", s.withSecurityHeaders(s.handleResetAll))

	mux.HandleFunc("GET /api/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("GET /api/reports/categories", s.withSecurityHeaders(s.handleCategoryReport))
	mux.HandleFunc("GET /api/reports/monthly", s.withSecurityHeaders(s.handleMonthlyReport))

	mux.HandleFunc("POST /api/families", s.withSecurityHeaders(s.handleCreateFamily))
	mux.HandleFunc("GET /api/families/mine", s.withSecurityHeaders(s.handleMyFamily))
	mux.HandleFunc("DELETE /api/families/{id}", s.withSecurityHeaders(s.handleDeleteFamily))
	mux.HandleFunc("GET /api/families/{id}/members", s.withSecurityHeaders(s.handleListMembers))
	mux.HandleFunc("POST /api/families/{id}/members", s.withSecurityHeaders(s.handleAddMember))
	mux.HandleFunc("DELETE /api/families/{id}/members/{userID}", s.withSecurityHeaders(s.handleRemoveMember))
	mux.HandleFunc("GET /api/ranking", s.withSecurityHeaders(s.handleRanking))
	mux.HandleFunc("GET /api/ranking/last-winner", s.withSecurityHeaders(s.handleLastWinner))
	mux.HandleFunc("POST /api/send-invite-email", s.withSecurityHeaders(s.handleSendInviteEmail))

	mux.HandleFunc("GET /api/notifications", s.withSecurityHeaders(s.handleListNotifications))
	mux.HandleFunc("GET /api/notifications/unread-count", s.withSecurityHeaders(s.handleUnreadCount))
	mux.HandleFunc("POST /api/notifications/{id}/read", s.withSecurityHeaders(s.handleMarkRead))
	mux.HandleFunc("POST /api/notifications/read-all", s.withSecurityHeaders(s.handleMarkAllRead))

	mux.HandleFunc("POST /api/cards", s.withSecurityHeaders(s.handleCreateCard))
	mux.HandleFunc("GET /api/cards", s.withSecurityHeaders(s.handleListCards))
	mux.HandleFunc("PUT /api/cards/{id}", s.withSecurityHeaders(s.handleUpdateCard))
	mux.HandleFunc("DELETE /api/cards/{id}", s.withSecurityHeaders(s.handleDeleteCard))

	return s
}

// startCacheCleanup runs periodic cleanup for the summary cache
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.summaryCache.CleanExpired(); cleaned > 0 {
				s.logger.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging to a handler.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		logger := s.logger.With(log.FieldRequestID, requestID)
		ctx := r.Context()
		r = r.WithContext(ctx)

		logger.InfoContext(ctx, "Request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			log.FieldUserAgent, r.Header.Get("User-Agent"))

		// Writes are rate limited; reads are not.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(ctx, "Request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
