package http

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	loginflow "batchledger/frontend/login"
	sessioncontext "batchledger/frontend/shared/context"
	"batchledger/frontend/shared/respond"
	"batchledger/infrastructure/audit"
	"batchledger/infrastructure/blob"
	"batchledger/infrastructure/cache"
	"batchledger/infrastructure/catalog"
	"batchledger/infrastructure/idempotency"
	"batchledger/infrastructure/ledger"
	"batchledger/infrastructure/metrics"
	"batchledger/infrastructure/rbac"
	sessioncookie "batchledger/infrastructure/session"
	"batchledger/infrastructure/sqlite"
	"batchledger/models"
)

//go:embed assets/*
var assets embed.FS

var ShutdownTimeout = 5 * time.Second

// Dependencies are the services the routes are wired to.
type Dependencies struct {
	DB           *sqlite.DB
	SessionCache *cache.UserSessionCache
	RbacCache    *cache.RbacRolesCache
	Rbac         *rbac.Rbac
	Audit        *audit.Service
	Catalog      *catalog.Catalog
	Ledger       *ledger.Ledger
	Idempotency  idempotency.Store
	// Archive is nil when served exports are not copied anywhere.
	Archive blob.Store
}

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux

	Dependencies
}

// NewServer creates a new http server.
func NewServer(addr string, deps Dependencies) *Server {
	s := &Server{
		Addr:         addr,
		router:       chi.NewRouter(),
		Dependencies: deps,
		server: &http.Server{
			MaxHeaderBytes:    1 << 20,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	// Secure headers first.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)
	s.router.Use(s.CSRFMiddleware)

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sessionCookie, err := r.Cookie(sessioncookie.CookieName)
		if err != nil || sessionCookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		session, ok := s.resolveSession(r.Context(), sessionCookie.Value)
		if !ok || session.Expired() {
			http.SetCookie(w, sessioncookie.ClearCookie())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, loginflow.HomePath, http.StatusSeeOther)
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.ReadSQL.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", slog.Any("err", err))
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", metrics.Handler())

	var assetsFS fs.FS = assets
	if sub, err := fs.Sub(assets, "assets"); err == nil {
		assetsFS = sub
	} else {
		slog.Error("assets subfs init failed; serving fallback fs", slog.Any("err", err))
	}
	s.router.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	s.RegisterLoginRoutes()

	s.router.Route("/app", func(r chi.Router) {
		r.Use(s.AuthenticateMiddleware)
		s.RegisterFrontendRoutes(r)
		s.RegisterAdminRoutes(r)
	})

	slog.Debug("rbac routes registered", slog.Any("codes", s.RbacCache.RouteNamesSorted()))

	s.server.Handler = s.router
	return s
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/app/api/")
}

// unauthenticated sends API callers a 401 and browsers to the login page.
func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		respond.Status(w, http.StatusUnauthorized, "unauthorized", "login required")
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// AuthenticateMiddleware loads session and applies RBAC checks.
func (s *Server) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionCookie, err := r.Cookie(sessioncookie.CookieName)
		if err != nil || sessionCookie.Value == "" {
			unauthenticated(w, r)
			return
		}

		sessionToken := sessionCookie.Value
		session, ok := s.resolveSession(r.Context(), sessionToken)
		if !ok {
			slog.Warn("session not found", slog.String("method", r.Method), slog.String("path", r.URL.Path))
			unauthenticated(w, r)
			return
		}

		if session.Expired() {
			http.SetCookie(w, sessioncookie.ClearCookie())
			s.SessionCache.DeleteSessionBySessionToken(sessionToken)
			if err := loginflow.DeleteSessionByToken(r.Context(), s.DB, sessionToken); err != nil {
				slog.Error("cannot delete session from DB", slog.Any("err", err))
			}
			unauthenticated(w, r)
			return
		}

		isAdmin := rbac.RoleAuthorizer{}.IsAdmin(rbac.Caller{Roles: session.UserRoles})
		session.ScreenPermissions = s.RbacCache.Permissions(session.UserRoles, isAdmin)

		if !isAdmin && !s.Rbac.Allowed(session.UserRoles, r.URL.Path, r.Method) {
			slog.Warn("rbac denied",
				slog.Int64("user_id", session.UserID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			if isAPIRequest(r) {
				respond.Status(w, http.StatusForbidden, "forbidden", "not allowed")
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		ctx := sessioncontext.NewContextWithSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) resolveSession(ctx context.Context, token string) (models.Session, bool) {
	if cached, found := s.SessionCache.FindSessionBySessionToken(token); found {
		return cached, true
	}

	dbSession, err := loginflow.LoadSessionByToken(ctx, s.DB, token)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("load session from db failed", slog.Any("err", err))
		}
		return models.Session{}, false
	}

	s.SessionCache.AddSession(dbSession)
	return dbSession, true
}

// PurgeExpiredSessions drops expired sessions from the cache and the database.
func (s *Server) PurgeExpiredSessions(ctx context.Context, now time.Time) error {
	cached := s.SessionCache.PurgeExpired(now)
	stored, err := loginflow.DeleteExpiredSessions(ctx, s.DB, now)
	if err != nil {
		return err
	}
	if cached > 0 || stored > 0 {
		slog.Info("expired sessions purged", slog.Int("cached", cached), slog.Int64("stored", stored))
	}
	return nil
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.Any("err", err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %v", err)
	}
	s.ln = nil
	return nil
}
