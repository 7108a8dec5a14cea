package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"batchledger/frontend/adminusers"
	"batchledger/frontend/exports"
	"batchledger/frontend/history"
	"batchledger/frontend/login"
	"batchledger/frontend/production"
	"batchledger/frontend/skus"
	"batchledger/infrastructure/rbac"
)

// RegisterLoginRoutes registers login/logout routes.
func (s *Server) RegisterLoginRoutes() {
	s.router.Get("/login", login.GetLoginScreenHandler)
	s.router.Post("/login", login.CreateLoginHandler(s.DB, s.SessionCache))
	s.router.Post("/logout", login.LogoutHandler(s.DB, s.SessionCache))
}

// both registers code for every role.
func (s *Server) both(code, method, path string) {
	s.Rbac.Add(rbac.RoleAdmin, code, method, path)
	s.Rbac.Add(rbac.RoleOperator, code, method, path)
}

// RegisterFrontendRoutes registers routes every logged-in role can reach.
func (s *Server) RegisterFrontendRoutes(r chi.Router) chi.Router {
	loc := s.Ledger.Location()

	s.both("PRODUCTION_VIEW", http.MethodGet, "/app/production")
	r.Get("/production", production.ProductionPageQueryHandler(s.Ledger, s.Catalog))

	s.both("STATS_VIEW", http.MethodGet, "/app/api/stats")
	r.Get("/api/stats", production.StatsQueryHandler(s.Ledger))

	s.both("BATCH_CREATE", http.MethodPost, "/app/api/batches")
	r.Post("/api/batches", production.CreateBatchCommandHandler(s.Ledger, s.Idempotency))

	s.both("BATCH_LIST", http.MethodGet, "/app/api/batches")
	r.Get("/api/batches", history.ListBatchesQueryHandler(s.Ledger))

	s.both("BATCH_VIEW", http.MethodGet, "/app/api/batches/*")
	r.Get("/api/batches/{batchNumber}", history.FindBatchQueryHandler(s.Ledger))

	s.both("BATCH_LABEL", http.MethodGet, "/app/api/batches/*/label.pdf")
	r.Get("/api/batches/{batchNumber}/label.pdf", exports.BatchLabelPDFHandler(s.Ledger))

	s.both("SKU_LIST", http.MethodGet, "/app/skus")
	r.Get("/skus", skus.SKUsPageQueryHandler(s.Catalog, loc))
	s.both("SKU_LIST", http.MethodGet, "/app/api/skus")
	r.Get("/api/skus", skus.ListSKUsQueryHandler(s.Catalog, loc))

	return r
}

// RegisterAdminRoutes registers admin-only routes.
func (s *Server) RegisterAdminRoutes(r chi.Router) chi.Router {
	loc := s.Ledger.Location()

	s.Rbac.Add(rbac.RoleAdmin, "SKU_CREATE", http.MethodPost, "/app/api/skus")
	r.Post("/api/skus", skus.CreateSKUCommandHandler(s.Catalog, loc))

	s.Rbac.Add(rbac.RoleAdmin, "SKU_DELETE", http.MethodDelete, "/app/api/skus/*")
	r.Delete("/api/skus/{skuID}", skus.DeleteSKUCommandHandler(s.Catalog))

	s.Rbac.Add(rbac.RoleAdmin, "EXPORT_XLSX", http.MethodGet, "/app/exports/batches.xlsx")
	r.Get("/exports/batches.xlsx", exports.BatchesExportHandler(s.Ledger, s.DB, s.Archive, exports.FormatXLSX))

	s.Rbac.Add(rbac.RoleAdmin, "EXPORT_CSV", http.MethodGet, "/app/exports/batches.csv")
	r.Get("/exports/batches.csv", exports.BatchesExportHandler(s.Ledger, s.DB, s.Archive, exports.FormatCSV))

	s.Rbac.Add(rbac.RoleAdmin, "EXPORT_RUNS", http.MethodGet, "/app/api/exports/runs")
	r.Get("/api/exports/runs", exports.ExportRunsQueryHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "ADMIN_USERS_VIEW", http.MethodGet, "/app/admin/users")
	r.Get("/admin/users", adminusers.UsersPageQueryHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "ADMIN_USERS_LIST", http.MethodGet, "/app/api/users")
	r.Get("/api/users", adminusers.ListUsersQueryHandler(s.DB))

	s.Rbac.Add(rbac.RoleAdmin, "ADMIN_USERS_CREATE", http.MethodPost, "/app/api/users")
	r.Post("/api/users", adminusers.CreateUserCommandHandler(s.DB, s.Audit))

	return r
}
