package adminusers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	sessioncontext "batchledger/frontend/shared/context"
	"batchledger/frontend/shared/html"
	"batchledger/frontend/shared/nav"
	"batchledger/frontend/shared/respond"
	"batchledger/frontend/shared/validate"
	"batchledger/infrastructure/audit"
	"batchledger/infrastructure/sqlite"
)

// UsersPageQueryHandler renders the admin users list page.
func UsersPageQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessioncontext.GetSessionFromContext(r.Context())
		users, err := ListUsers(r.Context(), db)
		if err != nil {
			slog.Error("admin users: failed to load data", slog.Any("err", err))
			http.Error(w, "failed to load users", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := UsersListPage(nav.BuildTopNavData(session), PageData{Users: users}).Render(r.Context(), w); err != nil {
			slog.Error("render users page failed", slog.Any("err", err))
			http.Error(w, "failed to render users page", http.StatusInternalServerError)
		}
	}
}

func ListUsersQueryHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := ListUsers(r.Context(), db)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, users)
	}
}

func CreateUserCommandHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := sessioncontext.CallerFromContext(r.Context())
		if !ok {
			respond.Status(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		var req CreateUserRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			respond.Invalid(w, err)
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Role = strings.TrimSpace(req.Role)
		if err := validate.Struct(req); err != nil {
			respond.Invalid(w, err)
			return
		}
		user, err := CreateUser(r.Context(), db, auditSvc, caller.UserID, req.Username, req.Password, req.Role)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		slog.Info("user created", slog.String("username", user.Username), slog.String("role", user.Role), slog.Int64("by", caller.UserID))
		respond.JSON(w, http.StatusCreated, user)
	}
}

func UsersListPage(topNav nav.TopNavData, data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := nav.TopNav(topNav).Render(ctx, w); err != nil {
			return err
		}
		var b strings.Builder
		b.WriteString(`<main class="users"><form id="user-form" class="card"><h2>Add user</h2>`)
		b.WriteString(`<label>Username <input name="username" maxlength="64" required></label>`)
		b.WriteString(`<label>Password <input name="password" type="password" minlength="12" required></label>`)
		b.WriteString(`<label>Role <select name="role"><option value="operator">operator</option><option value="admin">admin</option></select></label>`)
		b.WriteString(`<button type="submit">Add</button><output id="user-result" aria-live="polite"></output></form>`)
		b.WriteString(`<table id="user-table"><thead><tr><th>Username</th><th>Role</th></tr></thead><tbody>`)
		for _, u := range data.Users {
			b.WriteString(`<tr><td>` + templ.EscapeString(u.Username) + `</td><td>` + templ.EscapeString(u.Role) + `</td></tr>`)
		}
		b.WriteString(`</tbody></table></main><script src="/assets/app.js" defer></script>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
	return html.Layout("Users", body)
}
