package nav

import (
	"context"
	"io"

	"github.com/a-h/templ"

	sessioncontext "batchledger/frontend/shared/context"
	"batchledger/models"
)

// TopNavData is shared with page renderers.
type TopNavData struct {
	Username    string
	Role        string
	Permissions map[string]int
}

func BuildTopNavData(session models.Session) TopNavData {
	return TopNavData{
		Username:    session.User.Username,
		Role:        session.User.Role,
		Permissions: session.ScreenPermissions,
	}
}

// Can reports whether the user may reach the route registered under code.
func (d TopNavData) Can(code string) bool {
	return d.Permissions[code] == 1
}

type link struct {
	code  string
	href  string
	label string
}

var links = []link{
	{code: "PRODUCTION_VIEW", href: "/app/production", label: "Production"},
	{code: "SKU_LIST", href: "/app/skus", label: "SKUs"},
	{code: "ADMIN_USERS_VIEW", href: "/app/admin/users", label: "Users"},
	{code: "EXPORT_XLSX", href: "/app/exports/batches.xlsx", label: "Export today"},
}

// TopNav renders the links the user may follow and a logout button.
func TopNav(d TopNavData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out := `<nav class="topnav">`
		for _, l := range links {
			if d.Can(l.code) {
				out += `<a href="` + l.href + `">` + templ.EscapeString(l.label) + `</a>`
			}
		}
		out += `<span class="user">` + templ.EscapeString(d.Username) + ` (` + templ.EscapeString(d.Role) + `)</span>`
		out += `<form method="post" action="/logout">`
		out += `<input type="hidden" name="_csrf" value="` + templ.EscapeString(sessioncontext.CSRFToken(ctx)) + `">`
		out += `<button type="submit">Log out</button></form></nav>`
		_, err := io.WriteString(w, out)
		return err
	})
}
