package login

import (
	"context"
	"io"

	"github.com/a-h/templ"

	sessioncontext "batchledger/frontend/shared/context"
	"batchledger/frontend/shared/html"
)

// GetLoginScreen renders the sign-in form.
func GetLoginScreen(errorMessage string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var err error
		write := func(s string) {
			if err == nil {
				_, err = io.WriteString(w, s)
			}
		}
		write(`<main class="login"><h1>Batch Ledger</h1>`)
		if errorMessage != "" {
			write(`<p class="error" role="alert">` + templ.EscapeString(errorMessage) + `</p>`)
		}
		write(`<form method="post" action="/login">`)
		write(`<input type="hidden" name="_csrf" value="` + templ.EscapeString(sessioncontext.CSRFToken(ctx)) + `">`)
		write(`<label>Username <input name="username" autocomplete="username" required autofocus></label>`)
		write(`<label>Password <input name="password" type="password" autocomplete="current-password" required></label>`)
		write(`<button type="submit">Sign in</button></form></main>`)
		return err
	})
	return html.Layout("Sign in", body)
}
