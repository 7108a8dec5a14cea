package html

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html><html><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+csrfMeta(ctx)+
			`<title>`+templ.EscapeString(title)+` | Batch Ledger</title>`+
			`<link rel="stylesheet" href="/assets/app.css"></head><body>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}
