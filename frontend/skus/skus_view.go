package skus

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"batchledger/frontend/shared/html"
	"batchledger/frontend/shared/nav"
)

func SKUsPage(topNav nav.TopNavData, data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := nav.TopNav(topNav).Render(ctx, w); err != nil {
			return err
		}
		var b strings.Builder
		b.WriteString(`<main class="skus">`)
		if data.CanWrite {
			b.WriteString(`<form id="sku-form" class="card"><h2>Add SKU</h2>`)
			b.WriteString(`<label>Code <input name="code" maxlength="32" required></label>`)
			b.WriteString(`<label>Name <input name="name" maxlength="120" required></label>`)
			b.WriteString(`<button type="submit">Add</button><output id="sku-result" aria-live="polite"></output></form>`)
		}
		b.WriteString(`<table id="sku-table"><thead><tr><th>Code</th><th>Name</th><th>Created</th><th></th></tr></thead><tbody>`)
		if len(data.SKUs) == 0 {
			b.WriteString(`<tr><td colspan="4" class="muted">No SKUs</td></tr>`)
		}
		for _, s := range data.SKUs {
			b.WriteString(`<tr data-sku-id="` + templ.EscapeString(s.ID) + `">`)
			b.WriteString(`<td>` + templ.EscapeString(s.Code) + `</td>`)
			b.WriteString(`<td>` + templ.EscapeString(s.Name) + `</td>`)
			b.WriteString(`<td>` + s.CreatedAt.Format("2006-01-02 15:04") + `</td><td>`)
			if data.CanWrite {
				b.WriteString(`<button type="button" class="danger" data-delete-sku="` + templ.EscapeString(s.ID) + `">Delete</button>`)
			}
			b.WriteString(`</td></tr>`)
		}
		b.WriteString(`</tbody></table></main><script src="/assets/app.js" defer></script>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
	return html.Layout("SKUs", body)
}
