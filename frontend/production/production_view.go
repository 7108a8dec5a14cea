package production

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"batchledger/frontend/shared/html"
	"batchledger/frontend/shared/nav"
)

// ProductionPage shows today's totals, the submission form and the batch
// history table filled in by /assets/app.js.
func ProductionPage(topNav nav.TopNavData, data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := nav.TopNav(topNav).Render(ctx, w); err != nil {
			return err
		}
		var b strings.Builder
		b.WriteString(`<main class="production" data-date="` + templ.EscapeString(data.Date) + `">`)

		b.WriteString(`<section class="stats">`)
		stat(&b, "stat-today", "Today", data.Stats.TodayQuantity)
		stat(&b, "stat-today-batches", "Batches today", data.Stats.TodayBatches)
		stat(&b, "stat-total", "All time", data.Stats.TotalQuantity)
		b.WriteString(`</section>`)

		b.WriteString(`<form id="batch-form" class="card"><h2>Record production</h2>`)
		if len(data.SKUs) == 0 {
			b.WriteString(`<p class="muted">No SKUs yet. An admin must add one first.</p>`)
		}
		b.WriteString(`<label>SKU <select name="sku_id" required><option value="">Select a SKU</option>`)
		for _, s := range data.SKUs {
			b.WriteString(`<option value="` + templ.EscapeString(s.ID) + `">` + templ.EscapeString(s.Label) + `</option>`)
		}
		b.WriteString(`</select></label>`)
		b.WriteString(`<label>Quantity <input name="quantity" type="number" min="1" step="1" required></label>`)
		b.WriteString(`<button type="submit">Issue batch</button>`)
		b.WriteString(`<output id="batch-result" aria-live="polite"></output></form>`)

		b.WriteString(`<section class="card"><h2>History</h2>`)
		b.WriteString(`<form id="history-search" role="search">`)
		b.WriteString(`<input name="q" type="search" placeholder="SKU code, name or batch number">`)
		b.WriteString(`<input name="start" type="date"><input name="end" type="date">`)
		b.WriteString(`<button type="submit">Search</button></form>`)
		b.WriteString(`<table id="history"><thead><tr><th>Batch Number</th><th>SKU</th><th>Quantity</th><th>Created</th><th></th></tr></thead><tbody></tbody></table>`)
		b.WriteString(`</section></main>`)
		b.WriteString(`<script src="/assets/app.js" defer></script>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
	return html.Layout("Production", body)
}

func stat(b *strings.Builder, id, label string, value int64) {
	b.WriteString(`<div class="stat"><span class="label">` + templ.EscapeString(label) + `</span>`)
	b.WriteString(`<span class="value" id="` + id + `">` + strconv.FormatInt(value, 10) + `</span></div>`)
}
