package html

import (
	"context"

	"github.com/a-h/templ"

	sessioncontext "batchledger/frontend/shared/context"
)

// CSRFCookieName holds the double-submit token.
const CSRFCookieName = "batchledger_csrf"

// CSRFMetaName is the meta tag page scripts read the token from.
const CSRFMetaName = "csrf-token"

func csrfMeta(ctx context.Context) string {
	return `<meta name="` + CSRFMetaName + `" content="` + templ.EscapeString(sessioncontext.CSRFToken(ctx)) + `">`
}
