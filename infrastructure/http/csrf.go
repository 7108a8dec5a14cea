package http

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"

	sessioncontext "batchledger/frontend/shared/context"
	"batchledger/frontend/shared/html"
	"batchledger/frontend/shared/respond"
	sessioncookie "batchledger/infrastructure/session"
)

const csrfHeaderName = "X-CSRF-Token"

// CSRFMiddleware enforces double-submit tokens on unsafe methods. The token
// travels in a cookie and must be echoed in the X-CSRF-Token header or a
// _csrf form field. Requests without a token pass only when Origin or Referer
// names this host.
func (s *Server) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ensureCSRFToken(w, r)
		r = r.WithContext(sessioncontext.NewContextWithCSRFToken(r.Context(), token))
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		provided := strings.TrimSpace(r.Header.Get(csrfHeaderName))
		if provided == "" && isFormPost(r) {
			provided = strings.TrimSpace(r.FormValue("_csrf"))
		}

		if provided == "" && sameOrigin(r) {
			next.ServeHTTP(w, r)
			return
		}
		if provided == "" || subtle.ConstantTimeCompare([]byte(token), []byte(provided)) != 1 {
			if isAPIRequest(r) {
				respond.Status(w, http.StatusForbidden, "forbidden", "invalid csrf token")
				return
			}
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func sameOrigin(r *http.Request) bool {
	source := r.Header.Get("Origin")
	if source == "" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		return false
	}
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

// isFormPost keeps JSON bodies unread so handlers can decode them.
func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

func ensureCSRFToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(html.CSRFCookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return c.Value
	}
	token := randomToken(32)
	http.SetCookie(w, &http.Cookie{
		Name:     html.CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sessioncookie.SecureCookies,
	})
	return token
}

func randomToken(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
