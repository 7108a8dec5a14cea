package session

import (
	"net/http"
	"time"
)

const CookieName = "batchledger_session"

// Lifetime is how long a login stays valid.
const Lifetime = 12 * time.Hour

// SecureCookies marks issued cookies Secure. Set once at startup.
var SecureCookies bool

// Cookie carries token for maxAge seconds. A negative maxAge deletes it.
func Cookie(token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   SecureCookies,
	}
}

// LoginCookie is issued on a successful login.
func LoginCookie(token string) *http.Cookie {
	return Cookie(token, int(Lifetime.Seconds()))
}

// ClearCookie expires the session cookie in the browser.
func ClearCookie() *http.Cookie {
	return Cookie("", -1)
}

// Expiry is when a session created at now stops being valid.
func Expiry(now time.Time) time.Time {
	return now.Add(Lifetime)
}
