package context

import (
	"context"

	"batchledger/infrastructure/rbac"
	"batchledger/models"
)

type sessionKey struct{}

type csrfKey struct{}

func NewContextWithSession(ctx context.Context, session models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func GetSessionFromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(models.Session)
	return s, ok
}

// CallerFromContext returns the identity of the logged-in user.
func CallerFromContext(ctx context.Context) (rbac.Caller, bool) {
	s, ok := GetSessionFromContext(ctx)
	if !ok || s.UserID <= 0 {
		return rbac.Caller{}, false
	}
	roles := s.UserRoles
	if len(roles) == 0 && s.User.Role != "" {
		roles = []string{s.User.Role}
	}
	return rbac.Caller{UserID: s.UserID, Username: s.User.Username, Roles: roles}, true
}

func NewContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfKey{}, token)
}

// CSRFToken returns the token views embed in forms.
func CSRFToken(ctx context.Context) string {
	t, _ := ctx.Value(csrfKey{}).(string)
	return t
}
