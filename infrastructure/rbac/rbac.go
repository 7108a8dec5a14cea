package rbac

import (
	"strings"

	"batchledger/infrastructure/cache"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// ValidRole reports whether role is one the users table accepts.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleOperator
}

// Caller identifies who is asking for an operation.
type Caller struct {
	UserID   int64
	Username string
	Roles    []string
}

// HasRole reports whether the caller holds role.
func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authorizer answers capability questions about a caller.
type Authorizer interface {
	IsAdmin(caller Caller) bool
}

// RoleAuthorizer grants admin capability to callers holding RoleAdmin.
type RoleAuthorizer struct{}

func (RoleAuthorizer) IsAdmin(caller Caller) bool {
	return caller.HasRole(RoleAdmin)
}

// Rbac stores route resources in cache.
type Rbac struct {
	cache *cache.RbacRolesCache
}

func New(c *cache.RbacRolesCache) *Rbac {
	return &Rbac{cache: c}
}

// Add registers code as reachable by role for method and path.
// Path segments may be "*" to match any single segment.
func (r *Rbac) Add(role, code, method, path string) {
	if r == nil || r.cache == nil {
		return
	}
	r.cache.Add(role, cache.Resource{
		Role:             role,
		UserResourceCode: code,
		Method:           strings.ToUpper(method),
		Path:             path,
	})
}

// Allowed reports whether any of roles may call method on urlPath.
func (r *Rbac) Allowed(roles []string, urlPath, method string) bool {
	if r == nil || r.cache == nil || len(roles) == 0 {
		return false
	}
	return ValidateResourceAccess(r.cache.GetRolesAndResources(roles), urlPath, method)
}

func ValidateResourceAccess(resources []cache.Resource, urlPath, method string) bool {
	method = strings.ToUpper(method)
	for _, res := range resources {
		if res.Method != method {
			continue
		}
		if matchPath(res.Path, urlPath) {
			return true
		}
	}
	return false
}

func matchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}

	pattern = strings.Trim(pattern, "/")
	path = strings.Trim(path, "/")

	patternSeg := strings.Split(pattern, "/")
	pathSeg := strings.Split(path, "/")

	if len(patternSeg) == len(pathSeg) {
		for i := range patternSeg {
			if patternSeg[i] == "*" {
				continue
			}
			if patternSeg[i] != pathSeg[i] {
				return false
			}
		}
		return true
	}

	// Trailing "*" also matches deeper paths.
	if len(patternSeg) > 0 && patternSeg[len(patternSeg)-1] == "*" {
		prefix := "/" + strings.Join(patternSeg[:len(patternSeg)-1], "/")
		return strings.HasPrefix("/"+path, prefix+"/") || "/"+path == prefix
	}

	return false
}
