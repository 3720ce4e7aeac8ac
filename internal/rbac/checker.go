// Package rbac maps the builtin roles onto permission strings and guards
// routes with them.
package rbac

import (
	"context"
	"strings"
)

// Checker answers whether a role holds a permission against a
// role-to-permissions table. A stored "*" grants everything; a trailing "*"
// grants a prefix, e.g. "authoring:*".
type Checker struct {
	roles map[string][]string
}

// NewChecker builds a Checker over the given table, or the default
// RolePermissions when nil.
func NewChecker(roles map[string][]string) *Checker {
	if roles == nil {
		roles = RolePermissions
	}
	return &Checker{roles: roles}
}

func (c *Checker) Has(role, perm string) bool {
	for _, p := range c.roles[role] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// ---- role in context ----

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFromContext returns the role stamped by the auth middleware, or "".
func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(roleKey{}).(string)
	return s
}
