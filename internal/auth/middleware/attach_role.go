// internal/auth/middleware/attach_role.go
package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/coursekit/coursekit-lms/internal/rbac"
)

// AttachRoleFromDB swaps the token's role claim for the authoritative role in
// the users table. Subjects match by id or username, so tokens minted from
// either keep working. When the subject has no row, allowClaimFallback
// decides: offline deployments keep the claim, online ones get a 403. An
// admin claim always passes so a fresh database stays reachable.
func AttachRoleFromDB(db *sql.DB, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx)

			var role string
			err := db.QueryRowContext(ctx,
				`SELECT role FROM users WHERE id=$1 OR username=$1`, sub).Scan(&role)
			if err == nil && role != "" {
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
				return
			}

			keepClaim := allowClaimFallback && claimRole != ""
			if errors.Is(err, sql.ErrNoRows) && claimRole == "admin" {
				keepClaim = true
			}
			if keepClaim {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}
