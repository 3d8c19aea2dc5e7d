package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/skillcourse/skillcourse-platform/internal/rbac"
)

// AttachRoleFromDB re-reads the role from the users table so a role change
// takes effect before the token expires. The claim role stays in place when
// the account row is gone (it may have been removed mid-session); RBAC still
// gates every route after this.
func AttachRoleFromDB(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)

			var role string
			err := db.QueryRowContext(ctx, `SELECT role FROM users WHERE username=$1`, sub).Scan(&role)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case errors.Is(err, sql.ErrNoRows):
				next.ServeHTTP(w, r)
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
