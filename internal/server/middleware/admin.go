package middleware

import "net/http"

// AdminOnly wraps a handler that only the admin role may call. The role is
// fixed per deployment, so the check is a static switch.
func AdminOnly(isAdmin bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !isAdmin {
				writeJSONError(w, http.StatusForbidden, "admin role required")
				return
			}
			next(w, r)
		}
	}
}
