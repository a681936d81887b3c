package middleware

import (
	"net/http"
	"strings"

	"github.com/HammerMeetNail/guestlist/internal/identity"
)

// UserIDHeader carries the caller's user ID, set by the authenticating
// gateway in front of this service.
const UserIDHeader = "X-User-ID"

// Identity copies the caller's user ID from the gateway header into the
// request context.
type Identity struct {
	header string
}

func NewIdentity() *Identity {
	return &Identity{header: UserIDHeader}
}

func (m *Identity) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := strings.TrimSpace(r.Header.Get(m.header)); userID != "" {
			r = r.WithContext(identity.WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireIdentity rejects requests without a caller identity.
func (m *Identity) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := identity.UserID(r.Context()); err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
