package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HammerMeetNail/guestlist/internal/identity"
)

func TestIdentity_Apply(t *testing.T) {
	tests := []struct {
		name   string
		header string
		wantID string
		wantOK bool
	}{
		{"header present", "user-1", "user-1", true},
		{"header trimmed", "  user-2 ", "user-2", true},
		{"header missing", "", "", false},
		{"header blank", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			var gotErr error
			handler := NewIdentity().Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, gotErr = identity.UserID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(UserIDHeader, tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if (gotErr == nil) != tt.wantOK {
				t.Fatalf("expected ok=%v, got err %v", tt.wantOK, gotErr)
			}
			if gotID != tt.wantID {
				t.Errorf("expected user %q, got %q", tt.wantID, gotID)
			}
		})
	}
}

func TestIdentity_RequireIdentity(t *testing.T) {
	m := NewIdentity()
	called := false
	handler := m.Apply(m.RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/friends", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if called {
		t.Fatal("handler must not run without identity")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/friends", nil)
	req.Header.Set(UserIDHeader, "user-1")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || !called {
		t.Fatalf("expected handler to run, got %d", rr.Code)
	}
}
