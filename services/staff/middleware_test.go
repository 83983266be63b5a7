package staff

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func authedHandler(t *testing.T, issuer *TokenIssuer, next http.Handler) http.Handler {
	t.Helper()
	return Auth(issuer)(next)
}

func TestAuthInjectsClaims(t *testing.T) {
	issuer, err := NewTokenIssuer("signing-key", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	member := Member{ID: uuid.New(), StoreID: "s1", Name: "Mina", Role: RoleAdmin}
	token, err := issuer.Issue(member)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen *Claims
	handler := authedHandler(t, issuer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if seen == nil || seen.StoreID != "s1" || seen.UserID != member.ID.String() {
		t.Fatalf("claims = %+v", seen)
	}
}

func TestAuthRejectsMissingOrBadTokens(t *testing.T) {
	issuer, err := NewTokenIssuer("signing-key", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	handler := authedHandler(t, issuer, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without valid auth")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer nope"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	issuer, err := NewTokenIssuer("signing-key", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	protected := authedHandler(t, issuer,
		RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})))

	call := func(role string) int {
		token, err := issuer.Issue(Member{ID: uuid.New(), StoreID: "s1", Name: "X", Role: role})
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := call(RoleAdmin); code != http.StatusNoContent {
		t.Fatalf("admin: status %d", code)
	}
	if code := call(RoleServer); code != http.StatusForbidden {
		t.Fatalf("server: status %d, want 403", code)
	}
}
