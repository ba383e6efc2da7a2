package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func requestWithClaims(role string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/check-overdue", nil)
	if role == "" {
		return req
	}
	claims := &Claims{UserID: 1, Email: "ops@example.com", Role: role}
	return req.WithContext(context.WithValue(req.Context(), UserContextKey, claims))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		wantStatus int
		wantCalled bool
	}{
		{"admin passes", "admin", http.StatusOK, true},
		{"operator rejected", "operator", http.StatusForbidden, false},
		{"no claims rejected", "", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			rec := httptest.NewRecorder()
			RequireRole("admin")(next).ServeHTTP(rec, requestWithClaims(tt.role))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestRequireRoleAnyOf(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	RequireRole("admin", "operator")(next).ServeHTTP(rec, requestWithClaims("operator"))

	if rec.Code != http.StatusOK || !called {
		t.Errorf("operator should pass a handler allowing admin or operator, got status %d", rec.Code)
	}
}
