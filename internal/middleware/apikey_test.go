package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKeyMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		key      string
		provided string
		want     int
	}{
		{"disabled check passes", "", "", http.StatusNoContent},
		{"disabled check ignores header", "", "anything", http.StatusNoContent},
		{"correct key", "secret", "secret", http.StatusNoContent},
		{"missing key", "secret", "", http.StatusUnauthorized},
		{"wrong key", "secret", "other", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAPIKeyMiddleware(tt.key).Middleware(next)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.provided != "" {
				req.Header.Set("X-Api-Key", tt.provided)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
