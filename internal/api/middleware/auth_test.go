package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"stocktrade/pkg/crypto"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthDisabledWithEmptyHash(t *testing.T) {
	handler := Auth("")(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/orders", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", rr.Code)
	}
}

func TestAuthBearerSecret(t *testing.T) {
	hash, err := crypto.HashSecret("device-secret-1")
	if err != nil {
		t.Fatalf("failed to hash secret: %v", err)
	}

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{name: "valid secret", header: "Bearer device-secret-1", expectedStatus: http.StatusOK},
		{name: "wrong secret", header: "Bearer wrong", expectedStatus: http.StatusUnauthorized},
		{name: "missing header", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "not bearer scheme", header: "Basic device-secret-1", expectedStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", expectedStatus: http.StatusUnauthorized},
	}

	handler := Auth(hash)(okHandler())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected %d, got %d", tt.expectedStatus, rr.Code)
			}
			if tt.expectedStatus == http.StatusUnauthorized {
				if rr.Header().Get("WWW-Authenticate") != "Bearer" {
					t.Error("expected WWW-Authenticate: Bearer header")
				}
			}
		})
	}
}
