package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chatrelay/internal/auth"
)

func TestAuthMiddleware(t *testing.T) {
	// Mock next handler
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r) != 123 {
			t.Errorf("Expected userID 123, got %v", UserID(r))
		}
		w.WriteHeader(http.StatusOK)
	})

	validToken, err := auth.SignToken(123)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name           string
		header         string
		query          string
		expectedStatus int
	}{
		{
			name:           "Valid Bearer Token",
			header:         "Bearer " + validToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Valid Query Token",
			query:          validToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Garbage Token",
			header:         "Bearer not.a.token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing Token",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/"
			if tt.query != "" {
				target = "/?token=" + tt.query
			}
			req := httptest.NewRequest("GET", target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			AuthMiddleware(nextHandler).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestAuthMiddlewareRejectsTamperedToken(t *testing.T) {
	token, err := auth.SignToken(123)
	if err != nil {
		t.Fatal(err)
	}
	tampered := token[:len(token)-2] + "xx"

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tampered)
	rr := httptest.NewRecorder()

	AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run for a tampered token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusUnauthorized)
	}
}
