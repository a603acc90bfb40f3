package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer returned error: %v", err)
	}
	token, err := issuer.GenerateToken("user-1")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	sub, err := issuer.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if sub != "user-1" {
		t.Fatalf("expected subject user-1, got %q", sub)
	}
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	issuer, _ := NewIssuer("secret", time.Hour)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.WithClock(func() time.Time { return base })
	token, _ := issuer.GenerateToken("user-1")

	issuer.WithClock(func() time.Time { return base.Add(2 * time.Hour) })
	if _, err := issuer.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	other, _ := NewIssuer("other-secret", time.Hour)
	foreign, _ := other.GenerateToken("user-1")
	issuer.WithClock(time.Now)
	if _, err := issuer.ParseToken(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign token to be rejected, got %v", err)
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	issuer, _ := NewIssuer("secret", time.Hour)
	token, _ := issuer.GenerateToken("user-7")

	var seen string
	handler := Middleware(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + token, status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/debts", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.status == http.StatusNoContent && seen != "user-7" {
				t.Fatalf("expected user-7 in context, got %q", seen)
			}
		})
	}
}
