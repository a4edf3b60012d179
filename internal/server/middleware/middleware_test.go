package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xcontext"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (storage.RateLimitResult, error) {
	return storage.RateLimitResult{}, errors.New("redis down")
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimitWithBackend(t *testing.T) {
	t.Parallel()

	backend := storage.NewMemoryBackend(0.001, 1)
	t.Cleanup(func() { _ = backend.Close() })
	h := RateLimitWithBackend(backend)(okHandler)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/api/salla/webhook", nil)
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Reason") != reasonIPRateLimit {
		t.Errorf("headers = %v, want Retry-After and reason", rec.Header())
	}
}

func TestRateLimitBackendFailure(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/", nil)
	RateLimitWithBackend(failingLimiter{})(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims AdminClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	const secret = "admin-secret"
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	valid := AdminClaims{
		TokenType:        "access",
		UserID:           7,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future, Issuer: "dashboard"},
	}
	expired := valid
	expired.ExpiresAt = past
	refresh := valid
	refresh.TokenType = "refresh"
	otherIssuer := valid
	otherIssuer.Issuer = "elsewhere"
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name        string
		verifier    *AdminVerifier
		header      string
		wantStatus  int
		wantSubject string
	}{
		{
			name:        "valid access token",
			verifier:    NewAdminVerifier(secret, "dashboard"),
			header:      "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(secret), valid),
			wantStatus:  http.StatusOK,
			wantSubject: "7",
		},
		{
			name:       "missing header",
			verifier:   NewAdminVerifier(secret, ""),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired",
			verifier:   NewAdminVerifier(secret, ""),
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(secret), expired),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no expiry",
			verifier:   NewAdminVerifier(secret, ""),
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(secret), noExpiry),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "refresh token",
			verifier:   NewAdminVerifier(secret, ""),
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(secret), refresh),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong issuer",
			verifier:   NewAdminVerifier(secret, "dashboard"),
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(secret), otherIssuer),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			verifier:   NewAdminVerifier(secret, ""),
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), valid),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unsigned token",
			verifier:   NewAdminVerifier(secret, ""),
			header:     "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not configured",
			verifier:   NewAdminVerifier("", ""),
			header:     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(secret), valid),
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var subject string
			h := AdminAuth(tt.verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject, _ = xcontext.GetAdminSubject(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/api/salla/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
		})
	}
}
